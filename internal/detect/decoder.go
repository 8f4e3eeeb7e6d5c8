package detect

import (
	"image"
	"image/draw"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

const (
	// MinDimension is the processing floor: buffers with any dimension
	// below it are not scanned at all.
	MinDimension = 50

	// MaxScanAttempts caps the scan-and-clear loop on one buffer. The cap
	// is a fixed constant independent of buffer size.
	MaxScanAttempts = 10
)

// decodeHints asks the reader to spend extra effort on low-quality input.
var decodeHints = map[gozxing.DecodeHintType]interface{}{
	gozxing.DecodeHintType_TRY_HARDER: true,
}

// decodeAndLocate runs one QR decode pass over the buffer. It returns the
// decoded payload and the bounding rectangle of the located symbol, or
// ok=false when no code is found.
func decodeAndLocate(img image.Image) (payload string, region image.Rectangle, ok bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", image.Rectangle{}, false
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, decodeHints)
	if err != nil {
		return "", image.Rectangle{}, false
	}

	return result.GetText(), locate(result.GetResultPoints(), img.Bounds()), true
}

// locate turns the reader's result points (finder and alignment pattern
// centers) into a paintable rectangle. The points sit inside the symbol, so
// the box is grown by a third of its span on every side to cover the full
// quadrilateral including the quiet zone.
func locate(points []gozxing.ResultPoint, bounds image.Rectangle) image.Rectangle {
	if len(points) == 0 {
		return image.Rectangle{}
	}

	minX, minY := points[0].GetX(), points[0].GetY()
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.GetX() < minX {
			minX = p.GetX()
		}
		if p.GetX() > maxX {
			maxX = p.GetX()
		}
		if p.GetY() < minY {
			minY = p.GetY()
		}
		if p.GetY() > maxY {
			maxY = p.GetY()
		}
	}

	marginX := (maxX - minX) / 3
	marginY := (maxY - minY) / 3
	// Degenerate spans (single result point) still get a paintable box.
	if marginX < 8 {
		marginX = 8
	}
	if marginY < 8 {
		marginY = 8
	}

	r := image.Rect(
		int(minX-marginX), int(minY-marginY),
		int(maxX+marginX)+1, int(maxY+marginY)+1,
	)
	return r.Intersect(bounds)
}

// ScanAndClear repeatedly decodes the buffer, painting each located symbol
// white so codes hidden behind it become visible to the next pass. The
// buffer is mutated; callers pass an owned copy.
//
// The loop stops when a pass finds nothing or after MaxScanAttempts passes.
func ScanAndClear(buf draw.Image) []string {
	var payloads []string
	seen := make(map[string]bool)

	for attempt := 0; attempt < MaxScanAttempts; attempt++ {
		payload, region, ok := decodeAndLocate(buf)
		if !ok {
			break
		}
		if !seen[payload] {
			seen[payload] = true
			payloads = append(payloads, payload)
		}
		if region.Empty() {
			break
		}
		draw.Draw(buf, region, image.White, image.Point{}, draw.Src)
	}
	return payloads
}
