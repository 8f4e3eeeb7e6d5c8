package detect

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/Kanantorn/pdf-image-qr-code-decoder/internal/prep"
)

// multiScale resamples the buffer at a fixed ladder of factors and scans
// each size, stopping at the first factor that yields any payload. Rescaling
// often rescues codes whose module size confuses the reader at native
// resolution.
func (e *Engine) multiScale(img image.Image) ([]string, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	for _, factor := range e.scales {
		sw := int(float64(w) * factor)
		sh := int(float64(h) * factor)
		if sw < MinDimension || sh < MinDimension {
			continue
		}

		var buf *image.NRGBA
		if factor == 1.0 {
			buf = imaging.Clone(img)
		} else {
			buf = imaging.Resize(img, sw, sh, imaging.Lanczos)
		}

		if payloads := ScanAndClear(buf); len(payloads) > 0 {
			return payloads, nil
		}
	}
	return nil, nil
}

// preprocessed runs an ordered pipeline of enhancement stages, scanning
// after each one and stopping at the first stage that yields a payload. The
// identity stage comes first so clean input costs a single pass.
func (e *Engine) preprocessed(img image.Image) ([]string, error) {
	stages := []func(image.Image) image.Image{
		func(src image.Image) image.Image { return src },
		func(src image.Image) image.Image { return prep.Blur(src, 1.5) },
		func(src image.Image) image.Image { return prep.Sharpen(src, 1.0, 1.5) },
		func(src image.Image) image.Image { return prep.LocalHistEqualize(src, 64) },
		func(src image.Image) image.Image { return prep.Close(src, 3) },
	}

	for _, stage := range stages {
		buf := imaging.Clone(stage(img))
		if payloads := ScanAndClear(buf); len(payloads) > 0 {
			return payloads, nil
		}
	}
	return nil, nil
}

// binarization sweeps a ladder of thresholding methods, hardest-working
// first: Otsu, then adaptive thresholding at three window sizes, then three
// fixed cuts. The first method yielding a payload wins.
func (e *Engine) binarization(img image.Image) ([]string, error) {
	methods := []func(image.Image) *image.Gray{
		prep.OtsuThreshold,
	}
	for _, window := range e.windows {
		w := window
		methods = append(methods, func(src image.Image) *image.Gray {
			return prep.AdaptiveThreshold(src, w, e.sensitivity)
		})
	}
	for _, level := range e.fixedLevels {
		l := level
		methods = append(methods, func(src image.Image) *image.Gray {
			return prep.Threshold(src, l)
		})
	}

	for _, method := range methods {
		if payloads := ScanAndClear(method(img)); len(payloads) > 0 {
			return payloads, nil
		}
	}
	return nil, nil
}

// regions tiles the buffer into overlapping squares and scans every tile
// independently, accumulating all hits. Unlike the other strategies there is
// no early stop: tiles are independent and a code can sit in any of them.
func (e *Engine) regions(img image.Image) ([]string, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	tile := max(w, h) / 2
	if tile > 512 {
		tile = 512
	}
	if tile < MinDimension {
		tile = MinDimension
	}
	stride := tile - tile/5 // 20% overlap

	var payloads []string
	for _, y := range tileOffsets(h, tile, stride) {
		for _, x := range tileOffsets(w, tile, stride) {
			rect := image.Rect(bounds.Min.X+x, bounds.Min.Y+y,
				bounds.Min.X+x+tile, bounds.Min.Y+y+tile)
			buf := imaging.Crop(img, rect)
			payloads = append(payloads, ScanAndClear(buf)...)
		}
	}
	return payloads, nil
}

// tileOffsets returns the start offsets of tile-sized windows covering a
// span of the given length, stepping by stride, with the last window pulled
// back so it ends exactly at the edge.
func tileOffsets(length, tile, stride int) []int {
	if tile >= length {
		return []int{0}
	}
	var offsets []int
	for pos := 0; ; pos += stride {
		if pos+tile >= length {
			offsets = append(offsets, length-tile)
			return offsets
		}
		offsets = append(offsets, pos)
	}
}
