package prep

import (
	"image"
)

// LocalHistEqualize performs per-tile histogram equalization. The image is
// divided into tileSize x tileSize tiles (edge tiles may be smaller); within
// each tile the cumulative luminance distribution is remapped onto the full
// 0..255 range, stretching local contrast so faint codes on washed-out page
// regions become separable.
//
// Color is preserved by scaling each RGB channel by the ratio of new to old
// luminance rather than equalizing channels independently, which would shift
// hues.
func LocalHistEqualize(img image.Image, tileSize int) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if tileSize < 8 {
		tileSize = 8
	}

	src := toNRGBA(img)

	for ty := 0; ty < h; ty += tileSize {
		for tx := 0; tx < w; tx += tileSize {
			x1 := clamp(tx+tileSize, 0, w)
			y1 := clamp(ty+tileSize, 0, h)
			equalizeTile(src, out, tx, ty, x1, y1)
		}
	}
	return out
}

// equalizeTile remaps the luminance of one tile through its own CDF.
func equalizeTile(src, out *image.NRGBA, x0, y0, x1, y1 int) {
	var hist [256]int
	count := (x1 - x0) * (y1 - y0)
	if count == 0 {
		return
	}

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := y*src.Stride + x*4
			hist[luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2])]++
		}
	}

	// CDF remap anchored at the first occupied bin so the darkest
	// luminance present maps to 0 and the brightest to 255.
	var cdf [256]int
	running := 0
	cdfMin := 0
	seenMin := false
	for v := 0; v < 256; v++ {
		running += hist[v]
		cdf[v] = running
		if !seenMin && hist[v] > 0 {
			cdfMin = running
			seenMin = true
		}
	}

	denom := count - cdfMin
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			i := y*src.Stride + x*4
			r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
			oldLum := luminance(r, g, b)

			var newLum int
			if denom <= 0 {
				newLum = int(oldLum) // flat tile, nothing to stretch
			} else {
				newLum = (cdf[oldLum] - cdfMin) * 255 / denom
			}

			if oldLum == 0 {
				gray := uint8(newLum)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = gray, gray, gray
			} else {
				out.Pix[i] = scaleChannel(r, newLum, int(oldLum))
				out.Pix[i+1] = scaleChannel(g, newLum, int(oldLum))
				out.Pix[i+2] = scaleChannel(b, newLum, int(oldLum))
			}
			out.Pix[i+3] = src.Pix[i+3]
		}
	}
}

// scaleChannel multiplies a channel by newLum/oldLum, saturating at 255.
func scaleChannel(c uint8, newLum, oldLum int) uint8 {
	v := int(c) * newLum / oldLum
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// toNRGBA returns the image as an origin-anchored NRGBA buffer, copying only
// when the underlying representation differs.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == image.Pt(0, 0) {
		return n
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*out.Stride + x*4
			out.Pix[i] = uint8(r >> 8)
			out.Pix[i+1] = uint8(g >> 8)
			out.Pix[i+2] = uint8(b >> 8)
			out.Pix[i+3] = uint8(a >> 8)
		}
	}
	return out
}
