package prep

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// Blur applies a Gaussian blur with the given radius.
//
// A radius of 0 or less returns an unblurred copy. Larger radii smooth out
// sensor noise and JPEG artifacts that confuse finder-pattern location.
func Blur(img image.Image, radius float64) image.Image {
	return blur.Gaussian(img, radius)
}

// Sharpen applies unsharp masking: the image minus a blurred copy of itself,
// scaled by amount and added back. radius controls the blur used for the
// mask, amount the strength of the correction.
func Sharpen(img image.Image, radius, amount float64) image.Image {
	return effect.UnsharpMask(img, radius, amount)
}

// Dilate grows bright regions by the given kernel size, measured in pixels.
func Dilate(img image.Image, kernelSize int) image.Image {
	return effect.Dilate(img, morphRadius(kernelSize))
}

// Erode shrinks bright regions by the given kernel size, measured in pixels.
func Erode(img image.Image, kernelSize int) image.Image {
	return effect.Erode(img, morphRadius(kernelSize))
}

// Close performs morphological closing (dilate then erode). It fills small
// dark gaps and pinholes inside QR modules without changing module size.
func Close(img image.Image, kernelSize int) image.Image {
	return effect.Erode(effect.Dilate(img, morphRadius(kernelSize)), morphRadius(kernelSize))
}

// morphRadius maps an odd kernel size (3, 5, ...) onto the structuring
// element radius expected by the bild morphology operators.
func morphRadius(kernelSize int) float64 {
	if kernelSize < 1 {
		kernelSize = 1
	}
	return float64(kernelSize) / 2
}

// luminance computes the BT.601 luma of an 8-bit RGB triple.
func luminance(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
