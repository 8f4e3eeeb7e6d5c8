package prep

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
)

// Threshold binarizes the image against a fixed global luminance cut.
// Pixels brighter than value become background (255), the rest foreground (0).
func Threshold(img image.Image, value uint8) *image.Gray {
	return segment.Threshold(img, value)
}

// OtsuThreshold binarizes the image using the threshold chosen by Otsu's
// method (see OtsuLevel).
func OtsuThreshold(img image.Image) *image.Gray {
	return Threshold(img, OtsuLevel(img))
}

// OtsuLevel computes the global threshold that maximizes the inter-class
// variance between the dark and light partitions of the 256-bin luminance
// histogram. This is the standard two-class discriminant: for each candidate
// cut t the weighted variance w0*w1*(mu0-mu1)^2 is evaluated and the best t
// wins.
//
// The chosen level depends only on the histogram shape, so a global
// brightness shift that preserves the ordering of the two dominant luminance
// regions moves the threshold with the shift rather than changing which
// pixels land on each side.
func OtsuLevel(img image.Image) uint8 {
	lum := luminancePlane(img)
	bounds := lum.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 128
	}

	var hist [256]int
	for i := range lum.Pix {
		hist[lum.Pix[i]]++
	}

	var sumAll float64
	for v := 0; v < 256; v++ {
		sumAll += float64(v) * float64(hist[v])
	}

	var (
		sumBg     float64
		weightBg  int
		bestVar   float64
		bestLevel uint8
	)
	for t := 0; t < 256; t++ {
		weightBg += hist[t]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}

		sumBg += float64(t) * float64(hist[t])
		meanBg := sumBg / float64(weightBg)
		meanFg := (sumAll - sumBg) / float64(weightFg)

		diff := meanBg - meanFg
		between := float64(weightBg) * float64(weightFg) * diff * diff
		if between > bestVar {
			bestVar = between
			bestLevel = uint8(t)
		}
	}
	return bestLevel
}

// AdaptiveThreshold binarizes each pixel against the mean luminance of its
// surrounding windowSize x windowSize neighborhood scaled by sensitivity
// (typically ~0.85): pixels darker than localMean*sensitivity become
// foreground (0), the rest background (255).
//
// The window means come from a luminance integral image (2D prefix sum)
// built once up front, so each pixel costs O(1) instead of the naive
// O(windowSize^2). This keeps large windows on large pages affordable.
func AdaptiveThreshold(img image.Image, windowSize int, sensitivity float64) *image.Gray {
	lum := luminancePlane(img)
	bounds := lum.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	out := image.NewGray(bounds)
	if w == 0 || h == 0 {
		return out
	}
	if windowSize < 3 {
		windowSize = 3
	}
	half := windowSize / 2

	// integral[y][x] holds the sum of the luminance rectangle [0,x) x [0,y),
	// one row and column larger than the image so window sums never branch.
	integral := make([]uint64, (w+1)*(h+1))
	stride := w + 1
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(lum.Pix[y*lum.Stride+x])
			integral[(y+1)*stride+(x+1)] = integral[y*stride+(x+1)] + rowSum
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0 := clamp(x-half, 0, w-1)
			x1 := clamp(x+half, 0, w-1) + 1
			y0 := clamp(y-half, 0, h-1)
			y1 := clamp(y+half, 0, h-1) + 1

			sum := integral[y1*stride+x1] - integral[y0*stride+x1] -
				integral[y1*stride+x0] + integral[y0*stride+x0]
			mean := float64(sum) / float64((x1-x0)*(y1-y0))

			if float64(lum.Pix[y*lum.Stride+x]) < mean*sensitivity {
				out.Pix[y*out.Stride+x] = 0
			} else {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// luminancePlane extracts the BT.601 luma of every pixel into a Gray image
// whose bounds start at the origin.
func luminancePlane(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == image.Pt(0, 0) {
		return g
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out.Pix[y*out.Stride+x] = luminance(uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return out
}
