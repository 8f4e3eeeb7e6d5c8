// Package prep provides the pixel-buffer transforms used by the detection
// strategies: blurring, sharpening, local histogram equalization,
// luminance-based morphology, and several binarization methods.
//
// Every transform is pure and deterministic: it takes a source image plus
// parameters and returns a freshly allocated buffer with the same
// dimensions. Sources are never mutated, so the same input can be fed to
// multiple transforms concurrently.
//
// # Luminance
//
// Wherever a transform needs a single brightness value per pixel it uses the
// ITU-R BT.601 weighting (0.299*R + 0.587*G + 0.114*B), matching the rest of
// the codebase.
//
// # Binarization Conventions
//
// Binarized outputs are *image.Gray with exactly two values: 0 (foreground,
// dark) and 255 (background, light). Threshold applies a fixed global cut,
// OtsuThreshold derives the cut from the two-class luminance histogram, and
// AdaptiveThreshold compares each pixel against its local window mean scaled
// by a sensitivity factor.
package prep
