// Package detect locates and decodes QR payloads in pixel buffers.
//
// The primitive operation is a single decode-and-locate pass (gozxing's QR
// reader). On top of it, ScanAndClear recovers multiple codes coexisting in
// one frame: decode, paint the located symbol white, rescan, until nothing
// further is found or the attempt cap is reached.
//
// Engine.Detect fans out four independent strategies over copies of the
// source buffer and merges their findings:
//
//   - multi-scale: retry at several resampling factors
//   - enhanced-preprocessing: retry after blur, sharpen, local histogram
//     equalization, and morphological closing
//   - binarization sweep: retry after Otsu, adaptive, and fixed thresholds
//   - region-based: scan overlapping tiles independently
//
// Strategies are best-effort: one failing (even panicking) strategy is
// excluded from the merge without disturbing its siblings. The merged result
// is the deduplicated union of every payload string any strategy produced.
package detect
