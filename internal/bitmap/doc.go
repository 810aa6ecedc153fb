// Package bitmap wraps decoded images in an explicitly owned resource.
//
// A Bitmap is released exactly once by its owner: frame records own their
// preview bitmaps, exports own the volatile full-resolution bitmaps they decode.
// Release is idempotent and reports whether the call performed the release, so
// owners can assert single-release semantics in tests. The package also hosts
// the letterbox helpers every surface uses to draw a bitmap into a fixed box.
package bitmap
