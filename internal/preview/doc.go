// Package preview derives bounded-size display bitmaps from full-resolution
// captures.
//
// The longer edge is scaled down to a fixed maximum (never up) with a
// Lanczos3 resize; when that path fails the pipeline redraws the source into
// an intermediate RGBA canvas with a bilinear scaler. A preview is either a
// decodable, non-empty bitmap or an explicit ErrPreviewGenerationFailed.
package preview
