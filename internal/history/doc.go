// Package history records produced export artifacts in a SQLite database.
//
// Each GIF or video written to the output directory gets one row holding
// its name, MIME type, size, frame count, preview-fallback flag, and the
// session that produced it. `stopmo exports` lists the rows newest first.
// Frames themselves are never stored here.
package history
