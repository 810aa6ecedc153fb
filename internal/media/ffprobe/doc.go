// Package ffprobe inspects finished export artifacts with ffprobe.
//
// Inspect runs ffprobe with JSON output and decodes the container and video
// stream fields the export history records (codec, size, frame count,
// duration). Helpers on Result tolerate the string-typed numbers ffprobe
// emits.
package ffprobe
