// Package ffmpeg records raw RGBA frames into MP4 or WebM files by piping
// them into an ffmpeg child process.
//
// Recorder implements export.Recorder: Supports maps a container MIME type
// onto an encoder and checks it against `ffmpeg -encoders`; Start launches
// one process per recording that reads rawvideo from stdin and writes a
// temporary file, which Finish returns as bytes.
package ffmpeg
