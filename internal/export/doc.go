// Package export turns a frame sequence into a shareable GIF or video.
//
// Both kinds start by resolving records to full-resolution bitmaps (falling
// back to previews when the originals are gone), then either quantize frames
// into an animated GIF or drive a fixed-rate draw loop into a Recorder.
// Bitmaps decoded for an export are released when it ends; previews are never
// released here. An export never mutates the frame store.
package export
