// Package session coordinates one interactive capture session.
//
// A Session owns the frame store, the capture directory manager, the
// slideshow scheduler, the ghost compositor, the export encoder, and the
// display surfaces, and hands each component only the slice of state it
// needs. User-paced operations (snap, remove, clear, exports) are
// serialized; playback runs on the scheduler's own goroutine. Finished
// exports are written to the output directory and recorded in the export
// history.
package session
