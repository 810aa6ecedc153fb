// Package slideshow cycles frame previews onto a display surface at a fixed
// interval.
//
// The Scheduler moves between Stopped, Running, and Paused. It needs at least
// two frames to run and stops by itself when the sequence shrinks below that.
// Each cycle carries a generation number; a tick from a cancelled cycle never
// draws.
package slideshow
