// Package display renders session surfaces to PNG files.
//
// The live stage (slideshow playback, or the photo being recorded during a
// video export) and the ghost overlay are written atomically into the
// display directory so any auto-reloading image viewer can follow them.
package display
