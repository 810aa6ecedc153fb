package session

import (
	"fmt"
	"time"

	"stopmo/internal/slideshow"
)

// Play starts the slideshow from the first frame.
func (s *Session) Play() bool {
	return s.slides.Start(false)
}

// Pause halts playback, keeping the cursor.
func (s *Session) Pause() bool {
	return s.slides.Pause()
}

// Toggle flips playback between running and paused.
func (s *Session) Toggle() slideshow.State {
	return s.slides.Toggle()
}

// SetDelay changes the slideshow interval in milliseconds and returns the
// value applied after clamping.
func (s *Session) SetDelay(ms int) time.Duration {
	d := s.slides.SetDelay(time.Duration(ms) * time.Millisecond)
	if s.slides.State() != slideshow.Running {
		s.status.Status(fmt.Sprintf("delay %dms", d.Milliseconds()))
	}
	return d
}

// SetGhostOpacity quantizes pct to a ghost stop and redraws the overlay.
func (s *Session) SetGhostOpacity(pct float64) int {
	return s.ghost.SetOpacity(pct)
}

// SetSecondLayer includes or drops the previous frame from the overlay.
func (s *Session) SetSecondLayer(on bool) {
	s.ghost.SetSecondLayer(on)
}
