package session

import (
	"fmt"
	"sync"
)

// Output receives user-facing messages from a session.
type Output interface {
	// Notice is something the user must read or act on.
	Notice(msg string)
	// Status replaces the ambient status line.
	Status(msg string)
}

type nopOutput struct{}

func (nopOutput) Notice(string) {}
func (nopOutput) Status(string) {}

// statusLine remembers the latest status and forwards everything to out.
type statusLine struct {
	mu      sync.Mutex
	out     Output
	current string
	notices []string
}

func newStatusLine(out Output) *statusLine {
	if out == nil {
		out = nopOutput{}
	}
	return &statusLine{out: out}
}

func (s *statusLine) Status(msg string) {
	s.mu.Lock()
	s.current = msg
	s.mu.Unlock()
	s.out.Status(msg)
}

func (s *statusLine) Notice(msg string) {
	s.mu.Lock()
	s.notices = append(s.notices, msg)
	s.mu.Unlock()
	s.out.Notice(msg)
}

func (s *statusLine) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *statusLine) Notices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notices...)
}

// FrameCountLabel renders "1 frame" or "N frames".
func FrameCountLabel(n int) string {
	if n == 1 {
		return "1 frame"
	}
	return fmt.Sprintf("%d frames", n)
}
