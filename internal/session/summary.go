package session

import (
	"time"

	"stopmo/internal/camera"
	"stopmo/internal/framestore"
	"stopmo/internal/slideshow"
)

// Summary is a point-in-time view of the session.
type Summary struct {
	SessionID     string
	Frames        int
	FrameLabel    string
	Mode          framestore.Mode
	CaptureDir    string
	Slideshow     slideshow.State
	SlideIndex    int
	Delay         time.Duration
	Hint          string
	GhostOpacity  int
	GhostSecond   bool
	GhostVisible  bool
	Camera        camera.Info
	StageWidth    int
	StageHeight   int
	Status        string
	FallbackShown bool
}

// Summary collects the current state.
func (s *Session) Summary() Summary {
	n := s.store.Len()
	w, h := s.stage.Size()
	sum := Summary{
		SessionID:     s.id,
		Frames:        n,
		FrameLabel:    FrameCountLabel(n),
		Mode:          s.store.Mode(),
		CaptureDir:    s.CaptureDir(),
		Slideshow:     s.slides.State(),
		SlideIndex:    s.slides.Index(),
		Delay:         s.slides.Delay(),
		Hint:          s.slides.Hint(),
		GhostOpacity:  s.ghost.Opacity(),
		GhostSecond:   s.ghost.SecondLayer(),
		GhostVisible:  s.ghost.Visible(),
		StageWidth:    w,
		StageHeight:   h,
		Status:        s.status.Current(),
		FallbackShown: s.store.FallbackNoticeShown(),
	}
	if s.camera != nil {
		sum.Camera = s.camera.Info()
	}
	return sum
}

// FrameInfo describes one frame for listings.
type FrameInfo struct {
	Index  int
	Kind   string
	Name   string
	Width  int
	Height int
}

// Frames lists the sequence in playback order. Width and height are the
// preview dimensions.
func (s *Session) Frames() []FrameInfo {
	records := s.store.Snapshot()
	out := make([]FrameInfo, 0, len(records))
	for i, r := range records {
		out = append(out, FrameInfo{
			Index:  i,
			Kind:   r.Kind(),
			Name:   r.Name(),
			Width:  r.Preview.Width(),
			Height: r.Preview.Height(),
		})
	}
	return out
}

// Notices returns every notice shown so far.
func (s *Session) Notices() []string {
	return s.status.Notices()
}

// Status is the current status line.
func (s *Session) Status() string {
	return s.status.Current()
}

// StagePath and GhostPath are the display files a viewer should watch.
func (s *Session) StagePath() string { return s.stage.Path() }

// GhostPath is the ghost overlay file.
func (s *Session) GhostPath() string { return s.overlay.Path() }
