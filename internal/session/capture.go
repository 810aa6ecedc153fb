package session

import (
	"context"
	"image"

	"stopmo/internal/capturedir"
	"stopmo/internal/framestore"
	"stopmo/internal/logging"
	"stopmo/internal/services"
	"stopmo/internal/slideshow"
)

// Snap grabs a frame from the camera and captures it.
func (s *Session) Snap(ctx context.Context) (*framestore.Record, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.camera == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "snap", "no camera", nil)
	}
	img, err := s.camera.Snapshot(ctx)
	if err != nil {
		s.status.Status(framestore.StatusCaptureFailed)
		logging.WarnWithContext(s.logger, "camera snapshot failed", "snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the camera is connected and not in use"),
			logging.String(logging.FieldImpact, "no frame captured"),
		)
		return nil, err
	}
	return s.captureLocked(ctx, img)
}

// AddImage captures an already decoded image as the next frame.
func (s *Session) AddImage(ctx context.Context, img image.Image) (*framestore.Record, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.captureLocked(ctx, img)
}

func (s *Session) captureLocked(ctx context.Context, img image.Image) (*framestore.Record, error) {
	record, err := s.store.CaptureImage(ctx, img)
	if err != nil {
		return nil, err
	}
	n := s.store.Len()
	switch {
	case n == 1:
		s.stage.Show(record.Preview)
		s.slides.FramesChanged()
	case n >= 2 && s.cfg.Slideshow.Autostart:
		s.slides.Start(false)
	default:
		s.slides.FramesChanged()
		if s.slides.State() != slideshow.Running {
			s.stage.Show(record.Preview)
		}
	}
	s.ghost.Refresh()
	// Save status wins over the slideshow status.
	if record.Disk != nil {
		s.status.Status(framestore.StatusSavedDisk)
	} else {
		s.status.Status(framestore.StatusSavedMemory)
	}
	return record, nil
}

// Remove deletes the frame at a zero-based index.
func (s *Session) Remove(index int) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.store.Remove(index); err != nil {
		return err
	}
	s.slides.FramesChanged()
	switch {
	case s.store.Len() == 0:
		s.stage.Clear()
	case s.slides.State() != slideshow.Running:
		s.slides.ShowCurrent()
	}
	s.ghost.Refresh()
	return nil
}

// Clear drops every frame.
func (s *Session) Clear() int {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.slides.Stop(true)
	n := s.store.Clear()
	s.stage.Clear()
	s.ghost.Refresh()
	return n
}

// ChangeFolder asks the pickers for a new capture directory. Existing
// frames keep pointing at the directory they were written to.
func (s *Session) ChangeFolder(ctx context.Context) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	dir, err := s.dirs.Reselect(ctx)
	if err != nil {
		return "", err
	}
	s.status.Status("capture folder " + dir.Path())
	if s.store.Mode() == framestore.ModeMemory {
		s.status.Notice("This session already switched to memory capture; new snaps stay in memory.")
	}
	return dir.Path(), nil
}

// CaptureDir is the active capture directory, or "" in memory mode or
// before the first disk snap.
func (s *Session) CaptureDir() string {
	if s.store.Mode() == framestore.ModeMemory {
		return ""
	}
	return currentPath(s.dirs)
}

func currentPath(m *capturedir.Manager) string {
	if dir := m.Current(); dir != nil {
		return dir.Path()
	}
	return ""
}
