package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stopmo/internal/camera"
	"stopmo/internal/capturedir"
	"stopmo/internal/config"
	"stopmo/internal/display"
	"stopmo/internal/export"
	"stopmo/internal/framestore"
	"stopmo/internal/ghost"
	"stopmo/internal/history"
	"stopmo/internal/logging"
	"stopmo/internal/preview"
	"stopmo/internal/services"
	"stopmo/internal/slideshow"
)

// ErrSessionLocked means another session holds the state directory.
var ErrSessionLocked = errors.New("another stopmo session is running")

// Deps are the collaborators a Session is built from.
type Deps struct {
	Config *config.Config
	// Camera may be nil for sessions fed only through AddImage.
	Camera camera.Camera
	// Pickers select the capture directory, tried in order.
	Pickers []capturedir.Picker
	// ForceMemory keeps every frame in memory regardless of config.
	ForceMemory bool
	Recorder    export.Recorder
	// History may be nil; exports are then written but not recorded.
	History   *history.Store
	Output    Output
	Logger    *slog.Logger
	SessionID string
	// AccessCheck overrides the capture directory permission probe.
	AccessCheck capturedir.AccessFunc
	// TickerFactory overrides slideshow timing.
	TickerFactory slideshow.TickerFactory
	Progress      func(export.Progress)
	Clock         func() time.Time
}

// Session is one capture session.
type Session struct {
	opMu sync.Mutex

	id      string
	cfg     *config.Config
	logger  *slog.Logger
	status  *statusLine
	camera  camera.Camera
	dirs    *capturedir.Manager
	store   *framestore.Store
	slides  *slideshow.Scheduler
	ghost   *ghost.Compositor
	encoder *export.Encoder
	stage   *display.Stage
	overlay *display.Overlay
	history *history.Store
	now     func() time.Time
}

// New wires a session. It does not touch the camera; call Start for that.
func New(deps Deps) (*Session, error) {
	if deps.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "new", "config required", nil)
	}
	cfg := deps.Config
	id := deps.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	s := &Session{
		id:      id,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "session"),
		status:  newStatusLine(deps.Output),
		camera:  deps.Camera,
		history: deps.History,
		now:     now,
	}

	dirOpts := []capturedir.Option{capturedir.WithLogger(logger)}
	if deps.AccessCheck != nil {
		dirOpts = append(dirOpts, capturedir.WithAccessCheck(deps.AccessCheck))
	}
	s.dirs = capturedir.NewManager(deps.Pickers, dirOpts...)
	persistent := !deps.ForceMemory && len(deps.Pickers) > 0 && cfg.PersistentCapture(s.dirs.Available())

	s.store = framestore.New(framestore.Deps{
		Persistent:  persistent,
		Directories: framestore.FromManager(s.dirs),
		Previews:    preview.New(cfg.Capture.PreviewMaxDimension, logger),
		Notifier:    s.status,
		Logger:      logger,
		JPEGQuality: cfg.Capture.JPEGQuality,
	}, framestore.WithClock(now))

	s.stage = display.NewStage(cfg.Display.Dir, logger)
	s.overlay = display.NewOverlay(cfg.Display.Dir, logger)

	slideOpts := []slideshow.Option{
		slideshow.WithDelay(cfg.SlideshowDelay()),
		slideshow.WithLogger(logger),
		slideshow.WithStatus(s.status.Status),
	}
	if deps.TickerFactory != nil {
		slideOpts = append(slideOpts, slideshow.WithTickerFactory(deps.TickerFactory))
	}
	s.slides = slideshow.New(s.store, s.stage, slideOpts...)

	s.ghost = ghost.New(s.store, s.overlay,
		ghost.WithOpacity(cfg.Ghost.Opacity),
		ghost.WithSecondLayer(cfg.Ghost.SecondLayer),
		ghost.WithLogger(logger),
	)

	encOpts := []export.Option{
		export.WithLogger(logger),
		export.WithPreviewMaxDimension(cfg.Capture.PreviewMaxDimension),
		export.WithGIFWorkers(cfg.Export.GIFWorkers),
		export.WithRecorder(deps.Recorder),
		export.WithStatus(s.status.Status),
		export.WithClock(now),
	}
	if cfg.Export.Realtime {
		encOpts = append(encOpts, export.WithPacer(export.RealtimeFactory))
	}
	if deps.Progress != nil {
		encOpts = append(encOpts, export.WithProgress(deps.Progress))
	}
	s.encoder = export.New(encOpts...)

	s.logger.Info("session created",
		logging.String(logging.FieldCaptureMode, s.store.Mode().String()),
		logging.String(logging.FieldEventType, "session_created"),
	)
	return s, nil
}

// ID is the session identifier used in logs and export history.
func (s *Session) ID() string { return s.id }

// Start opens the camera and sizes the stage from it. Sessions without a
// camera keep the default stage.
func (s *Session) Start(ctx context.Context) error {
	if s.camera == nil {
		return nil
	}
	s.status.Status(camera.StatusRequesting)
	info, err := s.camera.Open(ctx)
	if err != nil {
		s.status.Status(camera.StatusError)
		logging.ErrorWithContext(s.logger, "camera unavailable", "camera_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check camera.device and that the user can read it"),
			logging.String(logging.FieldImpact, "snaps are unavailable until the camera opens"),
		)
		return err
	}
	s.applyCamera(info)
	s.status.Status(camera.StatusReady)
	return nil
}

func (s *Session) applyCamera(info camera.Info) {
	s.stage.Resize(info.Width, info.Height)
	if info.Width > 0 && info.Height > 0 {
		s.ghost.SetVideoSize(info.Width, info.Height)
		return
	}
	s.ghost.SetVideoSize(s.stage.Size())
}

// Flip switches camera facing.
func (s *Session) Flip(ctx context.Context) (camera.Info, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.camera == nil {
		return camera.Info{}, services.Wrap(services.ErrConfiguration, "session", "flip", "no camera", nil)
	}
	s.status.Status(camera.StatusRequesting)
	info, err := s.camera.Flip(ctx)
	if err != nil {
		s.status.Status(camera.StatusError)
		return camera.Info{}, err
	}
	s.applyCamera(info)
	s.status.Status(camera.StatusReady)
	return info, nil
}

// Close stops playback and releases the capture directory. Frames on disk
// stay where they are.
func (s *Session) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.slides.Close()
	var errs []error
	if s.camera != nil {
		errs = append(errs, s.camera.Close())
	}
	errs = append(errs, s.dirs.Close())
	s.logger.Info("session closed",
		logging.Int(logging.FieldFrameCount, s.store.Len()),
		logging.String(logging.FieldEventType, "session_closed"),
	)
	return errors.Join(errs...)
}

// Lock holds the single-session lock for a state directory.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the session lock at path without blocking.
func AcquireLock(path string) (*Lock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("session lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrSessionLocked, path)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
