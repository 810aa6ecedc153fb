package framestore

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"strings"
	"sync"
	"time"

	"stopmo/internal/bitmap"
	"stopmo/internal/capturedir"
	"stopmo/internal/logging"
	"stopmo/internal/services"
)

// MemoryFallbackNotice is shown once when the session degrades to memory.
const MemoryFallbackNotice = "Saving to disk is unavailable; snaps will stay in memory for this session."

// Status lines.
const (
	StatusSavedDisk         = "saved to disk"
	StatusSavedMemory       = "saved (memory only)"
	StatusFolderRequired    = "folder required"
	StatusDiskUnavailable   = "memory capture (disk unavailable)"
	StatusDiskWriteFailed   = "memory capture (disk write failed)"
	StatusPreviewError      = "preview error"
	StatusCaptureFailed     = "capture failed"
	StatusFrameRemoved      = "frame removed"
	StatusNoFrames          = "no frames"
	StatusCleared           = "cleared"
)

const (
	defaultJPEGQuality    = 98
	defaultFrameExtension = "jpg"
)

// Notifier surfaces user-facing messages. Notice is for things the user must
// act on; Status updates the ambient status line.
type Notifier interface {
	Notice(msg string)
	Status(msg string)
}

// Directories yields the active capture directory.
type Directories interface {
	Ensure(ctx context.Context) (FileStore, error)
}

// DirectoriesFunc adapts a function to Directories.
type DirectoriesFunc func(ctx context.Context) (FileStore, error)

// Ensure calls f.
func (f DirectoriesFunc) Ensure(ctx context.Context) (FileStore, error) { return f(ctx) }

// FromManager adapts a capture directory manager.
func FromManager(m *capturedir.Manager) Directories {
	return DirectoriesFunc(func(ctx context.Context) (FileStore, error) {
		dir, err := m.Ensure(ctx)
		if err != nil {
			return nil, err
		}
		return dir, nil
	})
}

// PreviewDeriver builds the small playback bitmap for a capture.
type PreviewDeriver interface {
	Derive(ctx context.Context, src image.Image) (*bitmap.Bitmap, error)
}

// Shot is a single camera grab. Image is required for the preview; Data,
// when set, is stored verbatim instead of re-encoding Image.
type Shot struct {
	Image image.Image
	Data  []byte
	Ext   string
}

// Deps are the collaborators a Store needs.
type Deps struct {
	// Persistent is the capability flag resolved at startup.
	Persistent  bool
	Directories Directories
	Previews    PreviewDeriver
	Notifier    Notifier
	Logger      *slog.Logger
	JPEGQuality int
}

// Option tweaks a Store.
type Option func(*Store)

// WithClock overrides the time source used for frame names.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNonce overrides the random suffix used for frame names.
func WithNonce(nonce func() string) Option {
	return func(s *Store) {
		if nonce != nil {
			s.nonce = nonce
		}
	}
}

// Store is the ordered frame sequence plus the capture mode.
type Store struct {
	mu          sync.Mutex
	frames      []*Record
	mode        Mode
	noticeShown bool

	dirs     Directories
	previews PreviewDeriver
	notifier Notifier
	logger   *slog.Logger
	quality  int
	now      func() time.Time
	nonce    func() string
}

// New builds a store. Without a Directories provider the store starts in
// memory mode regardless of Persistent.
func New(deps Deps, opts ...Option) *Store {
	s := &Store{
		mode:     ModeMemory,
		dirs:     deps.Directories,
		previews: deps.Previews,
		notifier: deps.Notifier,
		logger:   logging.NewComponentLogger(deps.Logger, "framestore"),
		quality:  deps.JPEGQuality,
		now:      time.Now,
		nonce:    randomNonce,
	}
	if deps.Persistent && deps.Directories != nil {
		s.mode = ModeDisk
	}
	if s.quality <= 0 || s.quality > 100 {
		s.quality = defaultJPEGQuality
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CaptureImage JPEG-encodes img and captures it.
func (s *Store) CaptureImage(ctx context.Context, img image.Image) (*Record, error) {
	if img == nil || img.Bounds().Empty() {
		s.notifier.Status(StatusCaptureFailed)
		return nil, services.Wrap(services.ErrCaptureEncodeFailed, "framestore", "encode", "empty snapshot", nil)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		s.notifier.Notice("Unable to capture that frame. Please try again.")
		s.notifier.Status(StatusCaptureFailed)
		return nil, services.Wrap(services.ErrCaptureEncodeFailed, "framestore", "encode", "jpeg", err)
	}
	return s.Capture(ctx, Shot{Image: img, Data: buf.Bytes(), Ext: defaultFrameExtension})
}

// Capture persists a shot, derives its preview, and appends the record.
func (s *Store) Capture(ctx context.Context, shot Shot) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(shot.Data) == 0 {
		if shot.Image == nil {
			s.notifier.Status(StatusCaptureFailed)
			return nil, services.Wrap(services.ErrCaptureEncodeFailed, "framestore", "capture", "shot has neither image nor data", nil)
		}
		return s.CaptureImage(ctx, shot.Image)
	}
	img := shot.Image
	if img == nil {
		decoded, err := bitmap.Decode(shot.Data)
		if err != nil {
			s.notifier.Status(StatusCaptureFailed)
			return nil, services.Wrap(services.ErrCaptureEncodeFailed, "framestore", "capture", "decode shot", err)
		}
		img = decoded.Image()
		defer decoded.Release()
	}

	record := &Record{}
	var written FileStore
	if s.Mode() == ModeDisk {
		dir, name, err := s.persist(ctx, shot)
		switch {
		case err == nil:
			written = dir
			record.Disk = &DiskRef{Dir: dir, Filename: name}
		case errors.Is(err, services.ErrSelectionAborted):
			s.notifier.Status(StatusFolderRequired)
			return nil, err
		case services.TriggersMemoryFallback(err):
			// handled in persist; fall through to memory
		default:
			return nil, err
		}
	}
	if record.Disk == nil {
		record.Memory = &MemoryRef{Data: bytes.Clone(shot.Data)}
	}

	preview, err := s.derivePreview(ctx, img)
	if err != nil {
		s.rollback(record, written)
		s.notifier.Notice("Unable to generate a preview for that snap.")
		s.notifier.Status(StatusPreviewError)
		return nil, err
	}
	record.Preview = preview

	s.mu.Lock()
	s.frames = append(s.frames, record)
	count := len(s.frames)
	s.mu.Unlock()

	s.logger.Info("frame captured",
		logging.Int(logging.FieldFrameIndex, count-1),
		logging.Int(logging.FieldFrameCount, count),
		logging.String(logging.FieldCaptureMode, record.Kind()),
		logging.String(logging.FieldFilename, record.Name()),
		logging.String(logging.FieldEventType, "frame_captured"),
	)
	if record.Disk != nil {
		s.notifier.Status(StatusSavedDisk)
	} else {
		s.notifier.Status(StatusSavedMemory)
	}
	return record, nil
}

// persist writes the shot into the capture directory. Fallback-worthy errors
// switch the store to memory before returning.
func (s *Store) persist(ctx context.Context, shot Shot) (FileStore, string, error) {
	dir, err := s.dirs.Ensure(ctx)
	if err != nil {
		if services.TriggersMemoryFallback(err) {
			s.enterMemory(StatusDiskUnavailable, err)
		}
		return nil, "", err
	}
	name := s.frameName(shot.Ext)
	if err := dir.WriteFile(name, shot.Data); err != nil {
		if !services.TriggersMemoryFallback(err) {
			err = services.Wrap(services.ErrWriteFailed, "framestore", "persist", name, err)
		}
		s.enterMemory(StatusDiskWriteFailed, err)
		return nil, "", err
	}
	return dir, name, nil
}

func (s *Store) derivePreview(ctx context.Context, img image.Image) (*bitmap.Bitmap, error) {
	if s.previews == nil {
		return nil, services.Wrap(services.ErrPreviewGenerationFailed, "framestore", "preview", "no preview pipeline", nil)
	}
	preview, err := s.previews.Derive(ctx, img)
	if err != nil {
		if errors.Is(err, services.ErrPreviewGenerationFailed) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrPreviewGenerationFailed, "framestore", "preview", "", err)
	}
	if preview == nil || preview.Width() == 0 || preview.Height() == 0 {
		preview.Release()
		return nil, services.Wrap(services.ErrPreviewGenerationFailed, "framestore", "preview", "preview frame missing", nil)
	}
	return preview, nil
}

func (s *Store) rollback(record *Record, dir FileStore) {
	if record.Disk != nil && dir != nil {
		if err := dir.Remove(record.Disk.Filename); err != nil {
			logging.WarnWithContext(s.logger, "rollback left frame file behind", "frame_rollback_failed",
				logging.String(logging.FieldFilename, record.Disk.Filename),
				logging.Error(err),
				logging.String(logging.FieldImpact, "orphan file in capture folder"),
				logging.String(logging.FieldErrorHint, "delete the file manually"),
			)
		}
	}
	record.Disk = nil
	record.Memory = nil
}

func (s *Store) enterMemory(reason string, cause error) {
	s.mu.Lock()
	switched := s.mode != ModeMemory
	s.mode = ModeMemory
	notify := !s.noticeShown
	s.noticeShown = true
	s.mu.Unlock()

	if switched {
		logging.WarnWithContext(s.logger, "capture degraded to memory", "capture_memory_fallback",
			logging.String("reason", reason),
			logging.Error(cause),
			logging.String(logging.FieldImpact, "frames are not written to disk for the rest of this session"),
			logging.String(logging.FieldErrorHint, "export before quitting to keep the frames"),
		)
	}
	if notify {
		s.notifier.Notice(MemoryFallbackNotice)
	}
	s.notifier.Status(reason)
}

func (s *Store) frameName(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = defaultFrameExtension
	}
	return fmt.Sprintf("frame_%d_%s.%s", s.now().UnixMilli(), s.nonce(), ext)
}

func randomNonce() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Remove deletes the frame at index, releasing its preview and backing.
func (s *Store) Remove(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.frames) {
		n := len(s.frames)
		s.mu.Unlock()
		return services.Wrap(services.ErrFrameNotFound, "framestore", "remove", fmt.Sprintf("index %d of %d", index, n), nil)
	}
	record := s.frames[index]
	s.frames = append(s.frames[:index], s.frames[index+1:]...)
	remaining := len(s.frames)
	s.mu.Unlock()

	s.release(record)
	s.logger.Info("frame removed",
		logging.Int(logging.FieldFrameIndex, index),
		logging.Int(logging.FieldFrameCount, remaining),
		logging.String(logging.FieldEventType, "frame_removed"),
	)
	if remaining == 0 {
		s.notifier.Status(StatusNoFrames)
	} else {
		s.notifier.Status(StatusFrameRemoved)
	}
	return nil
}

// Clear removes every frame and returns how many were dropped.
func (s *Store) Clear() int {
	s.mu.Lock()
	frames := s.frames
	s.frames = nil
	s.mu.Unlock()

	for _, record := range frames {
		s.release(record)
	}
	if len(frames) > 0 {
		s.logger.Info("frames cleared",
			logging.Int(logging.FieldFrameCount, len(frames)),
			logging.String(logging.FieldEventType, "frames_cleared"),
		)
	}
	s.notifier.Status(StatusCleared)
	return len(frames)
}

func (s *Store) release(record *Record) {
	record.Preview.Release()
	if record.Memory != nil {
		record.Memory.Data = nil
		record.Memory = nil
	}
	if record.Disk != nil {
		if err := record.Disk.Dir.Remove(record.Disk.Filename); err != nil {
			logging.WarnWithContext(s.logger, "saved frame could not be deleted", "frame_delete_failed",
				logging.String(logging.FieldFilename, record.Disk.Filename),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file stays in the capture folder"),
				logging.String(logging.FieldErrorHint, "delete the file manually"),
			)
		}
		record.Disk = nil
	}
}

// Len returns the number of frames.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Mode returns the current persistence mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// FallbackNoticeShown reports whether the memory fallback was announced.
func (s *Store) FallbackNoticeShown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noticeShown
}

// Snapshot returns a copy of the record sequence.
func (s *Store) Snapshot() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, len(s.frames))
	copy(out, s.frames)
	return out
}

// Previews returns the preview bitmaps in order.
func (s *Store) Previews() []*bitmap.Bitmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*bitmap.Bitmap, len(s.frames))
	for i, record := range s.frames {
		out[i] = record.Preview
	}
	return out
}

// Record returns the record at index.
func (s *Store) Record(index int) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.frames) {
		return nil, false
	}
	return s.frames[index], true
}

type nopNotifier struct{}

func (nopNotifier) Notice(string) {}
func (nopNotifier) Status(string) {}
