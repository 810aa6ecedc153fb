package export

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"stopmo/internal/bitmap"
	"stopmo/internal/logging"
	"stopmo/internal/slideshow"
)

// Artifact kinds.
const (
	KindGIF   = "gif"
	KindVideo = "video"
)

const (
	// DefaultPreviewMaxDimension matches the preview pipeline default.
	DefaultPreviewMaxDimension = 640
	// DefaultGIFWidth is the GIF width when none is requested.
	DefaultGIFWidth = 640
	// MinGIFWidth is the narrowest GIF produced.
	MinGIFWidth = 64
	// DefaultFPS is the video frame rate.
	DefaultFPS = 30
	// DefaultGIFWorkers bounds concurrent frame quantization.
	DefaultGIFWorkers = 2
)

// Artifact is a finished export.
type Artifact struct {
	Kind         string
	Data         []byte
	MIMEType     string
	Extension    string
	Filename     string
	Frames       int
	Width        int
	Height       int
	UsedFallback bool
	UsedPreview  bool
	Status       string
	CreatedAt    time.Time
}

// Meta summarizes the artifact the way the downloads list shows it.
func (a *Artifact) Meta() string {
	return fmt.Sprintf("%s • %.2f MB", a.MIMEType, float64(len(a.Data))/1024/1024)
}

// Progress reports export advancement.
type Progress struct {
	Kind  string
	Phase string
	Done  int
	Total int
}

// Playback is the live slideshow an export pauses.
type Playback interface {
	State() slideshow.State
	Stop(reset bool)
	Start(keepIndex bool) bool
}

// Mirror shows the preview of the photo currently being recorded.
type Mirror interface {
	Show(frame *bitmap.Bitmap)
}

// Recorder encodes raw frames into a video container.
type Recorder interface {
	// Supports reports whether mimeType (e.g. "video/webm;codecs=vp9") can be produced.
	Supports(ctx context.Context, mimeType string) bool
	Start(ctx context.Context, spec RecordingSpec) (RecordingSession, error)
}

// RecordingSpec describes the stream a Recorder receives.
type RecordingSpec struct {
	MIMEType string
	Width    int
	Height   int
	FPS      int
}

// RecordingSession accepts frames for one recording.
type RecordingSession interface {
	WriteFrame(frame *image.RGBA) error
	// Finish flushes the encoder and returns the container bytes and the
	// MIME type actually produced.
	Finish() ([]byte, string, error)
	// Abort discards the recording. Safe after Finish.
	Abort()
}

// Pacer spaces video frames in time.
type Pacer interface {
	Wait(ctx context.Context) error
	Stop()
}

// PacerFactory builds a pacer for fps.
type PacerFactory func(fps int) Pacer

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets the encoder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Encoder) { e.logger = logging.NewComponentLogger(logger, "export") }
}

// WithPreviewMaxDimension sets the preview size used to decide whether a GIF
// can be built from previews.
func WithPreviewMaxDimension(n int) Option {
	return func(e *Encoder) {
		if n > 0 {
			e.previewMax = n
		}
	}
}

// WithGIFWorkers bounds concurrent GIF frame quantization.
func WithGIFWorkers(n int) Option {
	return func(e *Encoder) {
		if n > 0 {
			e.gifWorkers = n
		}
	}
}

// WithRecorder sets the video recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Encoder) { e.recorder = r }
}

// WithPacer sets how video frames are spaced. The default feeds frames as
// fast as the recorder accepts them.
func WithPacer(f PacerFactory) Option {
	return func(e *Encoder) {
		if f != nil {
			e.pacer = f
		}
	}
}

// WithClock overrides the time source used for artifact names.
func WithClock(now func() time.Time) Option {
	return func(e *Encoder) {
		if now != nil {
			e.now = now
		}
	}
}

// WithProgress receives progress updates.
func WithProgress(fn func(Progress)) Option {
	return func(e *Encoder) { e.progress = fn }
}

// WithStatus receives status line updates.
func WithStatus(fn func(string)) Option {
	return func(e *Encoder) { e.status = fn }
}

// Encoder produces artifacts.
type Encoder struct {
	logger     *slog.Logger
	previewMax int
	gifWorkers int
	recorder   Recorder
	pacer      PacerFactory
	now        func() time.Time
	progress   func(Progress)
	status     func(string)
	sampler    *logging.ProgressSampler
}

// New builds an encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{
		logger:     logging.NewComponentLogger(nil, "export"),
		previewMax: DefaultPreviewMaxDimension,
		gifWorkers: DefaultGIFWorkers,
		pacer:      UnpacedFactory,
		now:        time.Now,
		sampler:    logging.NewProgressSampler(25),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Encoder) setStatus(msg string) {
	if e.status != nil {
		e.status(msg)
	}
}

func (e *Encoder) report(p Progress) {
	if e.progress != nil {
		e.progress(p)
	}
	if e.sampler.ShouldLog(logging.Percent(p.Done, p.Total), p.Kind+":"+p.Phase) {
		e.logger.Debug("export progress",
			logging.String("kind", p.Kind),
			logging.String("phase", p.Phase),
			logging.Int("done", p.Done),
			logging.Int("total", p.Total),
		)
	}
}

func (e *Encoder) artifactName(ext string) (string, time.Time) {
	now := e.now()
	return fmt.Sprintf("slideshow_%d.%s", now.UnixMilli(), ext), now
}

// ExtensionFor maps a container MIME type to a file extension.
func ExtensionFor(mimeType string) string {
	base := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(base, "mp4"):
		return "mp4"
	case strings.Contains(base, "gif"):
		return "gif"
	default:
		return "webm"
	}
}

// SelectCodec returns the first preference the recorder supports.
func SelectCodec(ctx context.Context, r Recorder, preferences []string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, mime := range preferences {
		if r.Supports(ctx, mime) {
			return mime, true
		}
	}
	return "", false
}

type unpaced struct{}

func (unpaced) Wait(ctx context.Context) error { return ctx.Err() }

func (unpaced) Stop() {}

// UnpacedFactory writes frames back to back.
func UnpacedFactory(int) Pacer { return unpaced{} }

type tickerPacer struct {
	t *time.Ticker
}

func (p tickerPacer) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.t.C:
		return nil
	}
}

func (p tickerPacer) Stop() { p.t.Stop() }

// RealtimeFactory spaces frames at 1/fps wall-clock intervals.
func RealtimeFactory(fps int) Pacer {
	if fps <= 0 {
		fps = DefaultFPS
	}
	interval := max(time.Millisecond, time.Duration(float64(time.Second)/float64(fps)))
	return tickerPacer{t: time.NewTicker(interval)}
}
