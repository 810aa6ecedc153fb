package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"stopmo/internal/export"
	"stopmo/internal/logging"
	"stopmo/internal/services"
)

var commandContext = exec.CommandContext

const (
	stderrTailBytes = 4096
	waitDelay       = 2 * time.Second
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithBinary overrides the ffmpeg executable.
func WithBinary(binary string) Option {
	return func(r *Recorder) {
		if binary = strings.TrimSpace(binary); binary != "" {
			r.binary = binary
		}
	}
}

// WithTempDir sets where in-progress recordings are written.
func WithTempDir(dir string) Option {
	return func(r *Recorder) { r.tempDir = dir }
}

// WithLogger sets the recorder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logging.NewComponentLogger(logger, "ffmpeg") }
}

// Recorder launches ffmpeg for each recording.
type Recorder struct {
	binary  string
	tempDir string
	logger  *slog.Logger

	mu       sync.Mutex
	encoders map[string]bool
	probeErr error
}

var _ export.Recorder = (*Recorder)(nil)

// New builds a recorder using "ffmpeg" from PATH unless overridden.
func New(opts ...Option) *Recorder {
	r := &Recorder{binary: "ffmpeg", logger: logging.NewComponentLogger(nil, "ffmpeg")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary returns the ffmpeg executable in use.
func (r *Recorder) Binary() string { return r.binary }

// Encoders lists the encoders ffmpeg reports. The probe runs once; later
// calls return the cached result.
func (r *Recorder) Encoders(ctx context.Context) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoders != nil || r.probeErr != nil {
		return r.encoders, r.probeErr
	}
	cmd := commandContext(ctx, r.binary, "-hide_banner", "-encoders") //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.probeErr = services.Wrap(services.ErrExternalTool, "ffmpeg", "list encoders", r.binary, err)
		return nil, r.probeErr
	}
	r.encoders = parseEncoders(string(output))
	r.logger.Debug("ffmpeg encoders probed", logging.Int("count", len(r.encoders)))
	return r.encoders, nil
}

// Supports reports whether mimeType maps to an encoder this ffmpeg build has.
func (r *Recorder) Supports(ctx context.Context, mimeType string) bool {
	codec, ok := CodecFor(mimeType)
	if !ok {
		return false
	}
	encoders, err := r.Encoders(ctx)
	if err != nil {
		return false
	}
	return encoders[codec.Encoder]
}

// Start launches ffmpeg for one recording.
func (r *Recorder) Start(ctx context.Context, spec export.RecordingSpec) (export.RecordingSession, error) {
	codec, ok := CodecFor(spec.MIMEType)
	if !ok {
		return nil, services.Wrap(services.ErrRecorderFailed, "ffmpeg", "start", "unsupported type "+spec.MIMEType, nil)
	}
	if spec.Width <= 0 || spec.Height <= 0 || spec.FPS <= 0 {
		return nil, services.Wrap(services.ErrRecorderFailed, "ffmpeg", "start",
			fmt.Sprintf("invalid stream %dx%d@%d", spec.Width, spec.Height, spec.FPS), nil)
	}

	out, err := os.CreateTemp(r.tempDir, "stopmo-rec-*."+codec.Format)
	if err != nil {
		return nil, services.Wrap(services.ErrRecorderFailed, "ffmpeg", "temp file", "", err)
	}
	path := out.Name()
	_ = out.Close()

	args := buildArgs(codec, spec, path)
	cmd := commandContext(ctx, r.binary, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = os.Remove(path)
		return nil, services.Wrap(services.ErrRecorderFailed, "ffmpeg", "stdin pipe", "", err)
	}
	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	if err := cmd.Start(); err != nil {
		_ = os.Remove(path)
		return nil, services.Wrap(services.ErrRecorderFailed, "ffmpeg", "start", r.binary, err)
	}
	r.logger.Debug("ffmpeg recording started",
		logging.String("mime", codec.MIMEType),
		logging.String("encoder", codec.Encoder),
		logging.String("size", fmt.Sprintf("%dx%d", spec.Width, spec.Height)),
		logging.Int("fps", spec.FPS),
	)
	return &Session{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		path:   path,
		codec:  codec,
		width:  spec.Width,
		height: spec.Height,
		logger: r.logger,
	}, nil
}

func buildArgs(codec Codec, spec export.RecordingSpec, path string) []string {
	fps := strconv.Itoa(spec.FPS)
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"-r", fps,
		"-i", "pipe:0",
		"-an",
		"-c:v", codec.Encoder,
	}
	args = append(args, codec.Args...)
	args = append(args, "-r", fps, "-f", codec.Format, path)
	return args
}

// Session is one running ffmpeg recording.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	path   string
	codec  Codec
	width  int
	height int
	logger *slog.Logger

	mu     sync.Mutex
	frames int
	done   bool
}

// WriteFrame sends one RGBA frame. Frames must match the started size.
func (s *Session) WriteFrame(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return errors.New("recording already finished")
	}
	if frame == nil || frame.Rect.Dx() != s.width || frame.Rect.Dy() != s.height {
		return fmt.Errorf("frame size mismatch: want %dx%d", s.width, s.height)
	}
	rowBytes := s.width * 4
	if frame.Stride == rowBytes {
		if _, err := s.stdin.Write(frame.Pix[:rowBytes*s.height]); err != nil {
			return s.writeError(err)
		}
	} else {
		for y := range s.height {
			start := y * frame.Stride
			if _, err := s.stdin.Write(frame.Pix[start : start+rowBytes]); err != nil {
				return s.writeError(err)
			}
		}
	}
	s.frames++
	return nil
}

func (s *Session) writeError(err error) error {
	if tail := s.stderr.String(); tail != "" {
		return fmt.Errorf("write frame %d: %w: %s", s.frames, err, tail)
	}
	return fmt.Errorf("write frame %d: %w", s.frames, err)
}

// Finish closes stdin, waits for ffmpeg, and returns the encoded file.
func (s *Session) Finish() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil, "", errors.New("recording already finished")
	}
	s.done = true
	defer os.Remove(s.path)

	_ = s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return nil, "", fmt.Errorf("ffmpeg exited: %w: %s", err, s.stderr.String())
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("read recording: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("ffmpeg produced an empty file")
	}
	s.logger.Debug("ffmpeg recording finished",
		logging.Int(logging.FieldFrameCount, s.frames),
		logging.Int64("bytes", int64(len(data))),
	)
	return data, s.codec.MIMEType, nil
}

// Abort kills ffmpeg and discards its output. Safe after Finish.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Debug("ffmpeg kill failed", logging.Error(err))
		}
	}
	_ = s.cmd.Wait()
	_ = os.Remove(s.path)
}

// Path is the temporary output file.
func (s *Session) Path() string { return s.path }

type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
