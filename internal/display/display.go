package display

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/draw"

	"stopmo/internal/bitmap"
	"stopmo/internal/fileutil"
	"stopmo/internal/logging"
)

// Surface file names inside the display directory.
const (
	StageFile = "live.png"
	GhostFile = "ghost.png"
)

const (
	// MaxStageDimension caps the longer stage edge.
	MaxStageDimension  = 1280
	DefaultStageWidth  = 1280
	DefaultStageHeight = 720
)

// StageSize matches the stage to the camera aspect with the longer edge
// capped at MaxStageDimension. Unknown sizes give 1280x720.
func StageSize(width, height int) (int, int) {
	if width <= 0 || height <= 0 {
		return DefaultStageWidth, DefaultStageHeight
	}
	scale := math.Min(1, float64(MaxStageDimension)/float64(max(width, height)))
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	if w <= 0 || h <= 0 {
		return DefaultStageWidth, DefaultStageHeight
	}
	return w, h
}

type pngFile struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	writes  int
	lastErr error
}

func (f *pngFile) write(img image.Image) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	err := enc.Encode(&buf, img)
	if err == nil {
		err = fileutil.WriteFileAtomic(f.path, buf.Bytes(), 0o644)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		if f.lastErr == nil {
			logging.WarnWithContext(f.logger, "display surface write failed", "display_write_failed",
				logging.String(logging.FieldFilename, f.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the display directory is writable"),
				logging.String(logging.FieldImpact, "viewer shows a stale frame"),
			)
		}
		f.lastErr = err
		return
	}
	f.lastErr = nil
	f.writes++
}

func (f *pngFile) remove() {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Debug("display surface remove failed", logging.Error(err))
	}
}

// Path is the PNG file this surface writes.
func (f *pngFile) Path() string { return f.path }

// Writes counts successful renders.
func (f *pngFile) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// Err is the most recent write failure, cleared by a successful write.
func (f *pngFile) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Stage is the live playback surface.
type Stage struct {
	pngFile
	sizeMu sync.Mutex
	width  int
	height int
}

// NewStage renders to dir/live.png.
func NewStage(dir string, logger *slog.Logger) *Stage {
	return &Stage{
		pngFile: pngFile{path: filepath.Join(dir, StageFile), logger: logging.NewComponentLogger(logger, "display")},
		width:   DefaultStageWidth,
		height:  DefaultStageHeight,
	}
}

// Resize sets the stage from the camera size.
func (s *Stage) Resize(cameraWidth, cameraHeight int) {
	w, h := StageSize(cameraWidth, cameraHeight)
	s.sizeMu.Lock()
	s.width, s.height = w, h
	s.sizeMu.Unlock()
}

// Size returns the stage size.
func (s *Stage) Size() (int, int) {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()
	return s.width, s.height
}

// Show letterboxes frame onto the stage. Released frames are ignored.
func (s *Stage) Show(frame *bitmap.Bitmap) {
	src := frame.Image()
	if src == nil {
		return
	}
	w, h := s.Size()
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	bitmap.DrawLetterboxed(canvas, src, draw.ApproxBiLinear)
	s.write(canvas)
}

// Clear removes the stage file.
func (s *Stage) Clear() { s.remove() }

// Overlay is the ghost surface.
type Overlay struct {
	pngFile
}

// NewOverlay renders to dir/ghost.png.
func NewOverlay(dir string, logger *slog.Logger) *Overlay {
	return &Overlay{pngFile: pngFile{path: filepath.Join(dir, GhostFile), logger: logging.NewComponentLogger(logger, "display")}}
}

// Show writes the composited overlay.
func (o *Overlay) Show(overlay image.Image) {
	if overlay == nil {
		return
	}
	o.write(overlay)
}

// Hide removes the overlay file.
func (o *Overlay) Hide() { o.remove() }
