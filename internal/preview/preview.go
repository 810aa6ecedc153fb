package preview

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	"stopmo/internal/bitmap"
	"stopmo/internal/logging"
	"stopmo/internal/services"
)

// DefaultMaxDimension bounds the longer edge of a preview in pixels.
const DefaultMaxDimension = 640

// Resizer scales src to exactly width x height.
type Resizer interface {
	Resize(src image.Image, width, height int) (image.Image, error)
}

// ResizerFunc adapts a function to the Resizer interface.
type ResizerFunc func(src image.Image, width, height int) (image.Image, error)

// Resize implements Resizer.
func (f ResizerFunc) Resize(src image.Image, width, height int) (image.Image, error) {
	return f(src, width, height)
}

// Pipeline produces preview bitmaps.
type Pipeline struct {
	maxDim   int
	primary  Resizer
	fallback Resizer
	logger   *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithResizers replaces the high-quality and fallback resizers. A nil value
// keeps the default for that slot.
func WithResizers(primary, fallback Resizer) Option {
	return func(p *Pipeline) {
		if primary != nil {
			p.primary = primary
		}
		if fallback != nil {
			p.fallback = fallback
		}
	}
}

// New constructs a Pipeline bounded to maxDim pixels (DefaultMaxDimension
// when maxDim <= 0).
func New(maxDim int, logger *slog.Logger, opts ...Option) *Pipeline {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	p := &Pipeline{
		maxDim:   maxDim,
		primary:  ResizerFunc(lanczosResize),
		fallback: ResizerFunc(canvasResize),
		logger:   logging.NewComponentLogger(logger, "preview"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxDimension returns the configured bound.
func (p *Pipeline) MaxDimension() int {
	return p.maxDim
}

// TargetSize returns the preview dimensions for a width x height source.
func TargetSize(width, height, maxDim int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	longer := max(width, height)
	scale := math.Min(1, float64(maxDim)/float64(longer))
	w := max(1, int(math.Round(float64(width)*scale)))
	h := max(1, int(math.Round(float64(height)*scale)))
	return w, h
}

// Derive returns a preview bitmap for src.
func (p *Pipeline) Derive(ctx context.Context, src image.Image) (*bitmap.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, services.Wrap(services.ErrPreviewGenerationFailed, "preview", "derive", "source missing", nil)
	}
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, services.Wrap(services.ErrPreviewGenerationFailed, "preview", "derive",
			fmt.Sprintf("source has no pixels (%dx%d)", width, height), nil)
	}

	targetW, targetH := TargetSize(width, height, p.maxDim)
	if targetW == width && targetH == height {
		return p.wrap(copyRGBA(src))
	}

	scaled, err := p.primary.Resize(src, targetW, targetH)
	if err == nil {
		bmp, wrapErr := p.wrap(scaled)
		if wrapErr == nil {
			return bmp, nil
		}
		err = wrapErr
	}
	logging.WarnWithContext(p.logger, "high-quality resize failed; falling back to canvas redraw", "preview_resize_fallback",
		logging.Error(err),
		logging.Int("target_width", targetW),
		logging.Int("target_height", targetH),
		logging.String(logging.FieldImpact, "preview uses bilinear scaling"),
	)

	scaled, err = p.fallback.Resize(src, targetW, targetH)
	if err != nil {
		return nil, services.Wrap(services.ErrPreviewGenerationFailed, "preview", "canvas resize", "", err)
	}
	return p.wrap(scaled)
}

func (p *Pipeline) wrap(img image.Image) (*bitmap.Bitmap, error) {
	bmp, err := bitmap.New(img)
	if err != nil {
		return nil, services.Wrap(services.ErrPreviewGenerationFailed, "preview", "wrap", "", err)
	}
	return bmp, nil
}

func lanczosResize(src image.Image, width, height int) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("lanczos resize panicked: %v", r)
		}
	}()
	out = resize.Resize(uint(width), uint(height), src, resize.Lanczos3)
	if out == nil || out.Bounds().Dx() != width || out.Bounds().Dy() != height {
		return nil, fmt.Errorf("lanczos resize produced unexpected bounds")
	}
	return out, nil
}

func canvasResize(src image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), src, src.Bounds(), draw.Src, nil)
	return canvas, nil
}

func copyRGBA(src image.Image) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst
}
