package ghost

import (
	"image"
	"log/slog"
	"math"
	"sync"

	"stopmo/internal/bitmap"
	"stopmo/internal/logging"
)

// Stops are the only opacity values, in percent.
var Stops = [...]int{0, 25, 50, 75, 90}

// Default stage size used until the live video reports its own.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Quantize snaps v (percent) to the nearest stop. Ties resolve to the lower
// stop and non-finite input yields 0.
func Quantize(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Stops[0]
	}
	closest := Stops[0]
	for _, stop := range Stops[1:] {
		if math.Abs(float64(stop)-v) < math.Abs(float64(closest)-v) {
			closest = stop
		}
	}
	return closest
}

// Frames exposes the preview sequence.
type Frames interface {
	Previews() []*bitmap.Bitmap
}

// Sink displays or hides the rendered overlay.
type Sink interface {
	Show(overlay image.Image)
	Hide()
}

// Layer is one frame in the overlay, bottom first.
type Layer struct {
	Frame   *bitmap.Bitmap
	Opacity float64
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithOpacity sets the initial opacity percent.
func WithOpacity(pct int) Option {
	return func(c *Compositor) { c.opacity = Quantize(float64(pct)) }
}

// WithSecondLayer sets whether the previous frame is included.
func WithSecondLayer(on bool) Option {
	return func(c *Compositor) { c.second = on }
}

// WithLogger sets the compositor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compositor) { c.logger = logging.NewComponentLogger(logger, "ghost") }
}

// Compositor owns the overlay state.
type Compositor struct {
	mu      sync.Mutex
	frames  Frames
	sink    Sink
	logger  *slog.Logger
	opacity int
	second  bool
	width   int
	height  int
	visible bool
}

// New builds a compositor at 50% opacity with the second layer on.
func New(frames Frames, sink Sink, opts ...Option) *Compositor {
	c := &Compositor{
		frames:  frames,
		sink:    sink,
		logger:  logging.NewComponentLogger(nil, "ghost"),
		opacity: 50,
		second:  true,
		width:   DefaultWidth,
		height:  DefaultHeight,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOpacity quantizes v, redraws, and returns the stop used.
func (c *Compositor) SetOpacity(v float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opacity = Quantize(v)
	c.refreshLocked()
	return c.opacity
}

// Opacity returns the current stop in percent.
func (c *Compositor) Opacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opacity
}

// SetSecondLayer toggles the previous-frame layer and redraws.
func (c *Compositor) SetSecondLayer(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.second = on
	c.refreshLocked()
}

// SecondLayer reports whether the previous-frame layer is enabled.
func (c *Compositor) SecondLayer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.second
}

// SetVideoSize resizes the overlay to the live video's native size and
// redraws. Non-positive sizes are ignored.
func (c *Compositor) SetVideoSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
	c.refreshLocked()
}

// Size returns the overlay dimensions.
func (c *Compositor) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// Visible reports whether the last refresh showed anything.
func (c *Compositor) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Refresh redraws from the current frame sequence.
func (c *Compositor) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshLocked()
}

// Layers returns the layers a refresh would draw right now.
func (c *Compositor) Layers() []Layer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layersLocked()
}

func (c *Compositor) layersLocked() []Layer {
	if c.frames == nil {
		return nil
	}
	previews := c.frames.Previews()
	last := len(previews) - 1
	opacity := float64(c.opacity) / 100
	layers := make([]Layer, 0, 2)
	if c.second && last-1 >= 0 && previews[last-1] != nil {
		layers = append(layers, Layer{Frame: previews[last-1], Opacity: opacity})
	}
	if last >= 0 && previews[last] != nil {
		layers = append(layers, Layer{Frame: previews[last], Opacity: opacity})
	}
	return layers
}

func (c *Compositor) refreshLocked() {
	layers := c.layersLocked()
	show := false
	for _, layer := range layers {
		if layer.Opacity > 0 && layer.Frame.Image() != nil {
			show = true
			break
		}
	}
	if !show {
		c.visible = false
		if c.sink != nil {
			c.sink.Hide()
		}
		return
	}

	canvas := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	for _, layer := range layers {
		if img := layer.Frame.Image(); img != nil {
			bitmap.DrawFittedAlpha(canvas, img, layer.Opacity, nil)
		}
	}
	c.visible = true
	c.logger.Debug("ghost overlay refreshed",
		logging.Int("layers", len(layers)),
		logging.Int("opacity", c.opacity),
		logging.Int("width", c.width),
		logging.Int("height", c.height),
	)
	if c.sink != nil {
		c.sink.Show(canvas)
	}
}
