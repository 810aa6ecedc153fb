package ghost_test

import (
	"image"
	"image/color"
	"math"
	"testing"

	"stopmo/internal/bitmap"
	"stopmo/internal/ghost"
)

type frames []*bitmap.Bitmap

func (f frames) Previews() []*bitmap.Bitmap { return f }

type sink struct {
	shown image.Image
	shows int
	hides int
}

func (s *sink) Show(img image.Image) {
	s.shown = img
	s.shows++
}

func (s *sink) Hide() {
	s.shown = nil
	s.hides++
}

func solid(t *testing.T, w, h int, c color.RGBA) *bitmap.Bitmap {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	b, err := bitmap.New(img)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{-40, 0},
		{12.4, 0},
		{12.5, 0},
		{12.6, 25},
		{37.5, 25},
		{50, 50},
		{62.5, 50},
		{80, 75},
		{82.5, 75},
		{83, 90},
		{1000, 90},
	}
	for _, tt := range tests {
		if got := ghost.Quantize(tt.in); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestQuantizeAlwaysReturnsStop(t *testing.T) {
	valid := map[int]bool{}
	for _, s := range ghost.Stops {
		valid[s] = true
	}
	for v := -200.0; v <= 300; v += 0.37 {
		if got := ghost.Quantize(v); !valid[got] {
			t.Fatalf("Quantize(%v) = %d is not a stop", v, got)
		}
	}
}

func TestLayersOrder(t *testing.T) {
	a := solid(t, 4, 4, color.RGBA{R: 255, A: 255})
	b := solid(t, 4, 4, color.RGBA{G: 255, A: 255})
	c := solid(t, 4, 4, color.RGBA{B: 255, A: 255})
	comp := ghost.New(frames{a, b, c}, nil)

	layers := comp.Layers()
	if len(layers) != 2 || layers[0].Frame != b || layers[1].Frame != c {
		t.Fatalf("layers = %+v, want second-to-last then last", layers)
	}
	for _, l := range layers {
		if l.Opacity != 0.5 {
			t.Fatalf("layer opacity = %v, want 0.5", l.Opacity)
		}
	}

	comp.SetSecondLayer(false)
	layers = comp.Layers()
	if len(layers) != 1 || layers[0].Frame != c {
		t.Fatalf("second layer off: %+v", layers)
	}
}

func TestRefreshDrawsAtVideoSize(t *testing.T) {
	out := &sink{}
	red := solid(t, 40, 30, color.RGBA{R: 255, A: 255})
	comp := ghost.New(frames{red}, out, ghost.WithOpacity(90))

	comp.SetVideoSize(640, 480)
	if out.shows != 1 {
		t.Fatalf("shows = %d, want 1", out.shows)
	}
	if got := out.shown.Bounds(); got.Dx() != 640 || got.Dy() != 480 {
		t.Fatalf("overlay bounds = %v", got)
	}
	r, _, _, a := out.shown.At(320, 240).RGBA()
	if a == 0 || r == 0 {
		t.Fatal("overlay center should be tinted red")
	}
	if a>>8 < 220 || a>>8 > 235 {
		t.Fatalf("alpha = %d, want about 90%%", a>>8)
	}
	if !comp.Visible() {
		t.Fatal("compositor should be visible")
	}
}

func TestZeroOpacityHides(t *testing.T) {
	out := &sink{}
	comp := ghost.New(frames{solid(t, 2, 2, color.RGBA{A: 255})}, out)
	if got := comp.SetOpacity(3); got != 0 {
		t.Fatalf("SetOpacity(3) = %d", got)
	}
	if out.hides != 1 || out.shown != nil || comp.Visible() {
		t.Fatal("zero opacity should hide the overlay")
	}
}

func TestNoFramesHides(t *testing.T) {
	out := &sink{}
	comp := ghost.New(frames{}, out)
	comp.Refresh()
	if out.hides != 1 || out.shows != 0 {
		t.Fatalf("hides=%d shows=%d", out.hides, out.shows)
	}
}

func TestReleasedFrameIsSkipped(t *testing.T) {
	out := &sink{}
	b := solid(t, 2, 2, color.RGBA{A: 255})
	b.Release()
	comp := ghost.New(frames{b}, out)
	comp.Refresh()
	if out.hides != 1 {
		t.Fatal("released frame must not be drawn")
	}
}

func TestSetVideoSizeIgnoresInvalid(t *testing.T) {
	comp := ghost.New(frames{}, nil)
	comp.SetVideoSize(0, 100)
	if w, h := comp.Size(); w != ghost.DefaultWidth || h != ghost.DefaultHeight {
		t.Fatalf("size = %dx%d", w, h)
	}
}
