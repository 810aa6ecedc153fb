package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Palette is a fixed set of distinguishable frame colors.
var Palette = []color.Color{
	color.RGBA{R: 255, A: 255},
	color.RGBA{G: 255, A: 255},
	color.RGBA{B: 255, A: 255},
	color.RGBA{R: 255, G: 255, A: 255},
}

// Solid returns a w x h image filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

// PNG encodes img.
func PNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// WritePNG writes a solid w x h PNG to path, creating parent directories.
func WritePNG(t testing.TB, path string, w, h int, c color.Color) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, PNG(t, Solid(w, h, c)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteStills fills a fresh directory with n PNG stills named frame_00.png
// onward, cycling through Palette, and returns the directory.
func WriteStills(t testing.TB, n, w, h int) string {
	t.Helper()
	dir := t.TempDir()
	for i := range n {
		name := filepath.Join(dir, "frame_"+twoDigits(i)+".png")
		WritePNG(t, name, w, h, Palette[i%len(Palette)])
	}
	return dir
}

func twoDigits(i int) string {
	return string([]byte{byte('0' + i/10%10), byte('0' + i%10)})
}
