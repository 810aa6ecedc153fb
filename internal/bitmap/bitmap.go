package bitmap

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrReleased is returned when a released bitmap is used.
var ErrReleased = errors.New("bitmap released")

// Bitmap is a decoded image with explicit release semantics.
type Bitmap struct {
	mu       sync.Mutex
	img      image.Image
	width    int
	height   int
	released bool
}

// New wraps img. Empty or nil images are rejected so callers never hold a
// zero-sized bitmap.
func New(img image.Image) (*Bitmap, error) {
	if img == nil {
		return nil, errors.New("bitmap: nil image")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("bitmap: empty image %dx%d", bounds.Dx(), bounds.Dy())
	}
	return &Bitmap{img: img, width: bounds.Dx(), height: bounds.Dy()}, nil
}

// Decode decodes encoded image bytes (JPEG, PNG, GIF, BMP, WebP).
func Decode(data []byte) (*Bitmap, error) {
	if len(data) == 0 {
		return nil, errors.New("bitmap: empty data")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("bitmap: decode: %w", err)
	}
	return New(img)
}

// Image returns the underlying image, or nil once released.
func (b *Bitmap) Image() image.Image {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img
}

// Width returns the pixel width recorded at construction.
func (b *Bitmap) Width() int {
	if b == nil {
		return 0
	}
	return b.width
}

// Height returns the pixel height recorded at construction.
func (b *Bitmap) Height() int {
	if b == nil {
		return 0
	}
	return b.height
}

// Release drops the image. It returns true only for the call that actually
// released the bitmap.
func (b *Bitmap) Release() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return false
	}
	b.released = true
	b.img = nil
	return true
}

// Released reports whether Release has been called.
func (b *Bitmap) Released() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}
