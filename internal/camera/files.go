package camera

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"stopmo/internal/bitmap"
	"stopmo/internal/services"
)

var stillExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

// FileCamera replays still images in name order, wrapping at the end.
type FileCamera struct {
	mu     sync.Mutex
	paths  []string
	next   int
	facing string
	info   Info
	source string
}

// NewFileCamera uses every still image in dir.
func NewFileCamera(dir string) (*FileCamera, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "camera", "read source", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if slices.Contains(stillExtensions, ext) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "camera", "read source", "no images in "+dir, nil)
	}
	slices.Sort(paths)
	return &FileCamera{paths: paths, facing: FacingEnvironment, source: dir}, nil
}

// NewFileCameraFromPaths replays the given files in the given order.
func NewFileCameraFromPaths(paths []string) (*FileCamera, error) {
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "camera", "read source", "no input files", nil)
	}
	return &FileCamera{paths: slices.Clone(paths), facing: FacingEnvironment, source: "files"}, nil
}

// Len is the number of stills.
func (c *FileCamera) Len() int { return len(c.paths) }

// Open reports the size of the first still.
func (c *FileCamera) Open(ctx context.Context) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := decodeFile(c.paths[0])
	if err != nil {
		return Info{}, err
	}
	c.info = Info{Device: c.source, Facing: c.facing, Width: b.Width(), Height: b.Height()}
	return c.info, nil
}

// Snapshot returns the next still.
func (c *FileCamera) Snapshot(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	path := c.paths[c.next]
	c.next = (c.next + 1) % len(c.paths)
	c.mu.Unlock()
	b, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return b.Image(), nil
}

// Flip toggles the reported facing; the stills are unchanged.
func (c *FileCamera) Flip(ctx context.Context) (Info, error) {
	c.mu.Lock()
	c.facing = OtherFacing(c.facing)
	c.mu.Unlock()
	return c.Open(ctx)
}

// Info returns the last opened source.
func (c *FileCamera) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Close is a no-op.
func (c *FileCamera) Close() error { return nil }

func decodeFile(path string) (*bitmap.Bitmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "camera", "read still", path, err)
	}
	b, err := bitmap.Decode(data)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "camera", "decode still", filepath.Base(path), err)
	}
	return b, nil
}
