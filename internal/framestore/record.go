package framestore

import (
	"context"
	"fmt"

	"stopmo/internal/bitmap"
	"stopmo/internal/capturedir"
	"stopmo/internal/services"
)

// Mode is the persistence backend for new captures.
type Mode int

const (
	ModeDisk Mode = iota
	ModeMemory
)

func (m Mode) String() string {
	switch m {
	case ModeDisk:
		return "disk"
	case ModeMemory:
		return "memory"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// FileStore is the part of a capture directory a DiskRef needs.
type FileStore interface {
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
	Path() string
}

var _ FileStore = (*capturedir.Directory)(nil)

// DiskRef locates a frame written to a capture directory.
type DiskRef struct {
	Dir      FileStore
	Filename string
}

// MemoryRef holds the encoded bytes of a memory-only frame.
type MemoryRef struct {
	Data []byte
}

// Record is one captured frame.
type Record struct {
	Preview *bitmap.Bitmap
	Disk    *DiskRef
	Memory  *MemoryRef
}

// Kind names the backing: "disk", "memory", or "" for a released record.
func (r *Record) Kind() string {
	switch {
	case r == nil:
		return ""
	case r.Disk != nil:
		return ModeDisk.String()
	case r.Memory != nil:
		return ModeMemory.String()
	default:
		return ""
	}
}

// Name is the on-disk filename, or "memory" for memory frames.
func (r *Record) Name() string {
	switch {
	case r == nil:
		return ""
	case r.Disk != nil:
		return r.Disk.Filename
	case r.Memory != nil:
		return "memory"
	default:
		return ""
	}
}

// Load returns the full-resolution encoded bytes.
func (r *Record) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case r == nil:
		return nil, services.Wrap(services.ErrFrameResolutionFailed, "framestore", "load", "nil record", nil)
	case r.Disk != nil:
		data, err := r.Disk.Dir.ReadFile(r.Disk.Filename)
		if err != nil {
			return nil, services.Wrap(services.ErrFrameResolutionFailed, "framestore", "load", r.Disk.Filename, err)
		}
		return data, nil
	case r.Memory != nil && len(r.Memory.Data) > 0:
		return r.Memory.Data, nil
	default:
		return nil, services.Wrap(services.ErrFrameResolutionFailed, "framestore", "load", "record has no backing", nil)
	}
}
