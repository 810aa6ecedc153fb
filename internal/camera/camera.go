package camera

import (
	"context"
	"image"
	"strings"

	"stopmo/internal/config"
)

// Facing values.
const (
	FacingEnvironment = config.FacingEnvironment
	FacingUser        = config.FacingUser
)

// Camera status lines.
const (
	StatusRequesting = "requesting camera…"
	StatusReady      = "camera ready"
	StatusError      = "camera error (check device permissions)"
)

// Info describes an opened source.
type Info struct {
	Device string
	Facing string
	Width  int
	Height int
}

// Camera produces still frames.
type Camera interface {
	// Open prepares the source and reports its frame size.
	Open(ctx context.Context) (Info, error)
	Snapshot(ctx context.Context) (image.Image, error)
	// Flip switches facing and reopens the source.
	Flip(ctx context.Context) (Info, error)
	Info() Info
	Close() error
}

// OtherFacing returns the opposite facing.
func OtherFacing(facing string) string {
	if strings.EqualFold(facing, FacingUser) {
		return FacingEnvironment
	}
	return FacingUser
}
