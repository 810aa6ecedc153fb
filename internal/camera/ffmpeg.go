package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"stopmo/internal/config"
	"stopmo/internal/logging"
	"stopmo/internal/services"
)

var commandContext = exec.CommandContext

const defaultSnapshotTimeout = 10 * time.Second

// FFmpegCamera grabs frames from V4L2 devices with ffmpeg.
type FFmpegCamera struct {
	binary      string
	devices     map[string]string
	inputFormat string
	width       int
	height      int
	timeout     time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	facing string
	info   Info
}

// NewFFmpegCamera builds a camera from the [camera] config section.
func NewFFmpegCamera(cfg *config.Config, logger *slog.Logger) *FFmpegCamera {
	timeout := cfg.SnapshotTimeout()
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}
	facing := strings.ToLower(strings.TrimSpace(cfg.Camera.Facing))
	if facing == "" {
		facing = FacingEnvironment
	}
	return &FFmpegCamera{
		binary: cfg.FFmpegBinary(),
		devices: map[string]string{
			FacingEnvironment: strings.TrimSpace(cfg.Camera.Device),
			FacingUser:        strings.TrimSpace(cfg.Camera.FrontDevice),
		},
		inputFormat: strings.TrimSpace(cfg.Camera.InputFormat),
		width:       cfg.Camera.Width,
		height:      cfg.Camera.Height,
		timeout:     timeout,
		logger:      logging.NewComponentLogger(logger, "camera"),
		facing:      facing,
	}
}

// Open grabs one frame to confirm the device works and learn its size.
func (c *FFmpegCamera) Open(ctx context.Context) (Info, error) {
	c.mu.Lock()
	facing := c.facing
	c.mu.Unlock()

	img, device, err := c.grab(ctx, facing)
	if err != nil {
		return Info{}, err
	}
	info := Info{Device: device, Facing: facing, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	c.mu.Lock()
	c.info = info
	c.mu.Unlock()
	c.logger.Info("camera ready",
		logging.String("device", device),
		logging.String("facing", facing),
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
	)
	return info, nil
}

// Snapshot grabs one frame from the current device.
func (c *FFmpegCamera) Snapshot(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	facing := c.facing
	c.mu.Unlock()
	img, _, err := c.grab(ctx, facing)
	return img, err
}

// Flip switches to the other device and reopens. On failure the previous
// facing is kept.
func (c *FFmpegCamera) Flip(ctx context.Context) (Info, error) {
	c.mu.Lock()
	previous := c.facing
	next := OtherFacing(previous)
	if c.devices[next] == "" {
		c.mu.Unlock()
		return Info{}, services.Wrap(services.ErrConfiguration, "camera", "flip",
			fmt.Sprintf("no %s-facing device configured", next), nil)
	}
	c.facing = next
	c.mu.Unlock()

	info, err := c.Open(ctx)
	if err != nil {
		c.mu.Lock()
		c.facing = previous
		c.mu.Unlock()
		return Info{}, err
	}
	return info, nil
}

// Info returns the last opened source.
func (c *FFmpegCamera) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Close is a no-op; each snapshot runs its own process.
func (c *FFmpegCamera) Close() error { return nil }

func (c *FFmpegCamera) grab(ctx context.Context, facing string) (image.Image, string, error) {
	device := c.devices[facing]
	if device == "" {
		return nil, "", services.Wrap(services.ErrConfiguration, "camera", "snapshot", "no device for facing "+facing, nil)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := commandContext(ctx, c.binary, c.snapshotArgs(device)...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, device, services.Wrap(services.ErrExternalTool, "camera", "snapshot",
				fmt.Sprintf("%s timed out after %s", device, c.timeout), ctx.Err())
		}
		return nil, device, services.Wrap(services.ErrExternalTool, "camera", "snapshot",
			strings.TrimSpace(device+" "+lastLine(stderr.String())), err)
	}
	img, _, err := image.Decode(bytes.NewReader(output))
	if err != nil {
		return nil, device, services.Wrap(services.ErrExternalTool, "camera", "decode", device, err)
	}
	return img, device, nil
}

func (c *FFmpegCamera) snapshotArgs(device string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2"}
	if c.inputFormat != "" {
		args = append(args, "-input_format", c.inputFormat)
	}
	if c.width > 0 && c.height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", c.width, c.height))
	}
	return append(args, "-i", device, "-frames:v", "1", "-f", "image2pipe", "-c:v", "png", "-")
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
