package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeCamera()
	c.normalizePlayback()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("STOPMO_CAPTURE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CaptureDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.CaptureDir, err = expandPath(strings.TrimSpace(c.Paths.CaptureDir)); err != nil {
		return fmt.Errorf("paths.capture_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Display.Dir) == "" {
		c.Display.Dir = filepath.Join(c.Paths.StateDir, "display")
	}
	if c.Display.Dir, err = expandPath(strings.TrimSpace(c.Display.Dir)); err != nil {
		return fmt.Errorf("display.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.Mode = strings.ToLower(strings.TrimSpace(c.Capture.Mode))
	if c.Capture.Mode == "" {
		c.Capture.Mode = CaptureModeAuto
	}
	if c.Capture.JPEGQuality <= 0 {
		c.Capture.JPEGQuality = defaultJPEGQuality
	}
	if c.Capture.JPEGQuality > 100 {
		c.Capture.JPEGQuality = 100
	}
	if c.Capture.PreviewMaxDimension <= 0 {
		c.Capture.PreviewMaxDimension = defaultPreviewMaxDimension
	}
}

func (c *Config) normalizeCamera() {
	if value, ok := os.LookupEnv("STOPMO_CAMERA_DEVICE"); ok && strings.TrimSpace(value) != "" {
		c.Camera.Device = strings.TrimSpace(value)
	}
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	c.Camera.FrontDevice = strings.TrimSpace(c.Camera.FrontDevice)
	c.Camera.Facing = strings.ToLower(strings.TrimSpace(c.Camera.Facing))
	if c.Camera.Facing == "" {
		c.Camera.Facing = defaultCameraFacing
	}
	c.Camera.InputFormat = strings.TrimSpace(c.Camera.InputFormat)
	if c.Camera.InputFormat == "" {
		c.Camera.InputFormat = defaultCameraInputFormat
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		c.Camera.Width = defaultCameraWidth
		c.Camera.Height = defaultCameraHeight
	}
	if c.Camera.SnapshotTimeout <= 0 {
		c.Camera.SnapshotTimeout = defaultSnapshotTimeout
	}
}

func (c *Config) normalizePlayback() {
	if c.Slideshow.DelayMS <= 0 {
		c.Slideshow.DelayMS = defaultSlideshowDelayMS
	}
	if c.Slideshow.DelayMS < MinSlideshowDelayMS {
		c.Slideshow.DelayMS = MinSlideshowDelayMS
	}
	if c.Ghost.Opacity < 0 {
		c.Ghost.Opacity = 0
	}
}

func (c *Config) normalizeExport() {
	if c.Export.GIFWidth <= 0 {
		c.Export.GIFWidth = defaultGIFWidth
	}
	if c.Export.GIFWidth < MinGIFWidth {
		c.Export.GIFWidth = MinGIFWidth
	}
	if c.Export.GIFLoops < 1 {
		c.Export.GIFLoops = 1
	}
	if c.Export.GIFWorkers <= 0 {
		c.Export.GIFWorkers = defaultGIFWorkers
	}
	if c.Export.VideoLoops < 1 {
		c.Export.VideoLoops = 1
	}
	if c.Export.VideoFPS <= 0 {
		c.Export.VideoFPS = defaultVideoFPS
	}
	codecs := make([]string, 0, len(c.Export.VideoCodecs))
	for _, codec := range c.Export.VideoCodecs {
		codec = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(codec), " ", ""))
		if codec != "" {
			codecs = append(codecs, codec)
		}
	}
	if len(codecs) == 0 {
		codecs = append(codecs, DefaultVideoCodecs...)
	}
	c.Export.VideoCodecs = codecs
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
