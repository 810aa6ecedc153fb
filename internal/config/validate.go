package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateCapture() error {
	switch c.Capture.Mode {
	case CaptureModeAuto, CaptureModeDisk, CaptureModeMemory:
	default:
		return fmt.Errorf("capture.mode: unsupported value %q (want auto, disk, or memory)", c.Capture.Mode)
	}
	if c.Capture.Mode == CaptureModeDisk && strings.TrimSpace(c.Paths.CaptureDir) == "" && !c.Capture.PromptForFolder {
		return errors.New("capture.mode = \"disk\" needs paths.capture_dir or capture.prompt_for_folder")
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return errors.New("capture.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateCamera() error {
	switch c.Camera.Facing {
	case FacingEnvironment, FacingUser:
	default:
		return fmt.Errorf("camera.facing: unsupported value %q (want environment or user)", c.Camera.Facing)
	}
	if c.Camera.Facing == FacingUser && c.Camera.FrontDevice == "" {
		return errors.New("camera.front_device must be set when camera.facing is \"user\"")
	}
	return nil
}

func (c *Config) validatePlayback() error {
	if c.Slideshow.DelayMS < MinSlideshowDelayMS {
		return fmt.Errorf("slideshow.delay_ms must be at least %d", MinSlideshowDelayMS)
	}
	if c.Ghost.Opacity > 100 {
		return errors.New("ghost.opacity must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.GIFWidth < MinGIFWidth {
		return fmt.Errorf("export.gif_width must be at least %d", MinGIFWidth)
	}
	if c.Export.GIFWorkers > 64 {
		return errors.New("export.gif_workers must be 64 or fewer")
	}
	if c.Export.VideoFPS > 120 {
		return errors.New("export.video_fps must be 120 or fewer")
	}
	for _, codec := range c.Export.VideoCodecs {
		if !strings.HasPrefix(codec, "video/") {
			return fmt.Errorf("export.video_codecs: %q is not a video MIME type", codec)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
