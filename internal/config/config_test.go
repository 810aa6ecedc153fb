package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"stopmo/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "stopmo", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Paths.CaptureDir != filepath.Join(tempHome, "Pictures", "stopmo") {
		t.Fatalf("unexpected capture dir %q", cfg.Paths.CaptureDir)
	}
	if cfg.Display.Dir != filepath.Join(tempHome, ".local", "share", "stopmo", "display") {
		t.Fatalf("display dir should default under state_dir, got %q", cfg.Display.Dir)
	}
	if cfg.Capture.JPEGQuality != 98 {
		t.Fatalf("jpeg quality = %d, want 98", cfg.Capture.JPEGQuality)
	}
	if cfg.Capture.PreviewMaxDimension != 640 {
		t.Fatalf("preview max = %d, want 640", cfg.Capture.PreviewMaxDimension)
	}
	if cfg.SlideshowDelay() != 500*time.Millisecond {
		t.Fatalf("slideshow delay = %s, want 500ms", cfg.SlideshowDelay())
	}
	if !cfg.Slideshow.Autostart {
		t.Fatal("expected slideshow autostart by default")
	}
	if cfg.Export.VideoFPS != 30 || cfg.Export.GIFWidth != 640 {
		t.Fatalf("unexpected export defaults: %+v", cfg.Export)
	}
	if len(cfg.Export.VideoCodecs) != 4 || cfg.Export.VideoCodecs[0] != "video/mp4;codecs=h264" {
		t.Fatalf("unexpected codec list %v", cfg.Export.VideoCodecs)
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("history path %q", cfg.HistoryPath())
	}
}

func TestLoadCustomPathClampsValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "stopmo.toml")
	body := `
[paths]
capture_dir = "frames"
output_dir = "out"

[capture]
mode = " Memory "

[slideshow]
delay_ms = 40

[export]
gif_width = 10
gif_loops = 0
video_codecs = [" video/webm ; codecs=vp9 ", ""]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution %q exists=%v", resolved, exists)
	}
	if !filepath.IsAbs(cfg.Paths.CaptureDir) || !filepath.IsAbs(cfg.Paths.OutputDir) {
		t.Fatalf("paths should be absolute: %+v", cfg.Paths)
	}
	if cfg.Capture.Mode != config.CaptureModeMemory {
		t.Fatalf("mode = %q", cfg.Capture.Mode)
	}
	if cfg.Slideshow.DelayMS != config.MinSlideshowDelayMS {
		t.Fatalf("delay = %d, want clamp to %d", cfg.Slideshow.DelayMS, config.MinSlideshowDelayMS)
	}
	if cfg.Export.GIFWidth != config.MinGIFWidth {
		t.Fatalf("gif width = %d, want %d", cfg.Export.GIFWidth, config.MinGIFWidth)
	}
	if cfg.Export.GIFLoops != 1 {
		t.Fatalf("gif loops = %d, want 1", cfg.Export.GIFLoops)
	}
	if len(cfg.Export.VideoCodecs) != 1 || cfg.Export.VideoCodecs[0] != "video/webm;codecs=vp9" {
		t.Fatalf("codecs = %v", cfg.Export.VideoCodecs)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "stopmo.toml")
	if err := os.WriteFile(path, []byte("[capture]\nmood = \"happy\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "mood") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	capture := t.TempDir()
	t.Setenv("STOPMO_CAPTURE_DIR", capture)
	t.Setenv("STOPMO_CAMERA_DEVICE", "/dev/video7")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.CaptureDir != capture {
		t.Fatalf("capture dir = %q, want %q", cfg.Paths.CaptureDir, capture)
	}
	if cfg.Camera.Device != "/dev/video7" {
		t.Fatalf("device = %q", cfg.Camera.Device)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("sample config should parse: %v", err)
	}
	if cfg.Export.VideoFPS != 30 {
		t.Fatalf("sample video_fps = %d", cfg.Export.VideoFPS)
	}
	if !cfg.Slideshow.Autostart {
		t.Fatal("sample should enable slideshow autostart")
	}
	t.Setenv("HOME", t.TempDir())
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestPersistentCapture(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		captureDir string
		picker     bool
		want       bool
	}{
		{"disk forced", config.CaptureModeDisk, "", false, true},
		{"memory forced", config.CaptureModeMemory, "/frames", true, false},
		{"auto with picker", config.CaptureModeAuto, "", true, true},
		{"auto with dir", config.CaptureModeAuto, "/frames", false, true},
		{"auto with nothing", config.CaptureModeAuto, "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Capture.Mode = tt.mode
			cfg.Paths.CaptureDir = tt.captureDir
			if got := cfg.PersistentCapture(tt.picker); got != tt.want {
				t.Fatalf("PersistentCapture(%v) = %v, want %v", tt.picker, got, tt.want)
			}
		})
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad mode", func(c *config.Config) { c.Capture.Mode = "tape" }, "capture.mode"},
		{"bad facing", func(c *config.Config) { c.Camera.Facing = "up" }, "camera.facing"},
		{"user without front", func(c *config.Config) { c.Camera.Facing = config.FacingUser }, "front_device"},
		{"opacity", func(c *config.Config) { c.Ghost.Opacity = 120 }, "ghost.opacity"},
		{"codec", func(c *config.Config) { c.Export.VideoCodecs = []string{"audio/ogg"} }, "video_codecs"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"quality", func(c *config.Config) { c.Capture.JPEGQuality = 0 }, "jpeg_quality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}
