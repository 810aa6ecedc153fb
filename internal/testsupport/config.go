package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"stopmo/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory. Probing is
// off, capture is disk mode, and every directory except the capture
// directory exists.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CaptureDir = filepath.Join(base, "capture")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Display.Dir = filepath.Join(base, "display")
	cfgVal.Capture.Mode = config.CaptureModeDisk
	cfgVal.Export.ProbeOutputs = false
	cfgVal.Camera.WatchHotplug = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithCaptureMode sets capture.mode.
func WithCaptureMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Mode = mode
	}
}

// WithoutAutostart leaves playback stopped until it is started explicitly.
func WithoutAutostart() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Slideshow.Autostart = false
	}
}

// WithStubbedBinaries writes executables for the provided names and prepends
// them to PATH. Each stub runs script; an empty script exits 0. With no
// names, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(script string, names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		if script == "" {
			script = "exit 0\n"
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		body := []byte("#!/bin/sh\n" + script)
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, body, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
