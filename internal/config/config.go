package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Capture modes.
const (
	CaptureModeAuto   = "auto"
	CaptureModeDisk   = "disk"
	CaptureModeMemory = "memory"
)

// Paths contains directory configuration.
type Paths struct {
	CaptureDir string `toml:"capture_dir"`
	OutputDir  string `toml:"output_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Capture controls how frames are persisted.
type Capture struct {
	// Mode is auto, disk, or memory. Auto uses the capture directory when a
	// folder picker is available and memory otherwise.
	Mode                string `toml:"mode"`
	PromptForFolder     bool   `toml:"prompt_for_folder"`
	JPEGQuality         int    `toml:"jpeg_quality"`
	PreviewMaxDimension int    `toml:"preview_max_dimension"`
}

// Camera describes the live video source.
type Camera struct {
	Device          string `toml:"device"`
	FrontDevice     string `toml:"front_device"`
	Facing          string `toml:"facing"`
	InputFormat     string `toml:"input_format"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	SnapshotTimeout int    `toml:"snapshot_timeout"`
	WatchHotplug    bool   `toml:"watch_hotplug"`
}

// Slideshow holds playback defaults.
type Slideshow struct {
	DelayMS   int  `toml:"delay_ms"`
	Autostart bool `toml:"autostart"`
}

// Ghost holds onion-skin defaults.
type Ghost struct {
	Opacity     int  `toml:"opacity"`
	SecondLayer bool `toml:"second_layer"`
}

// Export tunes GIF and video artifact generation.
type Export struct {
	GIFWidth     int      `toml:"gif_width"`
	GIFLoops     int      `toml:"gif_loops"`
	GIFWorkers   int      `toml:"gif_workers"`
	VideoLoops   int      `toml:"video_loops"`
	VideoFPS     int      `toml:"video_fps"`
	VideoCodecs  []string `toml:"video_codecs"`
	Realtime     bool     `toml:"realtime"`
	ProbeOutputs bool     `toml:"probe_outputs"`
}

// Display controls where the live and ghost surfaces are rendered.
type Display struct {
	Dir string `toml:"dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for stopmo.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Capture   Capture   `toml:"capture"`
	Camera    Camera    `toml:"camera"`
	Slideshow Slideshow `toml:"slideshow"`
	Ghost     Ghost     `toml:"ghost"`
	Export    Export    `toml:"export"`
	Display   Display   `toml:"display"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("stopmo.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state, log, output, and display directories.
// The capture directory is left alone: it is owned by the folder picker.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.OutputDir, c.Display.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for camera capture and recording.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for artifact validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// HistoryPath is the SQLite export history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// SessionLockPath guards against two interactive sessions sharing state.
func (c *Config) SessionLockPath() string {
	return filepath.Join(c.Paths.StateDir, "session.lock")
}

// SlideshowDelay returns the configured slideshow interval.
func (c *Config) SlideshowDelay() time.Duration {
	return time.Duration(c.Slideshow.DelayMS) * time.Millisecond
}

// SnapshotTimeout bounds a single camera grab.
func (c *Config) SnapshotTimeout() time.Duration {
	return time.Duration(c.Camera.SnapshotTimeout) * time.Second
}

// PersistentCapture reports whether the session should start in disk mode
// given whether an interactive folder picker exists.
func (c *Config) PersistentCapture(pickerAvailable bool) bool {
	switch c.Capture.Mode {
	case CaptureModeDisk:
		return true
	case CaptureModeMemory:
		return false
	default:
		return pickerAvailable || strings.TrimSpace(c.Paths.CaptureDir) != ""
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
