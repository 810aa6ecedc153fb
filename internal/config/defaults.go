package config

const (
	defaultConfigPath          = "~/.config/stopmo/config.toml"
	defaultCaptureDir          = "~/Pictures/stopmo"
	defaultOutputDir           = "~/Videos/stopmo"
	defaultStateDir            = "~/.local/share/stopmo"
	defaultLogDir              = "~/.local/share/stopmo/logs"
	defaultCameraDevice        = "/dev/video0"
	defaultCameraFacing        = FacingEnvironment
	defaultCameraInputFormat   = "v4l2"
	defaultCameraWidth         = 1280
	defaultCameraHeight        = 720
	defaultSnapshotTimeout     = 10
	defaultJPEGQuality         = 98
	defaultPreviewMaxDimension = 640
	defaultSlideshowDelayMS    = 500
	defaultGhostOpacity        = 50
	defaultGIFWidth            = 640
	defaultGIFWorkers          = 2
	defaultVideoFPS            = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30

	// MinSlideshowDelayMS is the fastest slideshow interval.
	MinSlideshowDelayMS = 100
	// MinGIFWidth is the narrowest GIF export.
	MinGIFWidth = 64
	// MaxStageDimension caps the longer edge of the live stage.
	MaxStageDimension = 1280
)

// Camera facings.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// DefaultVideoCodecs is the recorder preference list, most preferred first.
var DefaultVideoCodecs = []string{
	"video/mp4;codecs=h264",
	"video/webm;codecs=vp9",
	"video/webm;codecs=vp8",
	"video/webm",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CaptureDir: defaultCaptureDir,
			OutputDir:  defaultOutputDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Capture: Capture{
			Mode:                CaptureModeAuto,
			PromptForFolder:     true,
			JPEGQuality:         defaultJPEGQuality,
			PreviewMaxDimension: defaultPreviewMaxDimension,
		},
		Camera: Camera{
			Device:          defaultCameraDevice,
			Facing:          defaultCameraFacing,
			InputFormat:     defaultCameraInputFormat,
			Width:           defaultCameraWidth,
			Height:          defaultCameraHeight,
			SnapshotTimeout: defaultSnapshotTimeout,
			WatchHotplug:    true,
		},
		Slideshow: Slideshow{
			DelayMS:   defaultSlideshowDelayMS,
			Autostart: true,
		},
		Ghost: Ghost{
			Opacity:     defaultGhostOpacity,
			SecondLayer: true,
		},
		Export: Export{
			GIFWidth:     defaultGIFWidth,
			GIFLoops:     1,
			GIFWorkers:   defaultGIFWorkers,
			VideoLoops:   1,
			VideoFPS:     defaultVideoFPS,
			VideoCodecs:  append([]string(nil), DefaultVideoCodecs...),
			ProbeOutputs: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
