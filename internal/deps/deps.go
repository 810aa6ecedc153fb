package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"stopmo/internal/config"
)

// Requirement defines an external binary stopmo relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries a session needs for cfg.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Camera snapshots and video recording",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Export artifact validation",
			Optional:    !cfg.Export.ProbeOutputs,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if resolved, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Command = resolved
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// CodecProber is the part of a recorder that answers codec support.
type CodecProber interface {
	Supports(ctx context.Context, mimeType string) bool
}

// CodecStatus reports whether one video MIME type can be recorded.
type CodecStatus struct {
	MIMEType  string
	Supported bool
	// Selected marks the codec a video export would use.
	Selected bool
}

// CheckCodecs evaluates preferences in order and marks the first supported one.
func CheckCodecs(ctx context.Context, prober CodecProber, preferences []string) []CodecStatus {
	results := make([]CodecStatus, 0, len(preferences))
	selected := false
	for _, mime := range preferences {
		status := CodecStatus{MIMEType: mime, Supported: prober != nil && prober.Supports(ctx, mime)}
		if status.Supported && !selected {
			status.Selected = true
			selected = true
		}
		results = append(results, status)
	}
	return results
}

// Ready reports whether every required dependency is available.
func Ready(statuses []Status) bool {
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			return false
		}
	}
	return true
}
