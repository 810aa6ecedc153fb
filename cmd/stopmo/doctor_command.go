package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stopmo/internal/capturedir"
	"stopmo/internal/config"
	"stopmo/internal/deps"
	"stopmo/internal/logging"
	"stopmo/internal/media/ffmpeg"
)

const doctorCodecTimeout = 10 * time.Second

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, codecs, and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(out, line)
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Video codecs", colorize) {
				fmt.Fprintln(out, line)
			}
			probeCtx, cancel := context.WithTimeout(cmd.Context(), doctorCodecTimeout)
			defer cancel()
			recorder := ffmpeg.New(ffmpeg.WithBinary(cfg.FFmpegBinary()), ffmpeg.WithLogger(logging.NewNop()))
			for _, line := range codecLines(deps.CheckCodecs(probeCtx, recorder, cfg.Export.VideoCodecs), colorize) {
				fmt.Fprintln(out, line)
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Paths", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range pathLines(cfg, colorize) {
				fmt.Fprintln(out, line)
			}

			if !deps.Ready(statuses) {
				return fmt.Errorf("required dependencies missing")
			}
			return nil
		},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func codecLines(statuses []deps.CodecStatus, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	selected := ""
	for _, status := range statuses {
		switch {
		case status.Selected:
			selected = status.MIMEType
			lines = append(lines, renderStatusLine(status.MIMEType, statusOK, "Selected", colorize))
		case status.Supported:
			lines = append(lines, renderStatusLine(status.MIMEType, statusInfo, "Supported", colorize))
		default:
			lines = append(lines, renderStatusLine(status.MIMEType, statusWarn, "Unsupported", colorize))
		}
	}
	if selected == "" {
		lines = append(lines, renderStatusLine("Video export", statusError, "No supported codec; GIF export still works", colorize))
	}
	return lines
}

func pathLines(cfg *config.Config, colorize bool) []string {
	lines := []string{
		directoryStatusLine("Output", cfg.Paths.OutputDir, colorize),
		directoryStatusLine("State", cfg.Paths.StateDir, colorize),
		directoryStatusLine("Display", cfg.Display.Dir, colorize),
	}
	if dir := strings.TrimSpace(cfg.Paths.CaptureDir); dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			lines = append(lines, renderStatusLine("Capture", statusInfo, dir+" (created on first snap)", colorize))
		} else {
			lines = append(lines, directoryStatusLine("Capture", dir, colorize))
		}
	}
	device := strings.TrimSpace(cfg.Camera.Device)
	if _, err := os.Stat(device); err != nil {
		lines = append(lines, renderStatusLine("Camera", statusWarn, device+" not found", colorize))
	} else {
		lines = append(lines, renderStatusLine("Camera", statusOK, device, colorize))
	}
	return lines
}

func directoryStatusLine(label, path string, colorize bool) string {
	if strings.TrimSpace(path) == "" {
		return renderStatusLine(label, statusWarn, "not configured", colorize)
	}
	if err := capturedir.CheckReadWrite(path); err != nil {
		return renderStatusLine(label, statusError, fmt.Sprintf("%s (%v)", path, err), colorize)
	}
	return renderStatusLine(label, statusOK, path, colorize)
}
