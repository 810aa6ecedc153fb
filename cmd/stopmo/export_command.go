package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"stopmo/internal/camera"
	"stopmo/internal/config"
	"stopmo/internal/export"
	"stopmo/internal/history"
	"stopmo/internal/media/ffmpeg"
	"stopmo/internal/session"
)

type batchExportOptions struct {
	width   int
	loops   int
	delayMS int
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export still files as a GIF or video",
	}
	exportCmd.AddCommand(newBatchExportCommand(ctx, export.KindGIF))
	exportCmd.AddCommand(newBatchExportCommand(ctx, export.KindVideo))
	return exportCmd
}

func newBatchExportCommand(ctx *commandContext, kind string) *cobra.Command {
	var opts batchExportOptions
	cmd := &cobra.Command{
		Use:   kind + " FILE...",
		Short: fmt.Sprintf("Render still files as a %s in the given order", titleLabel(kind)),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			run, err := ctx.newRunLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store := openHistory(cmd.Context(), cfg, run.logger)
			if store != nil {
				defer store.Close()
			}
			result, err := runBatchExport(cmd, cfg, run, store, kind, args, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", result.Artifact.Status, result.Path)
			fmt.Fprintf(out, "%s, %s\n", session.FrameCountLabel(result.Artifact.Frames), result.Artifact.Meta())
			return nil
		},
	}
	if kind == export.KindGIF {
		cmd.Flags().IntVar(&opts.width, "width", 0, "GIF width in pixels (default export.gif_width)")
	}
	cmd.Flags().IntVar(&opts.loops, "loops", 0, "Times the sequence repeats (default from config)")
	cmd.Flags().IntVar(&opts.delayMS, "delay", 0, "Milliseconds per frame (default slideshow.delay_ms)")
	return cmd
}

func runBatchExport(cmd *cobra.Command, cfg *config.Config, run *runLogger, store *history.Store, kind string, files []string, opts batchExportOptions) (*session.ExportResult, error) {
	source, err := camera.NewFileCameraFromPaths(files)
	if err != nil {
		return nil, err
	}
	output := newTerminalOutput(cmd.ErrOrStderr(), false)
	output.quiet = true
	batchCfg := *cfg
	batchCfg.Slideshow.Autostart = false
	sess, err := session.New(session.Deps{
		Config:      &batchCfg,
		Camera:      source,
		ForceMemory: true,
		Recorder:    newRecorder(cfg, run.logger),
		History:     store,
		Output:      output,
		Logger:      run.logger,
		SessionID:   run.sessionID,
	})
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	ctx := cmd.Context()
	for range source.Len() {
		if _, err := sess.Snap(ctx); err != nil {
			return nil, err
		}
	}
	if opts.delayMS > 0 {
		sess.SetDelay(opts.delayMS)
	}
	if kind == export.KindGIF {
		return sess.ExportGIF(ctx, opts.width, opts.loops)
	}
	return sess.ExportVideo(ctx, opts.loops)
}

func newRecorder(cfg *config.Config, logger *slog.Logger) *ffmpeg.Recorder {
	return ffmpeg.New(
		ffmpeg.WithBinary(cfg.FFmpegBinary()),
		ffmpeg.WithTempDir(cfg.Paths.StateDir),
		ffmpeg.WithLogger(logger),
	)
}

// terminalOutput prints session notices and status changes. The hotplug
// watcher writes from its own goroutine.
type terminalOutput struct {
	mu       sync.Mutex
	w        io.Writer
	colorize bool
	quiet    bool
}

func newTerminalOutput(w io.Writer, colorize bool) *terminalOutput {
	return &terminalOutput{w: w, colorize: colorize}
}

func (o *terminalOutput) Notice(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.colorize {
		fmt.Fprintf(o.w, "%s! %s%s\n", ansiYellow, msg, ansiReset)
		return
	}
	fmt.Fprintf(o.w, "! %s\n", msg)
}

func (o *terminalOutput) Status(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.quiet {
		return
	}
	fmt.Fprintf(o.w, "[%s]\n", msg)
}
