package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"stopmo/internal/camera"
	"stopmo/internal/capturedir"
	"stopmo/internal/config"
	"stopmo/internal/logging"
	"stopmo/internal/session"
)

type sessionOptions struct {
	source string
	memory bool
}

func newSessionCommand(ctx *commandContext) *cobra.Command {
	var opts sessionOptions
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start an interactive capture session",
		Long: `Start an interactive capture session.

Commands are read one per line from stdin; type "help" for the list. The live
stage and ghost overlay are rendered as PNG files under display.dir for an
external viewer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runSession(signalCtx, ctx, cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.source, "source", "", "Directory of still images to use instead of the camera")
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "Keep frames in memory only")
	return cmd
}

func runSession(ctx context.Context, cmdCtx *commandContext, cmd *cobra.Command, opts sessionOptions) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	lock, err := session.AcquireLock(cfg.SessionLockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	run, err := cmdCtx.newRunLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	stdout := cmd.OutOrStdout()
	output := newTerminalOutput(stdout, shouldColorize(stdout))
	input := newLineSource(ctx, cmd.InOrStdin())

	cam, err := buildCamera(cfg, opts.source, run.logger)
	if err != nil {
		return err
	}
	folders := &folderPicker{base: basePicker(cfg, cmd.InOrStdin(), input, stdout)}
	var pickers []capturedir.Picker
	if folders.base != nil {
		pickers = append(pickers, folders)
	}

	store := openHistory(ctx, cfg, run.logger)
	if store != nil {
		defer store.Close()
	}

	sess, err := session.New(session.Deps{
		Config:      cfg,
		Camera:      cam,
		Pickers:     pickers,
		ForceMemory: opts.memory,
		Recorder:    newRecorder(cfg, run.logger),
		History:     store,
		Output:      output,
		Logger:      run.logger,
		SessionID:   run.sessionID,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		output.Notice(fmt.Sprintf("Camera unavailable: %v", err))
	}

	if cfg.Camera.WatchHotplug && opts.source == "" {
		watcher := camera.NewWatcher(run.logger, hotplugHandler(output))
		if err := watcher.Start(ctx); err != nil {
			logging.WarnWithContext(run.logger, "camera hotplug watcher unavailable", "hotplug_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set camera.watch_hotplug = false to silence"),
				logging.String(logging.FieldImpact, "camera connect and disconnect are not reported"),
			)
		}
		defer watcher.Stop()
	}

	r := &repl{sess: sess, out: stdout, folders: folders, colorize: output.colorize}
	fmt.Fprintf(stdout, "stopmo session %s (%s). Type \"help\" for commands.\n", shortID(sess.ID()), titleLabel(sess.Summary().Mode.String()))
	fmt.Fprintf(stdout, "stage: %s\nghost: %s\n", sess.StagePath(), sess.GhostPath())
	return r.run(ctx, input)
}

func buildCamera(cfg *config.Config, source string, logger *slog.Logger) (camera.Camera, error) {
	if strings.TrimSpace(source) != "" {
		dir, err := config.ExpandPath(source)
		if err != nil {
			return nil, err
		}
		return camera.NewFileCamera(dir)
	}
	return camera.NewFFmpegCamera(cfg, logger), nil
}

// basePicker prompts on a terminal when configured to, and otherwise uses
// paths.capture_dir. It returns nil when neither applies.
func basePicker(cfg *config.Config, stdin io.Reader, input io.Reader, out io.Writer) capturedir.Picker {
	if f, ok := stdin.(*os.File); ok && cfg.Capture.PromptForFolder && capturedir.TerminalAvailable(f) {
		return capturedir.PromptPicker{In: bufio.NewReader(input), Out: out, Suggest: cfg.Paths.CaptureDir}
	}
	if strings.TrimSpace(cfg.Paths.CaptureDir) != "" {
		return capturedir.StaticPicker{Path: cfg.Paths.CaptureDir}
	}
	return nil
}

// folderPicker returns a path queued by the folder command once, then falls
// back to the base picker.
type folderPicker struct {
	mu   sync.Mutex
	next string
	base capturedir.Picker
}

func (p *folderPicker) queue(path string) {
	p.mu.Lock()
	p.next = path
	p.mu.Unlock()
}

func (p *folderPicker) Pick(ctx context.Context) (string, error) {
	p.mu.Lock()
	next := p.next
	p.next = ""
	p.mu.Unlock()
	if next != "" {
		return config.ExpandPath(next)
	}
	return p.base.Pick(ctx)
}

func hotplugHandler(output session.Output) func(camera.Event) {
	return func(ev camera.Event) {
		switch ev.Action {
		case camera.ActionAdd:
			output.Status("camera connected: " + ev.Device)
		case camera.ActionRemove:
			output.Notice("Camera " + ev.Device + " disconnected; snaps will fail until it returns.")
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
