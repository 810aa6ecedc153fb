package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"stopmo/internal/session"
	"stopmo/internal/slideshow"
)

const replHelp = `Commands:
  snap               capture a frame
  remove N           delete frame N (1 is the first frame)
  clear              delete every frame
  play | pause       start or pause the slideshow
  toggle             pause a running slideshow or resume a paused one
  delay MS           slideshow interval in milliseconds (min 100)
  ghost PCT          onion-skin opacity (0, 25, 50, 75, 90)
  ghost2 on|off      include the frame before last in the ghost
  flip               switch camera facing
  folder [PATH]      choose a new capture folder
  gif [WIDTH] [LOOPS]
  video [LOOPS]
  frames             list frames
  status             show the session summary
  help
  quit`

var errQuit = errors.New("quit")

type repl struct {
	sess     *session.Session
	out      io.Writer
	folders  *folderPicker
	colorize bool
}

func (r *repl) run(ctx context.Context, input *lineSource) error {
	for {
		fmt.Fprint(r.out, "stopmo> ")
		line, ok := input.Next()
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}
		err := r.exec(ctx, line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

func (r *repl) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "snap", "s":
		_, err := r.sess.Snap(ctx)
		if err == nil {
			fmt.Fprintln(r.out, session.FrameCountLabel(r.sess.Summary().Frames))
		}
		return err
	case "remove", "rm":
		n, err := intArg(args, 0, "frame number")
		if err != nil {
			return err
		}
		if err := r.sess.Remove(n - 1); err != nil {
			return err
		}
		fmt.Fprintln(r.out, session.FrameCountLabel(r.sess.Summary().Frames))
		return nil
	case "clear":
		fmt.Fprintf(r.out, "removed %s\n", session.FrameCountLabel(r.sess.Clear()))
		return nil
	case "play":
		if !r.sess.Play() {
			fmt.Fprintln(r.out, slideshow.HintNeedFrames)
		}
		return nil
	case "pause":
		r.sess.Pause()
		return nil
	case "toggle", "t":
		if r.sess.Toggle() == slideshow.Stopped {
			fmt.Fprintln(r.out, slideshow.HintNeedFrames)
		}
		return nil
	case "delay":
		ms, err := intArg(args, 0, "milliseconds")
		if err != nil {
			return err
		}
		d := r.sess.SetDelay(ms)
		fmt.Fprintf(r.out, "delay %dms\n", d.Milliseconds())
		return nil
	case "ghost":
		if len(args) == 0 {
			return errors.New("usage: ghost PCT")
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "%"), 64)
		if err != nil {
			return fmt.Errorf("invalid opacity %q", args[0])
		}
		fmt.Fprintf(r.out, "ghost %d%%\n", r.sess.SetGhostOpacity(pct))
		return nil
	case "ghost2":
		on, err := onOff(args)
		if err != nil {
			return err
		}
		r.sess.SetSecondLayer(on)
		return nil
	case "flip":
		info, err := r.sess.Flip(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%s camera %s (%dx%d)\n", titleLabel(info.Facing), info.Device, info.Width, info.Height)
		return nil
	case "folder":
		if len(args) > 0 {
			r.folders.queue(strings.Join(args, " "))
		}
		_, err := r.sess.ChangeFolder(ctx)
		return err
	case "gif":
		width, err := optionalInt(args, 0)
		if err != nil {
			return err
		}
		loops, err := optionalInt(args, 1)
		if err != nil {
			return err
		}
		result, err := r.sess.ExportGIF(ctx, width, loops)
		if err != nil {
			return err
		}
		r.printExport(result)
		return nil
	case "video":
		loops, err := optionalInt(args, 0)
		if err != nil {
			return err
		}
		result, err := r.sess.ExportVideo(ctx, loops)
		if err != nil {
			return err
		}
		r.printExport(result)
		return nil
	case "frames", "ls":
		r.printFrames()
		return nil
	case "status":
		for _, line := range summaryLines(r.sess.Summary(), r.colorize) {
			fmt.Fprintln(r.out, line)
		}
		return nil
	case "help", "?":
		fmt.Fprintln(r.out, replHelp)
		return nil
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (type help)", name)
	}
}

func (r *repl) printExport(result *session.ExportResult) {
	fmt.Fprintf(r.out, "%s: %s\n", result.Artifact.Status, result.Path)
	fmt.Fprintf(r.out, "%s, %s\n", session.FrameCountLabel(result.Artifact.Frames), result.Artifact.Meta())
}

func (r *repl) printFrames() {
	frames := r.sess.Frames()
	if len(frames) == 0 {
		fmt.Fprintln(r.out, "no frames")
		return
	}
	rows := make([][]string, 0, len(frames))
	for _, f := range frames {
		rows = append(rows, []string{
			strconv.Itoa(f.Index + 1),
			titleLabel(f.Kind),
			f.Name,
			fmt.Sprintf("%dx%d", f.Width, f.Height),
		})
	}
	columns := []tableColumn{
		{"#", alignRight},
		{"Storage", alignLeft},
		{"Name", alignLeft},
		{"Preview", alignRight},
	}
	fmt.Fprintln(r.out, renderTable(columns, rows, r.sess.Summary().FrameLabel))
}

func summaryLines(sum session.Summary, colorize bool) []string {
	lines := renderSectionHeader("Session "+shortID(sum.SessionID), colorize)
	storage := titleLabel(sum.Mode.String())
	if sum.CaptureDir != "" {
		storage += " (" + sum.CaptureDir + ")"
	}
	storageKind := statusOK
	if sum.FallbackShown {
		storageKind = statusWarn
	}
	lines = append(lines,
		renderStatusLine("Frames", statusInfo, sum.FrameLabel, colorize),
		renderStatusLine("Storage", storageKind, storage, colorize),
		renderStatusLine("Slideshow", statusInfo, fmt.Sprintf("%s, %dms (%s)", titleLabel(sum.Slideshow.String()), sum.Delay.Milliseconds(), sum.Hint), colorize),
		renderStatusLine("Ghost", statusInfo, fmt.Sprintf("%d%%, second layer %s", sum.GhostOpacity, yesNo(sum.GhostSecond)), colorize),
	)
	if sum.Camera.Device != "" {
		lines = append(lines, renderStatusLine("Camera", statusOK,
			fmt.Sprintf("%s %s (%dx%d)", titleLabel(sum.Camera.Facing), sum.Camera.Device, sum.Camera.Width, sum.Camera.Height), colorize))
	}
	lines = append(lines,
		renderStatusLine("Stage", statusInfo, fmt.Sprintf("%dx%d", sum.StageWidth, sum.StageHeight), colorize),
		renderStatusLine("Status", statusInfo, sum.Status, colorize),
	)
	return lines
}

func intArg(args []string, i int, what string) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing %s", what)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[i])
	}
	return n, nil
}

// optionalInt returns 0 when the argument is absent so config defaults apply.
func optionalInt(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number %q", args[i])
	}
	return n, nil
}

func onOff(args []string) (bool, error) {
	if len(args) == 0 {
		return false, errors.New("usage: ghost2 on|off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "yes", "1", "true":
		return true, nil
	case "off", "no", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", args[0])
	}
}
