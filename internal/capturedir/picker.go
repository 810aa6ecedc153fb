package capturedir

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"stopmo/internal/config"
	"stopmo/internal/services"
)

// Picker asks for a capture directory. Implementations return an error
// wrapping services.ErrSelectionAborted when the user cancels and
// services.ErrPermissionDenied when the user declines.
type Picker interface {
	Pick(ctx context.Context) (string, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context) (string, error)

// Pick calls f.
func (f PickerFunc) Pick(ctx context.Context) (string, error) { return f(ctx) }

// StaticPicker always returns the configured path.
type StaticPicker struct {
	Path string
}

// Pick returns the configured path or ErrDirectoryUnavailable when empty.
func (p StaticPicker) Pick(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrSelectionAborted, "capturedir", "pick", "", err)
	}
	if strings.TrimSpace(p.Path) == "" {
		return "", services.Wrap(services.ErrDirectoryUnavailable, "capturedir", "pick", "no capture_dir configured", nil)
	}
	return p.Path, nil
}

// PromptPicker asks on a terminal. A blank answer cancels and "no" declines.
type PromptPicker struct {
	In      *bufio.Reader
	Out     io.Writer
	Suggest string
}

// Pick prompts once and reads a single line.
func (p PromptPicker) Pick(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrSelectionAborted, "capturedir", "pick", "", err)
	}
	if p.In == nil {
		return "", services.Wrap(services.ErrDirectoryUnavailable, "capturedir", "pick", "no terminal input", nil)
	}
	out := p.Out
	if out == nil {
		out = io.Discard
	}
	if p.Suggest != "" {
		fmt.Fprintf(out, "capture folder (e.g. %s; blank cancels, \"no\" keeps frames in memory): ", p.Suggest)
	} else {
		fmt.Fprint(out, "capture folder (blank cancels, \"no\" keeps frames in memory): ")
	}

	line, err := p.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", services.Wrap(services.ErrSelectionAborted, "capturedir", "pick", "input closed", err)
	}
	answer := strings.TrimSpace(line)
	switch strings.ToLower(answer) {
	case "":
		return "", services.Wrap(services.ErrSelectionAborted, "capturedir", "pick", "cancelled", nil)
	case "n", "no":
		return "", services.Wrap(services.ErrPermissionDenied, "capturedir", "pick", "declined", nil)
	}
	expanded, err := config.ExpandPath(answer)
	if err != nil {
		return "", services.Wrap(services.ErrPermissionDenied, "capturedir", "pick", answer, err)
	}
	return expanded, nil
}

// TerminalAvailable reports whether f is an interactive terminal, which is
// what makes a PromptPicker usable.
func TerminalAvailable(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
