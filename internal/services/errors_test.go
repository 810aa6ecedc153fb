package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"stopmo/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRecorderFailed, "export", "record", "ffmpeg exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrRecorderFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"export", "record", "ffmpeg exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerDefaultsToExternalTool(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "component failure") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestTriggersMemoryFallback(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", services.Wrap(services.ErrDirectoryUnavailable, "capturedir", "ensure", "", nil), true},
		{"denied", services.Wrap(services.ErrPermissionDenied, "capturedir", "ensure", "", nil), true},
		{"write", services.Wrap(services.ErrWriteFailed, "framestore", "persist", "", errors.New("disk full")), true},
		{"aborted", services.Wrap(services.ErrSelectionAborted, "capturedir", "pick", "", nil), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.TriggersMemoryFallback(tt.err); got != tt.want {
				t.Fatalf("TriggersMemoryFallback(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestKindLabels(t *testing.T) {
	err := services.Wrap(services.ErrNoFramesAvailable, "export", "resolve", "", nil)
	if got := services.Kind(err); got != "no_frames_available" {
		t.Fatalf("Kind = %q", got)
	}
	if got := services.Kind(errors.New("other")); got != "unknown" {
		t.Fatalf("Kind = %q", got)
	}
}
