package capturedir_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"stopmo/internal/capturedir"
	"stopmo/internal/services"
)

func allowAll(string) error { return nil }

func TestEnsureOpensConfiguredDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames")
	m := capturedir.NewManager([]capturedir.Picker{capturedir.StaticPicker{Path: path}}, capturedir.WithAccessCheck(allowAll))
	t.Cleanup(func() { _ = m.Close() })

	dir, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if dir.Path() != path {
		t.Fatalf("path = %q, want %q", dir.Path(), path)
	}
	if err := dir.WriteFile("frame_1.jpg", []byte("jpeg")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := dir.ReadFile("frame_1.jpg")
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
	if err := dir.WriteFile("frame_1.jpg", []byte("again")); !errors.Is(err, services.ErrWriteFailed) {
		t.Fatalf("overwrite should fail with ErrWriteFailed, got %v", err)
	}
	if err := dir.Remove("frame_1.jpg"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := dir.Remove("frame_1.jpg"); err != nil {
		t.Fatalf("Remove of missing file should be nil, got %v", err)
	}

	again, err := m.Ensure(context.Background())
	if err != nil || again != dir {
		t.Fatalf("second Ensure should reuse directory, got %v, %v", again, err)
	}
}

func TestEnsureRejectsEscapingNames(t *testing.T) {
	m := capturedir.NewManager([]capturedir.Picker{capturedir.StaticPicker{Path: t.TempDir()}}, capturedir.WithAccessCheck(allowAll))
	t.Cleanup(func() { _ = m.Close() })
	dir, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := dir.WriteFile("../escape.jpg", []byte("x")); err == nil {
		t.Fatal("expected write outside root to fail")
	}
}

func TestEnsureWithoutPickerIsUnavailable(t *testing.T) {
	m := capturedir.NewManager(nil)
	if m.Available() {
		t.Fatal("manager without pickers should not be available")
	}
	_, err := m.Ensure(context.Background())
	if !errors.Is(err, services.ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
	if !services.TriggersMemoryFallback(err) {
		t.Fatal("unavailable directory should trigger memory fallback")
	}
}

func TestEnsureAbortedSelection(t *testing.T) {
	picker := capturedir.PickerFunc(func(context.Context) (string, error) {
		return "", services.Wrap(services.ErrSelectionAborted, "test", "pick", "cancelled", nil)
	})
	m := capturedir.NewManager([]capturedir.Picker{picker})
	_, err := m.Ensure(context.Background())
	if !errors.Is(err, services.ErrSelectionAborted) {
		t.Fatalf("expected ErrSelectionAborted, got %v", err)
	}
	if services.TriggersMemoryFallback(err) {
		t.Fatal("aborted selection must not trigger memory fallback")
	}
	if m.Current() != nil {
		t.Fatal("no directory should be active")
	}
}

func TestEnsureAccessDenied(t *testing.T) {
	deny := func(string) error { return errors.New("read-only") }
	m := capturedir.NewManager([]capturedir.Picker{capturedir.StaticPicker{Path: t.TempDir()}}, capturedir.WithAccessCheck(deny))
	_, err := m.Ensure(context.Background())
	if !errors.Is(err, services.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestEnsureRevalidatesAndRepicks(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	var revoked atomic.Bool
	access := func(path string) error {
		if revoked.Load() && path == first {
			return errors.New("revoked")
		}
		return nil
	}
	var calls atomic.Int32
	picker := capturedir.PickerFunc(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return first, nil
		}
		return second, nil
	})
	m := capturedir.NewManager([]capturedir.Picker{picker}, capturedir.WithAccessCheck(access))
	t.Cleanup(func() { _ = m.Close() })

	dir, err := m.Ensure(context.Background())
	if err != nil || dir.Path() != first {
		t.Fatalf("first Ensure = %v, %v", dir, err)
	}
	revoked.Store(true)
	dir, err = m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure after revoke: %v", err)
	}
	if dir.Path() != second {
		t.Fatalf("expected re-pick into %q, got %q", second, dir.Path())
	}
	if calls.Load() != 2 {
		t.Fatalf("picker calls = %d, want 2", calls.Load())
	}
}

func TestDirectoryLockedByAnotherSession(t *testing.T) {
	path := t.TempDir()
	a := capturedir.NewManager([]capturedir.Picker{capturedir.StaticPicker{Path: path}}, capturedir.WithAccessCheck(allowAll))
	b := capturedir.NewManager([]capturedir.Picker{capturedir.StaticPicker{Path: path}}, capturedir.WithAccessCheck(allowAll))
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	if _, err := a.Ensure(context.Background()); err != nil {
		t.Fatalf("first session: %v", err)
	}
	_, err := b.Ensure(context.Background())
	if !errors.Is(err, services.ErrPermissionDenied) {
		t.Fatalf("expected locked directory to be denied, got %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := b.Ensure(context.Background()); err != nil {
		t.Fatalf("directory should be usable after first session closes: %v", err)
	}
}

func TestReselect(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	answers := []string{first, second, second, first}
	var next int
	picker := capturedir.PickerFunc(func(context.Context) (string, error) {
		if next >= len(answers) {
			return "", services.Wrap(services.ErrSelectionAborted, "test", "pick", "", nil)
		}
		answer := answers[next]
		next++
		return answer, nil
	})
	m := capturedir.NewManager([]capturedir.Picker{picker}, capturedir.WithAccessCheck(allowAll))
	t.Cleanup(func() { _ = m.Close() })

	if _, err := m.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	dir, err := m.Reselect(context.Background())
	if err != nil || dir.Path() != second {
		t.Fatalf("Reselect = %v, %v", dir, err)
	}
	dir, err = m.Reselect(context.Background())
	if err != nil || dir.Path() != second {
		t.Fatalf("re-picking the active folder should reuse it, got %v, %v", dir, err)
	}
	dir, err = m.Reselect(context.Background())
	if err != nil || dir.Path() != first {
		t.Fatalf("re-picking a retired folder should reuse it, got %v, %v", dir, err)
	}
	if _, err := m.Reselect(context.Background()); !errors.Is(err, services.ErrSelectionAborted) {
		t.Fatalf("expected abort, got %v", err)
	}
	if m.Current() == nil || m.Current().Path() != first {
		t.Fatal("failed reselect should keep the previous directory")
	}
}

func TestPromptPicker(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"blank cancels", "\n", "", services.ErrSelectionAborted},
		{"eof cancels", "", "", services.ErrSelectionAborted},
		{"no declines", "no\n", "", services.ErrPermissionDenied},
		{"path", "/tmp/frames\n", "/tmp/frames", nil},
		{"path without newline", "/tmp/last", "/tmp/last", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := capturedir.PromptPicker{In: bufio.NewReader(strings.NewReader(tt.input)), Out: &out, Suggest: "~/Pictures/stopmo"}
			got, err := p.Pick(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("Pick = %q, %v; want %q", got, err, tt.want)
			}
			if !strings.Contains(out.String(), "capture folder") {
				t.Fatalf("prompt not written: %q", out.String())
			}
		})
	}
}

func TestStaticPickerEmpty(t *testing.T) {
	_, err := capturedir.StaticPicker{}.Pick(context.Background())
	if !errors.Is(err, services.ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
}
