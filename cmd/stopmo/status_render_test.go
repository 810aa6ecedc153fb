package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"stopmo/internal/deps"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Camera", statusError, "Not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Camera:", "[ERROR] Not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Camera", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Available: false, Detail: `binary "ffmpeg" not found`},
		{Name: "FFprobe", Available: true, Command: "/usr/bin/ffprobe"},
		{Name: "Extra", Available: false, Optional: true},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], `[ERROR] binary "ffmpeg" not found`) {
		t.Fatalf("expected error detail first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: /usr/bin/ffprobe)") {
		t.Fatalf("expected ready detail, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] not available") {
		t.Fatalf("expected optional warning, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies:") || strings.Contains(lines[3], "Extra") {
		t.Fatalf("expected only required deps in summary, got %q", lines[3])
	}
}

func TestCodecLines(t *testing.T) {
	lines := codecLines([]deps.CodecStatus{
		{MIMEType: "video/mp4;codecs=h264"},
		{MIMEType: "video/webm;codecs=vp9", Supported: true, Selected: true},
		{MIMEType: "video/webm", Supported: true},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", lines)
	}
	if !strings.Contains(lines[0], "Unsupported") || !strings.Contains(lines[1], "Selected") || !strings.Contains(lines[2], "Supported") {
		t.Fatalf("unexpected codec lines %q", lines)
	}

	none := codecLines([]deps.CodecStatus{{MIMEType: "video/webm"}}, false)
	if !strings.Contains(none[len(none)-1], "No supported codec") {
		t.Fatalf("expected no-codec summary, got %q", none)
	}
}

func TestTitleLabel(t *testing.T) {
	cases := map[string]string{
		"memory":      "Memory",
		"environment": "Environment",
		"gif":         "Gif",
		"":            "Unknown",
		"disk_write":  "Disk Write",
	}
	for in, want := range cases {
		if got := titleLabel(in); got != want {
			t.Fatalf("titleLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderTablePadsRowsAndPrintsFooter(t *testing.T) {
	columns := []tableColumn{{"#", alignRight}, {"Name", alignLeft}, {"Preview", alignRight}}
	out := renderTable(columns, [][]string{
		{"1", "frame_a.jpg"},
		{"2", "frame_b.jpg", "64x48", "extra"},
	}, "2 frames")

	for _, want := range []string{"frame_a.jpg", "frame_b.jpg", "64x48", "2 frames"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "extra") {
		t.Fatalf("cells beyond the last column should be dropped:\n%s", out)
	}
	if renderTable(nil, nil, "") != "" {
		t.Fatal("expected empty output without columns")
	}
}
