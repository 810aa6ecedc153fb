package ffmpeg

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"stopmo/internal/export"
	"stopmo/internal/services"
)

const encodersListing = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 V....D libvpx               libvpx VP8 (codec vp8)
 A....D aac                  AAC (Advanced Audio Coding)
`

// writeStub installs a fake ffmpeg. Listing requests print encodersListing;
// recordings drain stdin and write the byte count to the last argument.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	dir := t.TempDir()
	listing := filepath.Join(dir, "encoders.txt")
	if err := os.WriteFile(listing, []byte(encodersListing), 0o644); err != nil {
		t.Fatalf("write listing: %v", err)
	}
	if body == "" {
		body = `for last; do :; done
wc -c > "$last"`
	}
	script := "#!/bin/sh\ncase \"$*\" in\n*-encoders*) cat " + listing + "; exit 0 ;;\nesac\n" + body + "\n"
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestParseEncoders(t *testing.T) {
	found := parseEncoders(encodersListing)
	for _, name := range []string{"libx264", "libvpx", "aac"} {
		if !found[name] {
			t.Fatalf("expected %s in %v", name, found)
		}
	}
	if found["="] || found["Video"] {
		t.Fatalf("legend rows parsed as encoders: %v", found)
	}
}

func TestCodecFor(t *testing.T) {
	c, ok := CodecFor(" Video/WebM; codecs=VP9 ")
	if !ok || c.Encoder != "libvpx-vp9" || c.Format != "webm" {
		t.Fatalf("unexpected codec %+v ok=%v", c, ok)
	}
	if _, ok := CodecFor("video/ogg"); ok {
		t.Fatal("expected unknown type to be rejected")
	}
	if got := len(Codecs()); got != 4 {
		t.Fatalf("expected 4 codecs, got %d", got)
	}
}

func TestSupportsUsesEncoderListing(t *testing.T) {
	rec := New(WithBinary(writeStub(t, "")))
	ctx := context.Background()
	if !rec.Supports(ctx, "video/mp4;codecs=h264") {
		t.Fatal("expected h264 support")
	}
	if rec.Supports(ctx, "video/webm;codecs=vp9") {
		t.Fatal("vp9 not in listing")
	}
	if !rec.Supports(ctx, "video/webm") {
		t.Fatal("plain webm maps to libvpx")
	}
	mime, ok := export.SelectCodec(ctx, rec, []string{"video/webm;codecs=vp9", "video/webm;codecs=vp8"})
	if !ok || mime != "video/webm;codecs=vp8" {
		t.Fatalf("SelectCodec = %q %v", mime, ok)
	}
}

func TestSupportsMissingBinary(t *testing.T) {
	rec := New(WithBinary(filepath.Join(t.TempDir(), "missing-ffmpeg")))
	if rec.Supports(context.Background(), "video/webm") {
		t.Fatal("missing binary cannot support anything")
	}
	if _, err := rec.Encoders(context.Background()); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestRecordingStreamsRawFrames(t *testing.T) {
	tmp := t.TempDir()
	rec := New(WithBinary(writeStub(t, "")), WithTempDir(tmp))
	sess, err := rec.Start(context.Background(), export.RecordingSpec{MIMEType: "video/webm", Width: 4, Height: 2, FPS: 30})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for range 3 {
		if err := sess.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	data, mime, err := sess.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if mime != "video/webm" {
		t.Fatalf("mime = %q", mime)
	}
	if got := strings.TrimSpace(string(data)); got != "96" {
		t.Fatalf("expected 96 raw bytes, stub saw %q", got)
	}
	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Fatalf("temporary recording not removed: %v", entries)
	}
	sess.Abort()
}

func TestRecordingRejectsWrongSize(t *testing.T) {
	rec := New(WithBinary(writeStub(t, "")), WithTempDir(t.TempDir()))
	sess, err := rec.Start(context.Background(), export.RecordingSpec{MIMEType: "video/webm", Width: 4, Height: 4, FPS: 30})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sess.Abort()
	if err := sess.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestRecordingFailureReportsStderr(t *testing.T) {
	stub := writeStub(t, `cat > /dev/null
echo "codec exploded" >&2
exit 1`)
	rec := New(WithBinary(stub), WithTempDir(t.TempDir()))
	sess, err := rec.Start(context.Background(), export.RecordingSpec{MIMEType: "video/webm", Width: 2, Height: 2, FPS: 30})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = sess.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	_, _, err = sess.Finish()
	if err == nil || !strings.Contains(err.Error(), "codec exploded") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestAbortRemovesTempFile(t *testing.T) {
	tmp := t.TempDir()
	rec := New(WithBinary(writeStub(t, "exec sleep 5")), WithTempDir(tmp))
	sess, err := rec.Start(context.Background(), export.RecordingSpec{MIMEType: "video/mp4;codecs=h264", Width: 2, Height: 2, FPS: 30})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	sess.Abort()
	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Fatalf("abort left files: %v", entries)
	}
	if _, _, err := sess.Finish(); err == nil {
		t.Fatal("Finish after Abort should fail")
	}
}

func TestBuildArgs(t *testing.T) {
	c, _ := CodecFor("video/mp4;codecs=h264")
	args := buildArgs(c, export.RecordingSpec{Width: 640, Height: 480, FPS: 24}, "/tmp/out.mp4")
	for _, want := range []string{"rawvideo", "rgba", "640x480", "pipe:0", "libx264", "+faststart"} {
		if !slices.Contains(args, want) {
			t.Fatalf("missing %q in %v", want, args)
		}
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Fatalf("output path must be last: %v", args)
	}
}

func TestStartRejectsUnknownType(t *testing.T) {
	_, err := New().Start(context.Background(), export.RecordingSpec{MIMEType: "video/ogg", Width: 2, Height: 2, FPS: 30})
	if !errors.Is(err, services.ErrRecorderFailed) {
		t.Fatalf("expected ErrRecorderFailed, got %v", err)
	}
}
