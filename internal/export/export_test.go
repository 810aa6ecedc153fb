package export_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"sync"
	"testing"
	"time"

	"stopmo/internal/bitmap"
	"stopmo/internal/export"
	"stopmo/internal/framestore"
	"stopmo/internal/services"
	"stopmo/internal/slideshow"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func mustBitmap(t *testing.T, img image.Image) *bitmap.Bitmap {
	t.Helper()
	b, err := bitmap.New(img)
	if err != nil {
		t.Fatalf("bitmap: %v", err)
	}
	return b
}

// memoryRecord builds a record whose original is w x h and preview is half size.
func memoryRecord(t *testing.T, w, h int, c color.Color) *framestore.Record {
	t.Helper()
	return &framestore.Record{
		Preview: mustBitmap(t, solid(w/2, h/2, c)),
		Memory:  &framestore.MemoryRef{Data: pngBytes(t, solid(w, h, c))},
	}
}

// orphanRecord has a preview but its original is unreadable.
func orphanRecord(t *testing.T, c color.Color) *framestore.Record {
	t.Helper()
	return &framestore.Record{
		Preview: mustBitmap(t, solid(40, 30, c)),
		Memory:  &framestore.MemoryRef{Data: []byte("not an image")},
	}
}

type fakeRecorder struct {
	mu        sync.Mutex
	supported map[string]bool
	startErr  error
	failAt    int
	specs     []export.RecordingSpec
	writes    int
	aborted   bool
	finished  bool
}

func (r *fakeRecorder) Supports(_ context.Context, mime string) bool {
	return r.supported[mime]
}

func (r *fakeRecorder) Start(_ context.Context, spec export.RecordingSpec) (export.RecordingSession, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	r.mu.Lock()
	r.specs = append(r.specs, spec)
	r.mu.Unlock()
	return &fakeSession{r: r, mime: spec.MIMEType}, nil
}

type fakeSession struct {
	r    *fakeRecorder
	mime string
}

func (s *fakeSession) WriteFrame(frame *image.RGBA) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.writes++
	if s.r.failAt > 0 && s.r.writes >= s.r.failAt {
		return errors.New("pipe closed")
	}
	return nil
}

func (s *fakeSession) Finish() ([]byte, string, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.finished = true
	return bytes.Repeat([]byte{1}, 2048), s.mime, nil
}

func (s *fakeSession) Abort() {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.aborted = true
}

type countingPacer struct {
	waits   int
	stopped bool
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func (p *countingPacer) Stop() { p.stopped = true }

type fakePlayback struct {
	state    slideshow.State
	frames   int
	stops    int
	restarts []bool
}

func (p *fakePlayback) State() slideshow.State { return p.state }

func (p *fakePlayback) Stop(bool) {
	p.stops++
	p.state = slideshow.Stopped
}

func (p *fakePlayback) Start(keepIndex bool) bool {
	if p.frames < 2 {
		return false
	}
	p.restarts = append(p.restarts, keepIndex)
	p.state = slideshow.Running
	return true
}

type mirrorLog struct{ shown []*bitmap.Bitmap }

func (m *mirrorLog) Show(b *bitmap.Bitmap) { m.shown = append(m.shown, b) }

func fixedClock() time.Time { return time.UnixMilli(1700000000123) }

func TestGIFRepeatsFramesAndKeepsFirstAspect(t *testing.T) {
	records := []*framestore.Record{
		memoryRecord(t, 800, 400, color.RGBA{R: 255, A: 255}),
		memoryRecord(t, 400, 400, color.RGBA{G: 255, A: 255}),
		memoryRecord(t, 400, 800, color.RGBA{B: 255, A: 255}),
	}
	var statuses []string
	enc := export.New(
		export.WithClock(fixedClock),
		export.WithPreviewMaxDimension(100),
		export.WithStatus(func(s string) { statuses = append(statuses, s) }),
	)

	art, err := enc.GIF(context.Background(), records, export.GIFOptions{Width: 320, Delay: 250, Repeat: 2})
	if err != nil {
		t.Fatalf("GIF: %v", err)
	}
	if art.Frames != 6 {
		t.Fatalf("expected 6 frames, got %d", art.Frames)
	}
	if art.Width != 320 || art.Height != 160 {
		t.Fatalf("expected 320x160, got %dx%d", art.Width, art.Height)
	}
	if art.Filename != "slideshow_1700000000123.gif" || art.MIMEType != "image/gif" {
		t.Fatalf("unexpected artifact naming: %s %s", art.Filename, art.MIMEType)
	}
	if art.UsedPreview || art.UsedFallback {
		t.Fatalf("expected originals, got preview=%v fallback=%v", art.UsedPreview, art.UsedFallback)
	}

	decoded, err := gif.DecodeAll(bytes.NewReader(art.Data))
	if err != nil {
		t.Fatalf("decode gif: %v", err)
	}
	if len(decoded.Image) != 6 {
		t.Fatalf("decoded %d frames", len(decoded.Image))
	}
	if decoded.LoopCount != 0 {
		t.Fatalf("expected infinite loop, got %d", decoded.LoopCount)
	}
	if decoded.Config.Width != 320 || decoded.Config.Height != 160 {
		t.Fatalf("logical screen = %dx%d", decoded.Config.Width, decoded.Config.Height)
	}
	if pal, ok := decoded.Config.ColorModel.(color.Palette); !ok || len(pal) != len(palette.Plan9) {
		t.Fatalf("expected plan9 global palette, got %T", decoded.Config.ColorModel)
	}
	for i, d := range decoded.Delay {
		if d != 25 {
			t.Fatalf("frame %d delay = %d, want 25", i, d)
		}
	}
	if got := statuses[len(statuses)-1]; got != export.StatusGIFReady {
		t.Fatalf("final status = %q", got)
	}
	for i, r := range records {
		if r.Preview.Released() {
			t.Fatalf("preview %d released by export", i)
		}
	}
}

func TestGIFPrefersPreviewsWhenSmall(t *testing.T) {
	records := []*framestore.Record{memoryRecord(t, 400, 300, color.White)}
	enc := export.New(export.WithPreviewMaxDimension(640))

	art, err := enc.GIF(context.Background(), records, export.GIFOptions{Width: 10, Repeat: 1})
	if err != nil {
		t.Fatalf("GIF: %v", err)
	}
	if art.Width != export.MinGIFWidth {
		t.Fatalf("width not clamped: %d", art.Width)
	}
	if !art.UsedPreview || art.Status != export.StatusGIFReadyPreview {
		t.Fatalf("expected preview source, got %+v", art.Status)
	}
}

func TestGIFPreviewFallback(t *testing.T) {
	records := []*framestore.Record{orphanRecord(t, color.White), orphanRecord(t, color.Black)}
	enc := export.New(export.WithPreviewMaxDimension(16))

	art, err := enc.GIF(context.Background(), records, export.GIFOptions{Width: 64, Repeat: 1})
	if err != nil {
		t.Fatalf("GIF: %v", err)
	}
	if !art.UsedFallback || art.Status != export.StatusGIFReadyFallback {
		t.Fatalf("expected fallback status, got %q", art.Status)
	}

	_, err = enc.GIF(context.Background(), records, export.GIFOptions{Width: 64, NoPreviewFallback: true})
	if !errors.Is(err, services.ErrNoFramesAvailable) {
		t.Fatalf("expected ErrNoFramesAvailable, got %v", err)
	}
}

func TestGIFEmptyRecords(t *testing.T) {
	_, err := export.New().GIF(context.Background(), nil, export.GIFOptions{})
	if !errors.Is(err, services.ErrNoFramesAvailable) {
		t.Fatalf("expected ErrNoFramesAvailable, got %v", err)
	}
}

func TestResolveSkipsBadFramesAndReleasesVolatile(t *testing.T) {
	good := memoryRecord(t, 64, 48, color.White)
	bad := &framestore.Record{Memory: &framestore.MemoryRef{Data: []byte("junk")}}
	res, err := export.Resolve(context.Background(), []*framestore.Record{bad, good}, export.ResolveOptions{}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Index != 1 {
		t.Fatalf("unexpected entries: %+v", res.Entries)
	}
	if !res.Entries[0].Volatile || res.Entries[0].Bitmap.Width() != 64 {
		t.Fatalf("expected full-resolution volatile bitmap")
	}
	if n := res.Release(); n != 1 {
		t.Fatalf("released %d, want 1", n)
	}
	if n := res.Release(); n != 0 {
		t.Fatalf("second release freed %d", n)
	}
	if good.Preview.Released() {
		t.Fatal("preview released")
	}
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := export.Resolve(ctx, []*framestore.Record{memoryRecord(t, 8, 8, color.White)}, export.ResolveOptions{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFramesPerPhoto(t *testing.T) {
	cases := []struct {
		delay, fps, want int
	}{
		{500, 30, 15},
		{100, 30, 3},
		{10, 30, 1},
		{1000, 24, 24},
		{250, 30, 8},
	}
	for _, tc := range cases {
		if got := export.FramesPerPhoto(tc.delay, tc.fps); got != tc.want {
			t.Errorf("FramesPerPhoto(%d, %d) = %d, want %d", tc.delay, tc.fps, got, tc.want)
		}
	}
}

func TestVideoFrameCountAndResume(t *testing.T) {
	rec := &fakeRecorder{supported: map[string]bool{"video/webm;codecs=vp9": true}}
	pacer := &countingPacer{}
	enc := export.New(
		export.WithRecorder(rec),
		export.WithPacer(func(int) export.Pacer { return pacer }),
		export.WithClock(fixedClock),
	)
	records := []*framestore.Record{memoryRecord(t, 101, 75, color.White)}
	playback := &fakePlayback{state: slideshow.Running, frames: 2}
	mirror := &mirrorLog{}

	art, err := enc.Video(context.Background(), records, export.VideoOptions{
		Delay: 500, Repeat: 3, FPS: 30, Playback: playback, Mirror: mirror,
	})
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if rec.writes != 45 || art.Frames != 45 {
		t.Fatalf("expected 45 frames, wrote %d, artifact %d", rec.writes, art.Frames)
	}
	if pacer.waits != 45 || !pacer.stopped {
		t.Fatalf("pacer waits=%d stopped=%v", pacer.waits, pacer.stopped)
	}
	if rec.specs[0].MIMEType != "video/webm;codecs=vp9" || rec.specs[0].Width != 100 || rec.specs[0].Height != 74 {
		t.Fatalf("unexpected spec %+v", rec.specs[0])
	}
	if art.Filename != "slideshow_1700000000123.webm" || art.Status != export.StatusVideoReady {
		t.Fatalf("unexpected artifact %s %q", art.Filename, art.Status)
	}
	if art.Meta() != "video/webm;codecs=vp9 • 0.00 MB" {
		t.Fatalf("unexpected meta %q", art.Meta())
	}
	if playback.stops != 1 || len(playback.restarts) != 1 || playback.restarts[0] {
		t.Fatalf("playback stops=%d restarts=%v", playback.stops, playback.restarts)
	}
	if len(mirror.shown) != 3 || mirror.shown[0] != records[0].Preview {
		t.Fatalf("mirror saw %d frames", len(mirror.shown))
	}
}

func TestVideoDoesNotResumeStoppedPlayback(t *testing.T) {
	rec := &fakeRecorder{supported: map[string]bool{"video/mp4;codecs=h264": true}}
	enc := export.New(export.WithRecorder(rec))
	playback := &fakePlayback{state: slideshow.Paused, frames: 3}

	art, err := enc.Video(context.Background(), []*framestore.Record{memoryRecord(t, 20, 20, color.White)},
		export.VideoOptions{Delay: 100, Playback: playback})
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if art.Extension != "mp4" {
		t.Fatalf("extension = %q", art.Extension)
	}
	if len(playback.restarts) != 0 {
		t.Fatalf("paused slideshow was restarted")
	}
}

func TestVideoRecorderFailureAborts(t *testing.T) {
	rec := &fakeRecorder{supported: map[string]bool{"video/webm": true}, failAt: 4}
	pacer := &countingPacer{}
	enc := export.New(export.WithRecorder(rec), export.WithPacer(func(int) export.Pacer { return pacer }))
	playback := &fakePlayback{state: slideshow.Running, frames: 2}

	_, err := enc.Video(context.Background(), []*framestore.Record{memoryRecord(t, 20, 20, color.White)},
		export.VideoOptions{Delay: 500, Playback: playback})
	if !errors.Is(err, services.ErrRecorderFailed) {
		t.Fatalf("expected ErrRecorderFailed, got %v", err)
	}
	if !rec.aborted || rec.finished {
		t.Fatalf("recorder aborted=%v finished=%v", rec.aborted, rec.finished)
	}
	if !pacer.stopped {
		t.Fatal("pacer not stopped")
	}
	if len(playback.restarts) != 1 {
		t.Fatal("running slideshow not resumed after failure")
	}
}

func TestVideoNoSupportedCodec(t *testing.T) {
	enc := export.New(export.WithRecorder(&fakeRecorder{}))
	_, err := enc.Video(context.Background(), []*framestore.Record{memoryRecord(t, 20, 20, color.White)}, export.VideoOptions{})
	if !errors.Is(err, services.ErrRecorderFailed) {
		t.Fatalf("expected ErrRecorderFailed, got %v", err)
	}
}

func TestVideoCancelled(t *testing.T) {
	rec := &fakeRecorder{supported: map[string]bool{"video/webm": true}}
	ctx, cancel := context.WithCancel(context.Background())
	pacer := &cancelAfter{n: 2, cancel: cancel}
	enc := export.New(export.WithRecorder(rec), export.WithPacer(func(int) export.Pacer { return pacer }))
	records := []*framestore.Record{memoryRecord(t, 20, 20, color.White)}

	_, err := enc.Video(ctx, records, export.VideoOptions{Delay: 500})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !rec.aborted {
		t.Fatal("recorder not aborted")
	}
	if records[0].Memory == nil || records[0].Preview.Released() {
		t.Fatal("record mutated by cancelled export")
	}
}

type cancelAfter struct {
	n      int
	cancel context.CancelFunc
}

func (p *cancelAfter) Wait(ctx context.Context) error {
	p.n--
	if p.n <= 0 {
		p.cancel()
	}
	return ctx.Err()
}

func (p *cancelAfter) Stop() {}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"video/mp4;codecs=h264": "mp4",
		"video/webm;codecs=vp8": "webm",
		"image/gif":             "gif",
		"":                      "webm",
	}
	for in, want := range cases {
		if got := export.ExtensionFor(in); got != want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", in, got, want)
		}
	}
}
