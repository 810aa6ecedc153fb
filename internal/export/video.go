package export

import (
	"context"
	"errors"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"stopmo/internal/bitmap"
	"stopmo/internal/framestore"
	"stopmo/internal/logging"
	"stopmo/internal/services"
	"stopmo/internal/slideshow"
)

// Video status lines.
const (
	StatusRecording          = "recording…"
	StatusVideoReady         = "video ready"
	StatusVideoReadyFallback = "video ready (preview fallback)"
	StatusVideoFailed        = "video failed"
)

// DefaultCodecs is the recorder preference order.
var DefaultCodecs = []string{
	"video/mp4;codecs=h264",
	"video/webm;codecs=vp9",
	"video/webm;codecs=vp8",
	"video/webm",
}

// VideoOptions controls video recording.
type VideoOptions struct {
	// Delay each photo stays on screen, in milliseconds.
	Delay int
	// Repeat plays the sequence this many times.
	Repeat int
	FPS    int
	// Codecs in preference order; empty selects DefaultCodecs.
	Codecs []string
	// Playback is paused while recording and resumed afterwards when it was running.
	Playback Playback
	// Mirror receives the preview of each photo as recording reaches it.
	Mirror            Mirror
	NoPreviewFallback bool
}

func (o VideoOptions) normalized() VideoOptions {
	if o.Delay <= 0 {
		o.Delay = 500
	}
	o.Repeat = max(minRepeat, o.Repeat)
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if len(o.Codecs) == 0 {
		o.Codecs = DefaultCodecs
	}
	return o
}

// FramesPerPhoto is how many video frames each photo occupies.
func FramesPerPhoto(delayMS, fps int) int {
	return max(1, int(math.Round(float64(delayMS)/1000*float64(fps))))
}

// Video records records through the configured Recorder at a fixed frame rate.
func (e *Encoder) Video(ctx context.Context, records []*framestore.Record, opts VideoOptions) (*Artifact, error) {
	opts = opts.normalized()
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrNoFramesAvailable, "export", "video", "Snap at least 1 frame first.", nil)
	}
	mime, ok := SelectCodec(ctx, e.recorder, opts.Codecs)
	if !ok {
		e.setStatus(StatusVideoFailed)
		return nil, services.Wrap(services.ErrRecorderFailed, "export", "video", "no supported video codec", nil)
	}

	wasRunning := false
	if opts.Playback != nil {
		wasRunning = opts.Playback.State() == slideshow.Running
		opts.Playback.Stop(false)
	}
	defer func() {
		if wasRunning && opts.Playback.Start(false) {
			e.logger.Debug("slideshow resumed after video export")
		}
	}()

	e.sampler.Reset()
	res, err := Resolve(ctx, records, ResolveOptions{AllowPreviewFallback: !opts.NoPreviewFallback}, e.logger)
	if err != nil {
		e.setStatus(StatusVideoFailed)
		return nil, err
	}
	defer res.Release()

	data, produced, width, height, total, err := e.record(ctx, records, res, mime, opts)
	if err != nil {
		e.setStatus(StatusVideoFailed)
		return nil, err
	}

	ext := ExtensionFor(produced)
	name, created := e.artifactName(ext)
	status := StatusVideoReady
	if res.UsedFallback {
		status = StatusVideoReadyFallback
	}
	e.setStatus(status)
	artifact := &Artifact{
		Kind:         KindVideo,
		Data:         data,
		MIMEType:     produced,
		Extension:    ext,
		Filename:     name,
		Frames:       total,
		Width:        width,
		Height:       height,
		UsedFallback: res.UsedFallback,
		Status:       status,
		CreatedAt:    created,
	}
	e.logger.Info("video export complete",
		logging.String(logging.FieldFilename, name),
		logging.Int(logging.FieldFrameCount, total),
		logging.String("mime", produced),
		logging.String("meta", artifact.Meta()),
		logging.Bool("preview_fallback", res.UsedFallback),
	)
	return artifact, nil
}

func (e *Encoder) record(ctx context.Context, records []*framestore.Record, res *Resolution, mime string, opts VideoOptions) ([]byte, string, int, int, int, error) {
	first := res.Entries[0].Bitmap
	width, height := evenDimension(first.Width()), evenDimension(first.Height())
	perPhoto := FramesPerPhoto(opts.Delay, opts.FPS)
	total := len(res.Entries) * opts.Repeat * perPhoto

	session, err := e.recorder.Start(ctx, RecordingSpec{MIMEType: mime, Width: width, Height: height, FPS: opts.FPS})
	if err != nil {
		return nil, "", 0, 0, 0, services.Wrap(services.ErrRecorderFailed, "export", "video start", mime, err)
	}
	pacer := e.pacer(opts.FPS)
	finished := false
	defer func() {
		pacer.Stop()
		if !finished {
			session.Abort()
		}
	}()

	e.setStatus(StatusRecording)
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	written := 0
	for range opts.Repeat {
		for _, entry := range res.Entries {
			src := entry.Bitmap.Image()
			if src == nil {
				return nil, "", 0, 0, 0, services.Wrap(services.ErrRecorderFailed, "export", "video", "frame released during recording", nil)
			}
			bitmap.DrawLetterboxed(canvas, src, xdraw.ApproxBiLinear)
			if opts.Mirror != nil && entry.Index < len(records) && records[entry.Index] != nil {
				opts.Mirror.Show(records[entry.Index].Preview)
			}
			for range perPhoto {
				if err := pacer.Wait(ctx); err != nil {
					return nil, "", 0, 0, 0, err
				}
				if err := session.WriteFrame(canvas); err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return nil, "", 0, 0, 0, err
					}
					return nil, "", 0, 0, 0, services.Wrap(services.ErrRecorderFailed, "export", "video write", "", err)
				}
				written++
				e.report(Progress{Kind: KindVideo, Phase: "record", Done: written, Total: total})
			}
		}
	}

	data, produced, err := session.Finish()
	finished = true
	if err != nil {
		return nil, "", 0, 0, 0, services.Wrap(services.ErrRecorderFailed, "export", "video finish", "", err)
	}
	if produced == "" {
		produced = mime
	}
	return data, produced, width, height, total, nil
}

func evenDimension(n int) int {
	if n < 2 {
		return 2
	}
	return n &^ 1
}
