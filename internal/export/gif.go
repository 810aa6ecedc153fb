package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"

	"stopmo/internal/bitmap"
	"stopmo/internal/framestore"
	"stopmo/internal/logging"
	"stopmo/internal/services"
)

// GIF status lines.
const (
	StatusGIFRendering     = "rendering GIF…"
	StatusGIFReady         = "GIF ready"
	StatusGIFReadyPreview  = "GIF ready (preview source)"
	StatusGIFReadyFallback = "GIF ready (preview fallback)"
	StatusGIFFailed        = "GIF failed"
)

const (
	gifMIMEType = "image/gif"
	minRepeat   = 1
	// GIF delays are in hundredths of a second; most decoders treat
	// anything below 2 as "as fast as possible".
	minGIFDelay = 2
)

// GIFOptions controls GIF rendering.
type GIFOptions struct {
	// Width of the output in pixels; clamped to MinGIFWidth, zero selects DefaultGIFWidth.
	Width int
	// Delay between photos in milliseconds.
	Delay int
	// Repeat plays the sequence this many times inside the file.
	Repeat int
	// NoPreviewFallback fails frames whose original bytes are gone instead of
	// substituting the preview.
	NoPreviewFallback bool
}

func (o GIFOptions) normalized() GIFOptions {
	if o.Width <= 0 {
		o.Width = DefaultGIFWidth
	}
	o.Width = max(MinGIFWidth, o.Width)
	o.Repeat = max(minRepeat, o.Repeat)
	if o.Delay <= 0 {
		o.Delay = 500
	}
	return o
}

// GIF renders records into an infinitely looping animated GIF.
func (e *Encoder) GIF(ctx context.Context, records []*framestore.Record, opts GIFOptions) (*Artifact, error) {
	opts = opts.normalized()
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrNoFramesAvailable, "export", "gif", "Snap at least 1 frame first.", nil)
	}
	e.setStatus(StatusGIFRendering)
	e.sampler.Reset()

	res, err := Resolve(ctx, records, ResolveOptions{
		PreferPreviews:       opts.Width <= e.previewMax,
		AllowPreviewFallback: !opts.NoPreviewFallback,
	}, e.logger)
	if err != nil {
		e.setStatus(StatusGIFFailed)
		return nil, err
	}
	defer func() {
		released := res.Release()
		e.logger.Debug("gif export released frames", logging.Int("released", released))
	}()

	first := res.Entries[0].Bitmap
	width := opts.Width
	height := max(1, int(math.Round(float64(width)*float64(first.Height())/float64(first.Width()))))

	frames, err := e.quantize(ctx, res, width, height)
	if err != nil {
		e.setStatus(StatusGIFFailed)
		return nil, err
	}

	delay := max(minGIFDelay, int(math.Round(float64(opts.Delay)/10)))
	anim := &gif.GIF{LoopCount: 0}
	for range opts.Repeat {
		for _, frame := range frames {
			anim.Image = append(anim.Image, frame)
			anim.Delay = append(anim.Delay, delay)
		}
	}
	anim.Config = image.Config{ColorModel: color.Palette(palette.Plan9), Width: width, Height: height}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		e.setStatus(StatusGIFFailed)
		return nil, services.Wrap(services.ErrRecorderFailed, "export", "gif encode", "", err)
	}

	name, created := e.artifactName("gif")
	status := StatusGIFReady
	switch {
	case res.UsedFallback:
		status = StatusGIFReadyFallback
	case res.UsedPreview:
		status = StatusGIFReadyPreview
	}
	e.setStatus(status)
	e.logger.Info("gif export complete",
		logging.String(logging.FieldFilename, name),
		logging.Int(logging.FieldFrameCount, len(anim.Image)),
		logging.Int("width", width),
		logging.Int("height", height),
		logging.Bool("preview_fallback", res.UsedFallback),
	)
	return &Artifact{
		Kind:         KindGIF,
		Data:         buf.Bytes(),
		MIMEType:     gifMIMEType,
		Extension:    "gif",
		Filename:     name,
		Frames:       len(anim.Image),
		Width:        width,
		Height:       height,
		UsedFallback: res.UsedFallback,
		UsedPreview:  res.UsedPreview,
		Status:       status,
		CreatedAt:    created,
	}, nil
}

// quantize letterboxes and dithers each resolved frame once; repeats reuse
// the paletted images.
func (e *Encoder) quantize(ctx context.Context, res *Resolution, width, height int) ([]*image.Paletted, error) {
	total := len(res.Entries)
	out := make([]*image.Paletted, total)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		done     int
		firstErr error
	)
	sem := make(chan struct{}, e.gifWorkers)
	for i, entry := range res.Entries {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			src := entry.Bitmap.Image()
			if src == nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = services.Wrap(services.ErrFrameResolutionFailed, "export", "gif", "frame released during export", nil)
				}
				mu.Unlock()
				cancel()
				return
			}
			canvas := image.NewRGBA(image.Rect(0, 0, width, height))
			bitmap.DrawLetterboxed(canvas, src, xdraw.CatmullRom)
			paletted := image.NewPaletted(canvas.Bounds(), palette.Plan9)
			draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), canvas, image.Point{})
			out[i] = paletted

			mu.Lock()
			done++
			e.report(Progress{Kind: KindGIF, Phase: "quantize", Done: done, Total: total})
			mu.Unlock()
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
