package export

import (
	"context"
	"errors"
	"log/slog"

	"stopmo/internal/bitmap"
	"stopmo/internal/framestore"
	"stopmo/internal/logging"
	"stopmo/internal/services"
)

// ResolveOptions selects where frame pixels come from.
type ResolveOptions struct {
	// PreferPreviews uses previews first; set when the output is no larger
	// than the preview size.
	PreferPreviews bool
	// AllowPreviewFallback uses a preview when the original bytes are gone.
	AllowPreviewFallback bool
}

// Entry is one resolved frame.
type Entry struct {
	Bitmap *bitmap.Bitmap
	// Volatile bitmaps were decoded for this export and are released by it.
	Volatile bool
	// Index is the record position the entry came from.
	Index int
}

// Resolution is the set of frames an export draws from.
type Resolution struct {
	Entries      []Entry
	UsedFallback bool
	UsedPreview  bool
}

// Release frees every volatile bitmap and returns how many were released.
func (r *Resolution) Release() int {
	if r == nil {
		return 0
	}
	released := 0
	for _, entry := range r.Entries {
		if entry.Volatile && entry.Bitmap.Release() {
			released++
		}
	}
	return released
}

// Resolve loads a bitmap for every record it can. Individual failures are
// logged and skipped; zero resolved frames is ErrNoFramesAvailable.
func Resolve(ctx context.Context, records []*framestore.Record, opts ResolveOptions, logger *slog.Logger) (*Resolution, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	res := &Resolution{Entries: make([]Entry, 0, len(records))}
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			res.Release()
			return nil, err
		}
		entry, err := resolveOne(ctx, record, opts, res)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				res.Release()
				return nil, err
			}
			logging.WarnWithContext(logger, "frame skipped for export", "frame_resolution_failed",
				logging.Int(logging.FieldFrameIndex, i),
				logging.Error(err),
				logging.String(logging.FieldImpact, "export continues without this frame"),
				logging.String(logging.FieldErrorHint, "check the capture folder still holds the frame file"),
			)
			continue
		}
		entry.Index = i
		res.Entries = append(res.Entries, entry)
	}
	if len(res.Entries) == 0 {
		return nil, services.Wrap(services.ErrNoFramesAvailable, "export", "resolve", "Unable to load frames from disk.", nil)
	}
	return res, nil
}

func resolveOne(ctx context.Context, record *framestore.Record, opts ResolveOptions, res *Resolution) (Entry, error) {
	if record == nil {
		return Entry{}, services.Wrap(services.ErrFrameResolutionFailed, "export", "resolve", "nil record", nil)
	}
	if opts.PreferPreviews && record.Preview.Image() != nil {
		res.UsedPreview = true
		return Entry{Bitmap: record.Preview}, nil
	}

	var loadErr error
	if record.Disk != nil || record.Memory != nil {
		data, err := record.Load(ctx)
		if err == nil {
			decoded, decErr := bitmap.Decode(data)
			if decErr == nil {
				return Entry{Bitmap: decoded, Volatile: true}, nil
			}
			err = services.Wrap(services.ErrFrameResolutionFailed, "export", "decode", record.Name(), decErr)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Entry{}, err
		}
		loadErr = err
	}

	if opts.AllowPreviewFallback && record.Preview.Image() != nil {
		res.UsedFallback = true
		return Entry{Bitmap: record.Preview}, nil
	}
	if loadErr == nil {
		loadErr = services.Wrap(services.ErrFrameResolutionFailed, "export", "resolve", "no original and no usable preview", nil)
	}
	return Entry{}, loadErr
}
