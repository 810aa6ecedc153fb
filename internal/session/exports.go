package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"stopmo/internal/export"
	"stopmo/internal/fileutil"
	"stopmo/internal/history"
	"stopmo/internal/logging"
	"stopmo/internal/media/ffprobe"
	"stopmo/internal/services"
)

// Notices shown when an export cannot start.
const (
	NoticeNeedFrames  = "Snap at least 1 frame first."
	NoticeLoadFailure = "Unable to load frames from disk."
)

var probeArtifact = ffprobe.Inspect

// ExportResult is a finished export written to the output directory.
type ExportResult struct {
	Artifact *export.Artifact
	Path     string
	// Entry is the history row; zero when no history store is attached.
	Entry history.Entry
}

// ExportGIF renders the sequence as a GIF. Zero width or loops use the
// configured defaults.
func (s *Session) ExportGIF(ctx context.Context, width, loops int) (*ExportResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if width <= 0 {
		width = s.cfg.Export.GIFWidth
	}
	if loops <= 0 {
		loops = s.cfg.Export.GIFLoops
	}
	records := s.store.Snapshot()
	if len(records) == 0 {
		s.status.Notice(NoticeNeedFrames)
		return nil, services.Wrap(services.ErrNoFramesAvailable, "session", "gif", NoticeNeedFrames, nil)
	}
	ctx = services.WithOperation(services.WithSessionID(ctx, s.id), "export-gif")
	art, err := s.encoder.GIF(ctx, records, export.GIFOptions{
		Width:  width,
		Delay:  int(s.slides.Delay().Milliseconds()),
		Repeat: loops,
	})
	if err != nil {
		return nil, s.exportFailed(ctx, "gif", err)
	}
	return s.saveArtifact(ctx, art)
}

// ExportVideo records the sequence as a video. Zero loops uses the
// configured default.
func (s *Session) ExportVideo(ctx context.Context, loops int) (*ExportResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if loops <= 0 {
		loops = s.cfg.Export.VideoLoops
	}
	records := s.store.Snapshot()
	if len(records) == 0 {
		s.status.Notice(NoticeNeedFrames)
		return nil, services.Wrap(services.ErrNoFramesAvailable, "session", "video", NoticeNeedFrames, nil)
	}
	ctx = services.WithOperation(services.WithSessionID(ctx, s.id), "export-video")
	art, err := s.encoder.Video(ctx, records, export.VideoOptions{
		Delay:    int(s.slides.Delay().Milliseconds()),
		Repeat:   loops,
		FPS:      s.cfg.Export.VideoFPS,
		Codecs:   s.cfg.Export.VideoCodecs,
		Playback: s.slides,
		Mirror:   s.stage,
	})
	if err != nil {
		return nil, s.exportFailed(ctx, "video", err)
	}
	return s.saveArtifact(ctx, art)
}

func (s *Session) exportFailed(ctx context.Context, kind string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Info("export cancelled", logging.String("kind", kind))
		return err
	}
	if errors.Is(err, services.ErrNoFramesAvailable) {
		s.status.Notice(NoticeLoadFailure)
	}
	logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "export failed", "export_"+services.Kind(err),
		logging.String("kind", kind),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, exportHint(err)),
		logging.String(logging.FieldImpact, "no artifact produced"),
	)
	return err
}

func exportHint(err error) string {
	switch {
	case errors.Is(err, services.ErrRecorderFailed):
		return "run stopmo doctor to check ffmpeg encoder support"
	case errors.Is(err, services.ErrNoFramesAvailable):
		return "the capture folder may have been moved or emptied"
	default:
		return "see the session log for details"
	}
}

func (s *Session) saveArtifact(ctx context.Context, art *export.Artifact) (*ExportResult, error) {
	path, err := fileutil.UniquePath(filepath.Join(s.cfg.Paths.OutputDir, art.Filename))
	if err != nil {
		return nil, services.Wrap(services.ErrWriteFailed, "session", "save artifact", art.Filename, err)
	}
	if err := fileutil.WriteFileAtomic(path, art.Data, 0o644); err != nil {
		s.status.Notice(fmt.Sprintf("Could not save %s.", filepath.Base(path)))
		return nil, services.Wrap(services.ErrWriteFailed, "session", "save artifact", path, err)
	}
	result := &ExportResult{Artifact: art, Path: path}
	entry := history.Entry{
		SessionID:    s.id,
		Kind:         art.Kind,
		Filename:     filepath.Base(path),
		Path:         path,
		MIMEType:     art.MIMEType,
		SizeBytes:    int64(len(art.Data)),
		Frames:       art.Frames,
		Width:        art.Width,
		Height:       art.Height,
		UsedFallback: art.UsedFallback,
		CreatedAt:    art.CreatedAt,
	}
	if s.cfg.Export.ProbeOutputs {
		s.probe(ctx, path, &entry)
	}
	if s.history != nil {
		added, err := s.history.Add(ctx, entry)
		if err != nil {
			logging.WarnWithContext(s.logger, "export history not updated", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldFilename, entry.Filename),
				logging.String(logging.FieldErrorHint, "check the state directory is writable"),
				logging.String(logging.FieldImpact, "artifact saved but missing from stopmo exports"),
			)
		} else {
			entry = added
		}
	}
	result.Entry = entry
	s.logger.Info("export saved",
		logging.String("kind", art.Kind),
		logging.String(logging.FieldFilename, path),
		logging.String("meta", art.Meta()),
		logging.String(logging.FieldEventType, "export_saved"),
	)
	return result, nil
}

func (s *Session) probe(ctx context.Context, path string, entry *history.Entry) {
	result, err := probeArtifact(ctx, s.cfg.FFprobeBinary(), path)
	if err != nil {
		logging.WarnWithContext(s.logger, "artifact probe failed", "probe_failed",
			logging.Error(err),
			logging.String(logging.FieldFilename, path),
			logging.String(logging.FieldErrorHint, "install ffprobe or disable export.probe_outputs"),
			logging.String(logging.FieldImpact, "history row lacks codec and duration"),
		)
		return
	}
	if video, ok := result.Video(); ok {
		entry.Codec = video.CodecName
	}
	entry.DurationSeconds = result.DurationSeconds()
}
