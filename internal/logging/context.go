package logging

import (
	"context"
	"log/slog"

	"stopmo/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldFrameIndex is the standardized key for zero-based frame positions.
	FieldFrameIndex = "frame_index"
	// FieldFrameCount is the standardized key for sequence lengths.
	FieldFrameCount = "frame_count"
	// FieldOperation is the standardized key for user-facing operations.
	FieldOperation = "operation"
	// FieldCaptureMode is the standardized key for disk/memory capture mode.
	FieldCaptureMode = "capture_mode"
	// FieldFilename is the standardized key for frame and artifact filenames.
	FieldFilename = "filename"
	// FieldEventType labels a record with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	if idx, ok := services.FrameIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldFrameIndex, idx))
	}
	if op, ok := services.OperationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOperation, op))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
