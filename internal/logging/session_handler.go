package logging

import (
	"context"
	"log/slog"

	"stopmo/internal/services"
)

// FieldSessionID is the standardized key for the capture session identifier.
const FieldSessionID = "session_id"

// sessionHandler stamps records with the capture session id and with the
// frame index and operation carried by the record's context. Keys already
// attached through With are not repeated.
type sessionHandler struct {
	base      slog.Handler
	sessionID string
	attached  map[string]bool
}

func newSessionIDHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return &sessionHandler{base: base, sessionID: sessionID}
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *sessionHandler) Handle(ctx context.Context, record slog.Record) error {
	present := func(key string) bool {
		if h.attached[key] {
			return true
		}
		found := false
		record.Attrs(func(a slog.Attr) bool {
			found = a.Key == key
			return !found
		})
		return found
	}
	if !present(FieldSessionID) {
		id := h.sessionID
		if fromCtx, ok := services.SessionIDFromContext(ctx); ok {
			id = fromCtx
		}
		record.AddAttrs(slog.String(FieldSessionID, id))
	}
	if idx, ok := services.FrameIndexFromContext(ctx); ok && !present(FieldFrameIndex) {
		record.AddAttrs(slog.Int(FieldFrameIndex, idx))
	}
	if op, ok := services.OperationFromContext(ctx); ok && !present(FieldOperation) {
		record.AddAttrs(slog.String(FieldOperation, op))
	}
	return h.base.Handle(ctx, record)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	attached := make(map[string]bool, len(h.attached)+len(attrs))
	for k := range h.attached {
		attached[k] = true
	}
	for _, a := range attrs {
		attached[a.Key] = true
	}
	return &sessionHandler{base: h.base.WithAttrs(attrs), sessionID: h.sessionID, attached: attached}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	return &sessionHandler{base: h.base.WithGroup(name), sessionID: h.sessionID, attached: h.attached}
}
