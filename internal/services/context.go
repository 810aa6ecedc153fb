package services

import "context"

type contextKey string

const (
	sessionIDKey  contextKey = "session_id"
	frameIndexKey contextKey = "frame_index"
	operationKey  contextKey = "operation"
)

// WithSessionID annotates context with the capture session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the capture session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFrameIndex annotates context with a zero-based frame index.
func WithFrameIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, frameIndexKey, index)
}

// FrameIndexFromContext extracts the frame index if present.
func FrameIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(frameIndexKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithOperation annotates context with the user-facing operation name
// (capture, export-gif, export-video).
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, op)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(operationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
