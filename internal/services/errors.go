package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDirectoryUnavailable reports that the platform cannot provide a
	// persistent capture directory at all.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrPermissionDenied reports a declined prompt or failed read/write grant.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSelectionAborted reports a cancelled directory picker. It is retryable
	// and never triggers the memory fallback.
	ErrSelectionAborted = errors.New("selection aborted")
	// ErrCaptureEncodeFailed reports that a snapshot could not be encoded.
	ErrCaptureEncodeFailed = errors.New("capture encode failed")
	// ErrPreviewGenerationFailed reports that no usable preview could be derived.
	ErrPreviewGenerationFailed = errors.New("preview generation failed")
	// ErrFrameResolutionFailed reports that a single frame could not be loaded
	// for export.
	ErrFrameResolutionFailed = errors.New("frame resolution failed")
	// ErrNoFramesAvailable reports that an export resolved zero frames.
	ErrNoFramesAvailable = errors.New("no frames available")
	// ErrRecorderFailed reports a video recorder failure.
	ErrRecorderFailed = errors.New("recorder failed")
	// ErrFrameNotFound reports an index outside the current frame sequence.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrWriteFailed reports a failed write into the capture directory.
	ErrWriteFailed = errors.New("write failed")
	// ErrExternalTool reports a failing ffmpeg/ffprobe invocation.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration reports an unusable configuration value.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// TriggersMemoryFallback reports whether a disk-capture failure should degrade
// the session to memory capture. Cancelled pickers and context cancellation
// never do.
func TriggersMemoryFallback(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSelectionAborted) {
		return false
	}
	return errors.Is(err, ErrDirectoryUnavailable) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrWriteFailed)
}

// Kind returns a short, stable label for the marker carried by err. It is used
// as the event_type suffix in logs and in the export history.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDirectoryUnavailable):
		return "directory_unavailable"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrSelectionAborted):
		return "selection_aborted"
	case errors.Is(err, ErrCaptureEncodeFailed):
		return "capture_encode_failed"
	case errors.Is(err, ErrPreviewGenerationFailed):
		return "preview_generation_failed"
	case errors.Is(err, ErrFrameResolutionFailed):
		return "frame_resolution_failed"
	case errors.Is(err, ErrNoFramesAvailable):
		return "no_frames_available"
	case errors.Is(err, ErrRecorderFailed):
		return "recorder_failed"
	case errors.Is(err, ErrFrameNotFound):
		return "frame_not_found"
	case errors.Is(err, ErrWriteFailed):
		return "write_failed"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "component failure"
	}
	return strings.Join(parts, ": ")
}
