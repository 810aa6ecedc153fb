// Package services defines the shared error taxonomy and context helpers used
// by the capture, playback, and export components.
//
// Key responsibilities:
//   - Sentinel error markers for every failure kind a component can surface,
//     plus the Wrap helper that attaches component/operation context while
//     keeping errors.Is classification intact.
//   - Classification helpers that tell the frame store which failures degrade
//     the session to memory capture and which only abandon a single capture.
//   - Context helpers that stamp session identifiers, frame indexes, and
//     operation names for structured logging.
//
// Use these helpers when wiring new components so failure handling and
// observability stay uniform across the session.
package services
