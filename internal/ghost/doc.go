// Package ghost renders the onion-skin overlay shown over the live camera.
//
// The overlay holds the last frame, and optionally the one before it, drawn
// aspect-fitted into a transparent canvas sized to the live video. Opacity is
// always one of a fixed set of stops.
package ghost
