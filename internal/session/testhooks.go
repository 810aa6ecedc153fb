package session

import (
	"context"

	"stopmo/internal/media/ffprobe"
)

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	previous := probeArtifact
	probeArtifact = fn
	return func() {
		probeArtifact = previous
	}
}
