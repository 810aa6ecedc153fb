package ffmpeg

import (
	"bufio"
	"strings"
)

// Codec maps a container MIME type onto ffmpeg arguments.
type Codec struct {
	MIMEType string
	Encoder  string
	Format   string
	// Args are appended after the encoder selection.
	Args []string
}

var codecs = []Codec{
	{
		MIMEType: "video/mp4;codecs=h264",
		Encoder:  "libx264",
		Format:   "mp4",
		Args:     []string{"-preset", "veryfast", "-pix_fmt", "yuv420p", "-movflags", "+faststart"},
	},
	{
		MIMEType: "video/webm;codecs=vp9",
		Encoder:  "libvpx-vp9",
		Format:   "webm",
		Args:     []string{"-b:v", "0", "-crf", "32", "-pix_fmt", "yuv420p", "-deadline", "realtime"},
	},
	{
		MIMEType: "video/webm;codecs=vp8",
		Encoder:  "libvpx",
		Format:   "webm",
		Args:     []string{"-b:v", "2M", "-pix_fmt", "yuv420p", "-deadline", "realtime"},
	},
	{
		MIMEType: "video/webm",
		Encoder:  "libvpx",
		Format:   "webm",
		Args:     []string{"-b:v", "2M", "-pix_fmt", "yuv420p", "-deadline", "realtime"},
	},
}

// CodecFor returns the codec for a MIME type. Matching ignores case and
// whitespace so "video/webm; codecs=vp9" resolves.
func CodecFor(mimeType string) (Codec, bool) {
	key := normalizeMIME(mimeType)
	for _, c := range codecs {
		if c.MIMEType == key {
			return c, true
		}
	}
	return Codec{}, false
}

// Codecs lists every known codec in preference order.
func Codecs() []Codec {
	out := make([]Codec, len(codecs))
	copy(out, codecs)
	return out
}

func normalizeMIME(value string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
}

// parseEncoders extracts encoder names from `ffmpeg -encoders` output. The
// listing starts after a line of dashes; each row is "<flags> <name> <desc>".
func parseEncoders(output string) map[string]bool {
	found := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(output))
	started := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !started {
			started = strings.HasPrefix(line, "---")
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		found[fields[1]] = true
	}
	return found
}
