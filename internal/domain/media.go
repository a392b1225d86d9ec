package domain

import (
	"fmt"
	"strings"
)

const (
	MimeOggOpus = "audio/ogg;codecs=opus"
	MimeWebM    = "audio/webm"
	MimeWAV     = "audio/wav"
	MimePCM     = "audio/L16"
)

// MediaFormat describes the container/codec an encoder produces.
type MediaFormat struct {
	MimeType   string
	SampleRate int
	Channels   int
}

// String renders the format with its PCM parameters where they matter.
func (f MediaFormat) String() string {
	if f.base() == MimePCM {
		return fmt.Sprintf("%s;rate=%d;channels=%d", MimePCM, f.SampleRate, f.Channels)
	}
	return f.MimeType
}

// UploadCompatible reports whether the backend accepts the format as-is.
func (f MediaFormat) UploadCompatible() bool {
	switch f.base() {
	case "audio/ogg", MimeWebM, MimeWAV, "audio/x-wav", "audio/mpeg", "audio/flac":
		return true
	default:
		return false
	}
}

// Extension is the filename extension used for uploads.
func (f MediaFormat) Extension() string {
	switch f.base() {
	case "audio/ogg":
		return "ogg"
	case MimeWebM:
		return "webm"
	case MimeWAV, "audio/x-wav":
		return "wav"
	case "audio/mpeg":
		return "mp3"
	case "audio/flac":
		return "flac"
	default:
		return "pcm"
	}
}

func (f MediaFormat) base() string {
	mime := strings.ToLower(strings.TrimSpace(f.MimeType))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "audio/l16" {
		return MimePCM
	}
	return mime
}

// Segment is the audio captured between two refresh boundaries.
type Segment struct {
	Data   []byte
	Format MediaFormat
	Chunks int
}

// Empty reports whether the segment carries no audio.
func (s Segment) Empty() bool {
	return len(s.Data) == 0
}
