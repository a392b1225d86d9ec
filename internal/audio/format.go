package audio

import (
	"strings"

	"gopkg.in/hraban/opus.v2"

	"remommender/internal/domain"
)

const (
	CodecAuto = "auto"
	CodecOpus = "opus"
	CodecPCM  = "pcm"
)

// IsTypeSupported reports whether this build can encode mimeType at the given parameters.
func IsTypeSupported(mimeType string, sampleRate, channels int) bool {
	format := domain.MediaFormat{MimeType: mimeType, SampleRate: sampleRate, Channels: channels}
	switch {
	case strings.HasPrefix(format.String(), domain.MimePCM):
		return sampleRate > 0 && channels > 0
	case mimeType == domain.MimeOggOpus:
		if !validOpusRate(sampleRate) || channels < 1 || channels > 2 {
			return false
		}
		_, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
		return err == nil
	default:
		return false
	}
}

// SelectFormat picks the capture format. Opus in Ogg is preferred; raw PCM is the
// fallback and has to be transcoded before upload.
func SelectFormat(codec string, sampleRate, channels int) domain.MediaFormat {
	opusFormat := domain.MediaFormat{MimeType: domain.MimeOggOpus, SampleRate: sampleRate, Channels: channels}
	pcmFormat := domain.MediaFormat{MimeType: domain.MimePCM, SampleRate: sampleRate, Channels: channels}

	switch strings.ToLower(strings.TrimSpace(codec)) {
	case CodecPCM:
		return pcmFormat
	default:
		if IsTypeSupported(opusFormat.MimeType, sampleRate, channels) {
			return opusFormat
		}
		return pcmFormat
	}
}
