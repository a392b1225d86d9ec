package ports

import (
	"context"
	"io"
	"time"

	"remommender/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioStream is one acquired microphone stream delivering raw s16le PCM.
type AudioStream interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture acquires microphone streams.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioStream, error)
}

// Encoder turns PCM into the session's media format and pushes chunks to its callback.
type Encoder interface {
	io.Writer
	Start() error
	Stop() error
	State() domain.EncoderState
	Format() domain.MediaFormat
}

// EncoderFactory builds encoders bound to a chunk callback.
type EncoderFactory interface {
	NewEncoder(format domain.MediaFormat, timeslice time.Duration, onData func(chunk []byte)) (Encoder, error)
}

// SegmentConverter transcodes segments the backend cannot accept natively.
type SegmentConverter interface {
	Load(ctx context.Context) error
	Convert(ctx context.Context, segment domain.Segment) (domain.Segment, error)
}

// Recommender uploads a segment and returns the next recommendation.
type Recommender interface {
	RecommendFromSpeech(ctx context.Context, segment domain.Segment, settings domain.RecommendationSettings) (domain.RefreshResult, error)
}

// ListeningSessions toggles the backend's session-scoped play history.
type ListeningSessions interface {
	StartSession(ctx context.Context) error
	ClearSession(ctx context.Context) error
	EndSession(ctx context.Context) error
	AddPlayedSong(ctx context.Context, songID string) error
}

// EventSink emits engine state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	RecommendationReceived(result domain.RefreshResult, outcome domain.ReconcileOutcome)
	PlaybackChanged(target domain.PlaybackTarget)
	SessionError(code domain.ErrorCode, detail string)
}
