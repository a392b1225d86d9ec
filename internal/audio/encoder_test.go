package audio

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"remommender/internal/domain"
)

var pcm16k = domain.MediaFormat{MimeType: domain.MimePCM, SampleRate: 16000, Channels: 1}

func TestEncoderStopFlushesPendingPCM(t *testing.T) {
	t.Parallel()

	sink := &chunkSink{}
	enc, err := NewEncoder(pcm16k, time.Hour, sink.add)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	if err := enc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if enc.State() != domain.EncoderActive {
		t.Fatalf("expected active encoder")
	}
	if _, err := enc.Write([]byte("abc")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := enc.Write([]byte("def")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if got := sink.joined(); got != "abcdef" {
		t.Fatalf("unexpected flushed data: %q", got)
	}
	if enc.State() != domain.EncoderInactive {
		t.Fatalf("expected inactive encoder")
	}
}

func TestEncoderEmitsChunksEveryTimeslice(t *testing.T) {
	t.Parallel()

	sink := &chunkSink{notify: make(chan struct{}, 8)}
	enc, err := NewEncoder(pcm16k, 10*time.Millisecond, sink.add)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	if err := enc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer enc.Stop()

	if _, err := enc.Write([]byte("tick")); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-sink.notify:
	case <-time.After(time.Second):
		t.Fatalf("expected a chunk before stop")
	}
	if got := sink.joined(); got != "tick" {
		t.Fatalf("unexpected chunk: %q", got)
	}
}

func TestEncoderRejectsIllegalTransitions(t *testing.T) {
	t.Parallel()

	enc, err := NewEncoder(pcm16k, time.Hour, nil)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}

	if err := enc.Stop(); !errors.Is(err, domain.ErrState) {
		t.Fatalf("expected state error stopping inactive encoder, got %v", err)
	}
	if _, err := enc.Write([]byte("x")); !errors.Is(err, domain.ErrState) {
		t.Fatalf("expected state error writing to inactive encoder, got %v", err)
	}
	if err := enc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := enc.Start(); !errors.Is(err, domain.ErrState) {
		t.Fatalf("expected state error on double start, got %v", err)
	}
	if err := enc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := enc.Start(); err != nil {
		t.Fatalf("restart after stop should succeed: %v", err)
	}
	_ = enc.Stop()
}

func TestNewEncoderRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := NewEncoder(domain.MediaFormat{MimeType: "audio/aac"}, 0, nil); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestOpusEncoderProducesOggStream(t *testing.T) {
	t.Parallel()

	format := domain.MediaFormat{MimeType: domain.MimeOggOpus, SampleRate: 16000, Channels: 1}
	if !IsTypeSupported(format.MimeType, format.SampleRate, format.Channels) {
		t.Skip("opus encoder unavailable")
	}

	sink := &chunkSink{}
	enc, err := NewEncoder(format, time.Hour, sink.add)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	if err := enc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	// 110ms of silence: five full frames plus a partial one.
	if _, err := enc.Write(make([]byte, 16000*2*110/1000)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	data := sink.joined()
	if len(data) < 4 || data[:4] != "OggS" {
		t.Fatalf("expected ogg stream, got %d bytes", len(data))
	}
	if !bytes.Contains([]byte(data), []byte("OpusHead")) {
		t.Fatalf("expected OpusHead header")
	}
}

type chunkSink struct {
	mu     sync.Mutex
	chunks [][]byte
	notify chan struct{}
}

func (s *chunkSink) add(chunk []byte) {
	s.mu.Lock()
	s.chunks = append(s.chunks, append([]byte(nil), chunk...))
	s.mu.Unlock()
	if s.notify != nil {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}

func (s *chunkSink) joined() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(bytes.Join(s.chunks, nil))
}
