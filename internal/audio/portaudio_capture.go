package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"remommender/internal/domain"
	"remommender/internal/ports"
)

// PortAudioCapture acquires the default input device through PortAudio.
type PortAudioCapture struct {
	framesPerBuffer int
}

func NewPortAudioCapture(framesPerBuffer int) *PortAudioCapture {
	if framesPerBuffer <= 0 {
		framesPerBuffer = 1024
	}
	return &PortAudioCapture{framesPerBuffer: framesPerBuffer}
}

func (c *PortAudioCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioStream, error) {
	cfg = withAudioDefaults(cfg)

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w: %v", domain.ErrDevice, err)
	}

	buffer := make([]int16, c.framesPerBuffer*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), c.framesPerBuffer, buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio open: %w: %v", classifyCaptureFailure(err.Error()), err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio start: %w: %v", classifyCaptureFailure(err.Error()), err)
	}

	s := newPortAudioStream(stream, buffer, portaudio.Terminate)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop()
		case <-s.done:
		}
	}()
	return s, nil
}

// blockingStream is the part of *portaudio.Stream used after it has started.
type blockingStream interface {
	Read() error
	Stop() error
	Close() error
}

// portAudioStream serializes the blocking PortAudio calls. Stop never closes the stream
// under a pending Read; the reader releases it once its Read returns.
type portAudioStream struct {
	stream    blockingStream
	terminate func() error
	buffer    []int16
	pending   []byte

	mu       sync.Mutex
	reading  bool
	stopped  bool
	released bool
	stopErr  error
	done     chan struct{}
}

func newPortAudioStream(stream blockingStream, buffer []int16, terminate func() error) *portAudioStream {
	return &portAudioStream{
		stream:    stream,
		terminate: terminate,
		buffer:    buffer,
		done:      make(chan struct{}),
	}
}

func (s *portAudioStream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		s.mu.Lock()
		if s.stopped {
			s.releaseLocked()
			s.mu.Unlock()
			return 0, io.EOF
		}
		s.reading = true
		s.mu.Unlock()

		err := s.stream.Read()

		s.mu.Lock()
		s.reading = false
		if s.stopped {
			s.releaseLocked()
			s.mu.Unlock()
			return 0, io.EOF
		}
		s.mu.Unlock()

		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "overflow") {
				return 0, nil
			}
			return 0, err
		}
		s.pending = make([]byte, len(s.buffer)*2)
		for i, sample := range s.buffer {
			binary.LittleEndian.PutUint16(s.pending[i*2:], uint16(sample))
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *portAudioStream) Close() error {
	return s.Stop()
}

// Stop ends capture. With a Read in flight it waits for the reader to release the
// stream, which happens within one buffer period.
func (s *portAudioStream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	if !s.reading {
		s.releaseLocked()
	}
	s.mu.Unlock()

	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopErr
}

func (s *portAudioStream) releaseLocked() {
	if s.released {
		return
	}
	s.released = true
	if err := s.stream.Stop(); err != nil {
		s.stopErr = err
	}
	if err := s.stream.Close(); err != nil && s.stopErr == nil {
		s.stopErr = err
	}
	if s.terminate != nil {
		_ = s.terminate()
	}
	close(s.done)
}

// NewCapture returns the capture backend named by kind, defaulting to ffmpeg.
func NewCapture(kind string, ffmpegCommand string, framesPerBuffer int) ports.AudioCapture {
	if strings.EqualFold(strings.TrimSpace(kind), CaptureBackendPortAudio) {
		return NewPortAudioCapture(framesPerBuffer)
	}
	return NewFFMPEGCapture(ffmpegCommand)
}
