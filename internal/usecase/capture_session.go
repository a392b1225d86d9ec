package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"remommender/internal/audio"
	"remommender/internal/domain"
	"remommender/internal/ports"
)

// CaptureConfig controls how a CaptureSession records.
type CaptureConfig struct {
	Audio     ports.AudioConfig
	Format    domain.MediaFormat
	Timeslice time.Duration
	ChunkSize int
}

// CaptureSession owns the microphone stream and the encoder bound to it.
// The device mutex is always taken before the encoder's, and the encoder's before the buffer's.
type CaptureSession struct {
	capture  ports.AudioCapture
	encoders ports.EncoderFactory
	cfg      CaptureConfig
	logger   *slog.Logger

	// OnDeviceLost is called once when an acquired stream ends without being released.
	OnDeviceLost func(error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	device  *captureDevice
	encoder ports.Encoder
	buffer  *audio.SegmentBuffer
}

func NewCaptureSession(capture ports.AudioCapture, encoders ports.EncoderFactory, cfg CaptureConfig, logger *slog.Logger) *CaptureSession {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Timeslice <= 0 {
		cfg.Timeslice = audio.DefaultTimeslice
	}
	return &CaptureSession{
		capture:  capture,
		encoders: encoders,
		cfg:      cfg,
		logger:   logger,
	}
}

// Format is the media type every segment of this session is encoded in.
func (s *CaptureSession) Format() domain.MediaFormat {
	return s.cfg.Format
}

// Recording reports whether an encoder is active on a live stream.
func (s *CaptureSession) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordingLocked()
}

func (s *CaptureSession) recordingLocked() bool {
	return s.device != nil && s.device.Active() &&
		s.encoder != nil && s.encoder.State() == domain.EncoderActive
}

// Start acquires a stream when none is live and begins encoding into a fresh segment.
// It is a no-op while already recording.
func (s *CaptureSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recordingLocked() {
		return nil
	}
	if s.device != nil && !s.device.Active() {
		s.logger.Info("re-acquiring inactive audio stream")
		s.teardownLocked()
	}

	if s.device == nil {
		devCtx, cancel := context.WithCancel(ctx)
		stream, err := s.capture.Start(devCtx, s.cfg.Audio)
		if err != nil {
			cancel()
			return err
		}
		s.cancel = cancel
		s.device = newCaptureDevice(stream, s.cfg.ChunkSize, s.logger, s.deviceLost)
	}

	encoder, buffer, err := s.newGeneration()
	if err != nil {
		s.teardownLocked()
		return err
	}
	s.encoder = encoder
	s.buffer = buffer
	s.device.attach(encoder)

	s.logger.Info("capture started", "format", s.cfg.Format.String())
	return nil
}

// Stop halts encoding and releases the stream. Audio not yet drained is discarded.
// Calling Stop on a stopped session is a no-op.
func (s *CaptureSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil && s.encoder == nil {
		return nil
	}
	err := s.teardownLocked()
	s.logger.Info("capture stopped")
	return err
}

// CloseSegment ends the current segment and starts the next one on the same stream.
// The returned segment holds exactly the audio delivered since Start or the previous
// CloseSegment. Delivery is paused while the encoders are swapped, so only one encoder
// is ever active and no PCM reaches either generation twice.
func (s *CaptureSession) CloseSegment() (domain.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return domain.Segment{}, fmt.Errorf("capture session not started: %w", domain.ErrState)
	}
	if s.encoder == nil || s.buffer == nil {
		return s.rebindLocked()
	}

	var segment domain.Segment
	err := s.device.rebind(func() (io.Writer, error) {
		if err := s.encoder.Stop(); err != nil {
			s.logger.Warn("encoder stop failed", "error", err)
		}
		s.logger.Debug("segment closed", "chunks", s.buffer.Len(), "bytes", s.buffer.Size())
		chunks := s.buffer.Drain()
		segment = domain.Segment{
			Data:   joinChunks(chunks),
			Format: s.encoder.Format(),
			Chunks: len(chunks),
		}

		next, nextBuffer, err := s.newGeneration()
		if err != nil {
			s.encoder, s.buffer = nil, nil
			return nil, err
		}
		s.encoder, s.buffer = next, nextBuffer
		return next, nil
	})
	if err != nil {
		return domain.Segment{}, err
	}
	return segment, nil
}

// rebindLocked binds a fresh encoder after an earlier boundary failed to create one.
// Audio delivered in between was dropped, so the returned segment is empty.
func (s *CaptureSession) rebindLocked() (domain.Segment, error) {
	err := s.device.rebind(func() (io.Writer, error) {
		next, nextBuffer, err := s.newGeneration()
		if err != nil {
			return nil, err
		}
		s.encoder, s.buffer = next, nextBuffer
		return next, nil
	})
	if err != nil {
		return domain.Segment{}, err
	}
	s.logger.Info("encoder re-bound after a failed segment boundary")
	return domain.Segment{Format: s.cfg.Format}, nil
}

func (s *CaptureSession) newGeneration() (ports.Encoder, *audio.SegmentBuffer, error) {
	buffer := audio.NewSegmentBuffer()
	encoder, err := s.encoders.NewEncoder(s.cfg.Format, s.cfg.Timeslice, buffer.Append)
	if err != nil {
		return nil, nil, fmt.Errorf("create encoder: %w", err)
	}
	if err := encoder.Start(); err != nil {
		return nil, nil, fmt.Errorf("start encoder: %w", err)
	}
	return encoder, buffer, nil
}

func (s *CaptureSession) teardownLocked() error {
	var err error
	if s.device != nil {
		s.device.attach(nil)
	}
	if s.encoder != nil && s.encoder.State() == domain.EncoderActive {
		_ = s.encoder.Stop()
	}
	s.encoder = nil
	s.buffer = nil

	if s.device != nil {
		err = s.device.release()
		s.device = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return err
}

func (s *CaptureSession) deviceLost(dev *captureDevice, err error) {
	s.mu.Lock()
	current := s.device == dev
	s.mu.Unlock()
	if !current {
		return
	}

	s.logger.Warn("audio stream became inactive", "error", err)
	if s.OnDeviceLost != nil {
		s.OnDeviceLost(err)
	}
}

func joinChunks(chunks [][]byte) []byte {
	size := 0
	for _, c := range chunks {
		size += len(c)
	}
	if size == 0 {
		return nil
	}
	out := make([]byte, 0, size)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
