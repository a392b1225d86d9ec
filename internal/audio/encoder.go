package audio

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"remommender/internal/domain"
	"remommender/internal/ports"
)

// DefaultTimeslice bounds how much encoded audio an encoder holds before pushing a chunk.
const DefaultTimeslice = 500 * time.Millisecond

type frameCodec interface {
	Write(pcm []byte) error
	Flush() []byte
	Finish() ([]byte, error)
}

// Encoder converts PCM into its media format and pushes encoded chunks to onData,
// once per timeslice while active and once more when stopped.
type Encoder struct {
	format    domain.MediaFormat
	timeslice time.Duration
	onData    func(chunk []byte)
	newCodec  func() (frameCodec, error)

	mu    sync.Mutex
	state domain.EncoderState
	codec frameCodec
	stop  chan struct{}
	done  chan struct{}
}

// Encoders implements ports.EncoderFactory for the formats SelectFormat can return.
type Encoders struct{}

func (Encoders) NewEncoder(format domain.MediaFormat, timeslice time.Duration, onData func(chunk []byte)) (ports.Encoder, error) {
	return NewEncoder(format, timeslice, onData)
}

func NewEncoder(format domain.MediaFormat, timeslice time.Duration, onData func(chunk []byte)) (*Encoder, error) {
	if timeslice <= 0 {
		timeslice = DefaultTimeslice
	}
	if onData == nil {
		onData = func([]byte) {}
	}

	var newCodec func() (frameCodec, error)
	switch {
	case strings.HasPrefix(format.String(), domain.MimePCM):
		newCodec = func() (frameCodec, error) { return &pcmCodec{}, nil }
	case format.MimeType == domain.MimeOggOpus:
		newCodec = func() (frameCodec, error) { return newOpusCodec(format.SampleRate, format.Channels) }
	default:
		return nil, fmt.Errorf("unsupported encoder format %q", format.MimeType)
	}

	return &Encoder{
		format:    format,
		timeslice: timeslice,
		onData:    onData,
		newCodec:  newCodec,
		state:     domain.EncoderInactive,
	}, nil
}

func (e *Encoder) Format() domain.MediaFormat {
	return e.format
}

func (e *Encoder) State() domain.EncoderState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start moves the encoder from inactive to active.
func (e *Encoder) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == domain.EncoderActive {
		return fmt.Errorf("encoder already active: %w", domain.ErrState)
	}

	codec, err := e.newCodec()
	if err != nil {
		return fmt.Errorf("failed to create %s codec: %w", e.format.MimeType, err)
	}

	e.codec = codec
	e.state = domain.EncoderActive
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.tick(e.stop, e.done)
	return nil
}

// Write feeds raw s16le PCM into the encoder.
func (e *Encoder) Write(pcm []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != domain.EncoderActive {
		return 0, fmt.Errorf("encoder is inactive: %w", domain.ErrState)
	}
	if err := e.codec.Write(pcm); err != nil {
		return 0, err
	}
	return len(pcm), nil
}

// Stop moves the encoder to inactive and pushes everything still held as a final chunk.
func (e *Encoder) Stop() error {
	e.mu.Lock()
	if e.state != domain.EncoderActive {
		e.mu.Unlock()
		return fmt.Errorf("encoder already inactive: %w", domain.ErrState)
	}
	e.state = domain.EncoderInactive
	close(e.stop)

	final, err := e.codec.Finish()
	if len(final) > 0 {
		e.onData(final)
	}
	e.codec = nil
	done := e.done
	e.mu.Unlock()

	<-done
	return err
}

func (e *Encoder) tick(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.timeslice)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.emit()
		}
	}
}

func (e *Encoder) emit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != domain.EncoderActive {
		return
	}
	if chunk := e.codec.Flush(); len(chunk) > 0 {
		e.onData(chunk)
	}
}

type pcmCodec struct {
	buf bytes.Buffer
}

func (c *pcmCodec) Write(pcm []byte) error {
	_, err := c.buf.Write(pcm)
	return err
}

func (c *pcmCodec) Flush() []byte {
	if c.buf.Len() == 0 {
		return nil
	}
	out := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	return out
}

func (c *pcmCodec) Finish() ([]byte, error) {
	return c.Flush(), nil
}
