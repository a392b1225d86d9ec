package usecase

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"remommender/internal/domain"
	"remommender/internal/ports"
)

// captureDevice owns one acquired stream and pumps its PCM into the attached encoder.
type captureDevice struct {
	stream    ports.AudioStream
	chunkSize int
	logger    *slog.Logger
	onLost    func(*captureDevice, error)

	mu   sync.Mutex
	sink io.Writer

	active   atomic.Bool
	released atomic.Bool
	done     chan struct{}
}

func newCaptureDevice(stream ports.AudioStream, chunkSize int, logger *slog.Logger, onLost func(*captureDevice, error)) *captureDevice {
	if chunkSize < 256 {
		chunkSize = 4096
	}
	d := &captureDevice{
		stream:    stream,
		chunkSize: chunkSize,
		logger:    logger,
		onLost:    onLost,
		done:      make(chan struct{}),
	}
	d.active.Store(true)
	go d.run()
	return d
}

// attach swaps the sink that receives PCM and returns the previous one. Once attach
// returns, the previous sink receives no further writes.
func (d *captureDevice) attach(sink io.Writer) io.Writer {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.sink
	d.sink = sink
	return prev
}

// rebind pauses delivery, runs bind and installs the sink it returns. PCM read while
// bind runs is delivered to the new sink afterwards.
func (d *captureDevice) rebind(bind func() (io.Writer, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next, err := bind()
	if err != nil {
		d.sink = nil
		return err
	}
	d.sink = next
	return nil
}

// Active reports whether the stream is still delivering audio.
func (d *captureDevice) Active() bool {
	return d.active.Load()
}

// release stops the stream and waits for the pump to exit.
func (d *captureDevice) release() error {
	d.released.Store(true)
	d.attach(nil)
	err := d.stream.Stop()
	<-d.done
	return err
}

func (d *captureDevice) run() {
	err := d.pump()
	d.active.Store(false)
	close(d.done)

	if d.released.Load() || d.onLost == nil {
		return
	}
	if err == nil {
		err = fmt.Errorf("audio stream ended: %w", domain.ErrDevice)
	} else {
		err = fmt.Errorf("audio capture error: %w: %v", domain.ErrDevice, err)
	}
	d.onLost(d, err)
}

func (d *captureDevice) pump() error {
	buf := make([]byte, d.chunkSize)
	for {
		n, err := d.stream.Read(buf)
		if n > 0 {
			d.deliver(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (d *captureDevice) deliver(pcm []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sink == nil {
		return
	}
	if _, err := d.sink.Write(pcm); err != nil && !errors.Is(err, domain.ErrState) {
		d.logger.Warn("encoder rejected audio", "error", err)
	}
}
