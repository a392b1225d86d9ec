package audio

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

type fakeBlockingStream struct {
	mu      sync.Mutex
	reading bool
	unsafe  bool
	stops   int
	closes  int
	entered chan struct{}
	unblock chan struct{}
}

func newFakeBlockingStream() *fakeBlockingStream {
	return &fakeBlockingStream{
		entered: make(chan struct{}, 8),
		unblock: make(chan struct{}),
	}
}

func (f *fakeBlockingStream) Read() error {
	f.mu.Lock()
	f.reading = true
	f.mu.Unlock()

	f.entered <- struct{}{}
	<-f.unblock

	f.mu.Lock()
	f.reading = false
	f.mu.Unlock()
	return nil
}

func (f *fakeBlockingStream) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeBlockingStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reading {
		f.unsafe = true
	}
	f.closes++
	return nil
}

func (f *fakeBlockingStream) snapshot() (stops, closes int, unsafe bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops, f.closes, f.unsafe
}

func TestPortAudioStreamStopWaitsForPendingRead(t *testing.T) {
	t.Parallel()

	fake := newFakeBlockingStream()
	terminated := 0
	stream := newPortAudioStream(fake, make([]int16, 4), func() error {
		terminated++
		return nil
	})

	readDone := make(chan error, 1)
	go func() {
		_, err := stream.Read(make([]byte, 8))
		readDone <- err
	}()
	<-fake.entered

	stopDone := make(chan error, 1)
	go func() { stopDone <- stream.Stop() }()

	select {
	case <-stopDone:
		t.Fatalf("stop returned while a read was blocked")
	case <-time.After(50 * time.Millisecond):
	}
	if _, closes, _ := fake.snapshot(); closes != 0 {
		t.Fatalf("stream closed under a pending read")
	}

	close(fake.unblock)
	if err := <-readDone; !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after stop, got %v", err)
	}
	select {
	case err := <-stopDone:
		if err != nil {
			t.Fatalf("stop failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stop did not return after the read finished")
	}

	stops, closes, unsafe := fake.snapshot()
	if stops != 1 || closes != 1 || unsafe {
		t.Fatalf("unexpected release: stops=%d closes=%d closedDuringRead=%v", stops, closes, unsafe)
	}
	if terminated != 1 {
		t.Fatalf("expected one terminate, got %d", terminated)
	}
}

func TestPortAudioStreamStopWithoutReaderReleasesImmediately(t *testing.T) {
	t.Parallel()

	fake := newFakeBlockingStream()
	stream := newPortAudioStream(fake, make([]int16, 4), nil)

	if err := stream.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
	if stops, closes, _ := fake.snapshot(); stops != 1 || closes != 1 {
		t.Fatalf("expected a single release, got stops=%d closes=%d", stops, closes)
	}
	if _, err := stream.Read(make([]byte, 8)); !errors.Is(err, io.EOF) {
		t.Fatalf("read after stop should be EOF, got %v", err)
	}
}

func TestPortAudioStreamReadConvertsSamples(t *testing.T) {
	t.Parallel()

	fake := newFakeBlockingStream()
	close(fake.unblock)
	buffer := make([]int16, 2)
	stream := newPortAudioStream(fake, buffer, nil)
	buffer[0], buffer[1] = 1, -1

	p := make([]byte, 4)
	n, err := stream.Read(p)
	if err != nil || n != 4 {
		t.Fatalf("read failed: n=%d err=%v", n, err)
	}
	if p[0] != 1 || p[1] != 0 || p[2] != 0xff || p[3] != 0xff {
		t.Fatalf("unexpected little-endian samples: %v", p)
	}
	_ = stream.Stop()
}
