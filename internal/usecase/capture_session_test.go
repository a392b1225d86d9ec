package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"remommender/internal/domain"
	"remommender/internal/ports"
)

func TestCaptureSessionStartStopIdempotent(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{}
	encoders := &countingEncoders{}
	session := NewCaptureSession(capture, encoders, pcmCaptureConfig(time.Hour), nil)

	for i := 0; i < 3; i++ {
		if err := session.Start(context.Background()); err != nil {
			t.Fatalf("start %d failed: %v", i, err)
		}
	}
	if capture.count() != 1 {
		t.Fatalf("expected one acquired stream, got %d", capture.count())
	}
	if !session.Recording() {
		t.Fatalf("expected recording")
	}

	for i := 0; i < 2; i++ {
		if err := session.Stop(); err != nil {
			t.Fatalf("stop %d failed: %v", i, err)
		}
	}
	if session.Recording() {
		t.Fatalf("expected stopped")
	}
	if !capture.last().Stopped() {
		t.Fatalf("stream was not released")
	}
	if encoders.activeCount() != 0 {
		t.Fatalf("encoders still active after stop: %d", encoders.activeCount())
	}
}

func TestCaptureSessionAtMostOneEncoderActive(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{}
	encoders := &countingEncoders{}
	session := NewCaptureSession(capture, encoders, pcmCaptureConfig(time.Hour), nil)
	ctx := context.Background()

	steps := []func() error{
		func() error { return session.Start(ctx) },
		func() error { _, err := session.CloseSegment(); return err },
		func() error { return session.Start(ctx) },
		func() error { _, err := session.CloseSegment(); return err },
		func() error { return session.Stop() },
		func() error { return session.Stop() },
		func() error { return session.Start(ctx) },
		func() error { _, err := session.CloseSegment(); return err },
		func() error { return session.Stop() },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		if encoders.activeCount() > 1 {
			t.Fatalf("step %d left %d encoders active", i, encoders.activeCount())
		}
	}
	if encoders.maxActive() != 1 {
		t.Fatalf("expected at most one active encoder, saw %d", encoders.maxActive())
	}
	for i, stream := range capture.all() {
		if !stream.Stopped() {
			t.Fatalf("stream %d was not released", i)
		}
	}
}

func TestCaptureSessionCloseSegmentTwiceWithoutAudioIsEmpty(t *testing.T) {
	t.Parallel()

	session := NewCaptureSession(&fakeCapture{}, &countingEncoders{}, pcmCaptureConfig(time.Hour), nil)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer session.Stop()

	for i := 0; i < 2; i++ {
		segment, err := session.CloseSegment()
		if err != nil {
			t.Fatalf("close %d failed: %v", i, err)
		}
		if !segment.Empty() {
			t.Fatalf("close %d: expected empty segment, got %d bytes", i, len(segment.Data))
		}
		if segment.Format.MimeType != domain.MimePCM {
			t.Fatalf("unexpected segment format: %s", segment.Format)
		}
	}
}

func TestCaptureSessionSegmentsConcatenateToStream(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{}
	session := NewCaptureSession(capture, &countingEncoders{}, pcmCaptureConfig(5*time.Millisecond), nil)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer session.Stop()
	stream := capture.last()

	var captured, uploaded bytes.Buffer
	for segment := 0; segment < 5; segment++ {
		for chunk := 0; chunk < 4; chunk++ {
			pcm := []byte(fmt.Sprintf("s%dc%d;", segment, chunk))
			captured.Write(pcm)
			stream.feed(pcm)
			if chunk == 1 {
				time.Sleep(10 * time.Millisecond)
			}
		}
		closed, err := session.CloseSegment()
		if err != nil {
			t.Fatalf("close segment %d failed: %v", segment, err)
		}
		uploaded.Write(closed.Data)
	}

	if uploaded.String() != captured.String() {
		t.Fatalf("segments do not reassemble the stream:\n got %q\nwant %q", uploaded.String(), captured.String())
	}
}

func TestCaptureSessionCloseSegmentBeforeStart(t *testing.T) {
	t.Parallel()

	session := NewCaptureSession(&fakeCapture{}, &countingEncoders{}, pcmCaptureConfig(time.Hour), nil)
	if _, err := session.CloseSegment(); !errors.Is(err, domain.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestCaptureSessionPermissionDeniedStaysStopped(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{err: fmt.Errorf("open mic: %w", domain.ErrPermission)}
	encoders := &countingEncoders{}
	session := NewCaptureSession(capture, encoders, pcmCaptureConfig(time.Hour), nil)

	if err := session.Start(context.Background()); !errors.Is(err, domain.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if session.Recording() || encoders.activeCount() != 0 {
		t.Fatalf("session must stay stopped after a failed start")
	}
	if _, err := session.CloseSegment(); !errors.Is(err, domain.ErrState) {
		t.Fatalf("expected state error after failed start, got %v", err)
	}

	capture.setErr(nil)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	_ = session.Stop()
}

func TestCaptureSessionReacquiresInactiveStream(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{}
	session := NewCaptureSession(capture, &countingEncoders{}, pcmCaptureConfig(time.Hour), nil)
	lost := make(chan error, 1)
	session.OnDeviceLost = func(err error) { lost <- err }

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	capture.last().end()

	select {
	case err := <-lost:
		if !errors.Is(err, domain.ErrDevice) {
			t.Fatalf("expected device error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream loss was not reported")
	}
	if session.Recording() {
		t.Fatalf("session cannot be recording on a dead stream")
	}

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if capture.count() != 2 {
		t.Fatalf("expected a second acquisition, got %d", capture.count())
	}
	if !session.Recording() {
		t.Fatalf("expected recording after re-acquisition")
	}
	_ = session.Stop()
}

func TestCaptureSessionRecoversFromFailedEncoderAtBoundary(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{}
	encoders := &flakyEncoders{failAt: 2}
	session := NewCaptureSession(capture, encoders, pcmCaptureConfig(time.Hour), nil)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer session.Stop()
	stream := capture.last()

	stream.feed([]byte("one"))
	if _, err := session.CloseSegment(); err == nil {
		t.Fatalf("expected the failed encoder to surface")
	}
	if session.Recording() {
		t.Fatalf("no encoder is bound after the failure")
	}

	stream.feed([]byte("dropped"))
	segment, err := session.CloseSegment()
	if err != nil {
		t.Fatalf("next boundary should re-bind, got %v", err)
	}
	if !segment.Empty() || segment.Format.MimeType != domain.MimePCM {
		t.Fatalf("expected an empty segment after re-binding, got %+v", segment)
	}
	if !session.Recording() {
		t.Fatalf("expected recording after re-binding")
	}

	stream.feed([]byte("two"))
	segment, err = session.CloseSegment()
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if string(segment.Data) != "two" {
		t.Fatalf("expected audio after recovery, got %q", segment.Data)
	}
	if encoders.maxActive() != 1 {
		t.Fatalf("expected at most one active encoder, saw %d", encoders.maxActive())
	}
}

// flakyEncoders fails the failAt-th encoder it is asked for.
type flakyEncoders struct {
	countingEncoders
	calls  atomic.Int32
	failAt int32
}

func (f *flakyEncoders) NewEncoder(format domain.MediaFormat, timeslice time.Duration, onData func([]byte)) (ports.Encoder, error) {
	if f.calls.Add(1) == f.failAt {
		return nil, errors.New("encoder unavailable")
	}
	return f.countingEncoders.NewEncoder(format, timeslice, onData)
}
