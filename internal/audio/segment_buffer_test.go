package audio

import (
	"bytes"
	"testing"
)

func TestSegmentBufferDrainClears(t *testing.T) {
	t.Parallel()

	buf := NewSegmentBuffer()
	buf.Append([]byte("ab"))
	buf.Append(nil)
	buf.Append([]byte("cd"))

	if buf.Len() != 2 || buf.Size() != 4 {
		t.Fatalf("unexpected len=%d size=%d", buf.Len(), buf.Size())
	}

	chunks := buf.Drain()
	if got := bytes.Join(chunks, nil); string(got) != "abcd" {
		t.Fatalf("unexpected drained bytes: %q", got)
	}
	if buf.Len() != 0 || buf.Size() != 0 {
		t.Fatalf("expected empty buffer after drain")
	}
	if again := buf.Drain(); len(again) != 0 {
		t.Fatalf("expected second drain to be empty, got %d chunks", len(again))
	}
}

func TestSegmentBufferCopiesChunks(t *testing.T) {
	t.Parallel()

	buf := NewSegmentBuffer()
	chunk := []byte("xy")
	buf.Append(chunk)
	chunk[0] = 'z'

	if got := buf.Drain(); string(got[0]) != "xy" {
		t.Fatalf("buffer should keep its own copy, got %q", got[0])
	}
}
