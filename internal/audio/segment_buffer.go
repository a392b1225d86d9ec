package audio

import "sync"

// SegmentBuffer accumulates encoded chunks between two segment boundaries.
type SegmentBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

func NewSegmentBuffer() *SegmentBuffer {
	return &SegmentBuffer{}
}

// Append stores a copy of chunk. Empty chunks are ignored.
func (b *SegmentBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	copied := append([]byte(nil), chunk...)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, copied)
	b.size += len(copied)
}

// Drain returns the buffered chunks in order and clears the buffer.
func (b *SegmentBuffer) Drain() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.chunks
	b.chunks = nil
	b.size = 0
	return out
}

// Len returns the number of buffered chunks.
func (b *SegmentBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// Size returns the number of buffered bytes.
func (b *SegmentBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
