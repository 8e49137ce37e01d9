package yure

import (
	"fmt"
	"sync"
)

// SampleBuffer keeps the most recent readings in a fixed-capacity ring.
// Push inserts at the front; once the ring is full the oldest reading is
// overwritten. Snapshot returns the content newest-first.
//
// All methods may be called concurrently.
type SampleBuffer struct {
	mu sync.Mutex

	ring []Reading
	// index where the next reading is written
	next  int
	count int
}

func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity <= 0 {
		panic(fmt.Sprintf("sample buffer: capacity must be positive, got %d", capacity))
	}
	return &SampleBuffer{
		ring: make([]Reading, capacity),
	}
}

// Push adds reading as the newest entry, evicting the oldest one when
// the buffer is full.
func (b *SampleBuffer) Push(reading Reading) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ring[b.next] = reading
	b.next = (b.next + 1) % len(b.ring)
	if b.count < len(b.ring) {
		b.count++
	}
}

// Snapshot returns a copy of the buffer, newest-first.
func (b *SampleBuffer) Snapshot() []Reading {
	return b.Latest(len(b.ring))
}

// Latest returns a copy of at most n most recent readings, newest-first.
func (b *SampleBuffer) Latest(n int) []Reading {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.count {
		n = b.count
	}
	if n < 0 {
		n = 0
	}

	out := make([]Reading, n)
	idx := b.next
	for i := 0; i < n; i++ {
		idx--
		if idx < 0 {
			idx = len(b.ring) - 1
		}
		out[i] = b.ring[idx]
	}
	return out
}

// Len returns the number of readings currently held.
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the fixed capacity.
func (b *SampleBuffer) Cap() int {
	return len(b.ring)
}

// Reset drops every reading.
func (b *SampleBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.ring {
		b.ring[i] = Reading{}
	}
	b.next = 0
	b.count = 0
}
