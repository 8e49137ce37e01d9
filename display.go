package yure

// DefaultDisplayCapacity is the size of the live display window.
const DefaultDisplayCapacity = 3000

// DisplayFeed keeps the most recent readings for presentation, newest
// first. Register Push with Streamer.OnReading.
type DisplayFeed struct {
	buffer *SampleBuffer
}

func NewDisplayFeed(capacity int) *DisplayFeed {
	if capacity <= 0 {
		capacity = DefaultDisplayCapacity
	}
	return &DisplayFeed{
		buffer: NewSampleBuffer(capacity),
	}
}

func (f *DisplayFeed) Push(reading Reading) {
	f.buffer.Push(reading)
}

// Latest returns up to n readings, newest-first. n <= 0 means all.
func (f *DisplayFeed) Latest(n int) []Reading {
	if n <= 0 {
		return f.buffer.Snapshot()
	}
	return f.buffer.Latest(n)
}

func (f *DisplayFeed) Len() int {
	return f.buffer.Len()
}

func (f *DisplayFeed) Cap() int {
	return f.buffer.Cap()
}
