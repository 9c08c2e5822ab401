// SPDX-License-Identifier: MIT
package audio

// RingBuffer is a fixed-capacity circular buffer of samples. It starts
// zero-filled and is always logically full: Snapshot returns exactly Cap()
// values, oldest first, with new appends evicting the oldest sample.
//
// RingBuffer itself is not synchronized. The Clip that owns a pair of these
// serializes access with its own mutex so the capture callback never
// interleaves with a consumer snapshot.
type RingBuffer struct {
	buf  []float64
	head int // next write position; also the oldest sample
}

// NewRingBuffer creates a zero-filled ring buffer holding capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic("audio: ring buffer capacity must be positive")
	}
	return &RingBuffer{buf: make([]float64, capacity)}
}

// Cap returns the fixed capacity of the buffer.
func (r *RingBuffer) Cap() int {
	return len(r.buf)
}

// Push appends a single sample, evicting the oldest.
func (r *RingBuffer) Push(sample float64) {
	r.buf[r.head] = sample
	r.head++
	if r.head == len(r.buf) {
		r.head = 0
	}
}

// Append pushes every sample in order, evicting as needed. Appending more
// than Cap() samples leaves only the trailing Cap() of them.
func (r *RingBuffer) Append(samples []float64) {
	for _, s := range samples {
		r.Push(s)
	}
}

// Snapshot returns a copy of the contents in time order, oldest first.
// The buffer is not mutated.
func (r *RingBuffer) Snapshot() []float64 {
	out := make([]float64, len(r.buf))
	r.CopyInto(out)
	return out
}

// CopyInto writes the contents in time order into dst, which must have
// length Cap(). It exists so the per-tick snapshot path can reuse buffers.
func (r *RingBuffer) CopyInto(dst []float64) {
	n := copy(dst, r.buf[r.head:])
	copy(dst[n:], r.buf[:r.head])
}

// Reset zeroes the buffer contents.
func (r *RingBuffer) Reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.head = 0
}
