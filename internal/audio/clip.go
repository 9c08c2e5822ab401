// SPDX-License-Identifier: MIT
package audio

import "sync"

// Clip holds the most recent samples per channel together with the sample
// rate of the stream that produced them. A sample rate of 0 means no source
// has been selected yet.
//
// The clip is owned by the capture subsystem: the stream callback is the only
// writer, consumers read through Snapshot. Both sides hold the mutex only for
// a plain copy, never for computation.
type Clip struct {
	mu         sync.Mutex
	sampleRate int
	left       *RingBuffer
	right      *RingBuffer
}

// ClipSnapshot is an immutable copy of a Clip's state, samples in time order
// (oldest first). Left and Right always have length equal to the clip
// capacity; before any capture they are all zero.
type ClipSnapshot struct {
	SampleRate int
	Left       []float64
	Right      []float64
}

// NewClip creates a clip with zero-filled channel buffers of the given
// capacity and an unset sample rate.
func NewClip(capacity int) *Clip {
	return &Clip{
		left:  NewRingBuffer(capacity),
		right: NewRingBuffer(capacity),
	}
}

// Cap returns the per-channel capacity.
func (c *Clip) Cap() int {
	return c.left.Cap()
}

// SampleRate returns the recorded stream sample rate, 0 when no source is
// selected.
func (c *Clip) SampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate
}

// SetSampleRate records the stream sample rate. Called once per device
// selection, before the stream starts.
func (c *Clip) SetSampleRate(rate int) {
	c.mu.Lock()
	c.sampleRate = rate
	c.mu.Unlock()
}

// AppendStereo deinterleaves a stereo frame buffer [l0,r0,l1,r1,...] into the
// channel buffers. An odd trailing sample (a torn frame) is dropped.
func (c *Clip) AppendStereo(frames []float64) {
	frames = frames[:len(frames)-len(frames)%2]

	c.mu.Lock()
	for i := 0; i < len(frames); i += 2 {
		c.left.Push(frames[i])
		c.right.Push(frames[i+1])
	}
	c.mu.Unlock()
}

// AppendMono appends the same samples to both channels, for single-channel
// input devices.
func (c *Clip) AppendMono(samples []float64) {
	c.mu.Lock()
	c.left.Append(samples)
	c.right.Append(samples)
	c.mu.Unlock()
}

// Snapshot copies the current contents into snap, reusing its slices when
// they already have the right length. Safe to call concurrently with appends.
func (c *Clip) Snapshot(snap *ClipSnapshot) {
	if len(snap.Left) != c.Cap() {
		snap.Left = make([]float64, c.Cap())
	}
	if len(snap.Right) != c.Cap() {
		snap.Right = make([]float64, c.Cap())
	}

	c.mu.Lock()
	snap.SampleRate = c.sampleRate
	c.left.CopyInto(snap.Left)
	c.right.CopyInto(snap.Right)
	c.mu.Unlock()
}

// Reset zeroes both channels and clears the sample rate.
func (c *Clip) Reset() {
	c.mu.Lock()
	c.sampleRate = 0
	c.left.Reset()
	c.right.Reset()
	c.mu.Unlock()
}
