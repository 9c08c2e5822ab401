// SPDX-License-Identifier: MIT

// Package pipeline orchestrates the capture → spectral analysis → shaping
// flow and publishes display-ready frames to the render boundary.
package pipeline

import "spectra/internal/audio"

// State is the coordinator's lifecycle state.
type State int

const (
	// SelectingSource means no capture is active and ticks are no-ops.
	SelectingSource State = iota
	// Displaying means a device is selected and ticks produce frames.
	Displaying
)

func (s State) String() string {
	switch s {
	case SelectingSource:
		return "SelectingSource"
	case Displaying:
		return "Displaying"
	default:
		return "Unknown"
	}
}

// Content selects which data a frame carries to the renderer.
type Content int

const (
	// Processed carries shaped spectral magnitudes.
	Processed Content = iota
	// Raw carries the raw amplitude snapshot.
	Raw
)

func (c Content) String() string {
	switch c {
	case Processed:
		return "processed"
	case Raw:
		return "raw"
	default:
		return "unknown"
	}
}

// Sides pairs a per-channel value for the left and right channels.
type Sides[T any] struct {
	Left  T
	Right T
}

// Frame is the per-tick output handed to renderers: one float sequence per
// channel, either raw amplitudes (roughly [-1,1]) or shaped magnitudes,
// depending on Content. Centered tells the renderer whether to draw the
// channels against a fixed center or their running average. Frames are
// value copies; publishers may retain them.
type Frame struct {
	Content    Content
	Centered   bool
	SampleRate int
	Data       Sides[[]float64]
}

// Publisher receives each produced frame. Implementations must be safe for
// calls from the coordinator's tick goroutine and should not block for long;
// slow consumers should drop frames rather than stall the pipeline.
type Publisher interface {
	Publish(frame Frame) error
}

// Source is the capture subsystem as the coordinator sees it.
// *audio.Capture implements it; tests substitute fakes.
type Source interface {
	Select(index int) error
	Unselect() error
	Snapshot(snap *audio.ClipSnapshot)
}

var _ Source = (*audio.Capture)(nil)
