// SPDX-License-Identifier: MIT

// Package transport carries per-tick frames across the render boundary.
// Renderers are external; these publishers stop at emitting the per-channel
// float sequences.
package transport

import (
	applog "spectra/internal/log"
	"spectra/internal/pipeline"
)

// ClosablePublisher combines a frame publisher with resource cleanup.
type ClosablePublisher interface {
	pipeline.Publisher
	Close() error
}

// Fanout publishes each frame to every wrapped publisher. A failing
// publisher does not stop delivery to the others; the first error is
// returned.
type Fanout struct {
	publishers []pipeline.Publisher
}

// NewFanout creates a fanout over the given publishers.
func NewFanout(publishers ...pipeline.Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

// Publish delivers the frame to all wrapped publishers.
func (f *Fanout) Publish(frame pipeline.Frame) error {
	var first error
	for _, p := range f.publishers {
		if err := p.Publish(frame); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every wrapped publisher that supports it.
func (f *Fanout) Close() error {
	var first error
	for _, p := range f.publishers {
		if c, ok := p.(ClosablePublisher); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// LoggingPublisher logs a short summary of each frame at debug level.
// Useful when running headless without another transport.
type LoggingPublisher struct{}

// NewLoggingPublisher creates a LoggingPublisher.
func NewLoggingPublisher() *LoggingPublisher {
	return &LoggingPublisher{}
}

// Publish logs the frame summary. It never fails.
func (lp *LoggingPublisher) Publish(frame pipeline.Frame) error {
	applog.Debugf("Frame: %s, %d Hz, %d+%d values",
		frame.Content, frame.SampleRate, len(frame.Data.Left), len(frame.Data.Right))
	return nil
}

// Close is a no-op for LoggingPublisher.
func (lp *LoggingPublisher) Close() error {
	return nil
}

var _ ClosablePublisher = (*Fanout)(nil)
var _ ClosablePublisher = (*LoggingPublisher)(nil)
