// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"testing"

	"spectra/internal/pipeline"
)

type recordingPublisher struct {
	frames     []pipeline.Frame
	publishErr error
	closed     bool
}

func (r *recordingPublisher) Publish(frame pipeline.Frame) error {
	r.frames = append(r.frames, frame)
	return r.publishErr
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func testFrame() pipeline.Frame {
	return pipeline.Frame{
		Content:    pipeline.Processed,
		SampleRate: 44100,
		Data: pipeline.Sides[[]float64]{
			Left:  []float64{0.1, 0.2},
			Right: []float64{0.3, 0.4},
		},
	}
}

func TestFanoutDeliversToAll(t *testing.T) {
	a := &recordingPublisher{}
	b := &recordingPublisher{}
	f := NewFanout(a, b)

	if err := f.Publish(testFrame()); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if len(a.frames) != 1 || len(b.frames) != 1 {
		t.Errorf("delivery counts %d/%d, want 1/1", len(a.frames), len(b.frames))
	}
}

func TestFanoutFailureDoesNotStopDelivery(t *testing.T) {
	failing := &recordingPublisher{publishErr: fmt.Errorf("mock publish failure")}
	healthy := &recordingPublisher{}
	f := NewFanout(failing, healthy)

	err := f.Publish(testFrame())
	if err == nil {
		t.Fatal("expected the failing publisher's error")
	}
	if len(healthy.frames) != 1 {
		t.Error("failure in one publisher stopped delivery to the next")
	}
}

func TestFanoutCloseClosesClosables(t *testing.T) {
	closable := &recordingPublisher{}
	f := NewFanout(closable, NewLoggingPublisher())

	if err := f.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !closable.closed {
		t.Error("wrapped publisher was not closed")
	}
}

func TestLoggingPublisherNeverFails(t *testing.T) {
	lp := NewLoggingPublisher()
	if err := lp.Publish(testFrame()); err != nil {
		t.Errorf("Publish error: %v", err)
	}
	if err := lp.Publish(pipeline.Frame{}); err != nil {
		t.Errorf("Publish of empty frame error: %v", err)
	}
	if err := lp.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
}
