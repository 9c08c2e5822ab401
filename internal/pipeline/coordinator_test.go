// SPDX-License-Identifier: MIT
package pipeline

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/shaper"
	"spectra/pkg/utils"
)

const (
	testSize = 128
	testRate = 44100
)

// fakeSource stands in for the capture subsystem.
type fakeSource struct {
	selectErr   error
	selected    bool
	unselects   int
	left, right []float64
}

func (f *fakeSource) Select(index int) error {
	if f.selectErr != nil {
		return f.selectErr
	}
	f.selected = true
	return nil
}

func (f *fakeSource) Unselect() error {
	f.selected = false
	f.unselects++
	return nil
}

func (f *fakeSource) Snapshot(snap *audio.ClipSnapshot) {
	if !f.selected {
		snap.SampleRate = 0
		return
	}
	snap.SampleRate = testRate
	snap.Left = append(snap.Left[:0], f.left...)
	snap.Right = append(snap.Right[:0], f.right...)
}

// mockPublisher records published frames.
type mockPublisher struct {
	mu     sync.Mutex
	frames []Frame
	err    error
}

func (m *mockPublisher) Publish(frame Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frame)
	return m.err
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

func (m *mockPublisher) last() (Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return Frame{}, false
	}
	return m.frames[len(m.frames)-1], true
}

func newTestCoordinator(t *testing.T, source Source, pub Publisher) *Coordinator {
	t.Helper()
	spectral, err := analysis.NewSpectral(testSize)
	if err != nil {
		t.Fatalf("NewSpectral error: %v", err)
	}
	c, err := NewCoordinator(source, spectral, shaper.New(), pub, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewCoordinator error: %v", err)
	}
	return c
}

func sineSource() *fakeSource {
	return &fakeSource{
		left:  utils.GenerateSineWave(testSize, testRate, 440),
		right: utils.GenerateSineWave(testSize, testRate, 880),
	}
}

func TestInitialState(t *testing.T) {
	c := newTestCoordinator(t, sineSource(), nil)

	if c.State() != SelectingSource {
		t.Errorf("initial state = %s, want SelectingSource", c.State())
	}
	if c.ContentMode() != Processed {
		t.Errorf("initial content = %s, want processed", c.ContentMode())
	}
	if _, ok := c.Latest(); ok {
		t.Error("Latest should report no frame before the first tick")
	}
}

func TestSelectDeviceTransitions(t *testing.T) {
	source := sineSource()
	c := newTestCoordinator(t, source, nil)

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice error: %v", err)
	}
	if c.State() != Displaying {
		t.Errorf("state = %s after SelectDevice, want Displaying", c.State())
	}
	if !source.selected {
		t.Error("SelectDevice did not reach the source")
	}

	if err := c.SelectDevice(0); err == nil {
		t.Error("SelectDevice while Displaying expected error")
	}
}

func TestSelectDeviceFailureStaysSelecting(t *testing.T) {
	source := sineSource()
	source.selectErr = fmt.Errorf("mock device failure")
	c := newTestCoordinator(t, source, nil)

	if err := c.SelectDevice(0); err == nil {
		t.Fatal("SelectDevice expected error")
	}
	if c.State() != SelectingSource {
		t.Errorf("state = %s after failed SelectDevice, want SelectingSource", c.State())
	}
}

func TestUnselectDeviceReturnsToSelecting(t *testing.T) {
	source := sineSource()
	c := newTestCoordinator(t, source, nil)

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice error: %v", err)
	}
	c.tick()
	if _, ok := c.Latest(); !ok {
		t.Fatal("expected a frame after tick in Displaying")
	}

	c.UnselectDevice()
	if c.State() != SelectingSource {
		t.Errorf("state = %s after UnselectDevice, want SelectingSource", c.State())
	}
	if source.unselects != 1 {
		t.Errorf("source unselects = %d, want 1", source.unselects)
	}
	if _, ok := c.Latest(); ok {
		t.Error("Latest should be cleared after UnselectDevice")
	}

	// Further ticks are no-ops until a new selection.
	c.tick()
	if _, ok := c.Latest(); ok {
		t.Error("tick in SelectingSource should not produce a frame")
	}

	// Unselect when already selecting is a no-op.
	c.UnselectDevice()
	if source.unselects != 1 {
		t.Errorf("redundant UnselectDevice reached the source")
	}
}

func TestTickPublishesProcessedFrame(t *testing.T) {
	pub := &mockPublisher{}
	c := newTestCoordinator(t, sineSource(), pub)

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice error: %v", err)
	}
	c.tick()

	frame, ok := pub.last()
	if !ok {
		t.Fatal("no frame published")
	}
	if frame.Content != Processed {
		t.Errorf("frame content = %s, want processed", frame.Content)
	}
	if frame.SampleRate != testRate {
		t.Errorf("frame sample rate = %d, want %d", frame.SampleRate, testRate)
	}

	wantBins := testSize/2 + 1
	if len(frame.Data.Left) != wantBins || len(frame.Data.Right) != wantBins {
		t.Errorf("frame lengths %d/%d, want %d", len(frame.Data.Left), len(frame.Data.Right), wantBins)
	}
	for i, v := range frame.Data.Left {
		if v < 0 {
			t.Fatalf("processed value %d is negative: %f", i, v)
		}
	}
}

func TestRawModeCarriesSnapshotAndKeepsHistory(t *testing.T) {
	pub := &mockPublisher{}
	source := sineSource()
	c := newTestCoordinator(t, source, pub)

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice error: %v", err)
	}

	if got := c.SwitchContent(); got != Raw {
		t.Fatalf("SwitchContent = %s, want raw", got)
	}
	c.tick()

	frame, ok := pub.last()
	if !ok {
		t.Fatal("no frame published")
	}
	if frame.Content != Raw {
		t.Errorf("frame content = %s, want raw", frame.Content)
	}
	if len(frame.Data.Left) != testSize {
		t.Errorf("raw frame length = %d, want %d", len(frame.Data.Left), testSize)
	}
	for i := range frame.Data.Left {
		if frame.Data.Left[i] != source.left[i] {
			t.Fatalf("raw frame does not match snapshot at %d", i)
		}
	}

	// Processed data is still computed in raw mode so smoothing history
	// stays continuous across a content switch.
	c.mu.Lock()
	histLen := len(c.prev.Left)
	c.mu.Unlock()
	if histLen != testSize/2+1 {
		t.Errorf("shaper history length = %d in raw mode, want %d", histLen, testSize/2+1)
	}
}

func TestFirstTickSmoothsAgainstZero(t *testing.T) {
	source := sineSource()
	c := newTestCoordinator(t, source, nil)

	// Flash/flood off: every output is a convex combination with the zero
	// history, so the first tick is strictly damped.
	c.ToggleFlashFlood()

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice error: %v", err)
	}
	c.tick()
	first, ok := c.Latest()
	if !ok {
		t.Fatal("expected a frame")
	}

	c.tick()
	second, _ := c.Latest()

	// A steady input smoothed from zero must rise between ticks wherever the
	// signal is non-zero.
	rose := false
	for i := range first.Data.Left {
		if second.Data.Left[i] > first.Data.Left[i] {
			rose = true
			break
		}
	}
	if !rose {
		t.Error("smoothed output did not rise from the zero history")
	}
}

func TestToggleCenteredReflectedInFrames(t *testing.T) {
	pub := &mockPublisher{}
	c := newTestCoordinator(t, sineSource(), pub)

	if !c.ToggleCentered() {
		t.Fatal("ToggleCentered should enable centering first")
	}
	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice error: %v", err)
	}
	c.tick()

	frame, ok := pub.last()
	if !ok {
		t.Fatal("no frame published")
	}
	if !frame.Centered {
		t.Error("frame does not carry the centered flag")
	}
}

func TestShiftMovingAvgRangePassthrough(t *testing.T) {
	c := newTestCoordinator(t, sineSource(), nil)

	c.ShiftMovingAvgRange(-100)
	if got := c.shaper.MovingAvgRange(); got != 0 {
		t.Errorf("range after large negative shift = %d, want 0", got)
	}
	c.ShiftMovingAvgRange(5)
	if got := c.shaper.MovingAvgRange(); got != 5 {
		t.Errorf("range after shift = %d, want 5", got)
	}
}

func TestStartStopTicker(t *testing.T) {
	pub := &mockPublisher{}
	source := sineSource()
	spectral, err := analysis.NewSpectral(testSize)
	if err != nil {
		t.Fatalf("NewSpectral error: %v", err)
	}
	c, err := NewCoordinator(source, spectral, shaper.New(), pub, time.Millisecond)
	if err != nil {
		t.Fatalf("NewCoordinator error: %v", err)
	}

	if err := c.SelectDevice(0); err != nil {
		t.Fatalf("SelectDevice error: %v", err)
	}

	c.Start()
	c.Start() // Redundant Start is a no-op.

	deadline := time.After(time.Second)
	for pub.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("no frames published within a second of Start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	c.Stop()
	c.Stop() // Idempotent.

	count := pub.count()
	time.Sleep(20 * time.Millisecond)
	if pub.count() != count {
		t.Error("frames kept arriving after Stop")
	}
}

func TestNewCoordinatorValidation(t *testing.T) {
	spectral, _ := analysis.NewSpectral(testSize)

	if _, err := NewCoordinator(nil, spectral, shaper.New(), nil, time.Millisecond); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewCoordinator(sineSource(), nil, shaper.New(), nil, time.Millisecond); err == nil {
		t.Error("expected error for nil spectral transform")
	}
	if _, err := NewCoordinator(sineSource(), spectral, nil, nil, time.Millisecond); err == nil {
		t.Error("expected error for nil shaper")
	}

	// Invalid interval falls back to a default rather than failing.
	c, err := NewCoordinator(sineSource(), spectral, shaper.New(), nil, 0)
	if err != nil {
		t.Fatalf("NewCoordinator with zero interval: %v", err)
	}
	if c.interval <= 0 {
		t.Errorf("interval = %s, want positive default", c.interval)
	}
}
