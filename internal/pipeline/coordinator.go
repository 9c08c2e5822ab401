// SPDX-License-Identifier: MIT
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"spectra/internal/analysis"
	"spectra/internal/audio"
	applog "spectra/internal/log"
	"spectra/internal/shaper"
)

// Coordinator drives the periodic ticks that turn clip snapshots into
// published frames. It owns the state machine (SelectingSource/Displaying),
// the shaper feedback buffers and the display content mode.
//
// All mutable state is guarded by mu. The tick goroutine and the command
// methods (device selection, toggles) contend on it; every critical section
// is short except the tick itself, which computes two FFTs while holding it.
// That keeps the feedback buffers consistent without a second lock, and the
// capture callback is unaffected since the clip has its own mutex.
type Coordinator struct {
	source    Source
	spectral  *analysis.Spectral
	shaper    *shaper.Shaper
	publisher Publisher
	interval  time.Duration

	mu       sync.Mutex
	state    State
	content  Content
	centered bool

	snap audio.ClipSnapshot
	bins Sides[[]analysis.SpectrumBin]
	// prev holds the previous tick's shaped output per bin, the one-step
	// memory the smoothing feedback needs. scratch is reused to compute the
	// next output before the two are swapped.
	prev    Sides[[]float64]
	scratch Sides[[]float64]

	latest   Frame
	hasFrame bool

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCoordinator creates a coordinator in the SelectingSource state. If the
// interval is invalid (<= 0) it defaults to 10ms. The publisher may be nil,
// in which case frames are only available through Latest.
func NewCoordinator(source Source, spectral *analysis.Spectral, sh *shaper.Shaper, publisher Publisher, interval time.Duration) (*Coordinator, error) {
	if source == nil {
		return nil, fmt.Errorf("coordinator: source cannot be nil")
	}
	if spectral == nil {
		return nil, fmt.Errorf("coordinator: spectral transform cannot be nil")
	}
	if sh == nil {
		return nil, fmt.Errorf("coordinator: shaper cannot be nil")
	}

	if interval <= 0 {
		interval = 10 * time.Millisecond
		applog.Warnf("Coordinator: invalid tick interval, defaulting to %s", interval)
	}

	return &Coordinator{
		source:    source,
		spectral:  spectral,
		shaper:    sh,
		publisher: publisher,
		interval:  interval,
		state:     SelectingSource,
		content:   Processed,
	}, nil
}

// Start launches the tick goroutine. Calling Start while already running is
// a no-op.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.ticker != nil {
		c.mu.Unlock()
		applog.Warnf("Coordinator: Start called but already running")
		return
	}
	c.ticker = time.NewTicker(c.interval)
	c.doneChan = make(chan struct{})
	c.stopOnce = sync.Once{}
	ticker := c.ticker
	doneChan := c.doneChan
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		applog.Debugf("Coordinator: tick goroutine started (interval %s)", c.interval)
		for {
			select {
			case <-ticker.C:
				c.tick()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop halts the tick goroutine and waits for it to exit. Idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.ticker == nil {
		c.mu.Unlock()
		return
	}
	ticker := c.ticker
	c.mu.Unlock()

	c.stopOnce.Do(func() {
		ticker.Stop()
		close(c.doneChan)
	})
	c.wg.Wait()

	c.mu.Lock()
	c.ticker = nil
	c.mu.Unlock()
	applog.Debugf("Coordinator: stopped")
}

// SelectDevice starts capture on the device at index and moves to
// Displaying. A failed selection surfaces the error and leaves the
// coordinator in SelectingSource.
func (c *Coordinator) SelectDevice(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Displaying {
		return fmt.Errorf("a device is already selected")
	}

	if err := c.source.Select(index); err != nil {
		return fmt.Errorf("device selection failed: %w", err)
	}

	// Fresh shaper history: the first tick smooths against all-zero output.
	c.resetHistoryLocked()
	c.state = Displaying
	return nil
}

// UnselectDevice stops capture, discards the shaper history and returns to
// SelectingSource. Subsequent ticks are no-ops until a new selection.
func (c *Coordinator) UnselectDevice() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Displaying {
		return
	}

	if err := c.source.Unselect(); err != nil {
		applog.Errorf("Coordinator: error stopping capture: %v", err)
	}
	c.resetHistoryLocked()
	c.state = SelectingSource
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ContentMode returns the current display content mode.
func (c *Coordinator) ContentMode() Content {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

// SwitchContent flips between raw and processed display content. Processed
// data keeps being computed in raw mode, so smoothing resumes seamlessly.
func (c *Coordinator) SwitchContent() Content {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.content == Raw {
		c.content = Processed
	} else {
		c.content = Raw
	}
	applog.Infof("Coordinator: showing %s content", c.content)
	return c.content
}

// ToggleCentered flips the centering hint carried in published frames.
func (c *Coordinator) ToggleCentered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.centered = !c.centered
	return c.centered
}

// ToggleNorm flips spectral normalization.
func (c *Coordinator) ToggleNorm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shaper.ToggleNorm()
}

// ToggleFullNorm flips between the two normalization curves.
func (c *Coordinator) ToggleFullNorm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shaper.ToggleFullNorm()
}

// ToggleSmooth flips temporal smoothing.
func (c *Coordinator) ToggleSmooth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shaper.ToggleSmooth()
}

// ToggleFlashFlood flips the asymmetric rise/fall rule.
func (c *Coordinator) ToggleFlashFlood() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shaper.ToggleFlashFlood()
}

// ShiftNormScale multiplies the normalization scale by factor.
func (c *Coordinator) ShiftNormScale(factor float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shaper.ShiftNormScale(factor)
}

// ShiftMovingAvgRange adjusts the smoothing window by delta (clamped at 0).
func (c *Coordinator) ShiftMovingAvgRange(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shaper.ShiftMovingAvgRange(delta)
	applog.Debugf("Coordinator: moving average range now %d", c.shaper.MovingAvgRange())
}

// Latest returns the most recently produced frame. ok is false before the
// first tick in Displaying and after an unselect.
func (c *Coordinator) Latest() (frame Frame, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.hasFrame
}

// tick runs one pipeline pass: snapshot, transform, shape, publish.
// Transform errors skip the tick without corrupting the feedback buffers.
func (c *Coordinator) tick() {
	c.mu.Lock()

	if c.state != Displaying {
		c.mu.Unlock()
		return
	}

	c.source.Snapshot(&c.snap)
	if c.snap.SampleRate == 0 {
		// Unselected between the state check and the snapshot.
		c.mu.Unlock()
		return
	}

	var err error
	rate := float64(c.snap.SampleRate)
	c.bins.Left, err = c.spectral.Transform(c.bins.Left, c.snap.Left, rate)
	if err == nil {
		c.bins.Right, err = c.spectral.Transform(c.bins.Right, c.snap.Right, rate)
	}
	if err != nil {
		c.mu.Unlock()
		applog.Errorf("Coordinator: skipping tick: %v", err)
		return
	}

	// Shape each side against the previous tick's output. This always runs,
	// even in raw display mode, so the smoothing history stays continuous.
	c.scratch.Left = shapeSide(c.shaper, c.scratch.Left, c.prev.Left, c.bins.Left)
	c.scratch.Right = shapeSide(c.shaper, c.scratch.Right, c.prev.Right, c.bins.Right)
	c.prev, c.scratch = c.scratch, c.prev

	frame := Frame{
		Content:    c.content,
		Centered:   c.centered,
		SampleRate: c.snap.SampleRate,
	}
	if c.content == Raw {
		frame.Data.Left = append([]float64(nil), c.snap.Left...)
		frame.Data.Right = append([]float64(nil), c.snap.Right...)
	} else {
		frame.Data.Left = append([]float64(nil), c.prev.Left...)
		frame.Data.Right = append([]float64(nil), c.prev.Right...)
	}

	c.latest = frame
	c.hasFrame = true
	publisher := c.publisher
	c.mu.Unlock()

	if publisher != nil {
		if err := publisher.Publish(frame); err != nil {
			applog.Errorf("Coordinator: publish failed: %v", err)
		}
	}
}

// shapeSide computes the new shaped output for one channel into dst,
// reading the previous output from prev. Bins beyond the previous length
// smooth against zero.
func shapeSide(sh *shaper.Shaper, dst, prev []float64, bins []analysis.SpectrumBin) []float64 {
	dst = dst[:0]
	for i, bin := range bins {
		var old float64
		if i < len(prev) {
			old = prev[i]
		}
		dst = append(dst, sh.Apply(old, bin.Magnitude, bin.Frequency))
	}
	return dst
}

func (c *Coordinator) resetHistoryLocked() {
	c.prev.Left = c.prev.Left[:0]
	c.prev.Right = c.prev.Right[:0]
	c.hasFrame = false
	c.latest = Frame{}
}
