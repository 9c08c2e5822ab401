// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"spectra/internal/config"
	applog "spectra/internal/log"
)

// Capture owns the device list, the active input stream and the Clip the
// stream callback writes into. One device may be selected at a time;
// selecting starts the stream, unselecting stops it synchronously so no
// further callbacks race with teardown.
type Capture struct {
	mu      sync.Mutex
	devices []Device
	infos   []*portaudio.DeviceInfo
	stream  *portaudio.Stream

	clip       *Clip
	channels   int       // Channel count of the active stream; written before Start, read by the callback.
	conv       []float64 // Callback scratch for float32→float64 conversion.
	targetRate float64
	frames     int
	lowLatency bool

	// Recording state, guarded by isRecording plus the capture mutex.
	isRecording int32 // Atomic flag checked in the callback.
	recFile     *wavFile
	recording   config.RecordingConfig
}

// NewCapture enumerates usable devices and prepares a capture with
// zero-filled ring buffers of cfg.ClipSize samples per channel.
func NewCapture(cfg config.AudioConfig, rec config.RecordingConfig) (*Capture, error) {
	devices, infos, err := usableDevices()
	if err != nil {
		return nil, err
	}

	return &Capture{
		devices:    devices,
		infos:      infos,
		clip:       NewClip(cfg.ClipSize),
		conv:       make([]float64, cfg.FramesPerBuffer*2),
		targetRate: cfg.SampleRate,
		frames:     cfg.FramesPerBuffer,
		lowLatency: cfg.LowLatency,
		recording:  rec,
	}, nil
}

// Rescan refreshes the device list. The active stream, if any, keeps
// running; its device index may no longer line up with the new list.
func (c *Capture) Rescan() error {
	devices, infos, err := usableDevices()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.devices = devices
	c.infos = infos
	c.mu.Unlock()

	applog.Debugf("Capture: rescan found %d usable devices", len(devices))
	return nil
}

// Devices returns a copy of the current usable device list.
func (c *Capture) Devices() []Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// Select opens and starts an input stream on the device at index. The
// stream uses every input channel the device has (capped at two by the
// usability filter) and requests the target sample rate, falling back to the
// device default when the open fails at the target. Any failure leaves the
// capture without an active stream.
func (c *Capture) Select(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return fmt.Errorf("a device is already selected")
	}
	if index < 0 || index >= len(c.infos) {
		return fmt.Errorf("invalid device index: %d", index)
	}

	info := c.infos[index]
	channels := info.MaxInputChannels

	var latency time.Duration
	if c.lowLatency {
		latency = info.DefaultLowInputLatency
	} else {
		latency = info.DefaultHighInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: channels,
			Latency:  latency,
		},
		SampleRate:      c.targetRate,
		FramesPerBuffer: c.frames,
	}

	c.channels = channels

	stream, err := paLibOpenStreamFunc(params, c.processInput)
	if err != nil {
		// The device may not support the target rate; retry at its default.
		params.SampleRate = info.DefaultSampleRate
		stream, err = paLibOpenStreamFunc(params, c.processInput)
		if err != nil {
			return fmt.Errorf("failed to open input stream on [%d] %s: %w", index, info.Name, err)
		}
		applog.Warnf("Capture: [%s] does not support %.0f Hz, using %.0f Hz",
			info.Name, c.targetRate, info.DefaultSampleRate)
	}

	c.clip.SetSampleRate(int(params.SampleRate))

	if err := stream.Start(); err != nil {
		stream.Close()
		c.clip.Reset()
		return fmt.Errorf("failed to start input stream on [%d] %s: %w", index, info.Name, err)
	}
	c.stream = stream

	applog.Infof("Capture: selected [%d] %s (%d ch, %.0f Hz)",
		index, info.Name, channels, params.SampleRate)

	if c.recording.Enabled {
		if err := c.startRecordingLocked(); err != nil {
			applog.Errorf("Capture: recording not started: %v", err)
		}
	}

	return nil
}

// Unselect stops and closes the active stream. It returns once the stream
// has halted, so no further buffer writes can race with consumers. The clip
// is reset to its unset state (zero samples, sample rate 0).
func (c *Capture) Unselect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}

	if err := c.stopRecordingLocked(); err != nil {
		applog.Errorf("Capture: error stopping recording: %v", err)
	}

	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := c.stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	c.stream = nil
	c.clip.Reset()

	applog.Infof("Capture: device unselected")
	return nil
}

// Active reports whether a stream is currently running.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// Snapshot copies the current clip contents into snap.
func (c *Capture) Snapshot(snap *ClipSnapshot) {
	c.clip.Snapshot(snap)
}

// Close stops recording and the stream, if active.
func (c *Capture) Close() error {
	return c.Unselect()
}

// processInput is the stream callback. It deinterleaves the incoming frames
// into the clip and, when recording, appends them to the WAV encoder.
// Performance critical: no allocations, short clip lock, never blocks on
// consumers.
func (c *Capture) processInput(in []float32) {
	n := len(in)
	if n > len(c.conv) {
		n = len(c.conv) // Oversized callback buffer; keep the leading frames.
	}
	for i := 0; i < n; i++ {
		c.conv[i] = float64(in[i])
	}

	if c.channels == 2 {
		c.clip.AppendStereo(c.conv[:n])
	} else {
		c.clip.AppendMono(c.conv[:n])
	}

	if atomic.LoadInt32(&c.isRecording) == 1 {
		if err := c.recFile.write(in[:n]); err != nil {
			// Transient I/O error: log and keep the stream running.
			applog.Errorf("Capture: error writing recording: %v", err)
		}
	}
}

// wavFile bundles the open file and encoder for an in-progress recording.
type wavFile struct {
	encoder   *wav.Encoder
	closeFile func() error
	buf       *audio.IntBuffer
	scale     float64
}

func (w *wavFile) write(samples []float32) error {
	w.buf.Data = w.buf.Data[:cap(w.buf.Data)]
	if len(w.buf.Data) < len(samples) {
		return fmt.Errorf("recording buffer too small: %d < %d", len(w.buf.Data), len(samples))
	}
	for i, s := range samples {
		w.buf.Data[i] = int(float64(s) * w.scale)
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	return w.encoder.Write(w.buf)
}
