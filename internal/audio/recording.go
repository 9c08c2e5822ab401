// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "spectra/internal/log"
)

// StartRecording begins writing the raw interleaved capture to a timestamped
// WAV file in the configured output directory. A stream must be active.
func (c *Capture) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return fmt.Errorf("no device selected")
	}
	return c.startRecordingLocked()
}

// StopRecording finishes the current recording, flushing the WAV header.
// It is a no-op when no recording is active.
func (c *Capture) StopRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopRecordingLocked()
}

func (c *Capture) startRecordingLocked() error {
	if atomic.LoadInt32(&c.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	name := "recording-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	path := filepath.Join(c.recording.OutputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create recording file: %w", err)
	}

	sampleRate := c.clip.SampleRate()
	encoder := wav.NewEncoder(file, sampleRate, c.recording.BitDepth, c.channels, 1)

	c.recFile = &wavFile{
		encoder:   encoder,
		closeFile: file.Close,
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: c.channels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: c.recording.BitDepth,
			Data:           make([]int, c.frames*c.channels),
		},
		scale: float64(int(1)<<(c.recording.BitDepth-1)) - 1,
	}

	// The callback starts writing once the flag flips.
	atomic.StoreInt32(&c.isRecording, 1)

	applog.Infof("Capture: recording to %s", path)
	return nil
}

func (c *Capture) stopRecordingLocked() error {
	if atomic.LoadInt32(&c.isRecording) == 0 {
		return nil
	}

	// Flip the flag first so the callback stops using the encoder, then give
	// any in-flight callback write a moment to finish.
	atomic.StoreInt32(&c.isRecording, 0)
	time.Sleep(time.Millisecond)

	rec := c.recFile
	c.recFile = nil

	if err := rec.encoder.Close(); err != nil {
		rec.closeFile()
		return fmt.Errorf("failed to finalize recording: %w", err)
	}
	if err := rec.closeFile(); err != nil {
		return fmt.Errorf("failed to close recording file: %w", err)
	}

	applog.Infof("Capture: recording stopped")
	return nil
}
