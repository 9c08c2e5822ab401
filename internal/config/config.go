// SPDX-License-Identifier: MIT
package config

import "time"

// Boundary values and defaults for the pipeline configuration.
const (
	DefaultSampleRate      = 44100 // Requested from every device; falls back to the device default.
	DefaultClipSize        = 4096  // Per-channel ring buffer capacity (power of 2).
	DefaultFramesPerBuffer = 512   // Callback buffer size in frames.
	DefaultTickInterval    = 10 * time.Millisecond
	DefaultMovingAvgRange  = 10
	DefaultWSPort          = "8080"

	MinDeviceID   = -1 // -1 means no device auto-selected at startup.
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MaxClipSize   = 1 << 16
)

// Config is the full runtime configuration, loaded from YAML and overridden
// by environment variables and CLI flags.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
	Command  string `yaml:"command,omitempty"` // One-off command ("list") instead of running the pipeline.

	Audio     AudioConfig     `yaml:"audio"`
	Shaper    ShaperConfig    `yaml:"shaper"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds capture and analysis settings.
type AudioConfig struct {
	InputDevice     int           `yaml:"input_device"`      // Index into the usable device list, -1 for none.
	SampleRate      float64       `yaml:"sample_rate"`       // Target rate requested from the device (Hz).
	ClipSize        int           `yaml:"clip_size"`         // Ring buffer capacity per channel; also the FFT size.
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // Frames per capture callback.
	LowLatency      bool          `yaml:"low_latency"`       // Request the device's low-latency input path.
	TickInterval    time.Duration `yaml:"tick_interval"`     // Interval between pipeline ticks.
}

// ShaperConfig holds the initial signal shaper settings. All of these remain
// mutable at runtime through the coordinator's commands.
type ShaperConfig struct {
	Norm           bool    `yaml:"norm"`
	FullNorm       bool    `yaml:"full_norm"`
	NormScale      float64 `yaml:"norm_scale"`
	Smooth         bool    `yaml:"smooth"`
	FlashFlood     bool    `yaml:"flash_flood"`
	MovingAvgRange int     `yaml:"moving_avg_range"`
}

// RecordingConfig holds settings for recording the raw capture to WAV.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
	BitDepth  int    `yaml:"bit_depth"`
}

// TransportConfig holds settings for the render-boundary publishers.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`         // Serve frames to WebSocket clients.
	WSPort           string        `yaml:"ws_port"`            // Port for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // "host:port" for UDP packets.
	SendInterval     time.Duration `yaml:"send_interval"`      // Minimum interval between published frames.
}

// NewConfig returns a Config populated with defaults. The shaper defaults
// mirror the pipeline's canonical settings: normalization and asymmetric
// smoothing on, full normalization off.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			SampleRate:      DefaultSampleRate,
			ClipSize:        DefaultClipSize,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      false,
			TickInterval:    DefaultTickInterval,
		},
		Shaper: ShaperConfig{
			Norm:           true,
			FullNorm:       false,
			NormScale:      1,
			Smooth:         true,
			FlashFlood:     true,
			MovingAvgRange: DefaultMovingAvgRange,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: ".",
			BitDepth:  16,
		},
		Transport: TransportConfig{
			WSEnabled:        false,
			WSPort:           DefaultWSPort,
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			SendInterval:     0, // 0 publishes every tick.
		},
	}
}
