// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"spectra/pkg/bitint"
)

// LoadConfig loads configuration from the YAML file at path. If path is
// empty it searches default locations ("spectra.yaml", "config.yaml") and
// falls back to built-in defaults when none exists. Environment variable
// overrides are applied after the file, and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range []string{"spectra.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if !bitint.IsPowerOfTwo(c.Audio.ClipSize) || c.Audio.ClipSize > MaxClipSize {
		return fmt.Errorf("audio.clip_size must be a power of 2 up to %d, got %d", MaxClipSize, c.Audio.ClipSize)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer)
	}
	if c.Audio.TickInterval <= 0 {
		return fmt.Errorf("audio.tick_interval must be positive, got %s", c.Audio.TickInterval)
	}
	if c.Shaper.MovingAvgRange < 0 {
		return fmt.Errorf("shaper.moving_avg_range must be non-negative, got %d", c.Shaper.MovingAvgRange)
	}
	if c.Shaper.NormScale <= 0 {
		return fmt.Errorf("shaper.norm_scale must be positive, got %g", c.Shaper.NormScale)
	}
	if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 && c.Recording.BitDepth != 32 {
		return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	}
	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
	}
	return nil
}

// applyEnvOverrides applies SPECTRA_* environment variables on top of the
// loaded configuration.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRA_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("SPECTRA_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("SPECTRA_TICK_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Audio.TickInterval = d
		}
	}
	if val, ok := os.LookupEnv("SPECTRA_WS_PORT"); ok {
		c.Transport.WSPort = val
		c.Transport.WSEnabled = true
	}
	if val, ok := os.LookupEnv("SPECTRA_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		c.Transport.UDPEnabled = true
	}
}
