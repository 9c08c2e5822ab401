// SPDX-License-Identifier: MIT

// Package shaper applies the cosmetic per-bin transform between the raw
// magnitude spectrum and the renderer: base scaling, frequency-dependent
// normalization and asymmetric exponential smoothing.
package shaper

import "math"

// Shaping constants. The base scale and power compress the raw magnitude,
// the normalization terms counteract the natural 1/f rolloff of audio
// spectra so high bins stay visible.
const (
	baseScale = 0.25
	basePower = 1.5

	normPower     = 0.7
	normScaleBase = 1.5e-11
	fullNormScale = 0.02
)

// Shaper holds the shaping configuration and derived smoothing coefficient.
// It has no per-bin state: the previous output value is passed in by the
// caller, which owns the feedback buffer. Mutators and Apply are not
// synchronized; the pipeline coordinator serializes all access.
type Shaper struct {
	norm      bool
	fullNorm  bool
	normScale float64

	smooth     bool
	flashFlood bool

	movingAvgRange int
	movingAvgK     float64 // Always 2/(1+movingAvgRange), never set directly.
}

// Settings is a snapshot of the shaper configuration, used to seed a Shaper
// and to report its state.
type Settings struct {
	Norm           bool
	FullNorm       bool
	NormScale      float64
	Smooth         bool
	FlashFlood     bool
	MovingAvgRange int
}

// New returns a shaper with the canonical defaults: normalization and
// asymmetric smoothing on, full normalization off, a 10-sample moving
// average window.
func New() *Shaper {
	return FromSettings(Settings{
		Norm:           true,
		FullNorm:       false,
		NormScale:      1,
		Smooth:         true,
		FlashFlood:     true,
		MovingAvgRange: 10,
	})
}

// FromSettings returns a shaper seeded from s. A negative moving average
// range is clamped to zero.
func FromSettings(s Settings) *Shaper {
	sh := &Shaper{
		norm:       s.Norm,
		fullNorm:   s.FullNorm,
		normScale:  s.NormScale,
		smooth:     s.Smooth,
		flashFlood: s.FlashFlood,
	}
	rng := s.MovingAvgRange
	if rng < 0 {
		rng = 0
	}
	sh.setMovingAvgRange(rng)
	return sh
}

// Apply shapes one bin: old is the bin's output from the previous tick,
// magnitude the new raw FFT magnitude, frequency the bin's frequency in Hz.
func (s *Shaper) Apply(old, magnitude, frequency float64) float64 {
	scaled := math.Pow(math.Abs(baseScale*magnitude), basePower)
	return s.smoothen(old, s.normalize(scaled, frequency))
}

func (s *Shaper) normalize(val, frequency float64) float64 {
	if !s.norm {
		return val
	}
	if s.fullNorm {
		return val * (frequency + 1) * fullNormScale
	}
	return val * math.Pow(frequency+1, normPower) * normScaleBase * s.normScale
}

func (s *Shaper) smoothen(old, next float64) float64 {
	if !s.smooth {
		return next
	}
	// Flash/flood: rises pass through instantly, falls decay on the moving
	// average. Gives a fast attack with a dripping falloff.
	if s.flashFlood && next > old {
		return next
	}
	return next*s.movingAvgK + old*(1-s.movingAvgK)
}

// ToggleNorm flips normalization on or off.
func (s *Shaper) ToggleNorm() {
	s.norm = !s.norm
}

// ToggleFullNorm flips between the full (linear) and partial (power-law)
// normalization curves.
func (s *Shaper) ToggleFullNorm() {
	s.fullNorm = !s.fullNorm
}

// ToggleSmooth flips temporal smoothing on or off.
func (s *Shaper) ToggleSmooth() {
	s.smooth = !s.smooth
}

// ToggleFlashFlood flips the asymmetric rise/fall rule on or off.
func (s *Shaper) ToggleFlashFlood() {
	s.flashFlood = !s.flashFlood
}

// ShiftNormScale multiplies the normalization scale by factor.
func (s *Shaper) ShiftNormScale(factor float64) {
	s.normScale *= factor
}

// ShiftMovingAvgRange adds delta to the moving average range, clamping at
// zero, and recomputes the smoothing coefficient.
func (s *Shaper) ShiftMovingAvgRange(delta int) {
	rng := s.movingAvgRange + delta
	if rng < 0 {
		rng = 0
	}
	s.setMovingAvgRange(rng)
}

func (s *Shaper) setMovingAvgRange(rng int) {
	s.movingAvgRange = rng
	s.movingAvgK = movingAvgCoefficient(rng)
}

// MovingAvgRange returns the current moving average window length.
func (s *Shaper) MovingAvgRange() int {
	return s.movingAvgRange
}

// MovingAvgK returns the current smoothing coefficient.
func (s *Shaper) MovingAvgK() float64 {
	return s.movingAvgK
}

// Settings returns a snapshot of the current configuration.
func (s *Shaper) Settings() Settings {
	return Settings{
		Norm:           s.norm,
		FullNorm:       s.fullNorm,
		NormScale:      s.normScale,
		Smooth:         s.smooth,
		FlashFlood:     s.flashFlood,
		MovingAvgRange: s.movingAvgRange,
	}
}

func movingAvgCoefficient(rng int) float64 {
	return 2 / (1 + float64(rng))
}
