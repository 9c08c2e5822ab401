// SPDX-License-Identifier: MIT

// Package analysis converts raw sample snapshots into frequency-domain
// magnitude spectra.
package analysis

import (
	"fmt"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"spectra/pkg/bitint"
)

// SpectrumBin is one discrete frequency-magnitude pair. Frequency is fixed
// by the bin index, input length and sample rate; Magnitude is the payload.
type SpectrumBin struct {
	Frequency float64
	Magnitude float64
}

// Spectral performs windowed FFT analysis on fixed-size sample snapshots.
// The transform itself is pure: given the same samples and sample rate it
// always produces the same bins. Internal workspace buffers are guarded by a
// mutex so concurrent calls stay safe, though the pipeline only transforms
// from its tick goroutine.
type Spectral struct {
	size          int
	fftCalculator *fourier.FFT

	mu     sync.Mutex
	input  []float64    // Windowed input samples.
	coeffs []complex128 // FFT complex output, size/2+1 values.
	win    []float64    // Pre-computed Hann coefficients.
}

// NewSpectral creates a transform for snapshots of exactly size samples.
// Size must be a power of 2.
func NewSpectral(size int) (*Spectral, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("transform size must be a power of 2, got %d", size)
	}

	win := make([]float64, size)
	for i := range win {
		win[i] = 1
	}
	window.Hann(win)

	// Real FFT output is size/2+1 complex values.
	bins := size/2 + 1

	return &Spectral{
		size:          size,
		fftCalculator: fourier.NewFFT(size),
		input:         make([]float64, size),
		coeffs:        make([]complex128, bins),
		win:           win,
	}, nil
}

// Size returns the expected snapshot length.
func (s *Spectral) Size() int {
	return s.size
}

// Bins returns the number of spectrum bins produced per transform.
func (s *Spectral) Bins() int {
	return s.size/2 + 1
}

// BinFrequency returns the frequency in Hz of bin i at the given sample
// rate: i * sampleRate / size.
func (s *Spectral) BinFrequency(i int, sampleRate float64) float64 {
	if i < 0 || i >= s.Bins() {
		return 0
	}
	return s.fftCalculator.Freq(i) * sampleRate
}

// Transform applies a Hann window to samples and computes the magnitude
// spectrum, appending Bins() SpectrumBin values to dst (reusing its backing
// array) and returning the result. Samples shorter than Size() are
// zero-padded, longer ones truncated. An empty input is an error: there is
// no spectrum to compute and the caller should skip the tick.
func (s *Spectral) Transform(dst []SpectrumBin, samples []float64, sampleRate float64) ([]SpectrumBin, error) {
	if len(samples) == 0 {
		return dst, fmt.Errorf("no samples to transform")
	}
	if sampleRate <= 0 {
		return dst, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}

	s.mu.Lock()

	for i := 0; i < s.size; i++ {
		if i < len(samples) {
			s.input[i] = samples[i] * s.win[i]
		} else {
			s.input[i] = 0
		}
	}

	s.fftCalculator.Coefficients(s.coeffs, s.input)

	dst = dst[:0]
	for i, c := range s.coeffs {
		dst = append(dst, SpectrumBin{
			Frequency: s.fftCalculator.Freq(i) * sampleRate,
			Magnitude: cmplx.Abs(c),
		})
	}

	s.mu.Unlock()
	return dst, nil
}
