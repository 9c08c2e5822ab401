// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"spectra/pkg/utils"
)

const (
	testSize       = 1024
	testSampleRate = 44100.0
)

func TestNewSpectralRejectsNonPowerOfTwo(t *testing.T) {
	for _, size := range []int{0, -4, 1000, 4097} {
		if _, err := NewSpectral(size); err == nil {
			t.Errorf("NewSpectral(%d) expected error", size)
		}
	}
}

func TestTransformBinCountAndFrequencies(t *testing.T) {
	s, err := NewSpectral(testSize)
	if err != nil {
		t.Fatalf("NewSpectral error: %v", err)
	}

	samples := utils.GenerateComplexWave(testSize, testSampleRate)
	bins, err := s.Transform(nil, samples, testSampleRate)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	if len(bins) != testSize/2+1 {
		t.Fatalf("bin count = %d, want %d", len(bins), testSize/2+1)
	}

	// Bin i sits at i * sampleRate / N.
	for _, i := range []int{0, 1, 10, testSize / 4, testSize / 2} {
		want := float64(i) * testSampleRate / testSize
		if math.Abs(bins[i].Frequency-want) > 1e-6 {
			t.Errorf("bin %d frequency = %f, want %f", i, bins[i].Frequency, want)
		}
	}
}

func TestTransformMagnitudesNonNegative(t *testing.T) {
	s, _ := NewSpectral(testSize)

	samples := utils.GenerateComplexWave(testSize, testSampleRate)
	bins, err := s.Transform(nil, samples, testSampleRate)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	for i, bin := range bins {
		if bin.Magnitude < 0 {
			t.Errorf("bin %d magnitude = %f, want non-negative", i, bin.Magnitude)
		}
	}
}

func TestTransformZeroInputYieldsZeroMagnitudes(t *testing.T) {
	s, _ := NewSpectral(testSize)

	bins, err := s.Transform(nil, make([]float64, testSize), testSampleRate)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	for i, bin := range bins {
		if bin.Magnitude != 0 {
			t.Errorf("bin %d magnitude = %g for all-zero input, want 0", i, bin.Magnitude)
		}
	}
}

func TestTransformIsDeterministic(t *testing.T) {
	s, _ := NewSpectral(testSize)
	samples := utils.GenerateSineWave(testSize, testSampleRate, 440)

	first, err := s.Transform(nil, samples, testSampleRate)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	second, err := s.Transform(nil, samples, testSampleRate)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("transform not deterministic at bin %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestTransformFindsSinePeak(t *testing.T) {
	s, _ := NewSpectral(testSize)

	const frequency = 440.0
	samples := utils.GenerateSineWave(testSize, testSampleRate, frequency)
	bins, err := s.Transform(nil, samples, testSampleRate)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}

	magnitudes := make([]float64, len(bins))
	for i, bin := range bins {
		magnitudes[i] = bin.Magnitude
	}

	peak := utils.FindPeakBin(magnitudes, 1, len(magnitudes)-1)
	wantBin := int(math.Round(frequency * testSize / testSampleRate))
	if peak < wantBin-1 || peak > wantBin+1 {
		t.Errorf("peak at bin %d (%.1f Hz), want near bin %d (%.1f Hz)",
			peak, bins[peak].Frequency, wantBin, frequency)
	}
}

func TestTransformEmptyInput(t *testing.T) {
	s, _ := NewSpectral(testSize)

	if _, err := s.Transform(nil, nil, testSampleRate); err == nil {
		t.Error("Transform on empty input expected error")
	}
}

func TestTransformInvalidSampleRate(t *testing.T) {
	s, _ := NewSpectral(testSize)
	samples := make([]float64, testSize)
	samples[0] = 1

	if _, err := s.Transform(nil, samples, 0); err == nil {
		t.Error("Transform with zero sample rate expected error")
	}
}

func TestTransformShortInputZeroPads(t *testing.T) {
	s, _ := NewSpectral(testSize)

	bins, err := s.Transform(nil, []float64{1, -1, 1, -1}, testSampleRate)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if len(bins) != testSize/2+1 {
		t.Errorf("bin count = %d for short input, want %d", len(bins), testSize/2+1)
	}
}

func TestTransformReusesDst(t *testing.T) {
	s, _ := NewSpectral(testSize)
	samples := utils.GenerateSineWave(testSize, testSampleRate, 440)

	dst, err := s.Transform(nil, samples, testSampleRate)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	first := &dst[0]

	dst, err = s.Transform(dst, samples, testSampleRate)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if &dst[0] != first {
		t.Error("Transform reallocated a correctly sized dst")
	}
}

func BenchmarkTransform(b *testing.B) {
	s, _ := NewSpectral(4096)
	samples := utils.GenerateComplexWave(4096, testSampleRate)
	dst := make([]SpectrumBin, 0, s.Bins())

	b.ReportAllocs()
	for b.Loop() {
		dst, _ = s.Transform(dst, samples, testSampleRate)
	}
}
