// SPDX-License-Identifier: MIT

// Package utils holds signal generation and inspection helpers shared by
// tests across the repository.
package utils

import "math"

// GenerateSineWave returns size samples of a sine wave at the given
// frequency, amplitude 0.9, sampled at sampleRate.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// GenerateComplexWave returns size samples of a 440Hz fundamental with two
// harmonics, sampled at sampleRate.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
	}
	return buffer
}

// Interleave builds an interleaved stereo buffer [l0,r0,l1,r1,...] from two
// equal-length channel slices.
func Interleave(left, right []float64) []float64 {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	out := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		out = append(out, left[i], right[i])
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin], clamping the range to valid indices.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
