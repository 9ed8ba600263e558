// SPDX-License-Identifier: MIT

// Package utils provides deterministic test signals for the analysis and
// session tests, plus a couple of small spectrum helpers.
package utils

import (
	"math"
	"math/rand/v2"
	"time"
)

// SineWave returns n samples of a sine at frequency Hz with the given peak amplitude.
func SineWave(n int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// Silence returns n zero samples.
func Silence(n int) []float32 {
	return make([]float32, n)
}

// ClickTrack renders a steady 4/4 pulse at bpm for the given duration. Each
// click is a short noise burst over a decaying 60 Hz thump so every band
// carries energy on the beat. The noise is seeded, so identical arguments
// always yield identical samples.
func ClickTrack(sampleRate, bpm float64, duration time.Duration, amplitude float64) []float32 {
	n := int(duration.Seconds() * sampleRate)
	buffer := make([]float32, n)
	if bpm <= 0 {
		return buffer
	}

	rng := rand.New(rand.NewPCG(1, 2))
	period := 60.0 / bpm
	clickLen := int(0.03 * sampleRate)

	for beat := 0; ; beat++ {
		start := int(float64(beat) * period * sampleRate)
		if start >= n {
			break
		}
		for i := 0; i < clickLen && start+i < n; i++ {
			t := float64(i) / sampleRate
			env := math.Exp(-t * 120)
			noise := rng.Float64()*2 - 1
			thump := math.Sin(2 * math.Pi * 60 * t)
			buffer[start+i] = float32(amplitude * env * (0.6*noise + 0.4*thump))
		}
	}
	return buffer
}

// Split cuts signal into consecutive frames of frameSize samples. A short
// trailing remainder is dropped.
func Split(signal []float32, frameSize int) [][]float32 {
	if frameSize <= 0 {
		return nil
	}
	frames := make([][]float32, 0, len(signal)/frameSize)
	for off := 0; off+frameSize <= len(signal); off += frameSize {
		frames = append(frames, signal[off:off+frameSize])
	}
	return frames
}

// RMS returns the root mean square of samples, 0 for an empty slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
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
