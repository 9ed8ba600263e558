// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
	"time"
)

const testSampleRate = 44100

func TestSineWave(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 44100, 440.0},
		{"Middle C", 44100, 261.63},
		{"Low Sample Rate", 8000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SineWave(4096, tt.sampleRate, tt.frequency, 0.5)
			if len(result) != 4096 {
				t.Fatalf("len = %d, want 4096", len(result))
			}

			samplesPerCycle := tt.sampleRate / tt.frequency
			crossings := 0
			for i := 1; i < len(result); i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossings++
				}
			}
			expected := float64(len(result)) / (samplesPerCycle / 2)
			if math.Abs(float64(crossings)-expected) > 0.2*expected {
				t.Errorf("zero crossings = %d, expected about %.1f", crossings, expected)
			}

			// Peak amplitude 0.5 gives rms 0.5/sqrt(2).
			if rms := RMS(result); math.Abs(rms-0.5/math.Sqrt2) > 0.01 {
				t.Errorf("RMS = %.4f, want %.4f", rms, 0.5/math.Sqrt2)
			}
		})
	}
}

func TestClickTrack(t *testing.T) {
	signal := ClickTrack(testSampleRate, 120, 2*time.Second, 0.8)
	if len(signal) != 2*testSampleRate {
		t.Fatalf("len = %d, want %d", len(signal), 2*testSampleRate)
	}

	frames := Split(signal, 1024)
	var loud []int
	for i, f := range frames {
		if RMS(f) > 0.1 {
			loud = append(loud, i)
		}
	}
	// Clicks at 0, 0.5, 1.0, 1.5 s start in frames 0, 21, 43, 64. Tails spill
	// into the following frame at a much lower level.
	want := []int{0, 21, 43, 64}
	if len(loud) != len(want) {
		t.Fatalf("loud frames = %v, want %v", loud, want)
	}
	for i := range want {
		if loud[i] != want[i] {
			t.Errorf("loud frame %d = %d, want %d", i, loud[i], want[i])
		}
	}

	again := ClickTrack(testSampleRate, 120, 2*time.Second, 0.8)
	for i := range signal {
		if signal[i] != again[i] {
			t.Fatalf("ClickTrack not deterministic at sample %d", i)
		}
	}
}

func TestClickTrackZeroBPM(t *testing.T) {
	signal := ClickTrack(testSampleRate, 0, time.Second, 1)
	if RMS(signal) != 0 {
		t.Error("expected silence for bpm 0")
	}
}

func TestSplit(t *testing.T) {
	frames := Split(Silence(2500), 1024)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	for _, f := range frames {
		if len(f) != 1024 {
			t.Errorf("frame len = %d, want 1024", len(f))
		}
	}
	if Split(Silence(10), 0) != nil {
		t.Error("expected nil for zero frame size")
	}
}

func TestFindPeakBin(t *testing.T) {
	mags := make([]float64, 1024)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-256), 2))
	}

	tests := []struct {
		name     string
		start    int
		end      int
		expected int
	}{
		{"Full Range", 0, 1023, 256},
		{"Negative Start", -10, 1023, 256},
		{"Out of Range End", 0, 4096, 256},
		{"Before Peak", 0, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(mags, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(mags, 0, len(mags)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkClickTrack(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		ClickTrack(testSampleRate, 128, time.Second, 0.8)
	}
}
