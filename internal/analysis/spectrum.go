// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"lightdesk/internal/log"
	"lightdesk/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Smoothing weights given to the newest sample.
const (
	bandAlpha = 0.3
	fluxAlpha = 0.2
	rmsAlpha  = 0.15
)

// band is a half-open frequency range [lowHz, highHz) mapped onto FFT bins.
type band struct {
	name          string
	lowHz, highHz float64
	loBin, hiBin  int
}

// Bass, mid and high ranges summed into the band features.
var defaultBands = [3]band{
	{name: "bass", lowHz: 20, highHz: 150},
	{name: "mid", lowHz: 150, highHz: 4000},
	{name: "high", lowHz: 4000, highHz: 12000},
}

// Features are the smoothed spectral features owned by the analyzer.
type Features struct {
	Bass float64
	Mid  float64
	High float64
	Flux float64
}

// FrameAnalysis is the per-frame result handed to the onset detector.
// Magnitudes aliases the analyzer workspace and is only valid until the
// next call to Analyze.
type FrameAnalysis struct {
	RMS         float64 // Frame RMS.
	RMSEMA      float64 // Smoothed RMS including this frame.
	Flux        float64 // Raw spectral flux of this frame.
	Features    Features
	HasPrevious bool // False for the first frame after construction or reset.
	Magnitudes  []float64
}

// Pre-allocated buffers for the FFT.
type spectrumWorkspace struct {
	input     []float64
	fftOutput []complex128
	magnitude []float64
	previous  []float64
	window    []float64
}

// SpectralAnalyzer turns frames into band energies, spectral flux and RMS.
// It is owned by the analysis goroutine and is not safe for concurrent use.
type SpectralAnalyzer struct {
	fft        *fourier.FFT
	fftSize    int
	frameSize  int
	sampleRate float64
	windowType WindowFunc
	bands      [3]band
	workspace  spectrumWorkspace

	features Features
	rmsEMA   float64
	hasPrev  bool
}

// NewSpectralAnalyzer creates an analyzer for frames of frameSize samples.
// The FFT runs on the next power of two with zero padding.
func NewSpectralAnalyzer(frameSize int, sampleRate float64, windowType WindowFunc) (*SpectralAnalyzer, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	fftSize := bitint.NextPowerOfTwo(frameSize)
	magnitudeSize := fftSize/2 + 1

	a := &SpectralAnalyzer{
		fft:        fourier.NewFFT(fftSize),
		fftSize:    fftSize,
		frameSize:  frameSize,
		sampleRate: sampleRate,
		windowType: windowType,
		bands:      defaultBands,
		workspace: spectrumWorkspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			previous:  make([]float64, magnitudeSize),
			window:    windowCoefficients(frameSize, windowType),
		},
	}

	for i := range a.bands {
		b := &a.bands[i]
		b.loBin, b.hiBin = magnitudeSize, magnitudeSize
		for bin := range magnitudeSize {
			f := a.FrequencyForBin(bin)
			if f >= b.lowHz && bin < b.loBin {
				b.loBin = bin
			}
			if f >= b.highHz {
				b.hiBin = bin
				break
			}
		}
	}

	log.Debugf("Analysis: SpectralAnalyzer (frame %d, fft %d, %.0f Hz, window %v)", frameSize, fftSize, sampleRate, windowType)
	return a, nil
}

// Analyze processes one frame and updates the smoothed features. An empty
// frame leaves the state untouched.
func (a *SpectralAnalyzer) Analyze(samples []float32) FrameAnalysis {
	n := min(len(samples), a.frameSize)
	if n == 0 {
		return FrameAnalysis{RMSEMA: a.rmsEMA, Features: a.features, HasPrevious: a.hasPrev, Magnitudes: a.workspace.magnitude}
	}

	var sumSquares float64
	ws := &a.workspace
	for i := range a.fftSize {
		if i < n {
			s := float64(samples[i])
			sumSquares += s * s
			ws.input[i] = s * ws.window[i]
		} else {
			ws.input[i] = 0
		}
	}
	rms := math.Sqrt(sumSquares / float64(n))

	a.fft.Coefficients(ws.fftOutput, ws.input)

	norm := 1.0 / float64(n)
	var flux float64
	for i, c := range ws.fftOutput {
		m := cmplx.Abs(c) * norm
		ws.magnitude[i] = m
		if d := m - ws.previous[i]; d > 0 {
			flux += d
		}
	}

	var sums [3]float64
	for i, b := range a.bands {
		for bin := b.loBin; bin < b.hiBin; bin++ {
			sums[i] += ws.magnitude[bin]
		}
	}

	a.rmsEMA = ema(a.rmsEMA, rms, rmsAlpha)
	a.features.Bass = ema(a.features.Bass, sums[0], bandAlpha)
	a.features.Mid = ema(a.features.Mid, sums[1], bandAlpha)
	a.features.High = ema(a.features.High, sums[2], bandAlpha)
	a.features.Flux = ema(a.features.Flux, flux, fluxAlpha)

	hadPrev := a.hasPrev
	copy(ws.previous, ws.magnitude)
	a.hasPrev = true

	return FrameAnalysis{
		RMS:         rms,
		RMSEMA:      a.rmsEMA,
		Flux:        flux,
		Features:    a.features,
		HasPrevious: hadPrev,
		Magnitudes:  ws.magnitude,
	}
}

// Features returns the current smoothed features.
func (a *SpectralAnalyzer) Features() Features { return a.features }

// RMSEMA returns the smoothed RMS.
func (a *SpectralAnalyzer) RMSEMA() float64 { return a.rmsEMA }

// Reset zeroes all smoothed state and forgets the previous spectrum.
func (a *SpectralAnalyzer) Reset() {
	a.features = Features{}
	a.rmsEMA = 0
	a.hasPrev = false
	clear(a.workspace.previous)
	clear(a.workspace.magnitude)
}

// FrequencyForBin returns the center frequency (Hz) of an FFT bin.
func (a *SpectralAnalyzer) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(a.workspace.fftOutput) {
		return 0
	}
	return float64(bin) * (a.sampleRate / float64(a.fftSize))
}

// FFTSize returns the zero-padded FFT length.
func (a *SpectralAnalyzer) FFTSize() int { return a.fftSize }

// ema blends sample into prev giving it weight alpha.
func ema(prev, sample, alpha float64) float64 {
	return (1-alpha)*prev + alpha*sample
}
