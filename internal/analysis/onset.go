// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"slices"
	"strings"
)

// OnsetMethod selects the onset detection strategy.
type OnsetMethod int

const (
	// OnsetAuto picks the best available strategy (HFC).
	OnsetAuto OnsetMethod = iota
	// OnsetHFC is the high-frequency-content detector with a median threshold.
	OnsetHFC
	// OnsetFlux is the spectral-flux adaptive threshold fallback.
	OnsetFlux
)

func (m OnsetMethod) String() string {
	switch m {
	case OnsetAuto:
		return "auto"
	case OnsetHFC:
		return "hfc"
	case OnsetFlux:
		return "flux"
	default:
		return fmt.Sprintf("OnsetMethod(%d)", int(m))
	}
}

// ParseOnsetMethod converts a case-insensitive name into an OnsetMethod.
// An empty name selects OnsetAuto.
func ParseOnsetMethod(name string) (OnsetMethod, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return OnsetAuto, nil
	case "hfc", "native":
		return OnsetHFC, nil
	case "flux", "fallback":
		return OnsetFlux, nil
	default:
		return OnsetAuto, fmt.Errorf("unknown onset method: '%s'", name)
	}
}

// OnsetDetector decides per frame whether a beat onset happened.
type OnsetDetector interface {
	Detect(fa FrameAnalysis) bool
	Reset()
}

// NewOnsetDetector returns the strategy for method. The choice is made
// once here; detectors never switch strategy at call time.
func NewOnsetDetector(method OnsetMethod) OnsetDetector {
	switch method {
	case OnsetFlux:
		return &FluxDetector{}
	default:
		return &HFCDetector{}
	}
}

// Onset gate constants shared by both strategies.
const (
	onsetRMSGate = 0.03 // Frames quieter than this never trigger.

	fluxFloor   = 0.05
	fluxRatio   = 1.8
	firstRMSMin = 0.05
	firstRMSEMA = 0.7
	hfcFloor    = 0.05
	hfcRatio    = 1.5
	hfcHistory  = 8
)

// FluxDetector fires when spectral flux jumps above its own smoothed
// level. On the first frame, when there is no previous spectrum to diff
// against, it falls back to an RMS gate.
type FluxDetector struct{}

var _ OnsetDetector = (*FluxDetector)(nil)

func (d *FluxDetector) Detect(fa FrameAnalysis) bool {
	if !fa.HasPrevious {
		return fa.RMS > max(firstRMSMin, firstRMSEMA*fa.RMSEMA)
	}
	return fa.Flux > max(fluxFloor, fluxRatio*fa.Features.Flux) && fa.RMS > onsetRMSGate
}

func (d *FluxDetector) Reset() {}

// HFCDetector computes a high-frequency-content onset function (bin
// magnitudes weighted by bin index) and fires on a rising value above a
// moving-median threshold. Percussive attacks are broadband, so weighting
// the upper bins separates them from sustained low notes.
type HFCDetector struct {
	history [hfcHistory]float64
	count   int
	next    int
	prev    float64
	scratch [hfcHistory]float64
}

var _ OnsetDetector = (*HFCDetector)(nil)

func (d *HFCDetector) Detect(fa FrameAnalysis) bool {
	hfc := highFrequencyContent(fa.Magnitudes)

	threshold := max(hfcFloor, hfcRatio*d.median())
	beat := hfc > threshold && hfc > d.prev && fa.RMS > onsetRMSGate

	d.history[d.next] = hfc
	d.next = (d.next + 1) % hfcHistory
	if d.count < hfcHistory {
		d.count++
	}
	d.prev = hfc
	return beat
}

func (d *HFCDetector) Reset() {
	*d = HFCDetector{}
}

func (d *HFCDetector) median() float64 {
	if d.count == 0 {
		return 0
	}
	s := d.scratch[:d.count]
	copy(s, d.history[:d.count])
	slices.Sort(s)
	m := d.count / 2
	if d.count%2 == 1 {
		return s[m]
	}
	return 0.5 * (s[m-1] + s[m])
}

// highFrequencyContent weights each magnitude by its normalised bin index.
func highFrequencyContent(mag []float64) float64 {
	if len(mag) == 0 {
		return 0
	}
	k := float64(len(mag))
	var sum float64
	for i, m := range mag {
		sum += m * float64(i) / k
	}
	return sum
}
