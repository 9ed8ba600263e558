// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Tempo window and estimator tuning.
const (
	MinBPM = 70.0
	MaxBPM = 180.0

	beatRingSize    = 48 // Accepted beat timestamps kept.
	estimateWindow  = 24 // Most recent timestamps used for an estimate.
	maxPairSpan     = 8  // Largest index gap (j-i) considered for a pair.
	minBeats        = 6
	minPeriods      = 4
	neutralBPM      = 120.0
	lockTolerance   = 0.20 // Relative deviation still treated as the same tempo.
	relockBeats     = 5    // Consecutive deviant estimates before jumping.
	lockSmoothOld   = 0.75
	minPeriodSecond = 60.0 / MaxBPM
	maxPeriodSecond = 60.0 / MinBPM
)

// TempoEstimator tracks accepted beat times and holds a hysteretic BPM
// lock. It is owned by the analysis goroutine.
type TempoEstimator struct {
	refractory time.Duration

	ring  [beatRingSize]time.Duration
	head  int // Index of the oldest entry.
	count int

	lastAccepted time.Duration
	hasLast      bool

	locked     float64
	deviations int

	// Scratch buffers reused between estimates.
	recent  [estimateWindow]float64
	periods []float64
}

// NewTempoEstimator creates an estimator that ignores beats closer than
// refractory to the previously accepted one.
func NewTempoEstimator(refractory time.Duration) *TempoEstimator {
	return &TempoEstimator{
		refractory: refractory,
		periods:    make([]float64, 0, estimateWindow*maxPairSpan),
	}
}

// Register offers a candidate beat at stream time t. It returns false when
// the beat falls inside the refractory window and was dropped.
func (e *TempoEstimator) Register(t time.Duration) bool {
	if e.hasLast && t-e.lastAccepted < e.refractory {
		return false
	}
	e.lastAccepted = t
	e.hasLast = true
	e.push(t)

	if bpm, ok := e.Estimate(); ok {
		e.updateLock(bpm)
	}
	return true
}

// BPM returns the locked tempo, or 0 while no tempo is locked.
func (e *TempoEstimator) BPM() float64 { return e.locked }

// Locked reports whether a tempo is locked.
func (e *TempoEstimator) Locked() bool { return e.locked > 0 }

// Beats returns the number of buffered timestamps.
func (e *TempoEstimator) Beats() int { return e.count }

// Reset forgets every beat and the lock.
func (e *TempoEstimator) Reset() {
	e.head, e.count = 0, 0
	e.hasLast = false
	e.lastAccepted = 0
	e.locked = 0
	e.deviations = 0
}

func (e *TempoEstimator) push(t time.Duration) {
	if e.count < beatRingSize {
		e.ring[(e.head+e.count)%beatRingSize] = t
		e.count++
		return
	}
	e.ring[e.head] = t
	e.head = (e.head + 1) % beatRingSize
}

// Estimate computes a windowed pairwise-lag median over the most recent
// beats and folds it into the tempo window. It reports false when there
// are too few beats or too few plausible periods.
func (e *TempoEstimator) Estimate() (float64, bool) {
	if e.count < minBeats {
		return 0, false
	}

	n := min(e.count, estimateWindow)
	ts := e.recent[:n]
	for i := range n {
		ts[i] = e.ring[(e.head+e.count-n+i)%beatRingSize].Seconds()
	}

	periods := e.periods[:0]
	for i := range n - 1 {
		for j := i + 1; j < n && j-i <= maxPairSpan; j++ {
			p := (ts[j] - ts[i]) / float64(j-i)
			if p >= minPeriodSecond && p <= maxPeriodSecond {
				periods = append(periods, p)
			}
		}
	}
	e.periods = periods
	if len(periods) < minPeriods {
		return 0, false
	}

	raw := 60.0 / math.Max(1e-6, median(periods))
	return e.fold(raw), true
}

// fold picks the octave of raw nearest the current lock. Unlocked, raw
// itself is kept when it lies in the window, otherwise the in-window
// octave nearest the neutral tempo wins. A final fold forces the result
// into the window.
func (e *TempoEstimator) fold(raw float64) float64 {
	candidates := [3]float64{raw, raw * 2, raw * 0.5}

	var best float64
	switch {
	case e.locked > 0:
		best = nearest(candidates[:], e.locked)
	case inTempoWindow(raw):
		best = raw
	default:
		var inWindow [3]float64
		n := 0
		for _, c := range candidates {
			if inTempoWindow(c) {
				inWindow[n] = c
				n++
			}
		}
		if n == 0 {
			best = nearest(candidates[:], neutralBPM)
		} else {
			best = nearest(inWindow[:n], neutralBPM)
		}
	}

	if best < MinBPM {
		best *= 2
	}
	if best > MaxBPM {
		best *= 0.5
	}
	return best
}

func inTempoWindow(bpm float64) bool {
	return bpm >= MinBPM && bpm <= MaxBPM
}

// updateLock applies the lock hysteresis to a fresh estimate.
func (e *TempoEstimator) updateLock(bpm float64) {
	if e.locked <= 0 {
		e.locked = bpm
		e.deviations = 0
		return
	}

	rel := math.Abs(bpm-e.locked) / math.Max(1e-6, e.locked)
	if rel > lockTolerance {
		e.deviations++
		if e.deviations >= relockBeats {
			e.locked = bpm
			e.deviations = 0
		}
		return
	}
	e.locked = lockSmoothOld*e.locked + (1-lockSmoothOld)*bpm
	e.deviations = max(0, e.deviations-1)
}

func nearest(candidates []float64, target float64) float64 {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if math.Abs(c-target) < math.Abs(best-target) {
			best = c
		}
	}
	return best
}

// median sorts xs in place and returns its median.
func median(xs []float64) float64 {
	slices.Sort(xs)
	m := stat.Quantile(0.5, stat.Empirical, xs, nil)
	if len(xs)%2 == 0 {
		// Empirical picks the lower middle element for even lengths.
		m = 0.5 * (m + xs[len(xs)/2])
	}
	return m
}
