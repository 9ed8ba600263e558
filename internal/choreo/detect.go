// SPDX-License-Identifier: MIT
package choreo

import (
	"gonum.org/v1/gonum/stat"
)

// Detector windows, in beats of fast-EMA history.
const (
	buildWindow     = 12
	dropWindow      = 16
	breakdownWindow = 20
	breakdownRecent = 8
	sectionSlopeLen = 8
)

// Calibration holds the tunable thresholds of the energy classifier and
// section detectors. Energy floors are divided by the engine sensitivity.
type Calibration struct {
	TierLowFloor  float64 // fast EMA below this reads LOW
	TierHighFloor float64 // fast EMA above this reads HIGH
	TierLowRatio  float64 // fast/med below this reads LOW
	TierHighRatio float64 // fast/med above this reads HIGH
	TierHold      int     // consecutive lower readings before de-escalating

	BuildSlope     float64 // minimum per-beat rise
	BuildRise      float64 // newest/oldest ratio
	BuildFloor     float64
	BuildHighRatio float64 // high-band EMA over its average
	BuildHighFloor float64

	DropMinBeats  int
	DropBuildup   float64
	DropDip       float64
	DropSpike     float64
	DropBassRatio float64
	DropBassFloor float64 // below this average there is no bass signal to confirm with
	DropOnset     float64
	DropCooldown  int

	BreakdownFloor float64
	BreakdownRatio float64

	ChorusBeats int // beats at HIGH before a chorus
}

// DefaultCalibration returns the stock thresholds.
func DefaultCalibration() Calibration {
	return Calibration{
		TierLowFloor:  0.045,
		TierHighFloor: 0.065,
		TierLowRatio:  0.90,
		TierHighRatio: 1.15,
		TierHold:      3,

		BuildSlope:     0.003,
		BuildRise:      1.12,
		BuildFloor:     0.045,
		BuildHighRatio: 1.3,
		BuildHighFloor: 0.01,

		DropMinBeats:  16,
		DropBuildup:   1.08,
		DropDip:       0.85,
		DropSpike:     1.3,
		DropBassRatio: 1.5,
		DropBassFloor: 0.005,
		DropOnset:     0.8,
		DropCooldown:  16,

		BreakdownFloor: 0.035,
		BreakdownRatio: 0.55,

		ChorusBeats: 6,
	}
}

func (c *Calibration) rawTier(fast, med, sens float64) Tier {
	ratio := (fast + 1e-6) / (med + 1e-6)
	switch {
	case fast < c.TierLowFloor/sens || ratio < c.TierLowRatio:
		return TierLow
	case fast > c.TierHighFloor/sens || ratio > c.TierHighRatio:
		return TierHigh
	default:
		return TierMed
	}
}

// detections are the per-beat structural flags.
type detections struct {
	drop, build, breakdown bool
}

func (c *Calibration) detectBuild(e *energy, sens float64) bool {
	if e.fastHist.len() < buildWindow {
		return false
	}
	h := e.recent(buildWindow)
	first, last := h[0], h[buildWindow-1]
	slope := (last - first) / (buildWindow - 1)
	rising := slope > c.BuildSlope && last > first*c.BuildRise
	highUp := e.highAvg > c.BuildHighFloor && e.highEMA > e.highAvg*c.BuildHighRatio
	floor := e.fast > c.BuildFloor/sens
	return rising && floor && (highUp || slope > 2*c.BuildSlope)
}

func (c *Calibration) detectDrop(e *energy, beat int) bool {
	if e.fastHist.len() < dropWindow || beat < c.DropMinBeats {
		return false
	}
	h := e.recent(dropWindow)
	buildup := h[7] > h[0]*c.DropBuildup
	dip := stat.Mean(h[12:15], nil) < stat.Mean(h[:12], nil)*c.DropDip
	spike := h[15] > stat.Mean(h[:15], nil)*c.DropSpike
	bassOK := e.bassAvg < c.DropBassFloor || e.bassEMA > e.bassAvg*c.DropBassRatio
	strongHit := e.onsetEMA > c.DropOnset
	return bassOK && buildup && spike && (dip || strongHit)
}

func (c *Calibration) detectBreakdown(e *energy, sens float64) bool {
	if e.fastHist.len() < breakdownWindow {
		return false
	}
	h := e.recent(breakdownWindow)
	prev := stat.Mean(h[:breakdownWindow-breakdownRecent], nil)
	recent := stat.Mean(h[breakdownWindow-breakdownRecent:], nil)
	return prev > c.BreakdownFloor/sens && recent < prev*c.BreakdownRatio
}

// sectionInputs is the per-beat evidence nextSection decides on.
type sectionInputs struct {
	drop, build bool
	cooldown    int
	tier        Tier
	tierBeats   int
	slope       float64 // Fast-EMA slope over the last 8 beats.
}

// nextSection applies the transition rules in priority order. No automatic
// exit happens before the current section's minimum dwell. Sustained HIGH
// energy only becomes a chorus once it stops climbing, so a ramp is left
// for the build detector.
func (c *Calibration) nextSection(cur Section, dwell int, in sectionInputs) Section {
	if dwell < minDwell[cur] {
		return cur
	}
	switch {
	case in.drop && in.cooldown == 0 && cur != Drop:
		return Drop
	case in.build && cur != Drop && in.tier != TierLow:
		return Build
	case in.tier == TierHigh && in.tierBeats >= c.ChorusBeats && in.slope <= c.BuildSlope:
		if cur == Drop && dwell < dropChorusDwell {
			return cur
		}
		return Chorus
	case (cur == Chorus || cur == Drop) && in.tier != TierHigh && in.slope < 0:
		return Breakdown
	case cur == Breakdown && in.tier != TierHigh:
		return Verse
	case cur == Build && in.tier == TierLow:
		return Verse
	}
	return cur
}
