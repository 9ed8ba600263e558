// SPDX-License-Identifier: MIT
package choreo

import (
	"fmt"
	"time"

	"lightdesk/internal/lighting"
)

// Effect is one lighting pattern. Every effect belongs to exactly one
// Section.
type Effect uint8

const (
	// Verse: subtle, atmospheric.
	SingleSpot Effect = iota // One fixture lit, swapping every 2 bars.
	ColorWash                // Both fade through the palette, B trailing A.
	SoftPulse                // Controller pulse on the palette colour.

	// Build: rising intensity.
	ABChase    // White hops between fixtures over a brightening floor.
	StrobeRamp // White flashes that get shorter.
	ColorRise  // Palette walk mixing toward white.

	// Chorus: full energy.
	ABAlternate   // Two palette colours swapped every beat.
	ABComplement  // Colour and complement swapped every bar.
	BeatCycle     // Both walk the palette every beat, offset.
	DownbeatBlast // White on the one, colours build through the bar.
	StrobeSplit   // One fixture strobes while the other holds.

	// Drop: maximum impact.
	BlackoutBlast // Two beats dark, then rainbow strobe.
	DropStrobe    // Rainbow strobe with periodic white hits.

	// Breakdown: cooling down.
	SlowBreathe // Slow controller pulse.
	FadeWalk    // Gentle palette walk, B dimmer.

	effectCount
)

var effectNames = [effectCount]string{
	"SINGLE_SPOT", "COLOR_WASH", "SOFT_PULSE",
	"AB_CHASE", "STROBE_RAMP", "COLOR_RISE",
	"AB_ALTERNATE", "AB_COMPLEMENT", "BEAT_CYCLE", "DOWNBEAT_BLAST", "STROBE_SPLIT",
	"BLACKOUT_BLAST", "DROP_STROBE",
	"SLOW_BREATHE", "FADE_WALK",
}

func (e Effect) String() string {
	if e < effectCount {
		return effectNames[e]
	}
	return fmt.Sprintf("Effect(%d)", uint8(e))
}

type weighted struct {
	effect Effect
	weight float64
}

// catalogue holds the base selection weights per section.
var catalogue = [sectionCount][]weighted{
	Verse: {
		{ColorWash, 0.40},
		{SoftPulse, 0.35},
		{SingleSpot, 0.25},
	},
	Build: {
		{ABChase, 0.40},
		{StrobeRamp, 0.30},
		{ColorRise, 0.30},
	},
	Chorus: {
		{ABAlternate, 0.22},
		{DownbeatBlast, 0.22},
		{StrobeSplit, 0.20},
		{BeatCycle, 0.18},
		{ABComplement, 0.18},
	},
	Drop: {
		{BlackoutBlast, 0.55},
		{DropStrobe, 0.45},
	},
	Breakdown: {
		{SlowBreathe, 0.50},
		{FadeWalk, 0.50},
	},
}

const maxCatalogue = 5

// SectionOf returns the section an effect belongs to.
func SectionOf(e Effect) Section {
	for s, list := range catalogue {
		for _, w := range list {
			if w.effect == e {
				return Section(s)
			}
		}
	}
	return Verse
}

// effectDuration is how many beats an effect runs before a redraw.
func effectDuration(s Section, barLen int) int {
	if s == Drop {
		return barLen * 2
	}
	return barLen * 4
}

// effectContext is everything an effect may read for one beat.
type effectContext struct {
	beat     int
	barPos   int
	barLen   int
	elapsed  int
	duration int
	downbeat bool
	phrase   bool
	onset    float64
	bpm      float64
	palette  Palette
	index    int
	inVendor bool
}

// color returns the palette colour offset from the current index.
func (c *effectContext) color(offset int) lighting.Color {
	return c.palette.At(c.index + offset)
}

func (c *effectContext) progress() float64 {
	return min(1.0, float64(c.elapsed)/float64(max(1, c.duration)))
}

// effectResult is what an effect hands back to the engine.
type effectResult struct {
	advance bool // Move the palette index one step.
	vendor  bool // A controller animation is now running.
}

type effectFunc func(c *effectContext, s lighting.Sink) effectResult

// effectTable dispatches by Effect. Every entry must be non-nil.
var effectTable = [effectCount]effectFunc{
	SingleSpot:    runSingleSpot,
	ColorWash:     runColorWash,
	SoftPulse:     runSoftPulse,
	ABChase:       runABChase,
	StrobeRamp:    runStrobeRamp,
	ColorRise:     runColorRise,
	ABAlternate:   runABAlternate,
	ABComplement:  runABComplement,
	BeatCycle:     runBeatCycle,
	DownbeatBlast: runDownbeatBlast,
	StrobeSplit:   runStrobeSplit,
	BlackoutBlast: runBlackoutBlast,
	DropStrobe:    runDropStrobe,
	SlowBreathe:   runSlowBreathe,
	FadeWalk:      runFadeWalk,
}

func ms(v float64) time.Duration {
	return time.Duration(int(v)) * time.Millisecond
}

func split(s lighting.Sink, a, b lighting.Color) {
	s.SetColor(lighting.TargetA, a)
	s.SetColor(lighting.TargetB, b)
}

func runSingleSpot(c *effectContext, s lighting.Sink) effectResult {
	col := c.color(0)
	if ((c.beat-1)/(c.barLen*2))%2 == 0 {
		split(s, col, lighting.Black)
	} else {
		split(s, lighting.Black, col)
	}
	return effectResult{advance: c.phrase, vendor: c.inVendor}
}

func runColorWash(c *effectContext, s lighting.Sink) effectResult {
	const cycle = 8
	ta := float64(c.elapsed%cycle) / cycle
	tb := float64(((c.elapsed-2)%cycle+cycle)%cycle) / cycle
	c1, c2 := c.color(0), c.color(1)
	split(s, lighting.Lerp(c1, c2, ta), lighting.Lerp(c1, c2, tb))
	return effectResult{advance: c.elapsed > 0 && c.elapsed%cycle == 0, vendor: c.inVendor}
}

func pulse(c *effectContext, s lighting.Sink, speed uint8) effectResult {
	mode := lighting.NearestPulse(c.color(0))
	vendor := c.inVendor
	if !vendor || c.downbeat {
		s.SetAnimation(lighting.TargetA, mode, speed)
		s.SetAnimation(lighting.TargetB, mode, speed)
		vendor = true
	}
	if c.phrase {
		// Refresh the animation with the next colour on the following beat.
		return effectResult{advance: true, vendor: false}
	}
	return effectResult{vendor: vendor}
}

func runSoftPulse(c *effectContext, s lighting.Sink) effectResult {
	return pulse(c, s, 80)
}

func runABChase(c *effectContext, s lighting.Sink) effectResult {
	p := c.progress()
	bright := c.color(0).Dim(0.2 + 0.3*p)
	if c.beat%2 == 0 {
		split(s, lighting.White, bright)
	} else {
		split(s, bright, lighting.White)
	}
	if c.downbeat {
		s.FlashWhite(ms(60 + 90*p))
	}
	return effectResult{}
}

func runStrobeRamp(c *effectContext, s lighting.Sink) effectResult {
	p := c.progress()
	s.FlashWhite(ms(140 - 100*p))
	col := c.color(0)
	if c.beat%2 == 0 {
		split(s, col, lighting.Black)
	} else {
		split(s, lighting.Black, col)
	}
	return effectResult{}
}

func runColorRise(c *effectContext, s lighting.Sink) effectResult {
	p := c.progress()
	col := c.palette.At(c.index + c.elapsed/2)
	mixed := lighting.Lerp(col.Dim(0.5), lighting.White, p*0.45)
	split(s, mixed, mixed)
	if c.downbeat {
		s.FlashWhite(ms(50 + 100*p))
	}
	return effectResult{}
}

func runABAlternate(c *effectContext, s lighting.Sink) effectResult {
	c1, c2 := c.color(0), c.color(1)
	if c.beat%2 == 0 {
		split(s, c1, c2)
	} else {
		split(s, c2, c1)
	}
	if c.downbeat && c.onset > 0.6 {
		s.FlashWhite(80 * time.Millisecond)
	}
	return effectResult{advance: c.elapsed > 0 && c.elapsed%8 == 0}
}

func runABComplement(c *effectContext, s lighting.Sink) effectResult {
	col := c.color(0)
	comp := col.Complement()
	if (c.beat/c.barLen)%2 == 0 {
		split(s, col, comp)
	} else {
		split(s, comp, col)
	}
	if c.phrase {
		s.FlashWhite(120 * time.Millisecond)
	}
	return effectResult{advance: c.phrase}
}

func runBeatCycle(c *effectContext, s lighting.Sink) effectResult {
	split(s, c.palette.At(c.index+c.elapsed), c.palette.At(c.index+c.elapsed+2))
	if c.downbeat && c.onset > 0.7 {
		s.FlashWhite(70 * time.Millisecond)
	}
	return effectResult{}
}

func runDownbeatBlast(c *effectContext, s lighting.Sink) effectResult {
	c1, c2 := c.color(0), c.color(1)
	switch c.barPos {
	case 0:
		split(s, lighting.White, lighting.White)
	case 1:
		split(s, c1, lighting.Black)
	case 2:
		split(s, c1, c2)
	default:
		split(s, lighting.Black, c2)
	}
	return effectResult{advance: c.phrase}
}

func runStrobeSplit(c *effectContext, s lighting.Sink) effectResult {
	col := c.color(0)
	speed := lighting.SpeedForBPM(c.bpm, 1.2)
	if (c.beat/c.barLen)%2 == 0 {
		s.SetAnimation(lighting.TargetA, lighting.ModeStrobeWhite, speed)
		s.SetColor(lighting.TargetB, col)
	} else {
		s.SetColor(lighting.TargetA, col)
		s.SetAnimation(lighting.TargetB, lighting.ModeStrobeWhite, speed)
	}
	return effectResult{advance: c.phrase, vendor: true}
}

func runBlackoutBlast(c *effectContext, s lighting.Sink) effectResult {
	switch {
	case c.elapsed < 2:
		split(s, lighting.Black, lighting.Black)
		return effectResult{}
	case c.elapsed == 2:
		s.SetAnimation(lighting.TargetAll, lighting.ModeStrobeRainbow, lighting.SpeedForBPM(c.bpm, 1.8))
		s.FlashWhite(250 * time.Millisecond)
		return effectResult{vendor: true}
	default:
		s.SetAnimation(lighting.TargetAll, lighting.ModeStrobeRainbow, lighting.SpeedForBPM(c.bpm, 1.5))
		return effectResult{vendor: c.inVendor}
	}
}

func runDropStrobe(c *effectContext, s lighting.Sink) effectResult {
	s.SetAnimation(lighting.TargetAll, lighting.ModeStrobeRainbow, lighting.SpeedForBPM(c.bpm, 1.5))
	switch {
	case c.elapsed == 0:
		s.FlashWhite(200 * time.Millisecond)
	case c.beat%4 == 0:
		s.FlashWhite(120 * time.Millisecond)
	}
	return effectResult{vendor: true}
}

func runSlowBreathe(c *effectContext, s lighting.Sink) effectResult {
	return pulse(c, s, 95)
}

func runFadeWalk(c *effectContext, s lighting.Sink) effectResult {
	col := c.palette.At(c.index + c.elapsed/4)
	split(s, col, col.Dim(0.5))
	return effectResult{}
}
