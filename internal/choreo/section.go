// SPDX-License-Identifier: MIT
package choreo

import (
	"fmt"
	"strings"
)

// Section is the musical section the engine believes it is in.
type Section uint8

const (
	Verse Section = iota
	Build
	Chorus
	Drop
	Breakdown
	sectionCount
)

var sectionNames = [sectionCount]string{"VERSE", "BUILD", "CHORUS", "DROP", "BREAKDOWN"}

func (s Section) String() string {
	if s < sectionCount {
		return sectionNames[s]
	}
	return fmt.Sprintf("Section(%d)", uint8(s))
}

// minDwell is the number of beats a section must last before any automatic
// exit.
var minDwell = [sectionCount]int{
	Verse:     8,
	Build:     8,
	Chorus:    12,
	Drop:      6,
	Breakdown: 8,
}

// dropChorusDwell is how long a drop plays before sustained energy may turn
// it into a chorus.
const dropChorusDwell = 8

// Tier is the coarse energy level.
type Tier uint8

const (
	TierLow Tier = iota
	TierMed
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "LOW"
	case TierMed:
		return "MED"
	case TierHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("Tier(%d)", uint8(t))
	}
}

// ParseTier accepts LOW, MED/MEDIUM or HIGH in any case.
func ParseTier(name string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "LOW":
		return TierLow, nil
	case "MED", "MEDIUM":
		return TierMed, nil
	case "HIGH":
		return TierHigh, nil
	default:
		return TierLow, fmt.Errorf("unknown energy tier: '%s'", name)
	}
}

// Grid is the beat/bar/phrase counter. Beat is 1-based once ticked.
type Grid struct {
	Beat       int
	BarLen     int
	PhraseBars int
}

// NewGrid returns a 4/4 grid with 8-bar phrases.
func NewGrid() Grid {
	return Grid{BarLen: 4, PhraseBars: 8}
}

// Tick advances one beat and reports the position within the bar, whether
// this beat is a downbeat, and whether it opens a new phrase. The very
// first beat is never a phrase boundary.
func (g *Grid) Tick() (barPos int, downbeat, phrase bool) {
	g.Beat++
	barPos = (g.Beat - 1) % g.BarLen
	downbeat = barPos == 0
	barIndex := (g.Beat - 1) / g.BarLen
	phrase = downbeat && barIndex%g.PhraseBars == 0 && g.Beat > 1
	return barPos, downbeat, phrase
}

// tierState holds the hysteretic tier and how many consecutive beats it has
// been held.
type tierState struct {
	tier  Tier
	lower int // Consecutive readings below tier.
	beats int // Consecutive beats at tier.
}

// update applies a raw reading. Escalation is immediate; de-escalation
// needs hold consecutive lower readings.
func (s *tierState) update(raw Tier, hold int) {
	switch {
	case raw > s.tier:
		s.tier = raw
		s.lower = 0
		s.beats = 0
	case raw < s.tier:
		s.lower++
		if s.lower >= hold {
			s.tier = raw
			s.lower = 0
			s.beats = 0
			return
		}
		s.beats++
	default:
		s.lower = 0
		s.beats++
	}
}

// force pins the tier to a manual value.
func (s *tierState) force(t Tier) {
	if t != s.tier {
		s.tier = t
		s.beats = 0
	} else {
		s.beats++
	}
	s.lower = 0
}
