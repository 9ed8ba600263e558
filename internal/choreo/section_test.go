// SPDX-License-Identifier: MIT
package choreo

import "testing"

func TestGridTick(t *testing.T) {
	t.Parallel()
	g := NewGrid()
	for beat := 1; beat <= 70; beat++ {
		barPos, downbeat, phrase := g.Tick()
		if g.Beat != beat {
			t.Fatalf("Beat = %d, want %d", g.Beat, beat)
		}
		if barPos != (beat-1)%4 {
			t.Errorf("beat %d: barPos %d", beat, barPos)
		}
		if downbeat != (barPos == 0) {
			t.Errorf("beat %d: downbeat %t", beat, downbeat)
		}
		wantPhrase := beat == 33 || beat == 65
		if phrase != wantPhrase {
			t.Errorf("beat %d: phrase %t, want %t", beat, phrase, wantPhrase)
		}
	}
}

func TestTierHysteresis(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		readings  []Tier
		wantTier  Tier
		wantBeats int
	}{
		{"escalation is immediate", []Tier{TierHigh}, TierHigh, 0},
		{"held reading counts beats", []Tier{TierMed, TierMed, TierMed}, TierMed, 2},
		{"one low reading is ignored", []Tier{TierHigh, TierLow}, TierHigh, 1},
		{"two low readings are ignored", []Tier{TierHigh, TierMed, TierMed}, TierHigh, 2},
		{"third low reading de-escalates", []Tier{TierHigh, TierMed, TierMed, TierMed}, TierMed, 0},
		{"interrupted run restarts the hold", []Tier{TierHigh, TierLow, TierLow, TierHigh, TierLow, TierLow}, TierHigh, 5},
		{"de-escalates to the latest reading", []Tier{TierHigh, TierMed, TierLow, TierLow}, TierLow, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s tierState
			for _, r := range tt.readings {
				s.update(r, 3)
			}
			if s.tier != tt.wantTier || s.beats != tt.wantBeats {
				t.Errorf("tier %s beats %d, want %s beats %d", s.tier, s.beats, tt.wantTier, tt.wantBeats)
			}
		})
	}
}

func TestTierForce(t *testing.T) {
	t.Parallel()
	var s tierState
	s.force(TierHigh)
	s.force(TierHigh)
	s.force(TierHigh)
	if s.tier != TierHigh || s.beats != 2 {
		t.Errorf("tier %s beats %d, want HIGH 2", s.tier, s.beats)
	}
	s.force(TierLow)
	if s.tier != TierLow || s.beats != 0 {
		t.Errorf("manual change must restart the count, got %s %d", s.tier, s.beats)
	}
}

func TestRawTier(t *testing.T) {
	t.Parallel()
	cal := DefaultCalibration()
	tests := []struct {
		name      string
		fast, med float64
		sens      float64
		want      Tier
	}{
		{"quiet", 0.02, 0.02, 1, TierLow},
		{"falling", 0.05, 0.06, 1, TierLow},
		{"steady mid", 0.05, 0.05, 1, TierMed},
		{"loud", 0.08, 0.08, 1, TierHigh},
		{"surging", 0.055, 0.045, 1, TierHigh},
		{"sensitivity lowers the floors", 0.03, 0.03, 2, TierMed},
		{"silence", 0, 0, 1, TierLow},
	}
	for _, tt := range tests {
		if got := cal.rawTier(tt.fast, tt.med, tt.sens); got != tt.want {
			t.Errorf("%s: rawTier(%v, %v) = %s, want %s", tt.name, tt.fast, tt.med, got, tt.want)
		}
	}
}

func TestNextSection(t *testing.T) {
	t.Parallel()
	cal := DefaultCalibration()
	tests := []struct {
		name  string
		cur   Section
		dwell int
		in    sectionInputs
		want  Section
	}{
		{"drop beats everything", Verse, 8,
			sectionInputs{drop: true, build: true, tier: TierHigh, tierBeats: 10}, Drop},
		{"drop suppressed by cooldown", Verse, 8,
			sectionInputs{drop: true, cooldown: 3, build: true, tier: TierMed}, Build},
		{"dwell gates drop", Verse, 7,
			sectionInputs{drop: true}, Verse},
		{"build needs energy", Verse, 8,
			sectionInputs{build: true, tier: TierLow}, Verse},
		{"build beats chorus", Verse, 8,
			sectionInputs{build: true, tier: TierHigh, tierBeats: 6}, Build},
		{"build holds build", Build, 8,
			sectionInputs{build: true, tier: TierHigh, tierBeats: 9}, Build},
		{"build never interrupts a drop", Drop, 7,
			sectionInputs{build: true, tier: TierMed, slope: 0.01}, Drop},
		{"sustained high becomes chorus", Verse, 8,
			sectionInputs{tier: TierHigh, tierBeats: 6}, Chorus},
		{"rising ramp defers chorus", Verse, 8,
			sectionInputs{tier: TierHigh, tierBeats: 6, slope: 0.012}, Verse},
		{"rising ramp still builds", Verse, 11,
			sectionInputs{build: true, tier: TierHigh, tierBeats: 9, slope: 0.013}, Build},
		{"high not yet sustained", Verse, 8,
			sectionInputs{tier: TierHigh, tierBeats: 5}, Verse},
		{"drop plays out before chorus", Drop, 6,
			sectionInputs{tier: TierHigh, tierBeats: 9}, Drop},
		{"long drop becomes chorus", Drop, 8,
			sectionInputs{tier: TierHigh, tierBeats: 9}, Chorus},
		{"chorus falls into breakdown", Chorus, 12,
			sectionInputs{tier: TierMed, slope: -0.001}, Breakdown},
		{"chorus dwell gates breakdown", Chorus, 11,
			sectionInputs{tier: TierMed, slope: -0.001}, Chorus},
		{"flat chorus holds", Chorus, 12,
			sectionInputs{tier: TierMed}, Chorus},
		{"drop falls into breakdown", Drop, 6,
			sectionInputs{drop: true, tier: TierLow, slope: -0.002}, Breakdown},
		{"breakdown recovers to verse", Breakdown, 8,
			sectionInputs{tier: TierMed}, Verse},
		{"loud breakdown holds", Breakdown, 8,
			sectionInputs{tier: TierHigh, tierBeats: 2}, Breakdown},
		{"failed build returns to verse", Build, 8,
			sectionInputs{tier: TierLow}, Verse},
		{"medium build holds", Build, 8,
			sectionInputs{tier: TierMed}, Build},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.nextSection(tt.cur, tt.dwell, tt.in); got != tt.want {
				t.Errorf("nextSection(%s, %d, %+v) = %s, want %s", tt.cur, tt.dwell, tt.in, got, tt.want)
			}
		})
	}
}

func TestDetectorsNeedHistory(t *testing.T) {
	t.Parallel()
	cal := DefaultCalibration()
	var e energy
	for i := range 11 {
		e.update(0.05+float64(i)*0.05, 0.1, 0.1, 1)
	}
	if cal.detectBuild(&e, 1) {
		t.Error("build detected with 11 samples")
	}
	if cal.detectDrop(&e, 40) {
		t.Error("drop detected with 11 samples")
	}
	if cal.detectBreakdown(&e, 1) {
		t.Error("breakdown detected with 11 samples")
	}
}

func TestDetectBreakdown(t *testing.T) {
	t.Parallel()
	cal := DefaultCalibration()
	var e energy
	for range 12 {
		e.update(0.1, 0, 0, 0)
	}
	for range 8 {
		e.update(0.01, 0, 0, 0)
	}
	if !cal.detectBreakdown(&e, 1) {
		t.Error("expected breakdown after a sharp energy fall")
	}

	var quiet energy
	for range 12 {
		quiet.update(0.02, 0, 0, 0)
	}
	for range 8 {
		quiet.update(0.002, 0, 0, 0)
	}
	if cal.detectBreakdown(&quiet, 1) {
		t.Error("a fall from an inactive level is not a breakdown")
	}
}

func TestParseTier(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Tier{"low": TierLow, "MED": TierMed, "medium": TierMed, " High ": TierHigh} {
		got, err := ParseTier(in)
		if err != nil || got != want {
			t.Errorf("ParseTier(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseTier("loud"); err == nil {
		t.Error("expected error for unknown tier")
	}
}
