// SPDX-License-Identifier: MIT
package choreo

import (
	"slices"
	"testing"
	"time"

	"lightdesk/internal/lighting"
)

func TestEffectTableComplete(t *testing.T) {
	t.Parallel()
	seen := make(map[Effect]int)
	for s, list := range catalogue {
		if len(list) < 2 || len(list) > maxCatalogue {
			t.Errorf("%s: %d effects", Section(s), len(list))
		}
		for _, w := range list {
			seen[w.effect]++
			if w.weight <= 0 {
				t.Errorf("%s: non-positive weight", w.effect)
			}
		}
	}
	for e := range effectCount {
		if effectTable[e] == nil {
			t.Errorf("%s has no implementation", e)
		}
		if seen[e] != 1 {
			t.Errorf("%s appears in %d sections", e, seen[e])
		}
		if e.String() == "" {
			t.Errorf("Effect(%d) has no name", e)
		}
	}
}

func TestSectionOf(t *testing.T) {
	t.Parallel()
	tests := map[Effect]Section{
		SingleSpot:    Verse,
		ColorRise:     Build,
		StrobeSplit:   Chorus,
		BlackoutBlast: Drop,
		FadeWalk:      Breakdown,
	}
	for e, want := range tests {
		if got := SectionOf(e); got != want {
			t.Errorf("SectionOf(%s) = %s, want %s", e, got, want)
		}
	}
}

func ndContext(t *testing.T) effectContext {
	t.Helper()
	nd, ok := LookupPalette("nd")
	if !ok {
		t.Fatal("ND palette missing")
	}
	return effectContext{
		beat:     1,
		barLen:   4,
		duration: 16,
		downbeat: true,
		bpm:      120,
		palette:  nd,
	}
}

func color(target lighting.Target, c lighting.Color) lighting.Command {
	return lighting.Command{Kind: lighting.CmdColor, Target: target, Color: c}
}

func anim(target lighting.Target, m lighting.Mode, speed uint8) lighting.Command {
	return lighting.Command{Kind: lighting.CmdAnimation, Target: target, Mode: m, Speed: speed}
}

func flash(d time.Duration) lighting.Command {
	return lighting.Command{Kind: lighting.CmdFlash, Color: lighting.White, Flash: d}
}

func TestEffects(t *testing.T) {
	t.Parallel()
	var (
		blue  = lighting.RGB(12, 36, 150)
		gold  = lighting.RGB(255, 200, 0)
		white = lighting.White
		black = lighting.Black
	)

	tests := []struct {
		name   string
		effect Effect
		setup  func(c *effectContext)
		want   []lighting.Command
		result effectResult
	}{
		{
			name:   "color wash trails B behind A",
			effect: ColorWash,
			want:   []lighting.Command{color(lighting.TargetA, blue), color(lighting.TargetB, lighting.RGB(194, 159, 37))},
		},
		{
			name:   "color wash advances each cycle",
			effect: ColorWash,
			setup:  func(c *effectContext) { c.elapsed = 8 },
			want:   []lighting.Command{color(lighting.TargetA, blue), color(lighting.TargetB, lighting.RGB(194, 159, 37))},
			result: effectResult{advance: true},
		},
		{
			name:   "single spot swaps every two bars",
			effect: SingleSpot,
			setup:  func(c *effectContext) { c.beat = 9 },
			want:   []lighting.Command{color(lighting.TargetA, black), color(lighting.TargetB, blue)},
		},
		{
			name:   "soft pulse starts the controller animation",
			effect: SoftPulse,
			setup:  func(c *effectContext) { c.downbeat = false },
			want: []lighting.Command{
				anim(lighting.TargetA, lighting.ModePulseBlue, 80),
				anim(lighting.TargetB, lighting.ModePulseBlue, 80),
			},
			result: effectResult{vendor: true},
		},
		{
			name:   "soft pulse leaves a running animation alone",
			effect: SoftPulse,
			setup:  func(c *effectContext) { c.downbeat, c.inVendor = false, true },
			result: effectResult{vendor: true},
		},
		{
			name:   "slow breathe refreshes on a phrase",
			effect: SlowBreathe,
			setup:  func(c *effectContext) { c.phrase, c.inVendor = true, true },
			want: []lighting.Command{
				anim(lighting.TargetA, lighting.ModePulseBlue, 95),
				anim(lighting.TargetB, lighting.ModePulseBlue, 95),
			},
			result: effectResult{advance: true},
		},
		{
			name:   "chase flashes on the downbeat",
			effect: ABChase,
			want: []lighting.Command{
				color(lighting.TargetA, lighting.RGB(2, 7, 30)),
				color(lighting.TargetB, white),
				flash(60 * time.Millisecond),
			},
		},
		{
			name:   "strobe ramp shortens with progress",
			effect: StrobeRamp,
			setup:  func(c *effectContext) { c.beat, c.elapsed, c.downbeat = 10, 8, false },
			want: []lighting.Command{
				flash(90 * time.Millisecond),
				color(lighting.TargetA, blue),
				color(lighting.TargetB, black),
			},
		},
		{
			name:   "downbeat blast opens white",
			effect: DownbeatBlast,
			want:   []lighting.Command{color(lighting.TargetA, white), color(lighting.TargetB, white)},
		},
		{
			name:   "downbeat blast closes on B",
			effect: DownbeatBlast,
			setup:  func(c *effectContext) { c.barPos, c.downbeat = 3, false },
			want:   []lighting.Command{color(lighting.TargetA, black), color(lighting.TargetB, gold)},
		},
		{
			name:   "strobe split strobes A first",
			effect: StrobeSplit,
			want: []lighting.Command{
				anim(lighting.TargetA, lighting.ModeStrobeWhite, 4),
				color(lighting.TargetB, blue),
			},
			result: effectResult{vendor: true},
		},
		{
			name:   "ab alternate hits on a strong downbeat",
			effect: ABAlternate,
			setup:  func(c *effectContext) { c.onset = 0.9 },
			want: []lighting.Command{
				color(lighting.TargetA, gold),
				color(lighting.TargetB, blue),
				flash(80 * time.Millisecond),
			},
		},
		{
			name:   "blackout holds dark",
			effect: BlackoutBlast,
			setup:  func(c *effectContext) { c.elapsed = 1 },
			want:   []lighting.Command{color(lighting.TargetA, black), color(lighting.TargetB, black)},
		},
		{
			name:   "blackout releases into strobe",
			effect: BlackoutBlast,
			setup:  func(c *effectContext) { c.elapsed = 2 },
			want: []lighting.Command{
				anim(lighting.TargetAll, lighting.ModeStrobeRainbow, 3),
				flash(250 * time.Millisecond),
			},
			result: effectResult{vendor: true},
		},
		{
			name:   "drop strobe opens with a long hit",
			effect: DropStrobe,
			want: []lighting.Command{
				anim(lighting.TargetAll, lighting.ModeStrobeRainbow, 3),
				flash(200 * time.Millisecond),
			},
			result: effectResult{vendor: true},
		},
		{
			name:   "fade walk dims B",
			effect: FadeWalk,
			setup:  func(c *effectContext) { c.elapsed = 4 },
			want:   []lighting.Command{color(lighting.TargetA, gold), color(lighting.TargetB, lighting.RGB(127, 100, 0))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := ndContext(t)
			if tt.setup != nil {
				tt.setup(&c)
			}
			var rec lighting.Recorder
			got := effectTable[tt.effect](&c, &rec)
			if got != tt.result {
				t.Errorf("result = %+v, want %+v", got, tt.result)
			}
			if cmds := rec.Commands(); !slices.Equal(cmds, tt.want) {
				t.Errorf("commands:\n got %v\nwant %v", cmds, tt.want)
			}
		})
	}
}

func TestPaletteAt(t *testing.T) {
	t.Parallel()
	nd, _ := LookupPalette("ND")
	if nd.At(3) != nd.At(0) || nd.At(-1) != nd.At(2) {
		t.Error("At must wrap in both directions")
	}
	if (Palette{}).At(5) != lighting.White {
		t.Error("empty palette should yield white")
	}
	if _, ok := LookupPalette("sepia"); ok {
		t.Error("unknown palette found")
	}
	if p, ok := LookupPalette(" ocean "); !ok || p.Name != "Ocean" {
		t.Errorf("LookupPalette(ocean) = %v, %t", p.Name, ok)
	}
	if len(PaletteNames()) != 7 {
		t.Errorf("PaletteNames() = %v", PaletteNames())
	}
}

func TestParseStyle(t *testing.T) {
	t.Parallel()
	tests := map[string]Style{
		"":        StyleHouse,
		"house":   StyleHouse,
		"EDM":     StyleEDM,
		"Hip-Hop": StyleHipHop,
		"hip hop": StyleHipHop,
		"hiphop":  StyleHipHop,
		"Chill":   StyleChill,
	}
	for in, want := range tests {
		got, err := ParseStyle(in)
		if err != nil || got != want {
			t.Errorf("ParseStyle(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseStyle("polka"); err == nil {
		t.Error("expected error for unknown style")
	}
}

func TestParsePreset(t *testing.T) {
	t.Parallel()
	for _, p := range Presets() {
		got, err := ParsePreset(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePreset(%q) = %v, %v", p.String(), got, err)
		}
	}
	if got, err := ParsePreset("Downbeat-Rainbow"); err != nil || got != PresetDownbeatRainbow {
		t.Errorf("ParsePreset(key) = %v, %v", got, err)
	}
	if _, err := ParsePreset("Beat: Confetti"); err == nil {
		t.Error("expected error for unknown preset")
	}
}
