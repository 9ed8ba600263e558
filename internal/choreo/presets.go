// SPDX-License-Identifier: MIT
package choreo

import (
	"fmt"
	"strings"
	"time"

	"lightdesk/internal/lighting"
)

// Preset replaces the section state machine with a fixed per-beat
// behaviour while it is enabled.
type Preset uint8

const (
	PresetWhiteFlash Preset = iota + 1
	PresetPaletteCycle
	PresetAlternate
	PresetDownbeatRainbow
)

var presetNames = map[Preset]string{
	PresetWhiteFlash:      "Beat: White Flash",
	PresetPaletteCycle:    "Beat: Palette Cycle",
	PresetAlternate:       "Beat: Alternate Base/Alt",
	PresetDownbeatRainbow: "Beat: Downbeat Rainbow",
}

var presetKeys = map[string]Preset{
	"white-flash":      PresetWhiteFlash,
	"palette-cycle":    PresetPaletteCycle,
	"alternate":        PresetAlternate,
	"downbeat-rainbow": PresetDownbeatRainbow,
}

func (p Preset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Preset(%d)", uint8(p))
}

// Presets lists every preset in display order.
func Presets() []Preset {
	return []Preset{PresetWhiteFlash, PresetPaletteCycle, PresetAlternate, PresetDownbeatRainbow}
}

// ParsePreset accepts a display name ("Beat: White Flash") or a short key
// ("white-flash"), case-insensitively.
func ParsePreset(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := presetKeys[key]; ok {
		return p, nil
	}
	for p, display := range presetNames {
		if strings.EqualFold(display, key) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown preset: '%s'", name)
}

func (e *Engine) runPreset(bpm float64, downbeat bool) {
	switch e.preset {
	case PresetWhiteFlash:
		e.sink.FlashWhite(70 * time.Millisecond)
	case PresetPaletteCycle:
		c := e.palette.At(e.index)
		e.index++
		e.sink.SetColor(lighting.TargetAll, c)
	case PresetAlternate:
		if e.grid.Beat%2 == 0 {
			e.sink.SetColor(lighting.TargetAll, e.alt)
		} else {
			e.sink.SetColor(lighting.TargetAll, e.base)
		}
	case PresetDownbeatRainbow:
		if downbeat {
			e.sink.SetAnimation(lighting.TargetAll, lighting.ModeStrobeRainbow, lighting.SpeedForBPM(bpm, 1))
		} else {
			e.sink.SetColor(lighting.TargetAll, e.base)
		}
	}
}
