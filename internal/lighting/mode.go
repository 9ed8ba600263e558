// SPDX-License-Identifier: MIT
package lighting

import (
	"fmt"
	"math"
)

// Mode is a built-in controller animation id, sent as BB <mode> <speed> 44.
type Mode uint8

const (
	ModeStatic         Mode = 0x24
	ModePulseRainbow   Mode = 0x25
	ModePulseRed       Mode = 0x26
	ModePulseGreen     Mode = 0x27
	ModePulseBlue      Mode = 0x28
	ModePulseYellow    Mode = 0x29
	ModePulseCyan      Mode = 0x2A
	ModePulsePurple    Mode = 0x2B
	ModePulseWhite     Mode = 0x2C
	ModePulseRedGreen  Mode = 0x2D
	ModePulseRedBlue   Mode = 0x2E
	ModePulseGreenBlue Mode = 0x2F
	ModeStrobeRainbow  Mode = 0x30
	ModeStrobeRed      Mode = 0x31
	ModeStrobeGreen    Mode = 0x32
	ModeStrobeBlue     Mode = 0x33
	ModeStrobeYellow   Mode = 0x34
	ModeStrobeCyan     Mode = 0x35
	ModeStrobePurple   Mode = 0x36
	ModeStrobeWhite    Mode = 0x37
	ModeJumpRainbow    Mode = 0x38
	ModePulseRGB       Mode = 0x39
	ModeJumpRGB        Mode = 0x3A
)

const (
	minMode = ModeStatic
	maxMode = ModeJumpRGB

	unknownTempoSpeed = 20
	minSpeed          = 2
	maxSpeed          = 100
)

var modeNames = [...]string{
	"Normal (static)",
	"Pulsating Rainbow",
	"Pulsating Red",
	"Pulsating Green",
	"Pulsating Blue",
	"Pulsating Yellow",
	"Pulsating Cyan",
	"Pulsating Purple",
	"Pulsating White",
	"Pulsating Red+Green",
	"Pulsating Red+Blue",
	"Pulsating Green+Blue",
	"Rainbow Strobe",
	"Red Strobe",
	"Green Strobe",
	"Blue Strobe",
	"Yellow Strobe",
	"Cyan Strobe",
	"Purple Strobe",
	"White Strobe",
	"Rainbow Jump",
	"RGB Pulsating",
	"RGB Jump",
}

// Valid reports whether m is in the controller's animation range.
func (m Mode) Valid() bool { return m >= minMode && m <= maxMode }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(0x%02X)", uint8(m))
	}
	return modeNames[m-minMode]
}

// Modes lists every known animation in id order.
func Modes() []Mode {
	out := make([]Mode, 0, maxMode-minMode+1)
	for m := minMode; m <= maxMode; m++ {
		out = append(out, m)
	}
	return out
}

// NearestPulse maps a colour onto the closest single-colour pulse animation.
func NearestPulse(c Color) Mode {
	switch {
	case c.R > 220 && c.G > 220 && c.B > 220:
		return ModePulseWhite
	case c.R > 200 && c.G > 200 && c.B < 80:
		return ModePulseYellow
	case c.G > 200 && c.B > 200 && c.R < 80:
		return ModePulseCyan
	case c.R > 200 && c.B > 200 && c.G < 80:
		return ModePulsePurple
	case c.R >= c.G && c.R >= c.B:
		return ModePulseRed
	case c.G >= c.R && c.G >= c.B:
		return ModePulseGreen
	default:
		return ModePulseBlue
	}
}

// SpeedForBPM converts a tempo into a controller speed byte (smaller is
// faster, roughly 10/Hz). Higher intensity gives a faster animation. An
// unknown tempo yields a safe slow value.
func SpeedForBPM(bpm, intensity float64) uint8 {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return unknownTempoSpeed
	}
	if intensity <= 0 || math.IsNaN(intensity) {
		intensity = 1
	}
	s := math.RoundToEven(600.0 / bpm / intensity)
	return uint8(max(minSpeed, min(maxSpeed, s)))
}
