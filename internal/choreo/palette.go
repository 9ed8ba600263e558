// SPDX-License-Identifier: MIT
package choreo

import (
	"strings"

	"lightdesk/internal/lighting"
)

// Palette is a named, ordered set of colours that effects walk through.
type Palette struct {
	Name   string
	Colors []lighting.Color
}

// At returns the colour at index i, wrapping in both directions.
func (p Palette) At(i int) lighting.Color {
	n := len(p.Colors)
	if n == 0 {
		return lighting.White
	}
	return p.Colors[((i%n)+n)%n]
}

var palettes = []Palette{
	{"ND", []lighting.Color{{R: 12, G: 36, B: 150}, {R: 255, G: 200, B: 0}, {R: 255, G: 255, B: 255}}},
	{"Warm", []lighting.Color{{R: 255, G: 120, B: 0}, {R: 255, G: 180, B: 120}, {R: 255, G: 40, B: 0}, {R: 255, G: 255, B: 255}}},
	{"Cool", []lighting.Color{{R: 0, G: 180, B: 255}, {R: 0, G: 255, B: 150}, {R: 0, G: 80, B: 255}, {R: 255, G: 255, B: 255}}},
	{"Neon", []lighting.Color{{R: 255, G: 0, B: 255}, {R: 0, G: 255, B: 255}, {R: 255, G: 0, B: 120}, {R: 255, G: 255, B: 255}}},
	{"Fire", []lighting.Color{{R: 255, G: 0, B: 0}, {R: 255, G: 80, B: 0}, {R: 255, G: 160, B: 0}, {R: 255, G: 255, B: 100}}},
	{"Ocean", []lighting.Color{{R: 0, G: 30, B: 180}, {R: 0, G: 120, B: 255}, {R: 0, G: 200, B: 200}, {R: 150, G: 220, B: 255}}},
	{"UV", []lighting.Color{{R: 100, G: 0, B: 255}, {R: 180, G: 0, B: 255}, {R: 255, G: 0, B: 200}, {R: 255, G: 100, B: 255}}},
}

// DefaultPalette is used when no palette is named.
const DefaultPalette = "ND"

// LookupPalette finds a palette by case-insensitive name.
func LookupPalette(name string) (Palette, bool) {
	for _, p := range palettes {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Palette{}, false
}

// PaletteNames lists the built-in palettes in display order.
func PaletteNames() []string {
	names := make([]string, len(palettes))
	for i, p := range palettes {
		names[i] = p.Name
	}
	return names
}
