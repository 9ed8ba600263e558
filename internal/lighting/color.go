// SPDX-License-Identifier: MIT
package lighting

import "fmt"

// Color is a static 8-bit RGB colour.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	Black = Color{}
	White = Color{255, 255, 255}
)

// RGB builds a Color from three channel values.
func RGB(r, g, b uint8) Color { return Color{r, g, b} }

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Complement returns the channel-wise inverse of c.
func (c Color) Complement() Color {
	return Color{255 - c.R, 255 - c.G, 255 - c.B}
}

// Dim scales every channel by factor, truncating toward zero. The factor is
// clamped to [0, 1].
func (c Color) Dim(factor float64) Color {
	factor = clamp01(factor)
	return Color{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
	}
}

// Lerp interpolates linearly from a to b. t is clamped to [0, 1].
func Lerp(a, b Color, t float64) Color {
	t = clamp01(t)
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return Color{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B)}
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
