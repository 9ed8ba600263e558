// SPDX-License-Identifier: MIT
package choreo

import (
	"fmt"
	"strings"
)

// Style biases effect selection toward a genre's look.
type Style uint8

const (
	StyleHouse Style = iota
	StyleEDM
	StyleHipHop
	StyleChill
	styleCount
)

var styleNames = [styleCount]string{"House", "EDM", "Hip-Hop", "Chill"}

func (s Style) String() string {
	if s < styleCount {
		return styleNames[s]
	}
	return fmt.Sprintf("Style(%d)", uint8(s))
}

// ParseStyle matches a style name case-insensitively. "hiphop" and "hip hop"
// are accepted for Hip-Hop. An empty name selects House.
func ParseStyle(name string) (Style, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "", " ", "", "_", "").Replace(key)
	switch key {
	case "", "house":
		return StyleHouse, nil
	case "edm":
		return StyleEDM, nil
	case "hiphop":
		return StyleHipHop, nil
	case "chill":
		return StyleChill, nil
	default:
		return StyleHouse, fmt.Errorf("unknown style: '%s'", name)
	}
}

// StyleNames lists the styles in display order.
func StyleNames() []string {
	return append([]string(nil), styleNames[:]...)
}

// styleBoosts multiplies base effect weights. Effects not listed keep 1.
var styleBoosts = [styleCount]map[Effect]float64{
	StyleHouse: {
		ABAlternate: 1.3, BeatCycle: 1.2,
		ColorWash: 1.3, SoftPulse: 1.2,
	},
	StyleEDM: {
		StrobeRamp: 1.5, DownbeatBlast: 1.4,
		BlackoutBlast: 1.4, StrobeSplit: 1.3,
	},
	StyleHipHop: {
		SingleSpot: 1.4, BeatCycle: 1.3,
		ABChase: 1.2, DownbeatBlast: 1.2,
	},
	StyleChill: {
		ColorWash: 1.5, SoftPulse: 1.4,
		SlowBreathe: 1.3, FadeWalk: 1.4,
		StrobeRamp: 0.5, DropStrobe: 0.5,
	},
}

func (s Style) boost(e Effect) float64 {
	if s >= styleCount {
		return 1
	}
	if b, ok := styleBoosts[s][e]; ok {
		return b
	}
	return 1
}
