// Package paint draws placed cloud items onto a surface and answers
// hit-tests against what was last drawn.
package paint

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Band is a score band.
type Band int

const (
	BandPoor Band = iota
	BandWarn
	BandGood
)

// Band thresholds on the 0-100 accuracy scale.
const (
	GoodThreshold = 80
	WarnThreshold = 60
)

// BandFor classifies an average score.
func BandFor(avg float64) Band {
	switch {
	case avg >= GoodThreshold:
		return BandGood
	case avg >= WarnThreshold:
		return BandWarn
	default:
		return BandPoor
	}
}

func (b Band) String() string {
	switch b {
	case BandGood:
		return "good"
	case BandWarn:
		return "warn"
	default:
		return "poor"
	}
}

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Palette holds the colors of one theme.
type Palette struct {
	Background colorful.Color
	Text       colorful.Color
	Good       colorful.Color
	Warn       colorful.Color
	Poor       colorful.Color
	Stroke     colorful.Color
}

var palettes = map[string]Palette{
	ThemeDark: {
		Background: mustHex("#14161b"),
		Text:       mustHex("#e6e6e6"),
		Good:       mustHex("#5fd38d"),
		Warn:       mustHex("#f2c94c"),
		Poor:       mustHex("#ef6461"),
		Stroke:     mustHex("#ffffff"),
	},
	ThemeLight: {
		Background: mustHex("#fafafa"),
		Text:       mustHex("#1d1f24"),
		Good:       mustHex("#2e8b57"),
		Warn:       mustHex("#b8860b"),
		Poor:       mustHex("#c0392b"),
		Stroke:     mustHex("#000000"),
	},
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(fmt.Sprintf("paint: bad color %q: %v", s, err))
	}
	return c
}

// PaletteFor returns the palette of a theme, falling back to dark.
func PaletteFor(theme string) Palette {
	if p, ok := palettes[theme]; ok {
		return p
	}
	return palettes[ThemeDark]
}

// Band returns the color of a band.
func (p Palette) Band(b Band) colorful.Color {
	switch b {
	case BandGood:
		return p.Good
	case BandWarn:
		return p.Warn
	default:
		return p.Poor
	}
}

// Dim pulls c toward the background.
func (p Palette) Dim(c colorful.Color) colorful.Color {
	return c.BlendLab(p.Background, 0.72).Clamped()
}

// Glow returns a soft halo color for c.
func (p Palette) Glow(c colorful.Color, strength float64) colorful.Color {
	return p.Background.BlendLab(c, clamp01(strength)).Clamped()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
