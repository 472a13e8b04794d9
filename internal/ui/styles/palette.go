// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// PALETTES
// =============================================================================

// Palette is a named set of seven accent colors, lightest first. The last two
// are a contrasting accent used for the assistant side of the conversation.
type Palette struct {
	Name   string
	Colors [7]lipgloss.Color
}

// Accent returns colors 1-7 by position.
func (p Palette) Accent(n int) lipgloss.Color {
	if n < 1 || n > len(p.Colors) {
		return p.Colors[0]
	}
	return p.Colors[n-1]
}

// DefaultPalette is used when nothing else has been chosen.
const DefaultPalette = "Red"

// AmoledPalette forces the true-black neutral set and dark mode.
const AmoledPalette = "Amoled"

func palette(name string, c ...string) Palette {
	p := Palette{Name: name}
	for i := range p.Colors {
		p.Colors[i] = lipgloss.Color(c[i])
	}
	return p
}

// palettes are listed in picker order.
var palettes = []Palette{
	palette("Green", "#94e8b4", "#72bda3", "#5e8c61", "#4e6151", "#3b322c", "#800000", "#f30000"),
	palette("Blue", "#6da5f8", "#3f5fa3", "#2c4f80", "#1e3759", "#0d1628", "#4e1818", "#ac3535"),
	palette("Amber", "#ffd48a", "#ffb74d", "#996515", "#5a3b0f", "#1a0e05", "#7fd7d0", "#a5e3de"),
	palette("Purple", "#e3c6ff", "#c19df0", "#9467bd", "#6a4c93", "#3e2c41", "#007373", "#00e9e9"),
	palette("Red", "#e07b7b", "#b94c4c", "#8b0000", "#5a0000", "#1a0a0a", "#008080", "#00f3f3"),
	palette("Teal", "#7fd7d0", "#40a8a0", "#006d65", "#004944", "#0a1c1b", "#666699", "#9494b8"),
	palette("Gray", "#e0e0e0", "#b0b0b0", "#4a4a4a", "#2c2c2c", "#121212", "#5c5c3d", "#9494b8"),
	palette("Amoled", "#eaff00", "#ffea00", "#ffbf00", "#fff7dc", "#000000", "#fff000", "#fff999"),
}

// PaletteNames returns the palette names in picker order.
func PaletteNames() []string {
	names := make([]string, len(palettes))
	for i, p := range palettes {
		names[i] = p.Name
	}
	return names
}

// LookupPalette finds a palette by name, ignoring case.
func LookupPalette(name string) (Palette, bool) {
	for _, p := range palettes {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Palette{}, false
}

// ResolvePalette returns the named palette, or DefaultPalette if unknown.
func ResolvePalette(name string) Palette {
	if p, ok := LookupPalette(name); ok {
		return p
	}
	p, _ := LookupPalette(DefaultPalette)
	return p
}

// NextPalette returns the palette after name in picker order, wrapping.
func NextPalette(name string) Palette {
	for i, p := range palettes {
		if strings.EqualFold(p.Name, name) {
			return palettes[(i+1)%len(palettes)]
		}
	}
	return palettes[0]
}

// =============================================================================
// MODE
// =============================================================================

// Mode is the light/dark preference.
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

// DefaultMode is used when nothing has been stored.
const DefaultMode = ModeLight

// ParseMode accepts "light" or "dark" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLight:
		return ModeLight, nil
	case ModeDark:
		return ModeDark, nil
	}
	return "", fmt.Errorf("unknown mode %q (want light or dark)", s)
}

// Toggle flips light and dark.
func (m Mode) Toggle() Mode {
	if m == ModeDark {
		return ModeLight
	}
	return ModeDark
}

// =============================================================================
// NEUTRALS
// =============================================================================

// NeutralSet holds the surface and text colors that sit under a palette.
type NeutralSet struct {
	Background   lipgloss.Color
	Surface1     lipgloss.Color
	Surface2     lipgloss.Color
	SurfaceHover lipgloss.Color
	Border       lipgloss.Color
	Text         lipgloss.Color
	TextMuted    lipgloss.Color
}

// gray renders hsl(0 0% pct%) as hex.
func gray(pct int) lipgloss.Color {
	v := (pct*255 + 50) / 100
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", v, v, v))
}

// Neutral sets keyed by name; "amoled" is only used with AmoledPalette.
var (
	LightNeutrals = NeutralSet{
		Background: gray(99), Surface1: gray(98), Surface2: gray(96),
		SurfaceHover: gray(94), Border: gray(85), Text: gray(10), TextMuted: gray(45),
	}
	DarkNeutrals = NeutralSet{
		Background: gray(8), Surface1: gray(12), Surface2: gray(16),
		SurfaceHover: gray(20), Border: gray(30), Text: gray(92), TextMuted: gray(70),
	}
	AmoledNeutrals = NeutralSet{
		Background: "#000000", Surface1: "#000000", Surface2: "#0a0a0a",
		SurfaceHover: "#111111", Border: "#222222", Text: "#000000", TextMuted: "#333333",
	}
)

// Neutrals picks the neutral set for a palette and mode.
func Neutrals(p Palette, m Mode) NeutralSet {
	switch {
	case p.Name == AmoledPalette:
		return AmoledNeutrals
	case m == ModeDark:
		return DarkNeutrals
	default:
		return LightNeutrals
	}
}
