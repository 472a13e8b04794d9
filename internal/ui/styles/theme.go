// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Fixed semantic colors. High contrast in both modes regardless of palette.
var (
	ErrorColor   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}
	SuccessColor = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"}
	WarningColor = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}
)

// StatusIndicators are ASCII markers shown next to colored status text so the
// state is readable without color.
var StatusIndicators = struct {
	Success string
	Error   string
	Warning string
	Pending string
	Active  string
}{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Pending: "[ ]",
	Active:  "[*]",
}

// TypingSpinner animates the pending reply.
var TypingSpinner = spinner.Spinner{
	Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	FPS:    80 * time.Millisecond,
}

// Theme holds all the styled components for the application.
type Theme struct {
	Palette  Palette
	Mode     Mode
	Neutrals NeutralSet
	IsDark   bool

	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// FRAME
	// ==========================================================================

	App         lipgloss.Style
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar           lipgloss.Style
	SidebarHeading    lipgloss.Style
	SidebarItem       lipgloss.Style
	SidebarItemActive lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	MessageTime     lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	ErrorBubble     lipgloss.Style
	PendingText     lipgloss.Style
	Spinner         lipgloss.Style
	EmptyState      lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS BAR
	// ==========================================================================

	Input        lipgloss.Style
	InputFocused lipgloss.Style
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// STATUS
	// ==========================================================================

	ErrorStyle   lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	Muted        lipgloss.Style
}

// NewTheme builds a theme for the named palette and mode. Unknown palette
// names fall back to DefaultPalette; the Amoled palette always renders dark.
func NewTheme(paletteName string, mode Mode) *Theme {
	p := ResolvePalette(paletteName)
	if mode != ModeDark {
		mode = ModeLight
	}
	t := &Theme{
		Palette:      p,
		Mode:         mode,
		Neutrals:     Neutrals(p, mode),
		IsDark:       mode == ModeDark || p.Name == AmoledPalette,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// DetectMode reports the terminal's background as a Mode.
func DetectMode() Mode {
	if termenv.HasDarkBackground() {
		return ModeDark
	}
	return ModeLight
}

// GlamourStyle names the glamour standard style that matches the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// textColor is the body text color. The amoled neutral set keeps text black
// for the browser stylesheet; on a terminal the palette's pale tone is used.
func (t *Theme) textColor() lipgloss.Color {
	if t.Palette.Name == AmoledPalette {
		return t.Palette.Accent(4)
	}
	return t.Neutrals.Text
}

func (t *Theme) mutedColor() lipgloss.Color {
	if t.Palette.Name == AmoledPalette {
		return t.Palette.Accent(3)
	}
	return t.Neutrals.TextMuted
}

// accent is the strongest readable palette tone for foreground use.
func (t *Theme) accent() lipgloss.Color {
	if t.IsDark {
		return t.Palette.Accent(1)
	}
	return t.Palette.Accent(3)
}

func (t *Theme) contrast() lipgloss.Color {
	if t.IsDark {
		return t.Palette.Accent(7)
	}
	return t.Palette.Accent(6)
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	n := t.Neutrals
	text := t.textColor()
	muted := t.mutedColor()
	accent := t.accent()
	contrast := t.contrast()

	t.App = lipgloss.NewStyle().Foreground(text)

	t.Header = lipgloss.NewStyle().
		Background(n.Surface1).
		Foreground(text).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(n.Border).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(accent)

	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(muted).
		Italic(true)

	t.Sidebar = lipgloss.NewStyle().
		Background(n.Surface2).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(n.Border).
		Padding(0, 1)

	t.SidebarHeading = lipgloss.NewStyle().
		Bold(true).
		Foreground(accent).
		MarginBottom(1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(text)

	t.SidebarItemActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Palette.Accent(5)).
		Background(t.Palette.Accent(2))

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(accent)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(contrast)

	t.MessageTime = lipgloss.NewStyle().
		Foreground(muted)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(text).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Palette.Accent(2)).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(text).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(n.Border).
		Padding(0, 1).
		MarginRight(4)

	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(ErrorColor).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ErrorColor).
		Padding(0, 1).
		MarginRight(4)

	t.PendingText = lipgloss.NewStyle().
		Foreground(muted).
		Italic(true)

	t.Spinner = lipgloss.NewStyle().
		Foreground(t.Palette.Accent(2))

	t.EmptyState = lipgloss.NewStyle().
		Foreground(muted).
		Italic(true).
		Padding(1, 2)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(n.Border).
		Padding(0, 1)

	t.InputFocused = t.Input.
		BorderForeground(t.Palette.Accent(2))

	t.StatusBar = lipgloss.NewStyle().
		Background(n.Surface1).
		Foreground(muted).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(accent)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(muted)

	t.ErrorStyle = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)

	t.SuccessStyle = lipgloss.NewStyle().
		Foreground(SuccessColor).
		Bold(true)

	t.WarningStyle = lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)

	t.Muted = lipgloss.NewStyle().
		Foreground(muted)
}

// RenderError renders an error line with its ASCII marker.
func (t *Theme) RenderError(message string) string {
	return t.ErrorStyle.Render(StatusIndicators.Error + " " + message)
}

// RenderSuccess renders a success line with its ASCII marker.
func (t *Theme) RenderSuccess(message string) string {
	return t.SuccessStyle.Render(StatusIndicators.Success + " " + message)
}

// RenderWarning renders a warning line with its ASCII marker.
func (t *Theme) RenderWarning(message string) string {
	return t.WarningStyle.Render(StatusIndicators.Warning + " " + message)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// SidebarWidth is the sidebar column count for the current layout. Narrow
// terminals hide the sidebar.
func (t *Theme) SidebarWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return 0
	case LayoutMedium:
		return 24
	default:
		return 32
	}
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
