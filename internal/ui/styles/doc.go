// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the gptapi TUI.

# Palettes (palette.go)

Eight named palettes of seven accent colors each, lightest first:

	Green, Blue, Amber, Purple, Red, Teal, Gray, Amoled

Each palette sits on a neutral set (background, two surfaces, hover, border,
text, muted text) chosen by the light/dark Mode. The Amoled palette always
uses the true-black neutral set and renders dark.

# Theme System (theme.go)

	theme := styles.NewTheme("Teal", styles.ModeDark)
	header := theme.HeaderTitle.Render("New Chat")

The palette and mode picked in the TUI are remembered in the local cache under
the "palette" and "mode" keys and default to Red / light.
*/
package styles
