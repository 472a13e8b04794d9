// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// UNICODE: all truncation counts runes or cells, never bytes, so multi-byte
// characters are never split.

// Truncate shortens s to at most maxRunes runes. When s is longer, the result
// is the first maxRunes-1 runes followed by Ellipsis, so the total rune count
// including the marker never exceeds maxRunes.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes == 1 {
		return Ellipsis
	}
	return string(runes[:maxRunes-1]) + Ellipsis
}

// TruncateWidth shortens s to at most maxWidth terminal cells, appending
// Ellipsis when anything was cut. Wide characters count as two cells.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// FirstLine returns s up to, not including, the first line break.
func FirstLine(s string) string {
	if idx := strings.IndexAny(s, "\r\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
