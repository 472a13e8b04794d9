// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Strikerman10/gptAPI/internal/util"
)

// DefaultTitleLength is the maximum title length in runes.
const DefaultTitleLength = 40

// DeriveTitle builds a conversation title from the first line of text.
// The result is NFC-normalised and at most maxLen runes long, ellipsis
// included. An empty result means the text carries no usable title.
func DeriveTitle(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTitleLength
	}
	line := strings.TrimSpace(util.FirstLine(norm.NFC.String(text)))
	return util.Truncate(line, maxLen)
}
