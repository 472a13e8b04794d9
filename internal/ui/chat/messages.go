// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/Strikerman10/gptAPI/internal/config"
	"github.com/Strikerman10/gptAPI/internal/lifecycle"
	"github.com/Strikerman10/gptAPI/internal/syncer"
)

// =============================================================================
// LOAD
// =============================================================================

// loadedMsg carries the outcome of the initial conversation load.
type loadedMsg struct {
	result syncer.Result
	err    error
}

// =============================================================================
// TURNS
// =============================================================================

// turnResultMsg carries the completion for a turn started earlier.
type turnResultMsg struct {
	turn    *lifecycle.Turn
	content string
	err     error
}

// =============================================================================
// CONFIG
// =============================================================================

// ConfigChangedMsg is sent by the program owner when the config file changes
// on disk.
type ConfigChangedMsg struct {
	Config *config.Config
}

// StatusMsg shows a line in the status bar.
type StatusMsg struct {
	Text  string
	Error bool
}
