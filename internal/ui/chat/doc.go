// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat interface.
//
// The model is a thin view over lifecycle.Controller: every key that changes
// state calls an intent on the controller, and the screen is re-rendered from
// the store afterwards. Completions run as Bubble Tea commands so the UI keeps
// animating the pending placeholder while the reply is awaited; the result
// comes back as a message and is settled with Controller.Complete, which
// drops replies for conversations that were deleted or replaced meanwhile.
//
// # Key Types
//
//   - Model: Bubble Tea model (sidebar, message pane, input, status bar)
//   - Options: Controller, theme preferences, command registry, loader
//   - KeyMap: Key bindings, also used for the help line
//   - ConfigChangedMsg: Sent by the owner when the config file changes
//
// # Usage
//
//	m := chat.New(chat.Options{Controller: ctrl, Prefs: prefs, Loader: load})
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	_, err := p.Run()
package chat
