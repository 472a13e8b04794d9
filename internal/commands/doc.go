// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash commands shared by the TUI and the
// line-mode chat.
//
// Input starting with "/" is parsed, matched against the registry by name
// or alias, validated and handed to the command's handler together with an
// Env carrying the conversation controller and, when available, the session
// and theme preferences. Handlers never block on the network: a command
// that starts a reply (/retry) returns the begun Turn and the caller runs
// it the same way it runs an ordinary message.
//
// # Key Types
//
//   - Registry: Command registry with all available commands
//   - Env: What a handler may act on
//   - Result: Output, an optional Turn to run, and a quit flag
//   - Completer: Tab completion for commands and arguments
//
// # Built-in Commands
//
//   - /new, /list, /switch, /delete, /rename: Conversation management
//   - /retry: Regenerate the last reply
//   - /export: Write the active conversation to markdown, JSON or YAML
//   - /model, /palette, /mode: Settings
//   - /whoami, /logout: Account
//
// # Usage
//
//	reg := commands.NewRegistry()
//	res, err := reg.Execute(ctx, env, "/switch 2")
//	if errors.Is(err, commands.ErrNotCommand) {
//		// ordinary message
//	}
package commands
