// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the gptapi command tree.
//
// Every subcommand shares one runtime: the loaded configuration and the
// slog logger. Commands that change conversations open the full App (local
// cache, Worker client, session, sync coordinator and controller) and close
// it on the way out, which flushes the last cloud write. Read-only commands
// (list, show, export) use the local cache alone and never sign in.
//
// # Key Types
//
//   - App: The wired application
//   - ChatCLI: liner-backed input with persistent history
//   - UsageError: Marks bad flags, arguments or configuration
//
// # Commands
//
//   - (none), tui: Full-screen chat
//   - chat: Line-mode chat with slash commands
//   - register, login, logout, whoami: Account
//   - list, show, export, import, delete: Conversations
//   - theme, config, version: Settings and information
//
// # Usage
//
//	func main() {
//		os.Exit(cli.Execute())
//	}
package cli
