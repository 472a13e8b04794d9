// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across gptapi.
//
// # Key Functions
//
// String Utilities:
//   - Truncate: rune-aware truncation with a trailing ellipsis
//   - TruncateWidth: display-width truncation (CJK and emoji aware)
//   - FirstLine: text up to the first line break
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - ExpandHome: resolve a leading "~" to the user's home directory
//
// # Usage
//
//	title := util.Truncate(util.FirstLine(text), 40)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
