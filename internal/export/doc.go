// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations to files.
//
// # Key Types
//
//   - Exporter: Main export interface
//   - Options: Export configuration options
//
// # Supported Formats
//
//   - JSON: The cloud/cache wire format, readable again with DecodeJSON
//   - Markdown: Human-readable with YAML front matter
//   - YAML: Structured, with literal blocks for multi-line replies
//
// # Usage
//
//	exporter, err := export.New("markdown", nil)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(conv, exporter, &export.Options{OutputDir: "."})
package export
