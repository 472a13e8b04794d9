// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading, logging setup and live
// reload for gptapi.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - WorkerConfig: Worker API endpoint and timeout
//   - RetryConfig / SyncConfig: network pacing
//   - ValidateErrors: every problem found by Validate
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GPTAPI_*)
//   - ~/.gptapi/config.toml
//   - ~/.gptapi/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration and set up logging:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	level, _ := config.ParseLogLevel(cfg.Log.Level)
//	path, _ := cfg.LogPath()
//	logger, closeLog := config.SetupLogger(path, level, os.Stderr)
//	defer closeLog()
//
// Follow edits to the file:
//
//	config.Watch(ctx, path, func(c *config.Config) { ... }, nil)
package config
