// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLogLevel maps a level name (debug, info, warn, warning, error) to a
// slog.Level. The empty string means info.
func ParseLogLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level '%s', must be one of: debug, info, warn, error", s)
	}
	return level, nil
}

// SetupLogger creates a logger writing JSON to logFile and, when console is
// non-nil, human-readable text to console as well. The TUI passes a nil
// console so log lines never land on the alternate screen.
//
// Returns the logger and a cleanup function that closes the file.
func SetupLogger(logFile string, level slog.Level, console io.Writer) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: level}
	noop := func() error { return nil }

	var consoleHandler slog.Handler
	if console != nil {
		consoleHandler = slog.NewTextHandler(console, opts)
	}

	file, err := openLogFile(logFile)
	if err != nil {
		if consoleHandler == nil {
			return slog.New(slog.NewTextHandler(io.Discard, opts)), noop
		}
		logger := slog.New(consoleHandler)
		logger.Error("failed to open log file, using console only", "error", err, "file", logFile)
		return logger, noop
	}

	fileHandler := slog.NewJSONHandler(file, opts)
	if consoleHandler == nil {
		return slog.New(fileHandler), file.Close
	}
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler)), file.Close
}

// SetupLoggerWithWriters creates a fanout logger over custom writers (for testing).
func SetupLoggerWithWriters(console, file io.Writer, level slog.Level) *slog.Logger {
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler))
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("no log file configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}
