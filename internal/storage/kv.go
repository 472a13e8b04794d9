// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Default file names inside the data directory.
const (
	SQLiteFileName = "cache.db"
	JSONFileName   = "cache.json"
)

// Sentinel errors for storage operations.
var (
	ErrClosed         = errors.New("storage is closed")
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrCorrupt        = errors.New("stored data is corrupt")
)

// KV is a durable string key/value store.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)
	// Set stores a single value.
	Set(key, value string) error
	// SetMany stores several values atomically.
	SetMany(values map[string]string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Close releases the backend.
	Close() error
}

// Options selects and locates a backend.
type Options struct {
	Backend string
	Dir     string
}

// OpenKV opens the backend named in opts.
func OpenKV(opts Options) (KV, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	switch backend {
	case "", BackendSQLite:
		return OpenSQLite(filepath.Join(opts.Dir, SQLiteFileName))
	case BackendFile:
		return OpenFile(filepath.Join(opts.Dir, JSONFileName))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// CorruptError reports a stored value that could not be decoded.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("stored value %q is corrupt: %v", e.Key, e.Err)
}

// Is allows errors.Is(err, ErrCorrupt).
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}
