// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Strikerman10/gptAPI/internal/util"
)

// FileKV keeps every key in one JSON object on disk. Each write rewrites the
// file atomically.
type FileKV struct {
	mu     sync.Mutex
	path   string
	data   map[string]string
	closed bool
}

// OpenFile opens or creates the JSON store at path. An unreadable file is
// moved aside with a ".corrupt-<unix>" suffix and the store starts empty.
func OpenFile(path string) (*FileKV, error) {
	kv := &FileKV{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return kv, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return kv, nil
	}

	if err := json.Unmarshal(raw, &kv.data); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		slog.Warn("local cache file is corrupt, starting empty", "path", path, "moved_to", aside, "error", err)
		if renameErr := os.Rename(path, aside); renameErr != nil {
			return nil, fmt.Errorf("move corrupt cache aside: %w", renameErr)
		}
		kv.data = make(map[string]string)
	}
	return kv, nil
}

// Path returns the backing file path.
func (f *FileKV) Path() string {
	return f.path
}

// Get implements KV.
func (f *FileKV) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}
	v, ok := f.data[key]
	return v, ok, nil
}

// Set implements KV.
func (f *FileKV) Set(key, value string) error {
	return f.SetMany(map[string]string{key: value})
}

// SetMany implements KV. The file is only replaced once all values are
// applied, so readers never observe a partial update.
func (f *FileKV) SetMany(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	next := make(map[string]string, len(f.data)+len(values))
	for k, v := range f.data {
		next[k] = v
	}
	for k, v := range values {
		next[k] = v
	}
	if err := f.writeLocked(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// Delete implements KV.
func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if _, ok := f.data[key]; !ok {
		return nil
	}

	next := make(map[string]string, len(f.data))
	for k, v := range f.data {
		if k != key {
			next[k] = v
		}
	}
	if err := f.writeLocked(next); err != nil {
		return err
	}
	f.data = next
	return nil
}

// Close implements KV.
func (f *FileKV) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FileKV) writeLocked(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := util.AtomicWriteFile(f.path, raw, 0600); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
