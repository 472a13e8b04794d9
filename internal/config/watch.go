// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle collapses the burst of events an editor produces on save.
const watchSettle = 150 * time.Millisecond

// Watch reloads path whenever it is written or replaced and hands the result
// to onChange. Reload failures go to onError (which may be nil) and the
// previous configuration stays in effect.
//
// The parent directory is watched rather than the file itself so that
// editors which save by renaming a temp file over the original keep working.
// Watch returns once the watcher is installed; it stops when ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	report := func(err error) {
		if onError != nil {
			onError(err)
		}
	}

	go func() {
		defer w.Close()

		timer := time.NewTimer(watchSettle)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				timer.Reset(watchSettle)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				report(fmt.Errorf("config watcher: %w", err))

			case <-timer.C:
				cfg, err := LoadFromPath(target)
				if err != nil {
					report(err)
					continue
				}
				onChange(cfg)
			}
		}
	}()

	return nil
}
