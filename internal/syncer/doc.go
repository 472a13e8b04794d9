// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package syncer keeps the local cache and the cloud copy of the
// conversation list in step.
//
// Local writes are synchronous and happen on every mutation. Cloud writes
// are handed to a CloudWriter, a single background goroutine that debounces
// bursts of mutations, coalesces them so only the newest snapshot is sent,
// and keeps at most one save in flight. A failed cloud save is logged and
// dropped; the next mutation sends a fresh snapshot.
//
// On start-up LoadInitial prefers a non-empty cloud list, which then
// overwrites the local cache; otherwise it falls back to the local cache and
// pushes it to the cloud.
//
// # Key Types
//
//   - Coordinator: LoadInitial and Persist
//   - CloudWriter: debounced, coalescing, last-write-wins cloud saver
//   - Result: outcome of LoadInitial, including where the data came from
package syncer
