// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory list of conversations and the active
// conversation ID.
//
// The store performs no I/O. Conversations are kept in recency order: the
// front of the list is the most recently created or selected conversation.
// The active ID always names a conversation in the list, or is empty when
// the list is empty.
//
// # Key Types
//
//   - Store: mutex-guarded conversation list with active-ID tracking
//   - NotFoundError: returned for operations on unknown conversation IDs
//
// # Usage
//
//	s := store.New()
//	conv := s.Create()
//	_ = s.Append(conv.ID, model.NewUserMessage("hello"))
//	convs, active := s.Snapshot()
package store
