// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the store, the
// persistence layer and the presentation layer.
//
// # Key Types
//
//   - Conversation: an identified, titled, ordered sequence of messages
//   - Message: a single turn with role, content, display time and status
//   - Status: Final, Pending (awaiting the assistant) or Error
//   - Role: message role enumeration (user, assistant, system)
//
// # Wire Format
//
// Conversations serialise as {"id","title","messages"} and messages as
// {"role","content","time"}. A pending message is written with the
// placeholder content "__TYPING__" so that other clients sharing the same
// cloud partition render it correctly; decoding maps it back to
// StatusPending. Nothing outside this package compares against the
// placeholder string.
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.Messages = append(conv.Messages,
//	    model.NewUserMessage("2+2?"),
//	    model.NewPendingMessage(),
//	)
//	req := model.ContextWindow(conv.Messages, 10)
package model
