// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle drives a chat turn from user input to a settled reply.
//
// A turn moves a conversation IDLE -> SENDING -> DONE or ERROR:
//
//	Begin     append the user message and a pending placeholder, persist
//	Run       send the context window to the completion endpoint
//	Complete  replace the placeholder with the reply or an error, persist
//
// Begin and Complete mutate the store and must be called from the owner of
// UI state (the Bubble Tea update loop, or the REPL goroutine). Run performs
// network I/O and may run anywhere. Send and Retry chain the three for
// callers that can block.
//
// Each conversation carries a generation counter. A turn records the
// generation it started in, and Complete discards results whose
// conversation was deleted, reloaded or no longer ends in the placeholder.
//
// The Controller also handles the other user intents (new, delete, select,
// model change) so that every mutation is followed by a persist.
package lifecycle
