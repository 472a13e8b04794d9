// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/google/uuid"
)

// DefaultTitle is the title of a conversation that has not been named yet.
const DefaultTitle = "New Chat"

// InterruptedReason is recorded when a placeholder survives a restart.
const InterruptedReason = "interrupted before a response arrived"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat thread: identity, title and ordered messages.
type Conversation struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// NewConversation creates an empty conversation with a fresh ID and the
// default title.
func NewConversation() Conversation {
	return Conversation{
		ID:       NewConversationID(),
		Title:    DefaultTitle,
		Messages: make([]Message, 0),
	}
}

// NewConversationID returns a time-ordered unique identifier.
func NewConversationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// HasDefaultTitle reports whether the conversation still carries DefaultTitle.
func (c Conversation) HasDefaultTitle() bool {
	return c.Title == "" || c.Title == DefaultTitle
}

// DisplayTitle returns the title, or DefaultTitle if unset.
func (c Conversation) DisplayTitle() string {
	if c.Title == "" {
		return DefaultTitle
	}
	return c.Title
}

// LastMessage returns the final message and true, or false if empty.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// HasPending reports whether the conversation ends with a placeholder.
func (c Conversation) HasPending() bool {
	last, ok := c.LastMessage()
	return ok && last.IsPending()
}

// IsEmpty returns true if the conversation has no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// CloneAll deep-copies a slice of conversations.
func CloneAll(convs []Conversation) []Conversation {
	if convs == nil {
		return nil
	}
	out := make([]Conversation, len(convs))
	for i, c := range convs {
		out[i] = c.Clone()
	}
	return out
}

// RepairInterrupted replaces trailing placeholders left behind by a process
// that stopped mid-request with an error message. It returns the number of
// conversations repaired. The slice is modified in place.
func RepairInterrupted(convs []Conversation) int {
	repaired := 0
	for i := range convs {
		if !convs[i].HasPending() {
			continue
		}
		last := len(convs[i].Messages) - 1
		msg := NewErrorMessage(InterruptedReason)
		msg.Time = convs[i].Messages[last].Time
		convs[i].Messages[last] = msg
		repaired++
	}
	return repaired
}
