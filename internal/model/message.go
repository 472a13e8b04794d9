// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status tags the lifecycle state of a message.
type Status int

const (
	// StatusFinal is a settled message: any user message, or a completed reply.
	StatusFinal Status = iota
	// StatusPending is the assistant placeholder shown while a reply is awaited.
	StatusPending
	// StatusError is an assistant message recording a failed completion.
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusError:
		return "error"
	default:
		return "final"
	}
}

// PendingPlaceholder is the wire representation of a pending message.
const PendingPlaceholder = "__TYPING__"

// ErrorPrefix prefixes the content of every error message.
const ErrorPrefix = "Error: "

// TimeLayout is the display format of Message.Time (hour:minute, then date).
const TimeLayout = "15:04\n02/01/2006"

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
	// Time is the creation time, preformatted for display. It is never parsed.
	Time   string
	Status Status
}

// NewMessage creates a final message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:    role,
		Content: content,
		Time:    FormatTime(time.Now()),
		Status:  StatusFinal,
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a completed assistant reply.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewPendingMessage creates the assistant placeholder for an in-flight request.
func NewPendingMessage() Message {
	m := NewMessage(RoleAssistant, "")
	m.Status = StatusPending
	return m
}

// NewErrorMessage creates an assistant message describing a failed completion.
func NewErrorMessage(reason string) Message {
	m := NewMessage(RoleAssistant, ErrorPrefix+reason)
	m.Status = StatusError
	return m
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// IsPending reports whether the message is an unresolved placeholder.
func (m Message) IsPending() bool {
	return m.Status == StatusPending
}

// IsError reports whether the message records a failed completion.
func (m Message) IsError() bool {
	return m.Status == StatusError
}

// IsUser returns true if this is a user message.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// Preview returns the first line of the content, truncated to maxLen runes.
func (m Message) Preview(maxLen int) string {
	if m.IsPending() {
		return "…"
	}
	line := m.Content
	if idx := strings.IndexAny(line, "\r\n"); idx >= 0 {
		line = line[:idx]
	}
	runes := []rune(line)
	if maxLen <= 0 || len(runes) <= maxLen {
		return line
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

type wireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Time    string `json:"time,omitempty"`
	Status  string `json:"status,omitempty"`
}

// MarshalJSON encodes the message in the shared cloud/local wire format.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{Role: m.Role, Content: m.Content, Time: m.Time}
	switch m.Status {
	case StatusPending:
		w.Content = PendingPlaceholder
	case StatusError:
		w.Status = StatusError.String()
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire format, recognising the pending placeholder.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	*m = Message{Role: w.Role, Content: w.Content, Time: w.Time, Status: StatusFinal}
	switch {
	case w.Content == PendingPlaceholder:
		m.Content = ""
		m.Status = StatusPending
	case w.Status == StatusError.String():
		m.Status = StatusError
	case w.Role == RoleAssistant && strings.HasPrefix(w.Content, ErrorPrefix):
		// Written by a client that does not emit the status field.
		m.Status = StatusError
	}
	return nil
}

// =============================================================================
// REQUEST CONTEXT
// =============================================================================

// ContextWindow returns a copy of the last n non-pending messages, in order.
// The input slice is never modified. n <= 0 keeps every non-pending message.
func ContextWindow(msgs []Message, n int) []Message {
	filtered := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsPending() {
			continue
		}
		filtered = append(filtered, m)
	}
	if n > 0 && len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}
