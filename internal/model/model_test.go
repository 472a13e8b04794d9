// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	a := NewConversation()
	b := NewConversation()

	assert.Equal(t, DefaultTitle, a.Title)
	assert.True(t, a.HasDefaultTitle())
	assert.Empty(t, a.Messages)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2025, time.March, 7, 9, 5, 0, 0, time.UTC)
	assert.Equal(t, "09:05\n07/03/2025", FormatTime(ts))
}

func TestMessageConstructors(t *testing.T) {
	p := NewPendingMessage()
	assert.True(t, p.IsPending())
	assert.Equal(t, RoleAssistant, p.Role)

	e := NewErrorMessage("Worker returned 503")
	assert.True(t, e.IsError())
	assert.Equal(t, "Error: Worker returned 503", e.Content)

	u := NewUserMessage("hi")
	assert.Equal(t, StatusFinal, u.Status)
	assert.True(t, u.IsUser())
}

func TestMessageJSON_PendingUsesPlaceholder(t *testing.T) {
	data, err := json.Marshal(NewPendingMessage())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"content":"__TYPING__"`)

	var back Message
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IsPending())
	assert.Empty(t, back.Content)
}

func TestMessageJSON_ErrorStatus(t *testing.T) {
	data, err := json.Marshal(NewErrorMessage("boom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"error"`)

	var back Message
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IsError())
	assert.Equal(t, "Error: boom", back.Content)
}

func TestMessageJSON_LegacyErrorWithoutStatus(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":"Error: offline","time":"x"}`), &m))
	assert.True(t, m.IsError())

	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"Error: is this a user typo"}`), &m))
	assert.False(t, m.IsError())
}

func TestConversationJSON_Shape(t *testing.T) {
	conv := Conversation{ID: "1", Title: "2+2?", Messages: []Message{
		{Role: RoleUser, Content: "2+2?", Time: "10:00\n01/01/2025"},
		{Role: RoleAssistant, Content: "4", Time: "10:00\n01/01/2025"},
	}}
	data, err := json.Marshal(conv)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","title":"2+2?","messages":[
		{"role":"user","content":"2+2?","time":"10:00\n01/01/2025"},
		{"role":"assistant","content":"4","time":"10:00\n01/01/2025"}]}`, string(data))
}

func TestContextWindow(t *testing.T) {
	var msgs []Message
	for i := 0; i < 15; i++ {
		msgs = append(msgs, NewUserMessage(strings.Repeat("x", i+1)))
	}
	msgs = append(msgs, NewPendingMessage())

	got := ContextWindow(msgs, 10)
	require.Len(t, got, 10)
	for _, m := range got {
		assert.False(t, m.IsPending())
	}
	assert.Equal(t, strings.Repeat("x", 6), got[0].Content)
	assert.Equal(t, strings.Repeat("x", 15), got[9].Content)
	assert.Len(t, msgs, 16, "input must not be modified")
}

func TestContextWindow_FewerThanN(t *testing.T) {
	msgs := []Message{NewUserMessage("a"), NewPendingMessage()}
	got := ContextWindow(msgs, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Content)
}

func TestRepairInterrupted(t *testing.T) {
	convs := []Conversation{
		{ID: "a", Messages: []Message{NewUserMessage("q"), NewPendingMessage()}},
		{ID: "b", Messages: []Message{NewUserMessage("q"), NewAssistantMessage("a")}},
		{ID: "c"},
	}
	assert.Equal(t, 1, RepairInterrupted(convs))
	last, _ := convs[0].LastMessage()
	assert.True(t, last.IsError())
	assert.Equal(t, ErrorPrefix+InterruptedReason, last.Content)
	assert.False(t, convs[1].HasPending())
}

func TestClone_IsDeep(t *testing.T) {
	orig := Conversation{ID: "x", Messages: []Message{NewUserMessage("a")}}
	cp := orig.Clone()
	cp.Messages[0].Content = "changed"
	assert.Equal(t, "a", orig.Messages[0].Content)
}

func TestPreview(t *testing.T) {
	tests := []struct {
		content string
		max     int
		want    string
	}{
		{"short", 10, "short"},
		{"first line\nsecond", 20, "first line"},
		{"abcdefghij", 5, "abcd…"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		got := NewUserMessage(tt.content).Preview(tt.max)
		if got != tt.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tt.content, tt.max, got, tt.want)
		}
	}
}
