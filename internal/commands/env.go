// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Strikerman10/gptAPI/internal/lifecycle"
	"github.com/Strikerman10/gptAPI/internal/model"
)

// Session is the part of the session manager commands can see.
type Session interface {
	CurrentUserID() string
	IsAuthenticated() bool
	Logout() error
}

// Appearance switches palette and mode.
type Appearance interface {
	Current() (palette, mode string)
	SetPalette(name string) error
	SetMode(mode string) error
}

// Env is everything a command can act on. Session and Appearance may be nil.
type Env struct {
	Controller *lifecycle.Controller
	Session    Session
	Appearance Appearance

	// ExportDir is where /export writes files when no directory is given.
	ExportDir string
}

// Result tells the caller what to do after a command ran.
type Result struct {
	// Output is shown to the user.
	Output string

	// Turn, when set, has been begun and must be run and completed.
	Turn *lifecycle.Turn

	// Quit asks the caller to exit.
	Quit bool
}

// ErrNoConversation is returned when a command needs an active conversation.
var ErrNoConversation = errors.New("no active conversation")

// ResolveConversation finds a conversation by 1-based list position, full ID
// or unique ID prefix.
func ResolveConversation(convs []model.Conversation, ref string) (model.Conversation, error) {
	ref = strings.TrimSpace(ref)

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(convs) {
			return model.Conversation{}, fmt.Errorf("no conversation #%d (have %d)", n, len(convs))
		}
		return convs[n-1], nil
	}

	var match []model.Conversation
	for _, c := range convs {
		if c.ID == ref {
			return c, nil
		}
		if ref != "" && strings.HasPrefix(c.ID, ref) {
			match = append(match, c)
		}
	}
	switch len(match) {
	case 0:
		return model.Conversation{}, fmt.Errorf("no conversation matches %q", ref)
	case 1:
		return match[0], nil
	default:
		return model.Conversation{}, fmt.Errorf("%q matches %d conversations", ref, len(match))
	}
}

// FormatConversationList renders one numbered line per conversation, marking
// the active one with '*'.
func FormatConversationList(convs []model.Conversation, activeID string) string {
	if len(convs) == 0 {
		return "No conversations yet."
	}
	var b strings.Builder
	for i, c := range convs {
		marker := " "
		if c.ID == activeID {
			marker = "*"
		}
		suffix := ""
		if c.HasPending() {
			suffix = " (waiting)"
		}
		fmt.Fprintf(&b, "%s%3d  %s  [%d msgs]%s\n", marker, i+1, c.DisplayTitle(), len(c.Messages), suffix)
	}
	return strings.TrimRight(b.String(), "\n")
}
