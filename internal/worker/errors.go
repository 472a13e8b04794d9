// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Strikerman10/gptAPI/internal/util"
)

// maxErrorMessage bounds how much of an error body is kept, in runes.
const maxErrorMessage = 200

// Error variables for common Worker failures.
var (
	// ErrNotAuthenticated indicates a call that needs a token was made without one.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrAuthFailed is matched by every *AuthError.
	ErrAuthFailed = errors.New("login failed")

	// ErrNoToken indicates a 2xx login response without a token.
	ErrNoToken = errors.New("no token received")

	// ErrRemoteStatus is matched by every *RemoteStatusError.
	ErrRemoteStatus = errors.New("worker returned an error status")
)

// AuthError reports a rejected login.
type AuthError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("login failed: %s", e.Message)
	}
	if e.Err != nil && !errors.Is(e.Err, ErrAuthFailed) {
		return fmt.Sprintf("login failed: %v", e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("login failed: status %d", e.Status)
	}
	return "login failed"
}

// Is allows errors.Is(err, ErrAuthFailed).
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailed
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RemoteStatusError reports a non-2xx response from an endpoint.
type RemoteStatusError struct {
	Endpoint string
	Status   int
	Message  string
}

// Error renders as "Worker returned <status>", optionally followed by the
// message the Worker sent. This string is shown inline in conversations.
func (e *RemoteStatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Worker returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("Worker returned %d", e.Status)
}

// Is allows errors.Is(err, ErrRemoteStatus).
func (e *RemoteStatusError) Is(target error) bool {
	return target == ErrRemoteStatus
}

// errorBody extracts a human-readable message from an error response. The
// Worker replies either {"error": "..."} or plain text.
func errorBody(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return util.Truncate(strings.TrimSpace(string(body)), maxErrorMessage)
}
