// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	"github.com/Strikerman10/gptAPI/internal/session"
	"github.com/Strikerman10/gptAPI/internal/worker"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid usage or configuration
	ExitUsageError = 2
	// ExitAuthError indicates a failed or aborted login
	ExitAuthError = 3
	// ExitCancelled indicates the user or a signal interrupted the command
	ExitCancelled = 130
)

// UsageError marks errors caused by bad flags, arguments or configuration.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.Is(err, session.ErrAborted), errors.Is(err, worker.ErrAuthFailed),
		errors.Is(err, worker.ErrNotAuthenticated):
		return ExitAuthError
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	default:
		return ExitGeneralError
	}
}
