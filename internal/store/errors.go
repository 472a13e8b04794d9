// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
var (
	ErrNotFound          = errors.New("conversation not found")
	ErrEmptyConversation = errors.New("conversation has no messages")
	ErrIndexOutOfRange   = errors.New("message index out of range")
)

// NotFoundError reports an operation on an unknown conversation ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("conversation %q not found", e.ID)
}

// Is allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
