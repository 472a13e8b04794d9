// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Strikerman10/gptAPI/internal/worker"
)

// ErrAborted is returned by a Prompter when the user gives up.
var ErrAborted = errors.New("login aborted")

// Prompter collects credentials interactively.
type Prompter interface {
	// Credentials asks for a username and password.
	Credentials(ctx context.Context) (username, password string, err error)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, question string) (bool, error)
	// Notify shows a message to the user.
	Notify(msg string)
}

// EnsureLogin prompts until a login succeeds. When the Worker rejects the
// credentials the user is offered to register them and, on success, the
// same credentials are used to log in. A Prompter error ends the loop.
func (m *Manager) EnsureLogin(ctx context.Context, p Prompter) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		username, password, err := p.Credentials(ctx)
		if err != nil {
			return err
		}
		username = strings.TrimSpace(username)
		if username == "" || password == "" {
			p.Notify("Credentials required.")
			continue
		}

		err = m.Login(ctx, username, password)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !errors.Is(err, worker.ErrAuthFailed) {
			p.Notify(fmt.Sprintf("Login error: %v", err))
			continue
		}

		create, err := p.Confirm(ctx, "No account found or wrong password. Create this user now?")
		if err != nil {
			return err
		}
		if !create {
			continue
		}
		if err := m.Register(ctx, username, password); err != nil {
			p.Notify(fmt.Sprintf("Register failed: %v", err))
			continue
		}
		if err := m.Login(ctx, username, password); err != nil {
			p.Notify(fmt.Sprintf("Login error: %v", err))
			continue
		}
		return nil
	}
}
