// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Strikerman10/gptAPI/internal/worker"
)

// ErrEmptyCredentials is returned when a username or password is blank.
var ErrEmptyCredentials = errors.New("username and password are required")

// Authenticator performs the credential exchanges with the Worker.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) error
}

// UserIDStore persists the user ID across runs.
type UserIDStore interface {
	UserID() (string, error)
	SetUserID(id string) error
	ClearUserID() error
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager is the process-wide credential holder. It is safe for concurrent
// use.
type Manager struct {
	mu sync.RWMutex

	token     string
	expiresAt time.Time // zero when the token carries no expiry
	userID    string

	auth   Authenticator
	ids    UserIDStore
	now    func() time.Time
	logger *slog.Logger
}

// NewManager creates a manager. The remembered user ID is read from ids, if
// one is given; no token is held until Login succeeds.
func NewManager(auth Authenticator, ids UserIDStore) *Manager {
	m := &Manager{
		auth:   auth,
		ids:    ids,
		now:    time.Now,
		logger: slog.Default(),
	}
	if ids != nil {
		id, err := ids.UserID()
		if err != nil {
			m.logger.Warn("could not read remembered user id", "error", err)
		}
		m.userID = id
	}
	return m
}

// WithLogger sets the logger.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithClock replaces the time source used for token expiry.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// Login exchanges credentials for a token. On success the token is held in
// memory and username becomes the durable user ID.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrEmptyCredentials
	}
	if m.auth == nil {
		return errors.New("session has no authenticator")
	}

	token, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if token == "" {
		return &worker.AuthError{Err: worker.ErrNoToken}
	}

	expiresAt, _ := tokenExpiry(token)

	m.mu.Lock()
	m.token = token
	m.expiresAt = expiresAt
	m.userID = username
	m.mu.Unlock()

	if m.ids != nil {
		if err := m.ids.SetUserID(username); err != nil {
			m.logger.Warn("could not remember user id", "error", err)
		}
	}
	m.logger.Info("logged in", "user", username)
	return nil
}

// Register creates an account. It does not log in.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrEmptyCredentials
	}
	if m.auth == nil {
		return errors.New("session has no authenticator")
	}
	if err := m.auth.Register(ctx, username, password); err != nil {
		return err
	}
	m.logger.Info("registered", "user", username)
	return nil
}

// Logout drops the token and forgets the durable user ID.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.token = ""
	m.expiresAt = time.Time{}
	m.userID = ""
	m.mu.Unlock()

	if m.ids != nil {
		if err := m.ids.ClearUserID(); err != nil {
			return fmt.Errorf("forget user id: %w", err)
		}
	}
	return nil
}

// CurrentUserID returns the durable user ID, which may be set while no token
// is held.
func (m *Manager) CurrentUserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

// Token returns the bearer token, or "" if none is held or it has expired.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.validLocked() {
		return ""
	}
	return m.token
}

// IsAuthenticated reports whether a usable token is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validLocked()
}

// ExpiresAt returns the token expiry, if the token declares one.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expiresAt, !m.expiresAt.IsZero()
}

// AuthHeaders returns a copy of extra with the bearer Authorization header
// added when a token is held. Without a token the copy is returned as-is.
func (m *Manager) AuthHeaders(extra http.Header) http.Header {
	h := extra.Clone()
	if h == nil {
		h = http.Header{}
	}
	if token := m.Token(); token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func (m *Manager) validLocked() bool {
	if m.token == "" {
		return false
	}
	return m.expiresAt.IsZero() || m.now().Before(m.expiresAt)
}

// tokenExpiry reads the exp claim of a JWT without verifying its signature.
// The Worker is the only party that verifies tokens; the client uses the
// claim to notice an expired session early. Opaque tokens report false.
func tokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
