// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the Worker credentials for the running process.
//
// The bearer token lives in memory only and is never written to disk; every
// new process must log in again. The username doubles as the durable user
// ID that partitions cloud storage, and it is kept in the local cache so the
// last user is remembered between runs.
//
// # Key Types
//
//   - Manager: credential holder (login, register, logout, auth headers)
//   - Authenticator: the Worker calls the manager needs
//   - UserIDStore: durable storage for the user ID
//   - Prompter: interactive credential source used by EnsureLogin
//
// # Usage
//
//	mgr := session.NewManager(workerClient, cache)
//	if err := mgr.EnsureLogin(ctx, prompter); err != nil {
//	    return err
//	}
//	headers := mgr.AuthHeaders(nil)
package session
