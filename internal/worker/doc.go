// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package worker provides the client for the remote chat Worker API.
//
// The Worker exposes five JSON endpoints:
//
//	POST /register  {username, password}
//	POST /login     {username, password}          -> {token}
//	GET  /load?userId=<id>                        -> [Conversation]
//	POST /save      {userId, chats}
//	POST /chat      {model, messages:[{role, content}]}
//	                -> {choices:[{message:{content}}]}
//
// Every call except register and login carries the bearer token supplied by
// an Authorizer. Calls go through a transport.Client so transient failures
// (429 and 5xx) are retried with backoff; registration is sent once.
//
// # Errors
//
//   - *AuthError: login rejected, or no token in the response
//   - *RemoteStatusError: any other non-2xx response
//   - *transport.TransportError: no response at all
//   - ErrNotAuthenticated: an authenticated call was attempted without a token
package worker
