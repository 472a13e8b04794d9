// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport performs HTTP requests with bounded, jittered
// exponential backoff.
//
// A retryable response (by default 429, 500, 502, 503, 504) is retried until
// the attempt budget is spent; the final response is then handed back as-is,
// not converted to an error, so callers decide how to treat the status.
// Network-level failures are retried the same way and surface as
// *TransportError once the budget is exhausted.
//
// # Usage
//
//	c := transport.NewClient(http.DefaultClient)
//	resp, err := c.Execute(ctx, transport.Request{
//	    Method: http.MethodPost,
//	    URL:    "https://worker.example/chat",
//	    Body:   payload,
//	}, transport.DefaultPolicy())
package transport
