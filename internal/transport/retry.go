// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// Default retry settings.
const (
	DefaultMaxAttempts   = 5
	DefaultBaseDelay     = 250 * time.Millisecond
	DefaultJitterCeiling = 100 * time.Millisecond

	// drainLimit bounds how much of a discarded body is read so the
	// connection can be reused.
	drainLimit = 64 << 10
)

// ErrInvalidRequest is returned when a Request cannot be turned into an
// *http.Request.
var ErrInvalidRequest = errors.New("invalid request")

// =============================================================================
// POLICY
// =============================================================================

// Policy controls how many attempts Execute makes and how long it waits
// between them.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is doubled after every failed attempt.
	BaseDelay time.Duration
	// JitterCeiling is the upper bound of the uniform random delay added to
	// every backoff.
	JitterCeiling time.Duration
	// MaxDelay caps a single backoff. Zero means uncapped.
	MaxDelay time.Duration
	// IsRetryable classifies response statuses. Nil means DefaultRetryable.
	IsRetryable func(status int) bool
}

// DefaultPolicy returns the policy used for idempotent Worker calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   DefaultMaxAttempts,
		BaseDelay:     DefaultBaseDelay,
		JitterCeiling: DefaultJitterCeiling,
		IsRetryable:   DefaultRetryable,
	}
}

// SingleAttempt returns a policy that never retries.
func SingleAttempt() Policy {
	return Policy{MaxAttempts: 1, IsRetryable: DefaultRetryable}
}

// DefaultRetryable reports whether status is 429 or one of 500, 502, 503, 504.
func DefaultRetryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) retryable(status int) bool {
	if p.IsRetryable == nil {
		return DefaultRetryable(status)
	}
	return p.IsRetryable(status)
}

// Backoff returns the wait after failed attempt n (0-indexed):
// BaseDelay*2^n plus jitter, where jitter is in [0, JitterCeiling).
func (p Policy) Backoff(n int, jitter float64) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 30 {
		n = 30
	}
	d := p.BaseDelay * time.Duration(1<<uint(n))
	if p.JitterCeiling > 0 {
		d += time.Duration(jitter * float64(p.JitterCeiling))
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// =============================================================================
// ERRORS
// =============================================================================

// TransportError reports that no response was obtained after all attempts.
type TransportError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLIENT
// =============================================================================

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes a request independently of any single attempt so the body
// can be replayed.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Client executes Requests under a Policy.
type Client struct {
	doer   Doer
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewClient wraps doer. A nil doer uses http.DefaultClient.
func NewClient(doer Doer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		doer:   doer,
		logger: slog.Default(),
		sleep:  sleepContext,
		jitter: rand.Float64,
	}
}

// WithLogger sets the logger for per-attempt debug records.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithSleep replaces the backoff sleep. Intended for tests.
func (c *Client) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Client {
	if sleep != nil {
		c.sleep = sleep
	}
	return c
}

// WithJitter replaces the jitter source, which must return values in [0, 1).
func (c *Client) WithJitter(jitter func() float64) *Client {
	if jitter != nil {
		c.jitter = jitter
	}
	return c
}

// Execute sends req, retrying per policy. It returns the first response that
// is not retryable, or the last response once attempts are exhausted. The
// caller owns the returned body.
func (c *Client) Execute(ctx context.Context, req Request, policy Policy) (*http.Response, error) {
	attempts := policy.attempts()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		httpReq, err := c.build(ctx, req)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.doer.Do(httpReq)
		duration := time.Since(start)
		last := attempt == attempts-1

		if err != nil {
			// A cancelled context is final regardless of remaining budget.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			c.logger.Debug("request failed",
				"method", req.Method, "path", httpReq.URL.Path,
				"attempt", attempt+1, "duration", duration, "error", err)
		} else {
			c.logger.Debug("request completed",
				"method", req.Method, "path", httpReq.URL.Path,
				"attempt", attempt+1, "status", resp.StatusCode, "duration", duration)
			if last || !policy.retryable(resp.StatusCode) {
				return resp, nil
			}
			discard(resp)
		}

		if last {
			break
		}
		if err := c.sleep(ctx, policy.Backoff(attempt, c.jitter())); err != nil {
			return nil, err
		}
	}

	return nil, &TransportError{
		Method:   req.Method,
		URL:      req.URL,
		Attempts: attempts,
		Err:      lastErr,
	}
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	return httpReq, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
