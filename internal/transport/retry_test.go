// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSleeps returns a sleep func that records delays without waiting.
func recordSleeps(out *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*out = append(*out, d)
		return ctx.Err()
	}
}

func newTestClient(sleeps *[]time.Duration) *Client {
	return NewClient(http.DefaultClient).
		WithSleep(recordSleeps(sleeps)).
		WithJitter(func() float64 { return 0 })
}

func TestExecute_ReturnsExhaustedRetryableResponse(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var sleeps []time.Duration
	c := newTestClient(&sleeps)
	policy := Policy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond}

	resp, err := c.Execute(context.Background(), Request{Method: http.MethodGet, URL: server.URL}, policy)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, sleeps)
}

func TestExecute_NonRetryableReturnedImmediately(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	var sleeps []time.Duration
	resp, err := newTestClient(&sleeps).Execute(context.Background(),
		Request{Method: http.MethodGet, URL: server.URL}, DefaultPolicy())
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeps)
}

func TestExecute_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"x":1}` {
			t.Errorf("attempt %d body = %q", calls.Load()+1, body)
		}
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("header not replayed")
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var sleeps []time.Duration
	resp, err := newTestClient(&sleeps).Execute(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Header: http.Header{"X-Test": {"yes"}},
		Body:   []byte(`{"x":1}`),
	}, DefaultPolicy())
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, sleeps, 2)
}

type failingDoer struct {
	calls int
	err   error
}

func (d *failingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return nil, d.err
}

func TestExecute_TransportErrorAfterExhaustion(t *testing.T) {
	cause := errors.New("connection refused")
	doer := &failingDoer{err: cause}

	var sleeps []time.Duration
	c := NewClient(doer).WithSleep(recordSleeps(&sleeps))

	_, err := c.Execute(context.Background(),
		Request{Method: http.MethodGet, URL: "http://worker.invalid/load"},
		Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, te.Attempts)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, doer.calls)
	assert.Len(t, sleeps, 2)
}

func TestExecute_ContextCancelledDuringBackoff(t *testing.T) {
	doer := &failingDoer{err: errors.New("reset")}
	ctx, cancel := context.WithCancel(context.Background())

	c := NewClient(doer).WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	_, err := c.Execute(ctx, Request{Method: http.MethodGet, URL: "http://worker.invalid"}, DefaultPolicy())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, doer.calls)
}

func TestExecute_InvalidRequest(t *testing.T) {
	_, err := NewClient(nil).Execute(context.Background(),
		Request{Method: "BAD METHOD", URL: "://"}, DefaultPolicy())
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBackoff(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, JitterCeiling: 50 * time.Millisecond}

	tests := []struct {
		n      int
		jitter float64
		want   time.Duration
	}{
		{0, 0, 100 * time.Millisecond},
		{1, 0, 200 * time.Millisecond},
		{2, 0, 400 * time.Millisecond},
		{0, 0.5, 125 * time.Millisecond},
		{3, 0.25, 800*time.Millisecond + 12500*time.Microsecond},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.n, tt.jitter); got != tt.want {
			t.Errorf("Backoff(%d, %v) = %v, want %v", tt.n, tt.jitter, got, tt.want)
		}
	}

	p.MaxDelay = 300 * time.Millisecond
	if got := p.Backoff(5, 0); got != 300*time.Millisecond {
		t.Errorf("capped Backoff = %v", got)
	}
}

func TestDefaultRetryable(t *testing.T) {
	for _, s := range []int{429, 500, 502, 503, 504} {
		assert.True(t, DefaultRetryable(s), "%d", s)
	}
	for _, s := range []int{200, 400, 401, 404, 501} {
		assert.False(t, DefaultRetryable(s), "%d", s)
	}
}

func TestSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var sleeps []time.Duration
	resp, err := newTestClient(&sleeps).Execute(context.Background(),
		Request{Method: http.MethodPost, URL: server.URL}, SingleAttempt())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(1), calls.Load())
}
