// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package worker_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/transport"
	"github.com/Strikerman10/gptAPI/internal/worker"
	"github.com/Strikerman10/gptAPI/internal/worker/workertest"
)

type staticAuth struct{ token string }

func (a staticAuth) AuthHeaders(extra http.Header) http.Header {
	h := extra.Clone()
	if h == nil {
		h = http.Header{}
	}
	if a.token != "" {
		h.Set("Authorization", "Bearer "+a.token)
	}
	return h
}

func (a staticAuth) IsAuthenticated() bool { return a.token != "" }

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newClient(baseURL string) *worker.Client {
	tc := transport.NewClient(http.DefaultClient).WithSleep(noSleep)
	return worker.NewClient(baseURL).WithTransport(tc)
}

// loggedIn returns a client holding a valid token for alice.
func loggedIn(t *testing.T, srv *workertest.Server) *worker.Client {
	t.Helper()
	srv.AddUser("alice", "pw")
	c := newClient(srv.URL)
	token, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	return c.WithAuthorizer(staticAuth{token: token})
}

func TestLogin(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	srv.AddUser("alice", "pw")

	c := newClient(srv.URL)
	token, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = c.Login(context.Background(), "alice", "wrong")
	var ae *worker.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.True(t, errors.Is(err, worker.ErrAuthFailed))
}

func TestLogin_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).Login(context.Background(), "a", "b")
	assert.ErrorIs(t, err, worker.ErrAuthFailed)
	assert.ErrorIs(t, err, worker.ErrNoToken)
}

func TestRegister_SentOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"try later"}`))
	}))
	defer server.Close()

	err := newClient(server.URL).Register(context.Background(), "bob", "pw")
	var rs *worker.RemoteStatusError
	require.ErrorAs(t, err, &rs)
	assert.Equal(t, "try later", rs.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRegister_Conflict(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()

	c := newClient(srv.URL)
	require.NoError(t, c.Register(context.Background(), "bob", "pw"))
	err := c.Register(context.Background(), "bob", "pw")
	assert.ErrorIs(t, err, worker.ErrRemoteStatus)
}

func TestAuthenticatedCalls_FailFastWithoutToken(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()

	c := newClient(srv.URL).WithAuthorizer(staticAuth{})
	_, err := c.Chat(context.Background(), "m", nil)
	assert.ErrorIs(t, err, worker.ErrNotAuthenticated)
	_, err = c.Load(context.Background(), "alice")
	assert.ErrorIs(t, err, worker.ErrNotAuthenticated)
	assert.ErrorIs(t, c.Save(context.Background(), "alice", nil), worker.ErrNotAuthenticated)

	assert.Zero(t, srv.Calls("/chat")+srv.Calls("/load")+srv.Calls("/save"))
}

func TestSaveAndLoad(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	c := loggedIn(t, srv)

	convs := []model.Conversation{{
		ID:    "c1",
		Title: "Hello",
		Messages: []model.Message{
			model.NewUserMessage("hi"),
			model.NewPendingMessage(),
		},
	}}
	require.NoError(t, c.Save(context.Background(), "alice", convs))

	got, err := c.Load(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hello", got[0].Title)
	assert.True(t, got[0].Messages[1].IsPending(), "placeholder survives the wire round trip")
}

func TestLoad_EmptyPartition(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	c := loggedIn(t, srv)

	got, err := c.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_RemoteStatus(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	c := loggedIn(t, srv)
	srv.FailPath("/load", http.StatusInternalServerError)

	_, err := c.Load(context.Background(), "alice")
	var rs *worker.RemoteStatusError
	require.ErrorAs(t, err, &rs)
	assert.Equal(t, http.StatusInternalServerError, rs.Status)
	assert.Equal(t, transport.DefaultMaxAttempts, srv.Calls("/load"))
}

func TestChat(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	c := loggedIn(t, srv)

	var gotModel string
	srv.SetChatFunc(func(m string, msgs []worker.ChatMessage) (string, int) {
		gotModel = m
		return "4", 0
	})

	answer, err := c.Chat(context.Background(), "gpt-5-chat-latest", []worker.ChatMessage{{Role: "user", Content: "2+2?"}})
	require.NoError(t, err)
	assert.Equal(t, "4", answer)
	assert.Equal(t, "gpt-5-chat-latest", gotModel)

	reqs := srv.ChatRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []worker.ChatMessage{{Role: "user", Content: "2+2?"}}, reqs[0])
}

func TestChat_StatusError(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	c := loggedIn(t, srv)
	srv.SetChatFunc(func(string, []worker.ChatMessage) (string, int) {
		return "", http.StatusServiceUnavailable
	})

	_, err := c.Chat(context.Background(), "m", nil)
	require.Error(t, err)
	assert.Equal(t, "Worker returned 503", err.Error())
}

func TestChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c := newClient(server.URL).WithAuthorizer(staticAuth{token: "t"})
	answer, err := c.Chat(context.Background(), "m", nil)
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestChatMessagesFrom(t *testing.T) {
	msgs := []model.Message{model.NewUserMessage("q"), model.NewAssistantMessage("a")}
	got := worker.ChatMessagesFrom(msgs)
	assert.Equal(t, []worker.ChatMessage{{Role: "user", Content: "q"}, {Role: "assistant", Content: "a"}}, got)
}

func TestBearerHeaderSent(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).WithAuthorizer(staticAuth{token: "abc"}).Load(context.Background(), "u s")
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", auth)
}
