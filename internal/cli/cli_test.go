// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/session"
	"github.com/Strikerman10/gptAPI/internal/worker"
	"github.com/Strikerman10/gptAPI/internal/worker/workertest"
)

// =============================================================================
// HELPERS
// =============================================================================

// isolate points the config home at a temp dir and the Worker at url.
func isolate(t *testing.T, url string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("GPTAPI_HOME", home)
	t.Setenv("GPTAPI_OFFLINE", "")
	t.Setenv("GPTAPI_DATA_DIR", "")
	t.Setenv("GPTAPI_MODEL", "")
	if url == "" {
		url = "http://127.0.0.1:1"
	}
	t.Setenv("GPTAPI_WORKER_URL", url)
	return home
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeImport(t *testing.T, convs ...model.Conversation) string {
	t.Helper()
	data, err := json.Marshal(convs)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func sample(id, title string, texts ...string) model.Conversation {
	c := model.Conversation{ID: id, Title: title, Messages: []model.Message{}}
	for i, text := range texts {
		if i%2 == 0 {
			c.Messages = append(c.Messages, model.NewUserMessage(text))
		} else {
			c.Messages = append(c.Messages, model.NewAssistantMessage(text))
		}
	}
	return c
}

// =============================================================================
// TESTS
// =============================================================================

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gptapi "+Version)
}

func TestList_Empty(t *testing.T) {
	isolate(t, "")
	out, err := run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No conversations yet.")
}

func TestImport_ThenListShowExport(t *testing.T) {
	isolate(t, "")
	file := writeImport(t,
		sample("conv-a", "Paris trip", "Plan a day in Paris", "Start at the Louvre"),
		sample("conv-b", "Groceries", "milk and eggs"),
	)

	out, err := run(t, "", "--offline", "--skip-login", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 conversations (2 new, 0 replaced)")

	out, err = run(t, "", "list", "--json")
	require.NoError(t, err)
	var list []conversationSummary
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "conv-a", list[0].ID)
	assert.Equal(t, 2, list[0].Messages)

	out, err = run(t, "", "show", "conv-a")
	require.NoError(t, err)
	assert.Contains(t, out, "Start at the Louvre")

	out, err = run(t, "", "export", "2", "--format", "json", "--stdout")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "conv-b"`)

	// Importing again replaces by ID.
	out, err = run(t, "", "--offline", "--skip-login", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 new, 2 replaced)")
}

func TestExport_BadFormat(t *testing.T) {
	isolate(t, "")
	file := writeImport(t, sample("conv-a", "Paris", "hi"))
	_, err := run(t, "", "--offline", "--skip-login", "import", file)
	require.NoError(t, err)

	_, err = run(t, "", "export", "--format", "pdf", "--stdout")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestShow_NoConversations(t *testing.T) {
	isolate(t, "")
	_, err := run(t, "", "show")
	require.Error(t, err)
}

func TestDelete_ConfirmAndForce(t *testing.T) {
	isolate(t, "")
	file := writeImport(t, sample("conv-a", "Keep me", "hi"), sample("conv-b", "Drop me", "bye"))
	_, err := run(t, "", "--offline", "--skip-login", "import", file)
	require.NoError(t, err)

	out, err := run(t, "n\n", "--offline", "--skip-login", "delete", "conv-b")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = run(t, "", "--offline", "--skip-login", "delete", "--force", "conv-b")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted Drop me")

	out, err = run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Keep me")
	assert.NotContains(t, out, "Drop me")
}

func TestAccount_RegisterWhoamiLogout(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	isolate(t, srv.URL)

	out, err := run(t, "carol\nhunter2\n", "register")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered and signed in as carol")

	out, err = run(t, "", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "carol\n", out)

	out, err = run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	out, err = run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestLogin_OffersRegistration(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	isolate(t, srv.URL)

	out, err := run(t, "dave\npw\ny\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as dave")
}

func TestLogin_AbortedIsAuthError(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	isolate(t, srv.URL)

	_, err := run(t, "bob\nwrong\nn\n", "login")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrAborted)
	assert.Equal(t, ExitAuthError, ExitCode(err))
}

func TestChat_PipedSession(t *testing.T) {
	srv := workertest.NewServer()
	defer srv.Close()
	srv.AddUser("alice", "secret")
	srv.SetChatFunc(func(_ string, msgs []worker.ChatMessage) (string, int) {
		return "echo: " + msgs[len(msgs)-1].Content, 0
	})
	isolate(t, srv.URL)

	out, err := run(t, "alice\nsecret\nhello there\n/list\n/quit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "echo: hello there")
	assert.Contains(t, out, "hello there  [2 msgs]")

	// Closing the app flushed the conversation to the cloud.
	saved := srv.Chats("alice")
	require.Len(t, saved, 1)
	assert.Equal(t, "hello there", saved[0].Title)

	out, err = run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "hello there")
}

func TestChat_NotSignedInReplyFails(t *testing.T) {
	isolate(t, "")
	out, err := run(t, "hi\n", "--offline", "--skip-login", "chat")
	require.NoError(t, err)
	assert.NotContains(t, out, "echo:")

	out, err = run(t, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "[2 msgs]")
}

func TestTheme_Remembered(t *testing.T) {
	isolate(t, "")
	out, err := run(t, "", "theme", "blue", "--mode", "dark")
	require.NoError(t, err)
	assert.Contains(t, out, "Palette: Blue")
	assert.Contains(t, out, "Mode: dark")

	out, err = run(t, "", "theme")
	require.NoError(t, err)
	assert.Contains(t, out, "Palette: Blue")

	_, err = run(t, "", "theme", "nope")
	assert.Equal(t, ExitUsageError, ExitCode(err))

	out, err = run(t, "", "theme", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "Amoled")
}

func TestConfig_SetGet(t *testing.T) {
	isolate(t, "")
	path := filepath.Join(t.TempDir(), "config.toml")

	_, err := run(t, "", "--config", path, "config", "set", "chat.model", "gpt-test")
	require.NoError(t, err)

	out, err := run(t, "", "--config", path, "config", "get", "chat.model")
	require.NoError(t, err)
	assert.Equal(t, "gpt-test\n", out)

	out, err = run(t, "", "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	_, err = run(t, "", "--config", path, "config", "set", "chat.nope", "1")
	assert.Equal(t, ExitUsageError, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{&UsageError{Err: errors.New("bad flag")}, ExitUsageError},
		{session.ErrAborted, ExitAuthError},
		{worker.ErrNotAuthenticated, ExitAuthError},
		{context.Canceled, ExitCancelled},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

func TestLinePrompter_EOFIsAborted(t *testing.T) {
	p := newLinePrompter(strings.NewReader("only-user\n"), &bytes.Buffer{})
	_, _, err := p.Credentials(context.Background())
	assert.ErrorIs(t, err, session.ErrAborted)

	p = newLinePrompter(strings.NewReader("YES\n"), &bytes.Buffer{})
	ok, err := p.Confirm(context.Background(), "Sure?")
	require.NoError(t, err)
	assert.True(t, ok)
}
