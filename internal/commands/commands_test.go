// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strikerman10/gptAPI/internal/lifecycle"
	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/store"
	"github.com/Strikerman10/gptAPI/internal/worker"
)

// =============================================================================
// FAKES
// =============================================================================

type echoCompleter struct{}

func (echoCompleter) Chat(_ context.Context, _ string, msgs []worker.ChatMessage) (string, error) {
	return "echo: " + msgs[len(msgs)-1].Content, nil
}

type fakeSession struct {
	user      string
	loggedOut bool
}

func (f *fakeSession) CurrentUserID() string { return f.user }
func (f *fakeSession) IsAuthenticated() bool { return f.user != "" && !f.loggedOut }
func (f *fakeSession) Logout() error         { f.loggedOut = true; return nil }

type fakeAppearance struct{ palette, mode string }

func (f *fakeAppearance) Current() (string, string) { return f.palette, f.mode }
func (f *fakeAppearance) SetPalette(name string) error {
	f.palette = name
	return nil
}
func (f *fakeAppearance) SetMode(mode string) error {
	f.mode = mode
	return nil
}

func threeConversations() []model.Conversation {
	return []model.Conversation{
		{ID: "abc123", Title: "Paris", Messages: []model.Message{
			model.NewUserMessage("hi"), model.NewAssistantMessage("hello"),
		}},
		{ID: "abd456", Title: "Rome", Messages: []model.Message{}},
		{ID: "xyz789", Title: "", Messages: []model.Message{}},
	}
}

func newEnv(t *testing.T) *Env {
	t.Helper()
	s := store.NewWithConversations(threeConversations(), "abc123")
	ctrl := lifecycle.NewController(s, echoCompleter{}, nil, lifecycle.Options{})
	return &Env{
		Controller: ctrl,
		Session:    &fakeSession{user: "u-1"},
		Appearance: &fakeAppearance{palette: "Red", mode: "light"},
		ExportDir:  t.TempDir(),
	}
}

func run(t *testing.T, env *Env, input string) (Result, error) {
	t.Helper()
	return NewRegistry().Execute(context.Background(), env, input)
}

// =============================================================================
// PARSER
// =============================================================================

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a b  c", []string{"a", "b", "c"}},
		{`"hello world" x`, []string{"hello world", "x"}},
		{`'it\'s' ok`, []string{"it's", "ok"}},
		{`""`, []string{""}},
		{"", nil},
		{"héllo wörld", []string{"héllo", "wörld"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitCommandLine(tt.in), "input %q", tt.in)
	}
}

func TestParse(t *testing.T) {
	p := NewParser(NewRegistry())

	res := p.Parse("  /S 2 ")
	assert.True(t, res.IsCommand)
	require.NotNil(t, res.Command)
	assert.Equal(t, "/switch", res.Command.Name)
	assert.Equal(t, []string{"2"}, res.Args)

	res = p.Parse("hello /new")
	assert.False(t, res.IsCommand)

	res = p.Parse("/nope")
	assert.True(t, res.IsCommand)
	assert.Nil(t, res.Command)
	assert.Equal(t, "/nope", res.CommandName)
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestExecute_NotCommand(t *testing.T) {
	_, err := run(t, newEnv(t), "what is 2+2")
	assert.ErrorIs(t, err, ErrNotCommand)
}

func TestExecute_Unknown(t *testing.T) {
	_, err := run(t, newEnv(t), "/frobnicate")
	var unknown *UnknownCommandError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "/frobnicate", unknown.Name)
	assert.Contains(t, err.Error(), "/help")
}

func TestExecute_MissingRequiredArg(t *testing.T) {
	_, err := run(t, newEnv(t), "/switch")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "conversation", verr.Arg)
}

func TestExecute_InvalidEnum(t *testing.T) {
	_, err := run(t, newEnv(t), "/mode sepia")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "sepia", verr.Got)
}

func TestExecute_TooManyArgs(t *testing.T) {
	_, err := run(t, newEnv(t), "/switch 1 2")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "2", verr.Got)
	assert.Contains(t, err.Error(), "too many arguments")
}

func TestHelpText(t *testing.T) {
	res, err := run(t, newEnv(t), "/help")
	require.NoError(t, err)
	for _, want := range []string{"Conversation:", "Settings:", "/switch <n|id>", "/retry"} {
		assert.Contains(t, res.Output, want)
	}

	res, err = run(t, newEnv(t), "/help rename")
	require.NoError(t, err)
	assert.Contains(t, res.Output, "usage: /rename <title>")
}

func TestQuit(t *testing.T) {
	res, err := run(t, newEnv(t), "/exit")
	require.NoError(t, err)
	assert.True(t, res.Quit)
}

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

func TestResolveConversation(t *testing.T) {
	convs := threeConversations()

	conv, err := ResolveConversation(convs, "2")
	require.NoError(t, err)
	assert.Equal(t, "abd456", conv.ID)

	conv, err = ResolveConversation(convs, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz789", conv.ID)

	_, err = ResolveConversation(convs, "ab")
	assert.ErrorContains(t, err, "matches 2")

	_, err = ResolveConversation(convs, "9")
	assert.Error(t, err)

	_, err = ResolveConversation(convs, "nope")
	assert.Error(t, err)
}

func TestListAndSwitch(t *testing.T) {
	env := newEnv(t)

	res, err := run(t, env, "/ls")
	require.NoError(t, err)
	lines := strings.Split(res.Output, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "*"))
	assert.Contains(t, lines[0], "Paris")
	assert.Contains(t, lines[2], model.DefaultTitle)

	res, err = run(t, env, "/switch 3")
	require.NoError(t, err)
	assert.Contains(t, res.Output, model.DefaultTitle)
	assert.Equal(t, "xyz789", env.Controller.Store().ActiveID())
	// Selecting moves the conversation to the front.
	assert.Equal(t, "xyz789", env.Controller.Store().List()[0].ID)
}

func TestNew(t *testing.T) {
	env := newEnv(t)
	_, err := run(t, env, "/new")
	require.NoError(t, err)
	assert.Equal(t, 4, env.Controller.Store().Len())
	active, ok := env.Controller.Store().Active()
	require.True(t, ok)
	assert.True(t, active.IsEmpty())
}

func TestDelete(t *testing.T) {
	env := newEnv(t)

	res, err := run(t, env, "/rm")
	require.NoError(t, err)
	assert.Equal(t, "Deleted Paris", res.Output)
	assert.Equal(t, 2, env.Controller.Store().Len())

	_, err = run(t, env, "/delete xyz789")
	require.NoError(t, err)
	assert.Equal(t, 1, env.Controller.Store().Len())
}

func TestRename_KeepsSpaces(t *testing.T) {
	env := newEnv(t)
	_, err := run(t, env, "/rename Trip to   Lisbon")
	require.NoError(t, err)
	active, _ := env.Controller.Store().Active()
	assert.Equal(t, "Trip to   Lisbon", active.Title)

	_, err = run(t, env, `/rename "Quoted title"`)
	require.NoError(t, err)
	active, _ = env.Controller.Store().Active()
	assert.Equal(t, "Quoted title", active.Title)
}

func TestRetry_ReturnsTurn(t *testing.T) {
	env := newEnv(t)

	res, err := run(t, env, "/retry")
	require.NoError(t, err)
	require.NotNil(t, res.Turn)
	assert.Equal(t, "hi", res.Turn.Prompt)

	active, _ := env.Controller.Store().Active()
	assert.True(t, active.HasPending())

	content, runErr := env.Controller.Run(context.Background(), res.Turn)
	require.NoError(t, env.Controller.Complete(res.Turn, content, runErr))
	active, _ = env.Controller.Store().Active()
	last, _ := active.LastMessage()
	assert.Equal(t, "echo: hi", last.Content)
}

func TestRetry_NothingToRetry(t *testing.T) {
	env := newEnv(t)
	_, err := run(t, env, "/switch 2")
	require.NoError(t, err)
	_, err = run(t, env, "/retry")
	assert.ErrorIs(t, err, lifecycle.ErrNoActiveReply)
}

func TestExport(t *testing.T) {
	env := newEnv(t)

	res, err := run(t, env, "/export json")
	require.NoError(t, err)
	path := strings.TrimPrefix(res.Output, "Exported to ")
	assert.Equal(t, env.ExportDir, filepath.Dir(path))
	assert.Equal(t, ".json", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")

	other := t.TempDir()
	res, err = run(t, env, "/export md "+other)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Output, "Exported to "+other))
}

// =============================================================================
// SETTINGS AND ACCOUNT
// =============================================================================

func TestModel(t *testing.T) {
	env := newEnv(t)

	res, err := run(t, env, "/model")
	require.NoError(t, err)
	assert.Equal(t, "Model: "+lifecycle.DefaultModel, res.Output)

	_, err = run(t, env, "/m gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", env.Controller.Model())
}

func TestPaletteAndMode(t *testing.T) {
	env := newEnv(t)

	res, err := run(t, env, "/palette")
	require.NoError(t, err)
	assert.Contains(t, res.Output, "Palette: Red")

	_, err = run(t, env, "/palette green")
	require.NoError(t, err)
	_, err = run(t, env, "/mode dark")
	require.NoError(t, err)
	palette, mode := env.Appearance.Current()
	assert.Equal(t, "green", palette)
	assert.Equal(t, "dark", mode)

	env.Appearance = nil
	_, err = run(t, env, "/mode")
	assert.Error(t, err)
}

func TestWhoamiAndLogout(t *testing.T) {
	env := newEnv(t)

	res, err := run(t, env, "/whoami")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as u-1", res.Output)

	res, err = run(t, env, "/logout")
	require.NoError(t, err)
	assert.True(t, res.Quit)

	res, err = run(t, env, "/whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not signed in.", res.Output)
}

// =============================================================================
// COMPLETION
// =============================================================================

func values(cs []Completion) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Value
	}
	return out
}

func TestComplete_Commands(t *testing.T) {
	c := NewCompleter(NewRegistry())

	assert.Equal(t, []string{"/mode", "/model"}, values(c.Complete("/mo")))
	assert.Contains(t, values(c.Complete("/")), "/help")
	assert.Nil(t, c.Complete("plain text"))
}

func TestComplete_Args(t *testing.T) {
	env := newEnv(t)
	c := NewCompleter(NewRegistry())
	c.ConversationsFn = env.Controller.Store().List

	assert.Equal(t, []string{"dark"}, values(c.Complete("/mode d")))
	assert.Equal(t, []string{"light", "dark"}, values(c.Complete("/mode ")))
	assert.Equal(t, []string{"1", "2", "3"}, values(c.Complete("/switch ")))
	assert.Nil(t, c.Complete("/new "))
}

func TestCompleter_Lines(t *testing.T) {
	c := NewCompleter(NewRegistry())
	assert.Equal(t, []string{"/mode dark"}, c.Lines("/mode da"))
	assert.Equal(t, []string{"/rename"}, c.Lines("/ren"))
}
