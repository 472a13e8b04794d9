// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Strikerman10/gptAPI/internal/commands"
	"github.com/Strikerman10/gptAPI/internal/lifecycle"
	"github.com/Strikerman10/gptAPI/internal/syncer"
	"github.com/Strikerman10/gptAPI/internal/ui/styles"
)

// Loader performs the initial conversation load.
type Loader func(ctx context.Context) (syncer.Result, error)

// Options configures the chat model.
type Options struct {
	Controller *lifecycle.Controller

	// Prefs holds palette and mode. Optional; defaults to Red/light without
	// persistence.
	Prefs *styles.Prefs

	// Registry and Env run slash commands typed into the input. A nil
	// Registry gets the built-ins; a nil Env acts on Controller only.
	Registry *commands.Registry
	Env      *commands.Env

	// Loader, when set, runs once at startup and replaces the store
	// contents with its result.
	Loader Loader

	ShowSidebar bool
	Markdown    bool

	Logger *slog.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl      *lifecycle.Controller
	prefs     *styles.Prefs
	theme     *styles.Theme
	registry  *commands.Registry
	env       *commands.Env
	completer *commands.Completer
	loader    Loader
	logger    *slog.Logger

	// ctx bounds every completion started from the UI; cancel fires on quit.
	ctx    context.Context
	cancel context.CancelFunc

	// UI Components
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap
	markdown *markdownRenderer

	width  int
	height int

	showSidebar bool
	useMarkdown bool
	loading     bool

	// cursor is the highlighted sidebar row; ctrl+o opens it.
	cursor int
	// confirmDelete holds the ID armed by the first ctrl+x.
	confirmDelete string

	// notice is multi-line command output shown under the conversation.
	notice string

	status      string
	statusError bool
}

// New creates the chat model.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Prefs == nil {
		opts.Prefs = styles.NewPrefs(nil, "", "", "", "")
	}
	if opts.Registry == nil {
		opts.Registry = commands.NewRegistry()
	}
	if opts.Env == nil {
		opts.Env = &commands.Env{Controller: opts.Controller}
	}
	if opts.Env.Appearance == nil {
		opts.Env.Appearance = opts.Prefs
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message... (/help for commands)"
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 8000
	ta.SetHeight(inputLines)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(styles.TypingSpinner))

	completer := commands.NewCompleter(opts.Registry)
	completer.ConversationsFn = opts.Controller.Store().List

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		ctrl:        opts.Controller,
		prefs:       opts.Prefs,
		theme:       opts.Prefs.Theme(),
		registry:    opts.Registry,
		env:         opts.Env,
		completer:   completer,
		loader:      opts.Loader,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
		input:       ta,
		viewport:    viewport.New(80, 20),
		spinner:     sp,
		help:        help.New(),
		keys:        DefaultKeyMap(),
		markdown:    newMarkdownRenderer(),
		showSidebar: opts.ShowSidebar,
		useMarkdown: opts.Markdown,
		loading:     opts.Loader != nil,
	}
	m.applyTheme()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the initial load.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.loader != nil {
		cmds = append(cmds, m.loadCmd())
	}
	if m.anyPending() {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// View renders the whole screen.
func (m Model) View() string {
	return m.render()
}

// Close cancels completions still in flight.
func (m Model) Close() {
	m.cancel()
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadCmd() tea.Cmd {
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		res, err := loader(ctx)
		return loadedMsg{result: res, err: err}
	}
}

// runTurn performs the blocking completion off the update loop.
func (m Model) runTurn(turn *lifecycle.Turn) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		content, err := ctrl.Run(ctx, turn)
		return turnResultMsg{turn: turn, content: content, err: err}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) applyTheme() {
	m.theme = m.prefs.Theme()
	m.theme.SetSize(m.width, m.height)
	m.spinner.Style = m.theme.Spinner
	m.help.Styles.ShortKey = m.theme.ShortcutKey
	m.help.Styles.ShortDesc = m.theme.ShortcutDesc
	m.help.Styles.FullKey = m.theme.ShortcutKey
	m.help.Styles.FullDesc = m.theme.ShortcutDesc
	m.markdown.reset()
}

func (m *Model) setStatus(text string, isError bool) {
	m.status = text
	m.statusError = isError
}

func (m Model) anyPending() bool {
	for _, conv := range m.ctrl.Store().List() {
		if conv.HasPending() {
			return true
		}
	}
	return false
}

func (m *Model) clampCursor() {
	n := m.ctrl.Store().Len()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
