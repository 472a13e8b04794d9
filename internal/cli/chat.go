// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/Strikerman10/gptAPI/internal/commands"
	"github.com/Strikerman10/gptAPI/internal/config"
	"github.com/Strikerman10/gptAPI/internal/lifecycle"
	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/ui/styles"
)

func newChatCmd(rt *runtime) *cobra.Command {
	var (
		modelName string
		plain     bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat line by line without the full-screen interface",
		Long: `Start a line-mode chat session. Plain text is sent to the active
conversation; lines starting with / are commands (try /help).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, rt, modelName, plain)
		},
	}
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "model for this session")
	cmd.Flags().BoolVar(&plain, "plain", false, "print replies without markdown rendering")
	return cmd
}

func runChat(cmd *cobra.Command, rt *runtime, modelName string, plain bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	interactive := isTerminalReader(cmd.InOrStdin())
	var cli *ChatCLI
	prompter := newLinePrompter(cmd.InOrStdin(), out)
	if interactive {
		cli = NewChatCLI()
		defer cli.Close()
		prompter.withLiner(cli.line)
	}

	app, err := rt.openSignedIn(ctx, prompter)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}()

	res, err := app.Load(ctx)
	if err != nil {
		return err
	}
	if res.CloudErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), app.Prefs.Theme().RenderWarning("Offline: showing conversations saved on this device"))
	}
	if modelName != "" {
		if err := app.Controller.SetModel(modelName); err != nil {
			return err
		}
	}

	r := &repl{
		app:    app,
		out:    out,
		errOut: cmd.ErrOrStderr(),
		plain:  plain || !interactive,
		width:  terminalWidth(),
	}
	if cli != nil {
		completer := commands.NewCompleter(app.Registry)
		completer.ConversationsFn = app.Controller.Store().List
		cli.line.SetCompleter(completer.Lines)
		r.reader = cli
	} else {
		r.reader = pipeReader{p: prompter}
	}

	r.banner()
	return r.loop(ctx)
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads its history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(configDir, "chat_history")}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads one line, remembering it in the history.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes the history file, readable by the owner only.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// lineReader yields input lines. io.EOF or liner.ErrPromptAborted ends the
// session.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

type repl struct {
	app    *App
	reader lineReader
	out    io.Writer
	errOut io.Writer
	plain  bool
	width  int
	md     *glamour.TermRenderer
}

func (r *repl) banner() {
	theme := r.app.Prefs.Theme()
	fmt.Fprintln(r.out, theme.HeaderTitle.Render("gptapi "+Version))
	meta := "Model: " + r.app.Controller.Model()
	if id := r.app.Session.CurrentUserID(); id != "" {
		meta += "  User: " + id
	}
	fmt.Fprintln(r.out, theme.Muted.Render(meta))
	fmt.Fprintln(r.out, theme.Muted.Render("Type /help for commands, /quit to leave."))
	if conv, ok := r.app.Controller.Store().Active(); ok && !conv.IsEmpty() {
		fmt.Fprintln(r.out, theme.Muted.Render(fmt.Sprintf("Continuing %q (%d messages)", conv.DisplayTitle(), len(conv.Messages))))
	}
	fmt.Fprintln(r.out)
}

func (r *repl) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		input, err := r.reader.Prompt("you> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}
		quit, err := r.handle(ctx, strings.TrimSpace(input))
		if err != nil {
			fmt.Fprintln(r.errOut, r.app.Prefs.Theme().RenderError(err.Error()))
		}
		if quit {
			return nil
		}
	}
}

// handle runs one input line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, input string) (bool, error) {
	if input == "" {
		return false, nil
	}

	if commands.IsCommand(input) {
		res, err := r.app.Registry.Execute(ctx, r.app.Env, input)
		if err != nil {
			return false, err
		}
		if res.Output != "" {
			fmt.Fprintln(r.out, res.Output)
		}
		if res.Turn != nil {
			if err := r.finish(ctx, res.Turn); err != nil {
				return false, err
			}
		}
		return res.Quit, nil
	}

	turn, err := r.app.Controller.Begin(input)
	if err != nil {
		return false, err
	}
	return false, r.finish(ctx, turn)
}

// finish runs a turn to completion. ctrl+c cancels the request, not the
// session.
func (r *repl) finish(ctx context.Context, turn *lifecycle.Turn) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(r.out, r.app.Prefs.Theme().Muted.Render("Thinking..."))
	content, runErr := r.app.Controller.Run(turnCtx, turn)
	if err := r.app.Controller.Complete(turn, content, runErr); err != nil {
		if errors.Is(err, lifecycle.ErrStaleTurn) {
			return nil
		}
		return err
	}
	if runErr != nil {
		return fmt.Errorf("reply failed: %w", runErr)
	}

	conv, err := r.app.Controller.Store().Get(turn.ConversationID)
	if err != nil {
		return nil
	}
	if last, ok := conv.LastMessage(); ok {
		r.printReply(last)
	}
	return nil
}

func (r *repl) printReply(msg model.Message) {
	theme := r.app.Prefs.Theme()
	fmt.Fprintln(r.out, theme.AssistantLabel.Render(msg.Role.DisplayName()+":"))
	fmt.Fprintln(r.out, r.render(msg.Content, theme))
	fmt.Fprintln(r.out)
}

func (r *repl) render(content string, theme *styles.Theme) string {
	if r.plain {
		return content
	}
	if r.md == nil {
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(theme.GlamourStyle()),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return content
		}
		r.md = md
	}
	out, err := r.md.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
