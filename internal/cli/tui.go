// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Strikerman10/gptAPI/internal/config"
	"github.com/Strikerman10/gptAPI/internal/syncer"
	"github.com/Strikerman10/gptAPI/internal/ui/chat"
)

func newTUICmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat interface (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, rt)
		},
	}
}

// runTUI signs in on the plain terminal, then hands it to Bubble Tea. The
// initial load runs inside the UI so the loading state is visible.
func runTUI(cmd *cobra.Command, rt *runtime) error {
	ctx := cmd.Context()
	prompter := newLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())

	app, err := rt.openSignedIn(ctx, prompter)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			rt.logger.Error("shutdown", "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
	}()

	cfg := app.Config
	m := chat.New(chat.Options{
		Controller: app.Controller,
		Prefs:      app.Prefs,
		Registry:   app.Registry,
		Env:        app.Env,
		Loader: func(ctx context.Context) (syncer.Result, error) {
			return app.Coordinator.LoadInitial(ctx, app.Session.CurrentUserID())
		},
		ShowSidebar: cfg.UI.ShowSidebar,
		Markdown:    cfg.UI.Markdown,
		Logger:      app.Logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if cfg.UI.WatchConfig && rt.cfgPath != "" {
		watchCtx, stopWatch := context.WithCancel(ctx)
		defer stopWatch()
		err := config.Watch(watchCtx, rt.cfgPath,
			func(c *config.Config) { p.Send(chat.ConfigChangedMsg{Config: c}) },
			func(err error) { p.Send(chat.StatusMsg{Text: "Config reload: " + err.Error(), Error: true}) },
		)
		if err != nil {
			app.Logger.Warn("config watch disabled", "path", rt.cfgPath, "error", err)
		}
	}

	final, err := p.Run()
	if fm, ok := final.(chat.Model); ok {
		fm.Close()
	}
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
