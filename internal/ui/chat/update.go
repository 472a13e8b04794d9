// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Strikerman10/gptAPI/internal/commands"
	"github.com/Strikerman10/gptAPI/internal/lifecycle"
	"github.com/Strikerman10/gptAPI/internal/syncer"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case loadedMsg:
		return m.handleLoaded(msg)

	case turnResultMsg:
		return m.handleTurnResult(msg)

	case spinner.TickMsg:
		// Let the tick chain die once nothing is waiting.
		if !m.anyPending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return m, cmd

	case ConfigChangedMsg:
		return m.handleConfigChanged(msg)

	case StatusMsg:
		m.setStatus(msg.Text, msg.Error)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.logger.Error("initial load failed", "error", msg.err)
		m.setStatus("Could not load conversations: "+msg.err.Error(), true)
		m.refresh(true)
		return m, nil
	}

	res := msg.result
	m.ctrl.Load(res.Conversations, res.ActiveID)
	m.cursor = 0

	switch {
	case res.CloudErr != nil:
		m.setStatus("Offline: showing conversations saved on this device", true)
	case res.Source == syncer.SourceCloud:
		m.setStatus(fmt.Sprintf("Loaded %d conversations", len(res.Conversations)), false)
	}
	if res.Repaired > 0 {
		m.logger.Info("repaired interrupted replies", "count", res.Repaired)
	}
	m.refresh(true)
	return m, nil
}

func (m Model) handleTurnResult(msg turnResultMsg) (tea.Model, tea.Cmd) {
	err := m.ctrl.Complete(msg.turn, msg.content, msg.err)
	switch {
	case errors.Is(err, lifecycle.ErrStaleTurn):
		// The conversation moved on; nothing to show.
	case err != nil:
		m.setStatus("Could not record reply: "+err.Error(), true)
	case msg.err != nil:
		m.setStatus("Reply failed: "+msg.err.Error(), true)
	}
	m.refresh(msg.turn.ConversationID == m.ctrl.Store().ActiveID())
	return m, nil
}

func (m Model) handleConfigChanged(msg ConfigChangedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}
	ui := msg.Config.UI
	if ui.Palette != "" {
		if err := m.prefs.SetPalette(ui.Palette); err != nil {
			m.setStatus(err.Error(), true)
		}
	}
	if ui.Mode != "" {
		if err := m.prefs.SetMode(ui.Mode); err != nil {
			m.setStatus(err.Error(), true)
		}
	}
	m.showSidebar = ui.ShowSidebar
	m.useMarkdown = ui.Markdown
	m.applyTheme()
	m.layout()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key other than a second ctrl+x disarms a pending delete.
	if !key.Matches(msg, m.keys.DeleteChat) {
		m.confirmDelete = ""
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Send):
		return m.submit()

	case key.Matches(msg, m.keys.Complete):
		m.complete()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.ctrl.NewChat()
		m.cursor = 0
		m.setStatus("", false)
		m.refresh(true)
		return m, nil

	case key.Matches(msg, m.keys.DeleteChat):
		m.deleteActive()
		return m, nil

	case key.Matches(msg, m.keys.CursorUp):
		m.cursor--
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.CursorDown):
		m.cursor++
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.OpenChat):
		m.openCursor()
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		return m.execute("/retry")

	case key.Matches(msg, m.keys.ToggleMode):
		mode, err := m.prefs.ToggleMode()
		m.afterThemeChange("Mode: "+mode, err)
		return m, nil

	case key.Matches(msg, m.keys.CyclePalette):
		palette, err := m.prefs.CyclePalette()
		m.afterThemeChange("Palette: "+palette, err)
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// quit settles replies still outstanding before the program exits, so the
// final save carries no placeholder.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.ctrl.AbandonInFlight()
	m.cancel()
	return m, tea.Quit
}

// submit sends the input as a message, or runs it as a slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if commands.IsCommand(text) {
		m.input.Reset()
		return m.execute(text)
	}

	turn, err := m.ctrl.Begin(text)
	if err != nil {
		if errors.Is(err, lifecycle.ErrTurnInFlight) {
			m.setStatus("Wait for the reply before sending another message", true)
		} else {
			m.setStatus(err.Error(), true)
		}
		return m, nil
	}

	m.input.Reset()
	m.cursor = 0
	m.notice = ""
	m.setStatus("", false)
	m.refresh(true)
	return m, tea.Batch(m.runTurn(turn), m.spinner.Tick)
}

// execute runs a slash command and applies its result.
func (m Model) execute(line string) (tea.Model, tea.Cmd) {
	res, err := m.registry.Execute(m.ctx, m.env, line)
	if err != nil {
		m.setStatus(err.Error(), true)
		m.refresh(false)
		return m, nil
	}
	if res.Quit {
		return m.quit()
	}

	// Commands may have changed the theme or the conversation set.
	m.applyTheme()
	m.clampCursor()
	m.notice = ""
	if strings.Contains(res.Output, "\n") {
		m.notice = res.Output
		m.setStatus("", false)
	} else {
		m.setStatus(res.Output, false)
	}
	m.refresh(true)

	if res.Turn != nil {
		return m, tea.Batch(m.runTurn(res.Turn), m.spinner.Tick)
	}
	return m, nil
}

func (m *Model) complete() {
	lines := m.completer.Lines(m.input.Value())
	switch len(lines) {
	case 0:
	case 1:
		m.input.SetValue(lines[0] + " ")
	default:
		m.input.SetValue(commonPrefix(lines))
		m.setStatus(strings.Join(lines, "  "), false)
	}
}

func (m *Model) deleteActive() {
	conv, ok := m.ctrl.Store().Active()
	if !ok {
		return
	}
	if m.confirmDelete != conv.ID {
		m.confirmDelete = conv.ID
		m.setStatus(fmt.Sprintf("Press ctrl+x again to delete %q", conv.DisplayTitle()), true)
		return
	}
	m.confirmDelete = ""
	if err := m.ctrl.DeleteChat(conv.ID); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.cursor = 0
	m.setStatus("Deleted "+conv.DisplayTitle(), false)
	m.refresh(true)
}

func (m *Model) openCursor() {
	convs := m.ctrl.Store().List()
	if m.cursor < 0 || m.cursor >= len(convs) {
		return
	}
	if err := m.ctrl.SelectChat(convs[m.cursor].ID); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	// The opened conversation moves to the top of the list.
	m.cursor = 0
	m.setStatus("", false)
	m.refresh(true)
}

func (m *Model) afterThemeChange(status string, err error) {
	if err != nil {
		m.logger.Warn("could not save theme", "error", err)
		m.setStatus(err.Error(), true)
	} else {
		m.setStatus(status, false)
	}
	m.applyTheme()
	m.refresh(false)
}

func commonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := []rune(items[0])
	for _, s := range items[1:] {
		other := []rune(s)
		n := 0
		for n < len(prefix) && n < len(other) && prefix[n] == other[n] {
			n++
		}
		prefix = prefix[:n]
	}
	return string(prefix)
}
