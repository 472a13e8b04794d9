// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Strikerman10/gptAPI/internal/model"
	"github.com/Strikerman10/gptAPI/internal/ui/styles"
)

// Fixed layout sizes.
const (
	inputLines   = 3
	headerHeight = 2 // title line + bottom border
	inputChrome  = 2 // rounded border top and bottom
	minMainWidth = 20
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) sidebarWidth() int {
	if !m.showSidebar {
		return 0
	}
	return m.theme.SidebarWidth()
}

func (m Model) mainWidth() int {
	w := m.width - m.sidebarWidth()
	if w < minMainWidth {
		w = minMainWidth
	}
	return w
}

// layout resizes the components to the terminal.
func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)
	mainW := m.mainWidth()

	m.input.SetWidth(mainW - 4)
	m.help.Width = mainW

	statusH := 1
	if m.help.ShowAll {
		statusH = lipgloss.Height(m.help.View(m.keys))
	}

	vpH := m.height - headerHeight - (inputLines + inputChrome) - statusH
	if vpH < 1 {
		vpH = 1
	}
	m.viewport.Width = mainW
	m.viewport.Height = vpH
	m.refresh(false)
}

// refresh re-renders the conversation into the viewport. The view follows
// new content when it was already at the bottom or when bottom is set.
func (m *Model) refresh(bottom bool) {
	follow := bottom || m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages(m.viewport.Width))
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// RENDERING
// =============================================================================

func (m Model) render() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	mainW := m.mainWidth()
	main := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(mainW),
		m.viewport.View(),
		m.theme.InputFocused.Width(mainW-2).Render(m.input.View()),
		m.renderStatusBar(mainW),
	)

	if sw := m.sidebarWidth(); sw > 0 {
		return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(sw, m.height), main)
	}
	return main
}

func (m Model) renderHeader(width int) string {
	title := "gptapi"
	if conv, ok := m.ctrl.Store().Active(); ok {
		title = conv.DisplayTitle()
	}
	meta := m.ctrl.Model()
	if m.env.Session != nil && m.env.Session.IsAuthenticated() {
		meta += " | " + m.env.Session.CurrentUserID()
	}

	room := width - 2 - runewidth.StringWidth(meta) - 2
	if room < 4 {
		room = 4
	}
	title = runewidth.Truncate(title, room, "…")

	gap := width - 2 - runewidth.StringWidth(title) - runewidth.StringWidth(meta)
	if gap < 1 {
		gap = 1
	}
	line := m.theme.HeaderTitle.Render(title) + strings.Repeat(" ", gap) + m.theme.HeaderMeta.Render(meta)
	return m.theme.Header.Width(width).Render(line)
}

// renderSidebar lists conversations in recency order. Each row is a title
// line and a preview of the last message.
func (m Model) renderSidebar(width, height int) string {
	inner := width - 3 // right border + horizontal padding
	if inner < 4 {
		inner = 4
	}

	var b strings.Builder
	b.WriteString(m.theme.SidebarHeading.Render("Chats"))
	b.WriteString("\n")

	convs, activeID := m.ctrl.Store().Snapshot()
	switch {
	case m.loading:
		b.WriteString(m.theme.Muted.Render("Loading..."))
	case len(convs) == 0:
		b.WriteString(m.theme.Muted.Render("No chats yet"))
	}

	for i, conv := range convs {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		title := conv.DisplayTitle()
		if conv.HasPending() {
			title += " " + styles.StatusIndicators.Active
		}
		title = padRight(runewidth.Truncate(title, inner-2, "…"), inner-2)

		style := m.theme.SidebarItem
		if conv.ID == activeID {
			style = m.theme.SidebarItemActive
		}
		b.WriteString(marker + style.Render(title) + "\n")

		preview := ""
		if last, ok := conv.LastMessage(); ok {
			preview = last.Preview(inner * 2)
		}
		b.WriteString("  " + m.theme.Muted.Render(runewidth.Truncate(preview, inner-2, "…")) + "\n")
	}

	return m.theme.Sidebar.
		Width(width - 1).
		Height(height).
		MaxHeight(height).
		Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderMessages(width int) string {
	conv, ok := m.ctrl.Store().Active()
	if !ok || conv.IsEmpty() {
		text := "Start a conversation: type a message and press enter."
		if m.loading {
			text = "Loading conversations..."
		}
		return m.withNotice(m.theme.EmptyState.Render(text), width)
	}

	// Width() includes padding but not the border or the side margin.
	bubbleW := width - 4 - 2
	if bubbleW < 10 {
		bubbleW = 10
	}

	blocks := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		blocks = append(blocks, m.renderMessage(msg, bubbleW))
	}
	return m.withNotice(strings.Join(blocks, "\n\n"), width)
}

func (m Model) renderMessage(msg model.Message, bubbleW int) string {
	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	if msg.IsUser() {
		label = m.theme.UserLabel.Render(msg.Role.DisplayName())
	}
	header := label + "  " + m.theme.MessageTime.Render(strings.ReplaceAll(msg.Time, "\n", " "))

	var body string
	switch {
	case msg.IsPending():
		body = m.spinner.View() + " " + m.theme.PendingText.Render("Thinking...")
	case msg.IsError():
		body = m.theme.ErrorBubble.Width(bubbleW).Render(styles.StatusIndicators.Error + " " + msg.Content)
	case msg.IsUser():
		body = m.theme.UserBubble.Width(bubbleW).Render(msg.Content)
	case m.useMarkdown:
		body = m.markdown.render(msg.Content, bubbleW, m.theme.GlamourStyle())
	default:
		body = m.theme.AssistantBubble.Width(bubbleW).Render(msg.Content)
	}
	return header + "\n" + body
}

func (m Model) withNotice(content string, width int) string {
	if m.notice == "" {
		return content
	}
	notice := m.theme.Muted.
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		Width(width).
		Render(m.notice)
	return content + "\n\n" + notice
}

func (m Model) renderStatusBar(width int) string {
	var line string
	switch {
	case m.help.ShowAll:
		line = m.help.View(m.keys)
	case m.status != "":
		text := runewidth.Truncate(m.status, width-2-4, "…")
		if m.statusError {
			line = m.theme.RenderError(text)
		} else {
			line = m.theme.SuccessStyle.Render(text)
		}
	default:
		line = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return m.theme.StatusBar.Width(width).Render(line)
}

func padRight(s string, width int) string {
	if gap := width - runewidth.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// =============================================================================
// MARKDOWN
// =============================================================================

// markdownRenderer renders assistant replies with glamour and memoizes the
// output until the width or style changes.
type markdownRenderer struct {
	width    int
	style    string
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{cache: make(map[string]string)}
}

func (r *markdownRenderer) reset() {
	r.renderer = nil
	r.cache = make(map[string]string)
}

func (r *markdownRenderer) render(content string, width int, style string) string {
	if r.renderer == nil || width != r.width || style != r.style {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		r.renderer, r.width, r.style = tr, width, style
		r.cache = make(map[string]string)
	}

	if out, ok := r.cache[content]; ok {
		return out
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	r.cache[content] = out
	return out
}
