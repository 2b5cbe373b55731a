// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/render"
	"github.com/jeranaias/ollama-chat/internal/util"
)

// chromeLines is the height of everything in the main column except the
// message viewport: title, status, notice, thinking, input (3) and help.
const chromeLines = 8

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true
	m.theme.SetSize(width, height)

	mainWidth := m.mainWidth()
	m.viewport.Width = mainWidth
	m.viewport.Height = max(3, height-chromeLines)
	m.input.Width = max(10, mainWidth-6)
	m.help.Width = mainWidth

	m.refreshViewport(false)
}

// mainWidth is the content width of the main column.
func (m Model) mainWidth() int {
	w := m.width - m.theme.SidebarWidth() - 2
	if w < 20 {
		return 20
	}
	return w
}

// bubbleWidth is the wrap width inside a message bubble.
func (m Model) bubbleWidth() int {
	return max(10, m.mainWidth()-2)
}

// refreshViewport re-renders the messages. The markdown renderer is rebuilt
// only when the wrap width changes.
func (m *Model) refreshViewport(bottom bool) {
	if w := m.bubbleWidth(); m.md == nil || m.mdWidth != w {
		m.md = render.NewTerminal(w, m.opts.Theme)
		m.mdWidth = w
	}
	m.viewport.SetContent(m.renderMessages())
	if bottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderMessages() string {
	messages := m.ctrl.View().Messages
	if len(messages) == 0 {
		return m.theme.Muted.Render(m.tr.T(i18n.KeyWriteMessage))
	}

	width := m.bubbleWidth()
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		if msg.IsUser() {
			b.WriteString(m.theme.UserLabel.Render(m.tr.T(i18n.KeyRoleUser)))
			b.WriteString("\n")
			b.WriteString(m.theme.UserBubble.Width(width).Render(msg.Content))
		} else {
			b.WriteString(m.theme.AssistantLabel.Render(m.tr.T(i18n.KeyRoleAssistant)))
			b.WriteString("\n")
			body := strings.TrimSpace(m.md.Render(msg.Content))
			b.WriteString(m.theme.AssistantBubble.Render(body))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "\n  " + m.tr.T(i18n.KeyTitle) + "\n"
	}

	main := m.theme.Main.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render(m.tr.T(i18n.KeyTitle)),
		m.viewStatus(),
		m.viewNotice(),
		m.viewport.View(),
		m.viewThinking(),
		m.viewInput(),
		m.viewHelp(),
	))

	sw := m.theme.SidebarWidth()
	if sw == 0 {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(sw), main)
}

func (m Model) viewStatus() string {
	switch {
	case m.status.Ready:
		return m.theme.StatusReady.Render(m.status.Text)
	case m.checked && m.status.Selected:
		return m.theme.StatusOffline.Render(m.status.Text)
	default:
		return m.theme.Status.Render(m.status.Text)
	}
}

func (m Model) viewNotice() string {
	if n := m.ctrl.Notice(); n != "" {
		return m.theme.Notice.Render(n)
	}
	return ""
}

func (m Model) viewThinking() string {
	if !m.ctrl.View().Awaiting() {
		return ""
	}
	return m.theme.Thinking.Render(m.spinner.View() + " " + m.tr.T(i18n.KeyThinking))
}

func (m Model) viewInput() string {
	style := m.theme.InputBorder
	if m.focus == FocusInput || m.focus == FocusNewChat {
		style = m.theme.InputFocused
	}
	style = style.Width(m.mainWidth() - 2)

	if m.focus == FocusNewChat {
		return style.Render(m.tr.T(i18n.KeyChatName) + " " + m.titleInput.View())
	}
	return style.Render(m.input.View())
}

func (m Model) viewHelp() string {
	return m.theme.Help.Render(m.help.ShortHelpView(m.contextHelp()))
}

// contextHelp returns the bindings that apply to the focused area.
func (m Model) contextHelp() []key.Binding {
	switch m.focus {
	case FocusHistory:
		return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Submit, m.keys.Rename, m.keys.Back}
	case FocusModels:
		return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Submit, m.keys.Back}
	case FocusRename, FocusNewChat:
		return []key.Binding{m.keys.Submit, m.keys.Back}
	default:
		return m.keys.ShortHelp()
	}
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) viewSidebar(width int) string {
	inner := width - 4
	snap := m.ctrl.View()

	var b strings.Builder
	b.WriteString(m.theme.SectionTitle.Render(m.tr.T(i18n.KeyModelSettings)))
	b.WriteString("\n")
	for i, name := range snap.Models {
		marker := "  "
		if name == snap.SelectedModel {
			marker = "* "
		}
		line := marker + util.TruncateWidth(name, inner-2)
		style := m.theme.ListItem
		if m.focus == FocusModels && i == m.cursor {
			style = m.theme.ListSelected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString(m.theme.SectionTitle.Render(m.tr.T(i18n.KeyChatHistory)))
	b.WriteString("\n")
	if len(snap.Archive) == 0 {
		b.WriteString(m.theme.Muted.Render(m.tr.T(i18n.KeyEmptyHistory)))
		b.WriteString("\n")
	}
	for i, e := range snap.Archive {
		if m.focus == FocusRename && e.ID == m.renaming {
			b.WriteString(m.titleInput.View())
			b.WriteString("\n")
			continue
		}
		style := m.theme.ListItem
		if m.focus == FocusHistory && i == m.cursor {
			style = m.theme.ListSelected
		}
		b.WriteString(style.Render(util.TruncateWidth(e.Label, inner)))
		b.WriteString("\n")
	}

	return m.theme.Sidebar.
		Width(width - 2).
		Height(max(1, m.height-2)).
		Render(strings.TrimRight(b.String(), "\n"))
}
