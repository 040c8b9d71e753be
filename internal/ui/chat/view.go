// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the current screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	if m.screen == ScreenLogin {
		return m.login.View(m.width, m.height)
	}

	return m.chatView()
}

// chatView assembles the chat layout: header, sidebar plus transcript,
// composer, status bar, with toast and timeout overlays on top.
func (m *Model) chatView() string {
	var rows []string
	rows = append(rows, m.header.View())

	transcript := m.viewport.View()
	if m.showHelp {
		transcript = m.helpView()
	}
	if m.showSidebar {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, m.convList.View(), transcript))
	} else {
		rows = append(rows, transcript)
	}

	rows = append(rows, m.input.View())
	rows = append(rows, m.status.View())

	screen := lipgloss.JoinVertical(lipgloss.Left, rows...)

	if m.overlay.IsVisible() {
		return m.overlay.View()
	}
	if len(m.notifications) > 0 {
		toasts := components.RenderToastStack(m.theme, m.notifications, m.width, m.height)
		// Toasts draw over the bottom-right corner; layering is
		// approximated by rendering them beneath the layout on
		// terminals without true overlay support.
		return screen + "\n" + strings.TrimRight(toasts, "\n")
	}
	return screen
}

// helpView lists the keyboard shortcuts in place of the transcript.
func (m *Model) helpView() string {
	bindings := []struct{ key, desc string }{
		{"enter", "send message"},
		{"esc", "stop the current response"},
		{"ctrl+n", "new conversation"},
		{"ctrl+r", "retry the last failed message"},
		{"ctrl+up / ctrl+down", "switch conversation"},
		{"ctrl+b", "toggle the sidebar"},
		{"pgup / pgdn", "scroll the transcript"},
		{"ctrl+/", "close this help"},
		{"ctrl+c", "quit"},
	}

	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")
	for _, bind := range bindings {
		b.WriteString(m.theme.ShortcutKey.Render(bind.key))
		b.WriteString("  ")
		b.WriteString(m.theme.ShortcutDesc.Render(bind.desc))
		b.WriteString("\n")
	}
	if m.cfg != nil && m.cfg.UI.VimMode {
		b.WriteString("\n")
		b.WriteString(m.theme.ShortcutDesc.Render("vim mode: esc for normal mode, j/k scroll, i to type"))
	}

	return lipgloss.NewStyle().
		Width(m.transcriptWidth()).
		Height(m.contentHeight()).
		Padding(1, 2).
		Render(b.String())
}
