// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/notify"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// TOAST RENDERING
// =============================================================================
//
// Toast state (TTL, eviction, dismissal) lives in notify.Center; this
// file only turns the active notification list into styled boxes.

// ToastWidth is the fixed width of a rendered toast box.
const ToastWidth = 44

// ToastTickMsg drives countdown refresh for visible toasts.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd returns a command that ticks every 100ms while toasts
// are visible, so remaining-time hints stay current.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// toastIcon returns the accessible text indicator for a notification kind.
func toastIcon(kind notify.Kind) string {
	switch kind {
	case notify.KindSuccess:
		return styles.StatusIndicators.Success
	case notify.KindWarning:
		return styles.StatusIndicators.Warning
	case notify.KindError:
		return styles.StatusIndicators.Error
	default:
		return styles.StatusIndicators.Info
	}
}

// toastStyle maps a notification kind to its themed box style.
func toastStyle(theme *styles.Theme, kind notify.Kind) lipgloss.Style {
	switch kind {
	case notify.KindSuccess:
		return theme.ToastSuccess
	case notify.KindWarning:
		return theme.ToastWarning
	case notify.KindError:
		return theme.ToastError
	default:
		return theme.ToastInfo
	}
}

// RenderToast renders a single notification as a bordered box with an
// icon, the wrapped message, and a dismissal countdown.
func RenderToast(theme *styles.Theme, n notify.Notification) string {
	style := toastStyle(theme, n.Kind).Width(ToastWidth)

	var b strings.Builder
	b.WriteString(toastIcon(n.Kind))
	b.WriteString(" ")
	b.WriteString(wrapToastText(n.Message, ToastWidth-6))

	remaining := n.TimeRemaining()
	if remaining > 0 {
		hint := fmt.Sprintf("[x] dismiss  %ds", int(remaining.Seconds())+1)
		b.WriteString("\n")
		b.WriteString(theme.MessageMeta.Render(hint))
	}

	return style.Render(b.String())
}

// RenderToastStack renders the active notifications newest-first and
// places the stack in the bottom-right corner of the viewport.
func RenderToastStack(theme *styles.Theme, notifications []notify.Notification, width, height int) string {
	if len(notifications) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(notifications))
	for _, n := range notifications {
		rendered = append(rendered, RenderToast(theme, n))
	}

	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	return lipgloss.Place(width, height, lipgloss.Right, lipgloss.Bottom, stack)
}

// wrapToastText word-wraps a message to the given width. Words longer
// than the width are hard-broken.
func wrapToastText(text string, width int) string {
	if width <= 0 {
		return text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		for len(word) > width {
			if line.Len() > 0 {
				lines = append(lines, line.String())
				line.Reset()
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		if line.Len() == 0 {
			line.WriteString(word)
		} else if line.Len()+1+len(word) <= width {
			line.WriteString(" ")
			line.WriteString(word)
		} else {
			lines = append(lines, line.String())
			line.Reset()
			line.WriteString(word)
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return strings.Join(lines, "\n")
}
