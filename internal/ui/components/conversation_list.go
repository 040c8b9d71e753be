// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
	"github.com/jeranaias/parley-tui/internal/util"
)

// =============================================================================
// CONVERSATION LIST COMPONENT
// =============================================================================

// ConversationList is the sidebar showing all conversations,
// most-recently-updated first, with a keyboard-movable selection.
type ConversationList struct {
	conversations []*model.Conversation
	selected      int
	width         int
	height        int
	theme         *styles.Theme
}

// NewConversationList creates an empty conversation list.
func NewConversationList(theme *styles.Theme) *ConversationList {
	return &ConversationList{
		width:  28,
		height: 20,
		theme:  theme,
	}
}

// SetSize sets the sidebar dimensions.
func (l *ConversationList) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// SetConversations replaces the list contents, preserving the selected
// conversation by ID when it survives the update.
func (l *ConversationList) SetConversations(convs []*model.Conversation) {
	selectedID := ""
	if c := l.Selected(); c != nil {
		selectedID = c.ID
	}

	l.conversations = convs
	l.selected = 0
	for i, c := range convs {
		if c.ID == selectedID {
			l.selected = i
			break
		}
	}
}

// Len returns the number of conversations listed.
func (l *ConversationList) Len() int {
	return len(l.conversations)
}

// Selected returns the currently selected conversation, or nil.
func (l *ConversationList) Selected() *model.Conversation {
	if l.selected < 0 || l.selected >= len(l.conversations) {
		return nil
	}
	return l.conversations[l.selected]
}

// Select moves the selection to the conversation with the given ID.
func (l *ConversationList) Select(id string) {
	for i, c := range l.conversations {
		if c.ID == id {
			l.selected = i
			return
		}
	}
}

// MoveUp moves the selection toward the top of the list.
func (l *ConversationList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves the selection toward the bottom.
func (l *ConversationList) MoveDown() {
	if l.selected < len(l.conversations)-1 {
		l.selected++
	}
}

// statusMarker returns the indicator prefix for a conversation's state.
func statusMarker(c *model.Conversation) string {
	switch {
	case c.Status == model.ConversationPending:
		return styles.StatusIndicators.Pending
	case c.Status == model.ConversationError:
		return styles.StatusIndicators.Error
	case c.InFlight():
		return styles.StatusIndicators.Active
	default:
		return " "
	}
}

// relativeTime renders a compact age like "2m" or "3h".
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// View renders the sidebar.
func (l *ConversationList) View() string {
	if len(l.conversations) == 0 {
		empty := l.theme.ConversationPreview.Render("No conversations yet.\nctrl+n to start one.")
		return l.theme.ConversationList.Width(l.width).Height(l.height).Render(empty)
	}

	innerWidth := l.width - 4
	if innerWidth < 10 {
		innerWidth = 10
	}

	var rows []string
	for i, c := range l.conversations {
		itemStyle := l.theme.ConversationItem
		titleStyle := l.theme.ConversationTitle
		if i == l.selected {
			itemStyle = l.theme.ConversationSelected
		}
		switch c.Status {
		case model.ConversationPending:
			titleStyle = l.theme.ConversationPending
		case model.ConversationError:
			titleStyle = l.theme.ConversationError
		}

		title := util.TruncateWidth(c.DisplayTitle(), innerWidth-6)
		head := statusMarker(c) + " " + titleStyle.Render(title)
		meta := l.theme.ConversationMeta.Render(relativeTime(c.UpdatedAt))

		gap := innerWidth - lipgloss.Width(head) - lipgloss.Width(meta)
		if gap < 1 {
			gap = 1
		}
		line := head + strings.Repeat(" ", gap) + meta

		preview := l.theme.ConversationPreview.Render(
			util.TruncateWidth(c.Preview(), innerWidth))

		rows = append(rows, itemStyle.Width(innerWidth).Render(line+"\n"+preview))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return l.theme.ConversationList.Width(l.width).Height(l.height).Render(body)
}
