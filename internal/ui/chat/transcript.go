// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/model"
	"github.com/jeranaias/parley-tui/internal/ui/components"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// timestampLayout is the per-message timestamp format.
const timestampLayout = "15:04"

// renderTranscript renders the active conversation's messages for the
// viewport.
func (m *Model) renderTranscript() string {
	conv := m.ActiveConversation()
	if conv == nil {
		return m.theme.SystemNotice.Render("Select a conversation or press ctrl+n to start one.")
	}
	if len(conv.Messages) == 0 {
		return m.theme.SystemNotice.Render("No messages yet. Say hello.")
	}

	width := m.transcriptWidth() - 2
	if width < 20 {
		width = 20
	}

	blocks := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n\n")
}

// renderMessage renders one message bubble with its meta line.
func (m *Model) renderMessage(msg *model.Message, width int) string {
	meta := msg.Role.DisplayName()
	if m.cfg != nil && m.cfg.UI.ShowTimestamps {
		meta += "  " + msg.CreatedAt.Format(timestampLayout)
	}

	var bubble lipgloss.Style
	switch {
	case msg.Status == model.StatusFailed:
		bubble = m.theme.FailedMessage
	case msg.Role == model.RoleUser:
		bubble = m.theme.UserBubble
	default:
		bubble = m.theme.AssistantBubble
	}

	body := m.renderBody(msg)

	lines := []string{
		m.theme.MessageMeta.Render(meta),
		bubble.MaxWidth(width).Render(body),
	}

	if note := statusNote(msg); note != "" {
		lines = append(lines, m.theme.RetryHint.Render(note))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderBody formats message content: markdown for settled assistant
// messages, plain text with a typing cursor while streaming.
func (m *Model) renderBody(msg *model.Message) string {
	content := msg.DisplayContent()

	switch msg.Status {
	case model.StatusStreaming:
		if content == "" {
			return m.spinner.View()
		}
		return content + styles.TypingCursor[0]
	case model.StatusComplete:
		if msg.Role == model.RoleAssistant {
			return m.renderRichText(content)
		}
		return content
	default:
		return content
	}
}

// renderRichText runs assistant prose through glamour when enabled,
// otherwise highlights fenced code blocks only.
func (m *Model) renderRichText(content string) string {
	if m.markdown != nil {
		rendered, err := m.markdown.Render(content)
		if err == nil {
			return strings.TrimSpace(rendered)
		}
	}
	return components.HighlightFenced(content)
}

// statusNote returns the hint line shown under non-settled messages.
func statusNote(msg *model.Message) string {
	switch msg.Status {
	case model.StatusSending:
		return "sending..."
	case model.StatusFailed:
		if msg.Role == model.RoleUser {
			return "not delivered - ctrl+r to retry"
		}
		return "response failed - ctrl+r to retry"
	default:
		return ""
	}
}

// lastFailedMessageID returns the newest failed message in the
// conversation for the retry shortcut, or "".
func lastFailedMessageID(conv *model.Conversation) string {
	if conv == nil {
		return ""
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Status == model.StatusFailed {
			return conv.Messages[i].ID
		}
	}
	return ""
}
