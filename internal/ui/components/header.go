// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/ui/styles"
	"github.com/jeranaias/parley-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar: the parley brand on the left, the active
// conversation title in the middle, the signed-in user on the right.
type Header struct {
	Brand        string
	Conversation string
	UserName     string
	Width        int
	theme        *styles.Theme
}

// NewHeader creates a Header with defaults.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Brand: "parley",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the available width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetConversation updates the displayed conversation title.
func (h *Header) SetConversation(title string) {
	h.Conversation = title
}

// SetUser updates the displayed user name.
func (h *Header) SetUser(name string) {
	h.UserName = name
}

// View renders the header bar.
func (h *Header) View() string {
	// The header style frames the line with a border and padding, so
	// the content budget is narrower than the declared width.
	inner := h.Width - h.theme.Header.GetHorizontalFrameSize()
	if inner < 20 {
		inner = 20
	}

	brand := h.theme.HeaderBrand.Render(h.Brand)

	userSeg := ""
	if h.UserName != "" {
		userSeg = h.theme.HeaderSubtitle.Render(h.UserName)
	}

	title := h.Conversation
	if title == "" {
		title = "No conversation"
	}
	maxTitle := inner - lipgloss.Width(brand) - lipgloss.Width(userSeg) - 4
	if maxTitle > 0 {
		title = util.TruncateWidth(title, maxTitle)
	}
	titleSeg := h.theme.HeaderTitle.Render(title)

	used := lipgloss.Width(brand) + 2 + lipgloss.Width(titleSeg) + lipgloss.Width(userSeg)
	gap := inner - used
	if gap < 1 {
		gap = 1
	}
	line := brand + "  " + titleSeg + strings.Repeat(" ", gap) + userSeg

	return h.theme.Header.Width(h.Width).Render(line)
}
