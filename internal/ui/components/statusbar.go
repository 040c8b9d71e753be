// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status is the connection/activity state shown in the status bar.
type Status int

const (
	StatusReady Status = iota
	StatusStreaming
	StatusThinking
	StatusConnecting
	StatusOffline
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusStreaming:
		return "Streaming..."
	case StatusThinking:
		return "Thinking..."
	case StatusConnecting:
		return "Connecting..."
	case StatusOffline:
		return "Offline"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns a shape indicator for the status, distinct from color
// for colorblind users.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusStreaming:
		return styles.StatusIndicators.Active
	case StatusThinking, StatusConnecting:
		return styles.StatusIndicators.Pending
	case StatusOffline:
		return "-"
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "?"
	}
}

// Shortcut is a key hint shown on the right side of the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// DefaultShortcuts are the hints shown when idle.
var DefaultShortcuts = []Shortcut{
	{Key: "ctrl+n", Desc: "new"},
	{Key: "ctrl+r", Desc: "retry"},
	{Key: "esc", Desc: "stop"},
	{Key: "ctrl+c", Desc: "quit"},
}

// StreamingShortcuts are the hints shown while a response streams.
var StreamingShortcuts = []Shortcut{
	{Key: "esc", Desc: "stop response"},
	{Key: "ctrl+c", Desc: "quit"},
}

// StatusBar is the bottom bar: status on the left, session countdown
// in the middle when close to expiry, shortcuts on the right.
type StatusBar struct {
	Status           Status
	MessageCount     int
	SessionRemaining time.Duration
	SessionWarning   bool
	Width            int
	theme            *styles.Theme
}

// NewStatusBar creates a StatusBar with default values.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status: StatusReady,
		Width:  80,
		theme:  theme,
	}
}

// SetWidth updates the bar width.
func (b *StatusBar) SetWidth(width int) {
	b.Width = width
}

// SetStatus updates the displayed status.
func (b *StatusBar) SetStatus(s Status) {
	b.Status = s
}

// SetSession updates the session countdown segment. The countdown only
// renders when warning is true.
func (b *StatusBar) SetSession(remaining time.Duration, warning bool) {
	b.SessionRemaining = remaining
	b.SessionWarning = warning
}

// statusStyle picks the themed style for the current status.
func (b *StatusBar) statusStyle() lipgloss.Style {
	switch b.Status {
	case StatusStreaming, StatusThinking:
		return b.theme.StatusStreaming
	case StatusOffline, StatusError:
		return b.theme.StatusOffline
	default:
		return b.theme.StatusConnected
	}
}

// shortcuts returns the hint set for the current status.
func (b *StatusBar) shortcuts() []Shortcut {
	if b.Status == StatusStreaming || b.Status == StatusThinking {
		return StreamingShortcuts
	}
	return DefaultShortcuts
}

// View renders the full status bar.
func (b *StatusBar) View() string {
	left := b.statusStyle().Render(b.Status.Icon() + " " + b.Status.String())
	if b.MessageCount > 0 {
		left += b.theme.ShortcutDesc.Render(fmt.Sprintf("  %d messages", b.MessageCount))
	}

	mid := ""
	if b.SessionWarning && b.SessionRemaining > 0 {
		mins := int(b.SessionRemaining.Minutes())
		secs := int(b.SessionRemaining.Seconds()) % 60
		mid = b.theme.WarningStyle.Render(fmt.Sprintf("session expires in %d:%02d", mins, secs))
	}

	var hints []string
	for _, sc := range b.shortcuts() {
		hints = append(hints,
			b.theme.ShortcutKey.Render(sc.Key)+" "+b.theme.ShortcutDesc.Render(sc.Desc))
	}
	right := strings.Join(hints, "  ")

	used := lipgloss.Width(left) + lipgloss.Width(mid) + lipgloss.Width(right)
	gap := b.Width - used - 4
	if gap < 2 {
		// Narrow terminal: drop the hints before the status.
		right = ""
		gap = b.Width - lipgloss.Width(left) - lipgloss.Width(mid) - 4
		if gap < 2 {
			gap = 2
		}
	}

	half := gap / 2
	line := left + strings.Repeat(" ", half) + mid + strings.Repeat(" ", gap-half) + right

	return b.theme.StatusBar.Width(b.Width).Render(line)
}
