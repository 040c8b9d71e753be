// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// SESSION TIMEOUT OVERLAY
// =============================================================================

// TimeoutOverlay warns that the idle session is about to expire. It is
// driven by session.TimeoutWarningMsg and session.TickMsg; any key
// press counts as activity and hides it again.
type TimeoutOverlay struct {
	visible   bool
	remaining time.Duration
	expired   bool
	width     int
	height    int
	theme     *styles.Theme
}

// NewTimeoutOverlay creates a hidden overlay.
func NewTimeoutOverlay(theme *styles.Theme) *TimeoutOverlay {
	return &TimeoutOverlay{theme: theme}
}

// SetSize sets the viewport dimensions the overlay centers within.
func (o *TimeoutOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// Show displays the overlay with the given time remaining.
func (o *TimeoutOverlay) Show(remaining time.Duration) {
	o.visible = true
	o.remaining = remaining
	o.expired = remaining <= 0
}

// Hide dismisses the overlay after user activity.
func (o *TimeoutOverlay) Hide() {
	o.visible = false
	o.expired = false
}

// UpdateRemaining refreshes the countdown.
func (o *TimeoutOverlay) UpdateRemaining(remaining time.Duration) {
	o.remaining = remaining
	if remaining <= 0 {
		o.expired = true
	}
}

// IsVisible reports whether the overlay is showing.
func (o *TimeoutOverlay) IsVisible() bool {
	return o.visible
}

// IsExpired reports whether the countdown reached zero.
func (o *TimeoutOverlay) IsExpired() bool {
	return o.expired
}

// View renders the centered warning box, or "" when hidden.
func (o *TimeoutOverlay) View() string {
	if !o.visible {
		return ""
	}

	var body string
	if o.expired {
		body = o.theme.TimeoutTitle.Render("Session expired") + "\n\n" +
			"You have been signed out due to inactivity."
	} else {
		mins := int(o.remaining.Minutes())
		secs := int(o.remaining.Seconds()) % 60
		body = o.theme.TimeoutTitle.Render("Session expiring") + "\n\n" +
			"Your session will end in " +
			o.theme.TimeoutCountdown.Render(fmt.Sprintf("%d:%02d", mins, secs)) + "\n\n" +
			o.theme.ShortcutDesc.Render("press any key to stay signed in")
	}

	box := o.theme.TimeoutOverlay.Render(body)
	return lipgloss.Place(o.width, o.height, lipgloss.Center, lipgloss.Center, box)
}
