// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER COMPONENT
// =============================================================================

// Spinner wraps the bubbles spinner with a message and an optional
// elapsed-time display, used while waiting for the assistant's first
// token.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	isActive  bool
	showTimer bool
	theme     *styles.Theme
}

// NewSpinner creates a spinner with the default line animation.
func NewSpinner(theme *styles.Theme) Spinner {
	return newSpinner(theme, styles.LineSpinner, "Loading", false)
}

// NewThinkingSpinner creates the spinner shown between sending a
// message and receiving the first token.
func NewThinkingSpinner(theme *styles.Theme) Spinner {
	return newSpinner(theme, styles.BrailleSpinner, "Thinking", true)
}

func newSpinner(theme *styles.Theme, cfg styles.SpinnerConfig, message string, showTimer bool) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: cfg.Frames,
		FPS:    cfg.Duration(),
	}
	if theme != nil {
		s.Style = theme.Spinner
	}
	return Spinner{
		spinner:   s,
		message:   message,
		showTimer: showTimer,
		theme:     theme,
	}
}

// SetMessage updates the spinner label.
func (s *Spinner) SetMessage(message string) {
	s.message = message
}

// Start activates the spinner and resets the elapsed timer.
func (s *Spinner) Start() tea.Cmd {
	s.isActive = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive reports whether the spinner is running.
func (s *Spinner) IsActive() bool {
	return s.isActive
}

// Elapsed returns time since Start.
func (s *Spinner) Elapsed() time.Duration {
	if !s.isActive {
		return 0
	}
	return time.Since(s.startTime)
}

// Update advances the spinner animation.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	if !s.isActive {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// View renders the spinner frame, message and elapsed time.
func (s *Spinner) View() string {
	if !s.isActive {
		return ""
	}

	out := s.spinner.View() + " "
	if s.theme != nil {
		out += s.theme.ThinkingText.Render(s.message + "...")
	} else {
		out += s.message + "..."
	}

	if s.showTimer {
		elapsed := formatElapsed(s.Elapsed())
		if s.theme != nil {
			out += " " + s.theme.ThinkingTime.Render("("+elapsed+")")
		} else {
			out += " (" + elapsed + ")"
		}
	}
	return out
}

// formatElapsed renders a duration as "3.2s" under a minute and
// "1m05s" beyond.
func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%02ds", m, s)
}
