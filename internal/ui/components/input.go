// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// INPUT AREA COMPONENT
// =============================================================================

// MaxMessageChars is the input character limit, matching the backend's
// message size cap.
const MaxMessageChars = 4096

// charCountWarnAt is the remaining-character threshold below which the
// counter turns amber.
const charCountWarnAt = 256

// InputArea is the single-line message composer at the bottom of the
// chat view.
type InputArea struct {
	input   textinput.Model
	width   int
	focused bool
	theme   *styles.Theme
}

// NewInputArea creates the message input with parley styling.
func NewInputArea(theme *styles.Theme) *InputArea {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.CharLimit = MaxMessageChars
	ti.Width = 70
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.TextStyle = theme.InputText
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Cursor.Style = theme.InputPrompt

	return &InputArea{
		input: ti,
		width: 80,
		theme: theme,
	}
}

// Focus gives the input keyboard focus.
func (i *InputArea) Focus() tea.Cmd {
	i.focused = true
	return i.input.Focus()
}

// Blur removes keyboard focus.
func (i *InputArea) Blur() {
	i.focused = false
	i.input.Blur()
}

// Focused reports whether the input has focus.
func (i *InputArea) Focused() bool {
	return i.focused
}

// Value returns the current input text.
func (i *InputArea) Value() string {
	return i.input.Value()
}

// IsBlank reports whether the input is empty or whitespace-only, which
// the coordinator would reject.
func (i *InputArea) IsBlank() bool {
	return strings.TrimSpace(i.input.Value()) == ""
}

// Reset clears the input after a message is dispatched.
func (i *InputArea) Reset() {
	i.input.Reset()
}

// SetValue replaces the input text, for recalling a failed message.
func (i *InputArea) SetValue(s string) {
	i.input.SetValue(s)
	i.input.CursorEnd()
}

// SetWidth adjusts the input to the terminal width.
func (i *InputArea) SetWidth(width int) {
	i.width = width
	inner := width - 6 // borders, prompt, counter gutter
	if inner < 20 {
		inner = 20
	}
	i.input.Width = inner
}

// Update handles key events.
func (i *InputArea) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.input, cmd = i.input.Update(msg)
	return cmd
}

// View renders the bordered input with a character counter when the
// limit is close.
func (i *InputArea) View() string {
	line := i.input.View()

	remaining := MaxMessageChars - len(i.input.Value())
	if remaining <= charCountWarnAt {
		counter := fmt.Sprintf("%d", remaining)
		style := i.theme.CharCount
		if remaining <= charCountWarnAt/4 {
			style = i.theme.CharCountWarning
		}
		line += " " + style.Render(counter)
	}

	return i.theme.InputContainer.Width(i.width - 2).Render(line)
}
