// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN FORM
// =============================================================================

// loginField identifies the focused form field.
type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
)

// loginForm is the email/password sign-in screen.
type loginForm struct {
	email    textinput.Model
	password textinput.Model
	focus    loginField
	busy     bool
	errText  string
	theme    *styles.Theme
}

func newLoginForm(theme *styles.Theme) loginForm {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Width = 36
	email.Prompt = ""

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.Width = 36
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	return loginForm{
		email:    email,
		password: password,
		theme:    theme,
	}
}

// Focus puts the cursor in the email field.
func (f *loginForm) Focus() tea.Cmd {
	f.focus = fieldEmail
	f.password.Blur()
	return f.email.Focus()
}

// Reset clears the form for the next sign-in.
func (f *loginForm) Reset() {
	f.email.Reset()
	f.password.Reset()
	f.errText = ""
	f.busy = false
	f.focus = fieldEmail
}

// CanSubmit reports whether both fields are filled and no attempt is
// running.
func (f *loginForm) CanSubmit() bool {
	return !f.busy &&
		strings.TrimSpace(f.email.Value()) != "" &&
		f.password.Value() != ""
}

// cycleFocus moves between the two fields.
func (f *loginForm) cycleFocus() tea.Cmd {
	if f.focus == fieldEmail {
		f.focus = fieldPassword
		f.email.Blur()
		return f.password.Focus()
	}
	f.focus = fieldEmail
	f.password.Blur()
	return f.email.Focus()
}

// Update routes key events to the focused field.
func (f *loginForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.focus == fieldEmail {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

// View renders the centered login box.
func (f *loginForm) View(width, height int) string {
	t := f.theme

	emailStyle := t.LoginField
	passStyle := t.LoginField
	if f.focus == fieldEmail {
		emailStyle = t.LoginFocused
	} else {
		passStyle = t.LoginFocused
	}

	var b strings.Builder
	b.WriteString(t.LoginTitle.Render("parley"))
	b.WriteString("\n\n")
	b.WriteString(t.LoginLabel.Render("Email"))
	b.WriteString("\n")
	b.WriteString(emailStyle.Render(f.email.View()))
	b.WriteString("\n\n")
	b.WriteString(t.LoginLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(passStyle.Render(f.password.View()))
	b.WriteString("\n\n")

	switch {
	case f.busy:
		b.WriteString(t.LoginHint.Render("Signing in..."))
	case f.errText != "":
		b.WriteString(t.ErrorStyle.Render(f.errText))
	default:
		b.WriteString(t.LoginHint.Render("tab to switch fields, enter to sign in"))
	}

	box := t.LoginBox.Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
