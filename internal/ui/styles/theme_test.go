// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"
)

func TestNewThemeInitializesStyles(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}

	// Spot-check that key styles render without panicking and carry
	// their configuration.
	if out := theme.HeaderTitle.Render("parley"); out == "" {
		t.Error("HeaderTitle renders empty")
	}
	if out := theme.UserBubble.Render("hello"); !strings.Contains(out, "hello") {
		t.Error("UserBubble lost its content")
	}
	if !theme.ToastError.GetBold() {
		t.Error("error toast should be bold")
	}
}

func TestNewThemeForPreference(t *testing.T) {
	dark := NewThemeFor("dark")
	if !dark.IsDark {
		t.Error("dark preference not honored")
	}
	light := NewThemeFor("light")
	if light.IsDark {
		t.Error("light preference not honored")
	}
	// auto keeps whatever the terminal reports; just must not panic
	_ = NewThemeFor("auto")
}

func TestThemeSetSize(t *testing.T) {
	theme := NewTheme()
	theme.SetSize(120, 40)
	if theme.Width != 120 || theme.Height != 40 {
		t.Errorf("size = %dx%d, want 120x40", theme.Width, theme.Height)
	}
}

func TestSpinnerDuration(t *testing.T) {
	if d := LineSpinner.Duration(); d != 100*time.Millisecond {
		t.Errorf("duration = %v, want 100ms", d)
	}
}

func TestAccessibleRenderers(t *testing.T) {
	tests := []struct {
		render func(string) string
		marker string
	}{
		{RenderSuccess, "[OK]"},
		{RenderError, "[X]"},
		{RenderWarning, "[!]"},
		{RenderInfo, "[i]"},
	}
	for _, tc := range tests {
		out := tc.render("message")
		if !strings.Contains(out, tc.marker) {
			t.Errorf("output %q missing shape indicator %s", out, tc.marker)
		}
		if !strings.Contains(out, "message") {
			t.Errorf("output %q missing message", out)
		}
	}
}
