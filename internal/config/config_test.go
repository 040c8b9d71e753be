// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "bad backend scheme",
			mutate: func(c *Config) { c.Backend.BaseURL = "ftp://example.com" },
			field:  "backend.base_url",
		},
		{
			name:   "zero backend timeout",
			mutate: func(c *Config) { c.Backend.TimeoutSecs = 0 },
			field:  "backend.timeout_secs",
		},
		{
			name:   "negative retries",
			mutate: func(c *Config) { c.Backend.MaxRetries = -1 },
			field:  "backend.max_retries",
		},
		{
			name:   "token timeout too small",
			mutate: func(c *Config) { c.Backend.TokenTimeoutSecs = 1 },
			field:  "backend.token_timeout_secs",
		},
		{
			name:   "session timeout too short",
			mutate: func(c *Config) { c.Session.TimeoutSecs = 60 },
			field:  "session.timeout_secs",
		},
		{
			name:   "warning exceeds timeout",
			mutate: func(c *Config) { c.Session.WarningSecs = c.Session.TimeoutSecs },
			field:  "session.warning_secs",
		},
		{
			name:   "unknown theme",
			mutate: func(c *Config) { c.UI.Theme = "solarized" },
			field:  "ui.theme",
		},
		{
			name:   "toast ttl out of range",
			mutate: func(c *Config) { c.Notifications.TTLSecs = 900 },
			field:  "notifications.ttl_secs",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			field:  "logging.level",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not mention field %s", err, tc.field)
			}
		})
	}
}

func TestSetDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Backend.BaseURL == "" {
		t.Error("backend base URL not defaulted")
	}
	if cfg.Session.TimeoutSecs != 900 {
		t.Errorf("session timeout = %d, want 900", cfg.Session.TimeoutSecs)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("theme = %q, want dark", cfg.UI.Theme)
	}
	if cfg.Notifications.MaxVisible != 5 {
		t.Errorf("max visible = %d, want 5", cfg.Notifications.MaxVisible)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaulted config must validate: %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PARLEY_BACKEND_URL", "https://staging.parley.dev/v1")
	t.Setenv("PARLEY_THEME", "light")
	t.Setenv("PARLEY_LOG_LEVEL", "debug")
	t.Setenv("PARLEY_SESSION_TIMEOUT", "600")
	t.Setenv("PARLEY_VIM", "1")
	t.Setenv("PARLEY_NO_TELEMETRY", "true")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.BaseURL != "https://staging.parley.dev/v1" {
		t.Errorf("base URL = %q", cfg.Backend.BaseURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Session.TimeoutSecs != 600 {
		t.Errorf("session timeout = %d", cfg.Session.TimeoutSecs)
	}
	if !cfg.UI.VimMode {
		t.Error("vim mode not enabled")
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry not disabled")
	}
}

func TestApplyEnvOverridesIgnoresInvalidTimeout(t *testing.T) {
	t.Setenv("PARLEY_SESSION_TIMEOUT", "soon")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Session.TimeoutSecs != 900 {
		t.Errorf("unparseable timeout should keep default, got %d", cfg.Session.TimeoutSecs)
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("ui.theme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "dark" {
		t.Errorf("ui.theme = %v, want dark", val)
	}

	if err := cfg.Set("ui.theme", "light"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme after Set = %q", cfg.UI.Theme)
	}

	// String-to-int conversion.
	if err := cfg.Set("session.timeout_secs", "1200"); err != nil {
		t.Fatalf("Set int from string failed: %v", err)
	}
	if cfg.Session.TimeoutSecs != 1200 {
		t.Errorf("timeout = %d, want 1200", cfg.Session.TimeoutSecs)
	}

	// String-to-bool conversion.
	if err := cfg.Set("ui.vim_mode", "true"); err != nil {
		t.Fatalf("Set bool from string failed: %v", err)
	}
	if !cfg.UI.VimMode {
		t.Error("vim_mode not set")
	}

	if _, err := cfg.Get("nonsense.key"); err == nil {
		t.Error("Get of unknown key should fail")
	}
	if err := cfg.Set("backend.nope", 1); err == nil {
		t.Error("Set of unknown key should fail")
	}
}

func TestGetAllKeysResolvable(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("key %s not resolvable: %v", key, err)
		}
	}
}

func TestMergeOverwritesNonZero(t *testing.T) {
	base := Default()
	base.Merge(&Config{
		Backend: BackendConfig{BaseURL: "https://other.example/v1"},
		UI:      UIConfig{Theme: "light", VimMode: true},
	})

	if base.Backend.BaseURL != "https://other.example/v1" {
		t.Errorf("base URL = %q", base.Backend.BaseURL)
	}
	if base.UI.Theme != "light" || !base.UI.VimMode {
		t.Error("UI fields not merged")
	}
	// Untouched fields keep their values.
	if base.Session.TimeoutSecs != 900 {
		t.Errorf("session timeout = %d, want 900", base.Session.TimeoutSecs)
	}

	base.Merge(nil) // must not panic
}

func TestLoadFromPathTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
version = "1.0.0"

[backend]
base_url = "https://test.example/v1"

[ui]
theme = "light"
vim_mode = true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Backend.BaseURL != "https://test.example/v1" {
		t.Errorf("base URL = %q", cfg.Backend.BaseURL)
	}
	if cfg.UI.Theme != "light" || !cfg.UI.VimMode {
		t.Error("UI settings not loaded")
	}
	// Missing sections fall back to defaults and still validate.
	if cfg.Session.TimeoutSecs != 900 {
		t.Errorf("session timeout = %d, want defaulted 900", cfg.Session.TimeoutSecs)
	}
}

func TestLoadFromPathJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"ui": {"theme": "auto"}, "logging": {"level": "warn"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[ui]
theme = "neon"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("invalid theme must fail validation")
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.UI.Theme = "light"
	cfg.Session.TimeoutSecs = 1200

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("theme = %q after round trip", loaded.UI.Theme)
	}
	if loaded.Session.TimeoutSecs != 1200 {
		t.Errorf("timeout = %d after round trip", loaded.Session.TimeoutSecs)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.UI.Theme = "light"
	if cfg.UI.Theme == "light" {
		t.Error("clone mutation leaked into original")
	}
}

func TestStringOutputsJSON(t *testing.T) {
	s := Default().String()
	if !strings.Contains(s, "base_url") {
		t.Errorf("String output missing fields: %s", s)
	}
}
