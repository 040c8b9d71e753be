// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/parley-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete parley configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend connection settings
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Session (idle timeout) settings
	Session SessionConfig `toml:"session" json:"session"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Notification toast behaviour
	Notifications NotificationConfig `toml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// Local exchange telemetry
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`
}

// BackendConfig contains the hosted backend connection settings.
type BackendConfig struct {
	// BaseURL is the backend API root, e.g. https://api.parley.dev/v1
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the per-request timeout for non-streaming calls
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries is the retry budget for transient request failures
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// TokenTimeoutSecs is the inter-token timeout during streaming;
	// a stream that produces no token within this window is failed
	TokenTimeoutSecs int `toml:"token_timeout_secs" json:"token_timeout_secs"`
}

// SessionConfig contains idle-timeout settings for the signed-in session.
type SessionConfig struct {
	// TimeoutSecs is the inactivity window before automatic sign-out
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// WarningSecs is how long before expiry the timeout warning shows
	WarningSecs int `toml:"warning_secs" json:"warning_secs"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowTimestamps displays message timestamps in the transcript
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// VimMode enables vim-style modal editing
	VimMode bool `toml:"vim_mode" json:"vim_mode"`
	// MouseEnabled enables mouse wheel scrolling in the transcript
	MouseEnabled bool `toml:"mouse_enabled" json:"mouse_enabled"`
	// MarkdownRendering renders assistant replies as styled markdown
	MarkdownRendering bool `toml:"markdown_rendering" json:"markdown_rendering"`
}

// NotificationConfig controls transient toast notifications.
type NotificationConfig struct {
	// TTLSecs is how long regular toasts remain visible
	TTLSecs int `toml:"ttl_secs" json:"ttl_secs"`
	// ErrorTTLSecs is how long error toasts remain visible
	ErrorTTLSecs int `toml:"error_ttl_secs" json:"error_ttl_secs"`
	// MaxVisible caps how many toasts stack at once
	MaxVisible int `toml:"max_visible" json:"max_visible"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	Level string `toml:"level" json:"level"`
	// Path is the log file location (empty = ~/.parley/parley.log)
	Path string `toml:"path" json:"path"`
}

// TelemetryConfig controls local exchange statistics collection.
// Stats never leave the machine; they land in a local SQLite file.
type TelemetryConfig struct {
	// Enabled turns per-exchange timing collection on or off
	Enabled bool `toml:"enabled" json:"enabled"`
	// DBPath is the SQLite file location (empty = ~/.parley/telemetry.db)
	DBPath string `toml:"db_path" json:"db_path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			BaseURL:          "https://api.parley.dev/v1",
			TimeoutSecs:      30,
			MaxRetries:       3,
			TokenTimeoutSecs: 30,
		},

		Session: SessionConfig{
			TimeoutSecs: 900, // 15 minutes
			WarningSecs: 120,
		},

		UI: UIConfig{
			Theme:             "dark",
			ShowTimestamps:    true,
			CompactMode:       false,
			VimMode:           false,
			MouseEnabled:      true,
			MarkdownRendering: true,
		},

		Notifications: NotificationConfig{
			TTLSecs:      5,
			ErrorTTLSecs: 8,
			MaxVisible:   5,
		},

		Logging: LoggingConfig{
			Level: "info",
			Path:  "",
		},

		Telemetry: TelemetryConfig{
			Enabled: true,
			DBPath:  "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the parley configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".parley"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Defaults only
	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finishLoad applies env overrides, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. JSON files are detected by extension; everything else is
// treated as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# parley configuration file\n")
	buf.WriteString("# Generated by parley - edit with care\n")
	buf.WriteString("#\n")
	buf.WriteString("# Documentation: https://github.com/jeranaias/parley-tui\n")
	buf.WriteString("\n")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Atomic write with fsync prevents a torn config on crash.
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// ==========================================================================
	// Backend Settings Validation
	// ==========================================================================

	if c.Backend.BaseURL != "" {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "backend.base_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   "backend.base_url",
				Message: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme),
			})
		}
	}

	if c.Backend.TimeoutSecs < 1 || c.Backend.TimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: fmt.Sprintf("must be 1-300 seconds, got %d", c.Backend.TimeoutSecs),
		})
	}

	if c.Backend.MaxRetries < 0 || c.Backend.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "backend.max_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.Backend.MaxRetries),
		})
	}

	if c.Backend.TokenTimeoutSecs < 5 || c.Backend.TokenTimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "backend.token_timeout_secs",
			Message: fmt.Sprintf("must be 5-300 seconds, got %d", c.Backend.TokenTimeoutSecs),
		})
	}

	// ==========================================================================
	// Session Settings Validation
	// ==========================================================================

	// The idle timeout keeps unattended terminals from staying signed
	// in; anything under 5 minutes makes normal reading impossible.
	if c.Session.TimeoutSecs < 300 || c.Session.TimeoutSecs > 7200 {
		errs = append(errs, ValidationError{
			Field:   "session.timeout_secs",
			Message: fmt.Sprintf("must be 300-7200 seconds, got %d", c.Session.TimeoutSecs),
		})
	}

	if c.Session.WarningSecs < 10 || c.Session.WarningSecs >= c.Session.TimeoutSecs {
		errs = append(errs, ValidationError{
			Field:   "session.warning_secs",
			Message: fmt.Sprintf("must be at least 10 and below the session timeout, got %d", c.Session.WarningSecs),
		})
	}

	// ==========================================================================
	// UI Settings Validation
	// ==========================================================================

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	// ==========================================================================
	// Notification Settings Validation
	// ==========================================================================

	if c.Notifications.TTLSecs < 1 || c.Notifications.TTLSecs > 60 {
		errs = append(errs, ValidationError{
			Field:   "notifications.ttl_secs",
			Message: fmt.Sprintf("must be 1-60 seconds, got %d", c.Notifications.TTLSecs),
		})
	}

	if c.Notifications.ErrorTTLSecs < 1 || c.Notifications.ErrorTTLSecs > 120 {
		errs = append(errs, ValidationError{
			Field:   "notifications.error_ttl_secs",
			Message: fmt.Sprintf("must be 1-120 seconds, got %d", c.Notifications.ErrorTTLSecs),
		})
	}

	if c.Notifications.MaxVisible < 1 || c.Notifications.MaxVisible > 10 {
		errs = append(errs, ValidationError{
			Field:   "notifications.max_visible",
			Message: fmt.Sprintf("must be 1-10, got %d", c.Notifications.MaxVisible),
		})
	}

	// ==========================================================================
	// Logging Settings Validation
	// ==========================================================================

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills in defaults for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// Backend
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if c.Backend.MaxRetries == 0 {
		c.Backend.MaxRetries = defaults.Backend.MaxRetries
	}
	if c.Backend.TokenTimeoutSecs == 0 {
		c.Backend.TokenTimeoutSecs = defaults.Backend.TokenTimeoutSecs
	}

	// Session
	if c.Session.TimeoutSecs == 0 {
		c.Session.TimeoutSecs = defaults.Session.TimeoutSecs
	}
	if c.Session.WarningSecs == 0 {
		c.Session.WarningSecs = defaults.Session.WarningSecs
	}

	// UI
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	// Notifications
	if c.Notifications.TTLSecs == 0 {
		c.Notifications.TTLSecs = defaults.Notifications.TTLSecs
	}
	if c.Notifications.ErrorTTLSecs == 0 {
		c.Notifications.ErrorTTLSecs = defaults.Notifications.ErrorTTLSecs
	}
	if c.Notifications.MaxVisible == 0 {
		c.Notifications.MaxVisible = defaults.Notifications.MaxVisible
	}

	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - PARLEY_BACKEND_URL: overrides backend.base_url
//   - PARLEY_THEME: overrides ui.theme
//   - PARLEY_LOG_LEVEL: overrides logging.level
//   - PARLEY_LOG_PATH: overrides logging.path
//   - PARLEY_SESSION_TIMEOUT: overrides session.timeout_secs
//   - PARLEY_VIM: enables vim-style editing
//   - PARLEY_NO_TELEMETRY: disables local exchange telemetry
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("PARLEY_BACKEND_URL"); u != "" {
		c.Backend.BaseURL = u
	}

	if theme := os.Getenv("PARLEY_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if level := os.Getenv("PARLEY_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if path := os.Getenv("PARLEY_LOG_PATH"); path != "" {
		c.Logging.Path = path
	}

	if timeout := os.Getenv("PARLEY_SESSION_TIMEOUT"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil {
			c.Session.TimeoutSecs = secs
		}
	}

	if vim := os.Getenv("PARLEY_VIM"); vim != "" {
		c.UI.VimMode = vim == "1" || strings.ToLower(vim) == "true"
	}

	if noTel := os.Getenv("PARLEY_NO_TELEMETRY"); noTel != "" {
		if noTel == "1" || strings.ToLower(noTel) == "true" {
			c.Telemetry.Enabled = false
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("field '%s' cannot be set", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case key segment to the Go field name.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// Handle string input with type conversion
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	// Direct assignment for matching types
	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	// Type conversion for compatible types
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"backend.base_url",
		"backend.timeout_secs",
		"backend.max_retries",
		"backend.token_timeout_secs",
		"session.timeout_secs",
		"session.warning_secs",
		"ui.theme",
		"ui.show_timestamps",
		"ui.compact_mode",
		"ui.vim_mode",
		"ui.mouse_enabled",
		"ui.markdown_rendering",
		"notifications.ttl_secs",
		"notifications.error_ttl_secs",
		"notifications.max_visible",
		"logging.level",
		"logging.path",
		"telemetry.enabled",
		"telemetry.db_path",
	}
}

// Merge merges another config into this one, overwriting only non-zero values.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Version != "" {
		c.Version = other.Version
	}

	// Backend
	if other.Backend.BaseURL != "" {
		c.Backend.BaseURL = other.Backend.BaseURL
	}
	if other.Backend.TimeoutSecs != 0 {
		c.Backend.TimeoutSecs = other.Backend.TimeoutSecs
	}
	if other.Backend.MaxRetries != 0 {
		c.Backend.MaxRetries = other.Backend.MaxRetries
	}
	if other.Backend.TokenTimeoutSecs != 0 {
		c.Backend.TokenTimeoutSecs = other.Backend.TokenTimeoutSecs
	}

	// Session
	if other.Session.TimeoutSecs != 0 {
		c.Session.TimeoutSecs = other.Session.TimeoutSecs
	}
	if other.Session.WarningSecs != 0 {
		c.Session.WarningSecs = other.Session.WarningSecs
	}

	// UI
	if other.UI.Theme != "" {
		c.UI.Theme = other.UI.Theme
	}
	if other.UI.ShowTimestamps {
		c.UI.ShowTimestamps = true
	}
	if other.UI.CompactMode {
		c.UI.CompactMode = true
	}
	if other.UI.VimMode {
		c.UI.VimMode = true
	}
	if other.UI.MouseEnabled {
		c.UI.MouseEnabled = true
	}
	if other.UI.MarkdownRendering {
		c.UI.MarkdownRendering = true
	}

	// Notifications
	if other.Notifications.TTLSecs != 0 {
		c.Notifications.TTLSecs = other.Notifications.TTLSecs
	}
	if other.Notifications.ErrorTTLSecs != 0 {
		c.Notifications.ErrorTTLSecs = other.Notifications.ErrorTTLSecs
	}
	if other.Notifications.MaxVisible != 0 {
		c.Notifications.MaxVisible = other.Notifications.MaxVisible
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Path != "" {
		c.Logging.Path = other.Logging.Path
	}

	// Telemetry
	if other.Telemetry.Enabled {
		c.Telemetry.Enabled = true
	}
	if other.Telemetry.DBPath != "" {
		c.Telemetry.DBPath = other.Telemetry.DBPath
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
