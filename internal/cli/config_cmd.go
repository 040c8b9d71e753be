// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/parley-tui/internal/config"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfig implements `parley config [show|get|set|path]`.
func HandleConfig(args Args) error {
	parser := NewArgParser(args.Raw)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch parser.Subcommand() {
	case "", "show":
		return configShow(cfg)
	case "get":
		rest := parser.Positional()
		if len(rest) != 1 {
			return fmt.Errorf("usage: parley config get <key>")
		}
		value, err := cfg.Get(rest[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	case "set":
		rest := parser.Positional()
		if len(rest) != 2 {
			return fmt.Errorf("usage: parley config set <key> <value>")
		}
		return configSet(cfg, rest[0], rest[1])
	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	default:
		return fmt.Errorf("unknown config subcommand %q", parser.Subcommand())
	}
}

// configShow prints every known key with its current value.
func configShow(cfg *config.Config) error {
	for _, key := range config.GetAllKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("%-28s %v\n", key, value)
	}
	return nil
}

// configSet applies and persists one value, validating the result
// before anything touches disk.
func configSet(cfg *config.Config, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(os.Stdout, "%s = %s\n", key, value)
	return nil
}
