// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses parley's command line and implements the
// non-interactive subcommands: config inspection, usage statistics and
// version output. The default command launches the TUI.
package cli
