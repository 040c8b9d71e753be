// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdConfig
	CmdStats
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Verbose bool
	JSON    bool

	// Command-specific
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args remaining after command extraction
	Raw []string
}

const usageText = `parley - terminal client for the parley chat service

Usage:
  parley                      Start the chat TUI (default)
  parley config [show|get|set|path]
                              Inspect or change configuration
  parley stats [--days N] [--recent N] [--prune N]
                              Show usage statistics
  parley version              Show version information
  parley help                 Show this help

Config examples:
  parley config show
  parley config get ui.theme
  parley config set ui.theme light

Environment:
  PARLEY_BACKEND_URL          Override the backend base URL
  PARLEY_THEME                dark, light or auto
  PARLEY_LOG_LEVEL            debug, info, warn or error
  PARLEY_NO_TELEMETRY         Disable local usage statistics
`

// Parse inspects os.Args and returns the command to run with its
// arguments.
func Parse() (Command, Args) {
	raw := os.Args[1:]
	args := Args{}

	// Pull out global flags wherever they appear.
	rest := make([]string, 0, len(raw))
	for _, a := range raw {
		switch a {
		case "--verbose", "-v":
			args.Verbose = true
		case "--json":
			args.JSON = true
		default:
			rest = append(rest, a)
		}
	}
	args.Raw = rest

	if len(rest) == 0 {
		return CmdTUI, args
	}

	switch rest[0] {
	case "config":
		args.Raw = rest[1:]
		return CmdConfig, args
	case "stats":
		args.Raw = rest[1:]
		return CmdStats, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "parley: unknown command %q\n\n", rest[0])
		return CmdHelp, args
	}
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("parley %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
