// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/parley-tui/internal/config"
	"github.com/jeranaias/parley-tui/internal/telemetry"
)

// =============================================================================
// STATS COMMAND
// =============================================================================

// HandleStats implements `parley stats`: a summary of local exchange
// telemetry, with optional recent listing and retention pruning.
func HandleStats(args Args) error {
	parser := NewArgParser(args.Raw)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Telemetry.Enabled {
		fmt.Println("Telemetry is disabled (telemetry.enabled = false).")
		return nil
	}

	recorder, err := telemetry.NewRecorder(cfg.Telemetry.DBPath, nil)
	if err != nil {
		return fmt.Errorf("open telemetry store: %w", err)
	}
	defer recorder.Close()

	if parser.HasFlag("prune") {
		days := parser.IntFlag("prune", 90)
		removed, err := recorder.Prune(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("prune: %w", err)
		}
		fmt.Printf("Removed %d exchanges older than %d days.\n", removed, days)
		return nil
	}

	days := parser.IntFlag("days", 30)
	summary, err := recorder.Summarize(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	if args.JSON {
		return json.NewEncoder(os.Stdout).Encode(summary)
	}

	fmt.Printf("Last %d days:\n", days)
	fmt.Printf("  exchanges:  %d (%d complete, %d failed, %d cancelled)\n",
		summary.Exchanges, summary.Completed, summary.Failed, summary.Cancelled)
	fmt.Printf("  tokens:     %d\n", summary.TotalTokens)
	if summary.AvgTTFT > 0 {
		fmt.Printf("  avg first token: %s\n", summary.AvgTTFT.Round(time.Millisecond))
	}
	if summary.AvgRate > 0 {
		fmt.Printf("  avg rate:   %.1f tokens/s\n", summary.AvgRate)
	}

	if n := parser.IntFlag("recent", 0); n > 0 {
		recent, err := recorder.Recent(n)
		if err != nil {
			return fmt.Errorf("recent: %w", err)
		}
		// Wide terminals get the conversation id column.
		wide := TerminalWidth() >= 100
		fmt.Println("\nRecent exchanges:")
		for _, stat := range recent {
			line := fmt.Sprintf("  %s  %-9s  %4d tokens  %s",
				stat.StartedAt.Format("2006-01-02 15:04"),
				stat.Outcome, stat.Tokens,
				stat.Duration.Round(10*time.Millisecond))
			if wide {
				line += "  " + stat.ConversationID
			}
			fmt.Println(line)
		}
	}
	return nil
}
