// parley - a terminal client for the parley chat service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/parley-tui/internal/api"
	chatsvc "github.com/jeranaias/parley-tui/internal/chat"
	"github.com/jeranaias/parley-tui/internal/cli"
	"github.com/jeranaias/parley-tui/internal/config"
	"github.com/jeranaias/parley-tui/internal/notify"
	"github.com/jeranaias/parley-tui/internal/session"
	"github.com/jeranaias/parley-tui/internal/store"
	"github.com/jeranaias/parley-tui/internal/telemetry"
	uichat "github.com/jeranaias/parley-tui/internal/ui/chat"
	"github.com/jeranaias/parley-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI()
	case cli.CmdConfig:
		exitOnError(cli.HandleConfig(args))
	case cli.CmdStats:
		exitOnError(cli.HandleStats(args))
	case cli.CmdVersion:
		cli.HandleVersion()
	default:
		cli.PrintUsage()
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI wires the application together and runs the Bubble Tea
// program until exit.
func runTUI() {
	if !cli.IsTTY() || !cli.IsStdoutTTY() {
		fmt.Fprintln(os.Stderr, "parley needs an interactive terminal; see 'parley help'")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("parley starting",
		zap.String("version", Version),
		zap.String("backend", cfg.Backend.BaseURL))

	// Backend client and shared state.
	client := api.NewClient(cfg.Backend.BaseURL, logger).
		WithMaxRetries(cfg.Backend.MaxRetries)

	sess := session.NewStore(client, session.Config{
		Timeout:       time.Duration(cfg.Session.TimeoutSecs) * time.Second,
		WarningBefore: time.Duration(cfg.Session.WarningSecs) * time.Second,
	}, logger)
	client.SetTokenSource(sess.Token)

	convs := store.NewConversationStore(logger)
	notifier := notify.NewCenter(logger)

	coord := chatsvc.NewCoordinator(convs, sess, chatsvc.NewAPIOpener(client), notifier,
		logger, time.Duration(cfg.Backend.TokenTimeoutSecs)*time.Second)
	defer coord.Close()

	// Local usage statistics, recorded off the hot path.
	if cfg.Telemetry.Enabled {
		recorder, err := telemetry.NewRecorder(cfg.Telemetry.DBPath, logger)
		if err != nil {
			logger.Warn("telemetry unavailable", zap.Error(err))
		} else {
			defer recorder.Close()
			coord.SetStatsRecorder(recorder)
		}
	}

	// Signing out anywhere drops local conversation state.
	sess.OnLogout(func() {
		convs.Clear()
	})

	theme := styles.NewThemeFor(cfg.UI.Theme)

	model := uichat.New(uichat.Deps{
		Config:   cfg,
		Theme:    theme,
		Client:   client,
		Session:  sess,
		Store:    convs,
		Coord:    coord,
		Notifier: notifier,
		Logger:   logger,
	})
	defer model.Release()

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.MouseEnabled {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	program := tea.NewProgram(model, opts...)

	// Hot-reload config edits while the TUI runs. The new config is
	// delivered as a message so the model applies it on its own
	// goroutine.
	watcher, err := config.NewWatcher(func(next *config.Config) {
		program.Send(uichat.ConfigReloadedMsg{Config: next})
		logger.Info("configuration applied")
	}, logger)
	if err == nil {
		if err := watcher.Watch(); err != nil {
			logger.Warn("config watch unavailable", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	if _, err := program.Run(); err != nil {
		logger.Error("program failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("parley exiting")
}

// buildLogger constructs the zap logger from config. Logs go to a file
// so they never corrupt the TUI; an empty path means ~/.parley/parley.log.
func buildLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	path := lc.Path
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return zap.NewNop(), nil
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return zap.NewNop(), nil
		}
		path = filepath.Join(dir, "parley.log")
	}

	level := zapcore.InfoLevel
	if err := level.Set(lc.Level); err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{path}
	zcfg.ErrorOutputPaths = []string{path}
	zcfg.Encoding = "json"
	return zcfg.Build()
}
