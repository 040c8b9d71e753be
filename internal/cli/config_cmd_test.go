// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley-tui/internal/config"
)

func TestHandleConfigSetPersists(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	config.ResetGlobalForTesting()

	err := HandleConfig(Args{Raw: []string{"set", "ui.theme", "light"}})
	require.NoError(t, err)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "light", cfg.UI.Theme)
}

func TestHandleConfigSetRejectsInvalidValue(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	config.ResetGlobalForTesting()

	err := HandleConfig(Args{Raw: []string{"set", "ui.theme", "neon"}})
	require.Error(t, err)

	// The bad value never reaches disk.
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "dark", cfg.UI.Theme)
}

func TestHandleConfigGetUnknownKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	config.ResetGlobalForTesting()

	err := HandleConfig(Args{Raw: []string{"get", "nope.nothing"}})
	require.Error(t, err)
}

func TestHandleConfigUsageErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	config.ResetGlobalForTesting()

	require.Error(t, HandleConfig(Args{Raw: []string{"get"}}))
	require.Error(t, HandleConfig(Args{Raw: []string{"set", "ui.theme"}}))
	require.Error(t, HandleConfig(Args{Raw: []string{"frob"}}))
}
