// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the parley
// TUI: header, status bar, input area, conversation list, toast
// notifications, spinners and the session timeout overlay.
//
// Components here are pure presentation. State lives in the store,
// session and notify packages; components receive that state and render
// it with the active theme.
package components
