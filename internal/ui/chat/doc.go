// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the Bubble Tea application model for the parley TUI.
//
// The model is a thin view over shared state owned elsewhere: the
// conversation store, the session store and the notification center
// all push changes through subscription channels that Update drains as
// Bubble Tea messages. User intent (send, retry, cancel, new
// conversation) is dispatched to the chat coordinator, which owns the
// exchange lifecycle; the model never mutates conversation state
// directly.
//
// Two screens share the model: the login form shown while the session
// is unauthenticated, and the chat layout (conversation sidebar,
// transcript viewport, composer, status bar) once signed in.
package chat
