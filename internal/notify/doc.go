// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify implements the transient notification center for parley.
//
// Notifications are short-lived, non-blocking messages (network errors,
// stream cancellations, sign-in confirmations) that auto-dismiss after a
// per-kind time to live. Each notification carries its own dismissal
// timer, so dismissing one early never disturbs the others.
package notify
