// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory conversation repository for parley.
//
// The repository is the single source of truth for conversation and
// message state during a session. It is not a persistence layer: the
// hosted backend owns durable history, and the repository only mirrors
// what the client has seen or optimistically created.
//
// Every mutation publishes an immutable snapshot to all subscribers, so
// views can re-render from a consistent copy without holding locks or
// worrying about concurrent writes from streaming goroutines.
package store
