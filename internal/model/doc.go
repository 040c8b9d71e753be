// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for users, conversations and
// messages, including the status machines that reconcile optimistic client
// state with backend-confirmed state.
//
// # Key Types
//
//   - User: Authenticated identity resolved by the session store
//   - Conversation: A chat thread with ordered messages and a pending/active/error status
//   - Message: Single message with role, accumulating content, and a sending/streaming/complete/failed status
//   - StreamToken: One incremental fragment of an assistant response
//
// Conversations start life under a client-generated provisional identifier
// with StatusPending; when the backend confirms creation they are re-keyed
// to the server-assigned identifier and become StatusActive. Status changes
// go through explicit transition functions rather than ad hoc flag
// mutation, so terminal states can never be resurrected.
package model
