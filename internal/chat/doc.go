// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the coordinator that drives conversation
// exchanges.
//
// The coordinator sits between the UI's intents and the backend: it
// applies optimistic repository updates, opens the token stream for
// each exchange, patches tokens into the assistant message as they
// arrive, and settles both sides of the exchange to a terminal status
// on completion, failure, or cancellation. One exchange may be in
// flight per conversation; different conversations stream concurrently.
package chat
