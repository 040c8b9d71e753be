// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the parley backend.
//
// The backend owns authentication, durable conversation history, and
// assistant inference. This package covers the auth endpoints, the
// conversation endpoints, and the Server-Sent Events exchange stream
// that delivers assistant tokens one frame at a time.
//
// Requests share pooled HTTP clients: one with a timeout for unary
// calls, one without for streams, where lifetime is controlled by the
// caller's context. Transient failures (5xx, rate limiting) are retried
// with exponential backoff.
package api
