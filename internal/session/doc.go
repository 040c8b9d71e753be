// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the authenticated identity for a parley run.
//
// The session store owns the current user, the bearer token handed out
// by the backend, and an inactivity timeout that signs the user out
// after a period without input. Sign-in goes through an Authenticator
// (implemented by the API client) so the store itself never talks to
// the network.
package session
