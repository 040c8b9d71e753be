// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry records per-exchange timing statistics locally.
//
// Stats (time to first token, total duration, token counts) are written
// to a SQLite database under ~/.parley and never leave the machine.
package telemetry
