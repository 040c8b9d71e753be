// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the parley TUI.
//
// All colors use Lip Gloss AdaptiveColor so the palette adjusts to the
// terminal's light or dark background automatically. The Theme type
// bundles every styled component the UI renders; construct one with
// NewTheme and share it across components.
package styles
