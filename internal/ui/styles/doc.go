// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles is the color palette and lipgloss theme of the terminal
// front ends.
//
// All colors are lipgloss.AdaptiveColor values, so light and dark terminals
// are handled without configuration. Status colors always come with an ASCII
// marker ([OK], [X], [!]) for terminals and readers without color.
//
// # Layout
//
// Theme.GetLayoutMode picks a responsive mode from the terminal width:
//
//	LayoutNarrow  - < 60 columns, sidebar hidden
//	LayoutMedium  - 60-100 columns
//	LayoutWide    - > 100 columns
package styles
