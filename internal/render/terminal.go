// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Terminal renders markdown for terminal display with glamour.
type Terminal struct {
	r *glamour.TermRenderer
}

// NewTerminal creates a renderer wrapping at width. theme is "auto" or a
// glamour style name ("dark", "light", "notty", ...). If glamour cannot be
// set up, Render returns its input unchanged.
func NewTerminal(width int, theme string) *Terminal {
	if width <= 0 {
		width = 80
	}

	style := glamour.WithAutoStyle()
	if theme != "" && theme != "auto" {
		style = glamour.WithStandardStyle(theme)
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return &Terminal{}
	}
	return &Terminal{r: r}
}

// Render renders content, falling back to the plain text on failure.
func (t *Terminal) Render(content string) string {
	if t == nil || t.r == nil {
		return content
	}
	out, err := t.r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n") + "\n"
}
