// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns chat message markdown into safe HTML for the browser
// and into styled text for terminals.
//
// Model output is untrusted. HTML goes through goldmark, code blocks are
// highlighted with chroma, and the result is sanitized with bluemonday
// before it reaches a template.
//
// # Usage
//
//	h := render.NewHTML("github")
//	safe := h.Render(msg.Content) // template.HTML
//
//	term := render.NewTerminal(80, "auto")
//	fmt.Print(term.Render(msg.Content))
package render
