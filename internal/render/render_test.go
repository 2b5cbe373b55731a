// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML_Render_Markdown(t *testing.T) {
	h := NewHTML("")

	out := string(h.Render("**bold** and `code`"))
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<code>code</code>")
}

func TestHTML_Render_HardWraps(t *testing.T) {
	out := string(NewHTML("").Render("line one\nline two"))
	assert.Contains(t, out, "<br")
}

func TestHTML_Render_StripsScripts(t *testing.T) {
	h := NewHTML("")

	tests := []string{
		"<script>alert(1)</script>",
		"[x](javascript:alert(1))",
		`<img src=x onerror="alert(1)">`,
	}
	for _, in := range tests {
		out := strings.ToLower(string(h.Render(in)))
		assert.NotContains(t, out, "<script", "input %q", in)
		assert.NotContains(t, out, "javascript:", "input %q", in)
		assert.NotContains(t, out, "onerror", "input %q", in)
	}
}

func TestHTML_Render_HighlightsCode(t *testing.T) {
	out := string(NewHTML("github").Render("```go\nfunc main() {}\n```"))

	assert.Contains(t, out, `class="chroma"`)
	assert.Contains(t, out, "main")
	assert.NotContains(t, out, "```")
}

func TestHTML_Render_UnknownLanguage(t *testing.T) {
	out := string(NewHTML("").Render("```nosuchlang\n<b>x</b>\n```"))
	assert.NotContains(t, out, "<b>x</b>", "code must stay escaped")
}

func TestHTML_Render_Links(t *testing.T) {
	out := string(NewHTML("").Render("see https://ollama.com"))
	assert.Contains(t, out, `href="https://ollama.com"`)
	assert.Contains(t, out, "nofollow")
}

func TestHTML_WriteCSS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewHTML("monokai").WriteCSS(&buf))
	assert.Contains(t, buf.String(), ".chroma")
}

func TestTerminal_Render(t *testing.T) {
	term := NewTerminal(40, "notty")
	out := term.Render("# Title\n\nHello **world**")

	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "world")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTerminal_NilFallsBack(t *testing.T) {
	var term *Terminal
	assert.Equal(t, "plain", term.Render("plain"))
	assert.Equal(t, "plain", (&Terminal{}).Render("plain"))
}
