// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/jeranaias/ollama-chat/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter writes a standalone page with embedded CSS. Message bodies go
// through the same sanitizing Markdown renderer as the web front end.
type HTMLExporter struct {
	options *Options
	md      *render.HTML
}

// NewHTMLExporter creates an HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, md: render.NewHTML(render.DefaultCodeStyle)}
}

type htmlMessage struct {
	Class string
	Label string
	Body  template.HTML
}

type htmlPage struct {
	Lang     string
	Title    string
	Model    string
	Count    int
	Exported string
	Meta     bool
	CodeCSS  template.CSS
	Messages []htmlMessage
}

var pageTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<meta name="generator" content="ollama-chat">
<title>{{.Title}}</title>
<style>
:root { --bg: #ffffff; --fg: #24292e; --muted: #6a737d; --user: #f6f8fa; --border: #e1e4e8; --accent: #0366d6; }
@media (prefers-color-scheme: dark) {
  :root { --bg: #1a1b26; --fg: #c0caf5; --muted: #565f89; --user: #24283b; --border: #414868; --accent: #7aa2f7; }
}
body { font-family: -apple-system, "Segoe UI", Roboto, Arial, sans-serif; line-height: 1.6; color: var(--fg); background: var(--bg); max-width: 860px; margin: 0 auto; padding: 24px; }
header { border-bottom: 2px solid var(--border); margin-bottom: 24px; }
.meta { color: var(--muted); font-size: 14px; }
.message { border: 1px solid var(--border); border-radius: 8px; padding: 12px 16px; margin-bottom: 16px; }
.message.user { background: var(--user); }
.role { font-weight: 600; color: var(--accent); margin-bottom: 4px; }
pre { overflow-x: auto; padding: 12px; border-radius: 6px; }
code { font-family: "SF Mono", Monaco, "Fira Code", monospace; }
{{.CodeCSS}}
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
{{- if .Meta}}
<p class="meta">{{if .Model}}{{.Model}} · {{end}}{{.Count}} · {{.Exported}}</p>
{{- end}}
</header>
<main>
{{- range .Messages}}
<section class="message {{.Class}}">
<div class="role">{{.Label}}</div>
{{.Body}}
</section>
{{- end}}
</main>
</body>
</html>
`))

// Export renders t.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	var css strings.Builder
	if err := e.md.WriteCSS(&css); err != nil {
		return nil, fmt.Errorf("code css: %w", err)
	}

	page := htmlPage{
		Lang:     e.options.Language,
		Title:    t.Title,
		Model:    t.Model,
		Count:    len(t.Messages),
		Exported: formatTimestamp(t.Exported),
		Meta:     e.options.IncludeMetadata,
		CodeCSS:  template.CSS(css.String()),
		Messages: make([]htmlMessage, 0, len(t.Messages)),
	}
	for _, msg := range t.Messages {
		hm := htmlMessage{Class: "assistant", Label: e.options.roleLabel(msg.Role)}
		if msg.IsUser() {
			// Prompts are shown as typed.
			hm.Class = "user"
			hm.Body = template.HTML("<p>" + strings.ReplaceAll(template.HTMLEscapeString(msg.Content), "\n", "<br>") + "</p>")
		} else {
			hm.Body = e.md.Render(msg.Content)
		}
		page.Messages = append(page.Messages, hm)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}

// FileExtension returns ".html".
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the HTML media type.
func (e *HTMLExporter) MimeType() string {
	return "text/html; charset=utf-8"
}
