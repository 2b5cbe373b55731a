// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/jeranaias/ollama-chat/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the complete transcript. Options do not filter it.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// jsonTranscript is the exported document.
type jsonTranscript struct {
	Title     string          `json:"title"`
	Model     string          `json:"model"`
	Exported  string          `json:"exported"`
	Generator string          `json:"generator"`
	Messages  []model.Message `json:"messages"`
}

// Export renders t.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(jsonTranscript{
		Title:     t.Title,
		Model:     t.Model,
		Exported:  t.Exported.Format("2006-01-02T15:04:05Z07:00"),
		Generator: "ollama-chat",
		Messages:  t.Messages,
	}, "", "  ")
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the JSON media type.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
