// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/ollama-chat/internal/model"
	"github.com/jeranaias/ollama-chat/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyTranscript is returned for a chat without messages.
	ErrEmptyTranscript = errors.New("transcript has no messages")

	// ErrUnknownFormat is returned by ForFormat for unsupported names.
	ErrUnknownFormat = errors.New("unknown export format")
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is one chat ready for export.
type Transcript struct {
	Title    string
	Model    string
	Messages []model.Message
	Exported time.Time
}

// FromArchived builds a transcript from a chat snapshot.
func FromArchived(a model.ArchivedConversation, exported time.Time) *Transcript {
	return &Transcript{
		Title:    a.Title,
		Model:    a.Model,
		Messages: model.CloneMessages(a.Messages),
		Exported: exported,
	}
}

func (t *Transcript) validate() error {
	if t == nil {
		return errors.New("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a transcript to one file format.
type Exporter interface {
	// Export renders the transcript.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the extension including the dot, e.g. ".md".
	FileExtension() string

	// MimeType returns the Content-Type for downloads.
	MimeType() string
}

// Options configures exporters.
type Options struct {
	// IncludeMetadata adds the model, message count and export time.
	IncludeMetadata bool

	// UserLabel and AssistantLabel head each message.
	UserLabel      string
	AssistantLabel string

	// Language is the lang attribute of HTML exports.
	Language string
}

// DefaultOptions returns English labels with metadata.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata: true,
		UserLabel:       "You",
		AssistantLabel:  "Assistant",
		Language:        "en",
	}
}

func (o *Options) roleLabel(r model.Role) string {
	if r == model.RoleUser {
		return o.UserLabel
	}
	return o.AssistantLabel
}

// Formats lists the names accepted by ForFormat.
func Formats() []string {
	return []string{"md", "json", "html"}
}

// ForFormat returns the exporter for name ("md", "markdown", "json",
// "html"). A nil opts uses DefaultOptions.
func ForFormat(name string, opts *Options) (Exporter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (use %s)", ErrUnknownFormat, name, strings.Join(Formats(), ", "))
	}
}

// =============================================================================
// FILES
// =============================================================================

// Filename returns a file name for t, e.g. "chat_Python_help_20250102_150405.md".
func Filename(t *Transcript, e Exporter) string {
	return fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(t.Title),
		t.Exported.Format("20060102_150405"),
		e.FileExtension(),
	)
}

// WriteFile exports t into dir and returns the path written. An empty dir
// means the working directory.
func WriteFile(dir string, t *Transcript, e Exporter) (string, error) {
	content, err := e.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, Filename(t, e))
	if err := util.AtomicWriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// sanitizeFilename replaces characters that are invalid in file names on
// Windows or Unix.
func sanitizeFilename(s string) string {
	s = util.TruncateRunesNoEllipsis(strings.TrimSpace(s), 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "chat"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
