// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/model"
	"github.com/jeranaias/ollama-chat/internal/session"
	"github.com/jeranaias/ollama-chat/internal/util"
)

// ChatEntry is one archived chat as shown in a sidebar.
type ChatEntry struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Model        string `json:"model"`
	Label        string `json:"label"`
	Editing      bool   `json:"editing"`
	MessageCount int    `json:"message_count"`
	Preview      string `json:"preview,omitempty"`
}

// Snapshot is a read-only copy of everything a front end renders. Changing
// it has no effect on the session.
type Snapshot struct {
	ActiveID      int             `json:"active_id"`
	Messages      []model.Message `json:"messages"`
	Archive       []ChatEntry     `json:"archive"`
	Models        []string        `json:"models"`
	SelectedModel string          `json:"selected_model"`
	Phase         string          `json:"phase"`
	PendingPrompt string          `json:"pending_prompt,omitempty"`
	Notice        string          `json:"notice,omitempty"`
	Language      string          `json:"language"`
}

// Awaiting reports whether a reply is pending.
func (s Snapshot) Awaiting() bool {
	return s.Phase == PhaseAwaitingResponse.String()
}

// previewRunes caps the sidebar preview.
const previewRunes = 60

// View returns a snapshot of the session. Archived chats are listed most
// recent first.
func (c *Controller) View() Snapshot {
	archived := c.state.Archived()
	entries := make([]ChatEntry, 0, len(archived))
	for _, a := range archived {
		e := ChatEntry{
			ID:           a.ID,
			Title:        a.Title,
			Model:        a.Model,
			Label:        a.Label(),
			Editing:      c.state.IsEditing(a.ID),
			MessageCount: len(a.Messages),
		}
		if len(a.Messages) > 0 {
			e.Preview = util.TruncateRunes(util.FirstLine(a.Messages[0].Content), previewRunes)
		}
		entries = append(entries, e)
	}

	return Snapshot{
		ActiveID:      c.state.ActiveID(),
		Messages:      c.state.Messages(),
		Archive:       entries,
		Models:        c.Models(),
		SelectedModel: c.state.SelectedModel(),
		Phase:         c.phase.String(),
		PendingPrompt: c.pending,
		Notice:        c.notice,
		Language:      c.tr.Lang(),
	}
}

// Transcript returns a copy of the active chat, titled the way it would be
// archived right now.
func (c *Controller) Transcript() model.ArchivedConversation {
	active := c.state.Active()
	title := c.tr.T(i18n.KeyChatTitle, c.state.ArchivedCount()+1)
	return active.Archive(title, c.state.SelectedModel())
}

// ArchivedTranscript returns a copy of archived chat id.
func (c *Controller) ArchivedTranscript(id int) (model.ArchivedConversation, error) {
	a, ok := c.state.Lookup(id)
	if !ok {
		return model.ArchivedConversation{}, fmt.Errorf("export chat %d: %w", id, session.ErrChatNotFound)
	}
	return a, nil
}
