// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/ollama-chat/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrChatNotFound is returned when an archived chat id does not exist.
	ErrChatNotFound = errors.New("chat not found")

	// ErrInvalidRole is returned when a message role is not user or assistant.
	ErrInvalidRole = errors.New("invalid message role")
)

// =============================================================================
// STATE
// =============================================================================

// State is everything one user session knows: the active conversation, the
// archive of earlier conversations, the id counter, the selected model and
// which archived chats are being renamed.
//
// State is not safe for concurrent use. Callers serialize access per session
// (see Registry).
type State struct {
	active   *model.Conversation
	archive  []model.ArchivedConversation
	counter  int
	selected string
	editing  map[int]bool
}

// NewState returns an empty session: no messages, no archive, id 0.
func NewState() *State {
	return &State{
		active:  model.NewConversation(0),
		archive: make([]model.ArchivedConversation, 0),
		editing: make(map[int]bool),
	}
}

// Active returns a copy of the active conversation.
func (s *State) Active() model.Conversation {
	return model.Conversation{
		ID:       s.active.ID,
		Model:    s.active.Model,
		Messages: model.CloneMessages(s.active.Messages),
	}
}

// ActiveID returns the id of the active conversation.
func (s *State) ActiveID() int {
	return s.active.ID
}

// Messages returns a copy of the active conversation's messages.
func (s *State) Messages() []model.Message {
	return model.CloneMessages(s.active.Messages)
}

// Counter returns the last id handed out by StartNewConversation.
func (s *State) Counter() int {
	return s.counter
}

// SelectedModel returns the model chosen for the active conversation.
func (s *State) SelectedModel() string {
	return s.selected
}

// SelectModel sets the model used for new turns.
func (s *State) SelectModel(name string) {
	s.selected = name
	s.active.Model = name
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// StartNewConversation archives the active conversation when it has any
// messages, then starts a fresh one with the next id.
//
// The archive title is title (trimmed) or "Chat N" where N is the archive
// size after insertion. An empty active conversation is discarded and the
// counter still advances.
func (s *State) StartNewConversation(title string) {
	if !s.active.IsEmpty() {
		title = strings.TrimSpace(title)
		if title == "" {
			title = fmt.Sprintf("Chat %d", len(s.archive)+1)
		}
		s.archive = append(s.archive, s.active.Archive(title, s.selected))
	}

	s.counter++
	s.active = model.NewConversation(s.counter)
	s.active.Model = s.selected
}

// SwitchTo loads a copy of the archived chat id into the active conversation
// and selects its model. The archive entry is left untouched, and the active
// id is kept, so a later StartNewConversation archives the loaded chat again
// as a new entry.
func (s *State) SwitchTo(id int) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("switch to chat %d: %w", id, ErrChatNotFound)
	}

	arch := s.archive[idx]
	s.active.Messages = model.CloneMessages(arch.Messages)
	s.selected = arch.Model
	s.active.Model = arch.Model
	return nil
}

// RenameArchived changes the title of archived chat id. A blank title leaves
// the old one in place.
func (s *State) RenameArchived(id int, title string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("rename chat %d: %w", id, ErrChatNotFound)
	}

	title = strings.TrimSpace(title)
	if title != "" {
		s.archive[idx].Title = title
	}
	return nil
}

// AppendMessage adds a message to the active conversation.
func (s *State) AppendMessage(role model.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("append %q: %w", role, ErrInvalidRole)
	}
	s.active.AddMessage(model.Message{Role: role, Content: content})
	return nil
}

// =============================================================================
// ARCHIVE
// =============================================================================

// Archived returns copies of the archived chats, most recent first.
func (s *State) Archived() []model.ArchivedConversation {
	out := make([]model.ArchivedConversation, 0, len(s.archive))
	for i := len(s.archive) - 1; i >= 0; i-- {
		out = append(out, s.archive[i].Clone())
	}
	return out
}

// ArchivedCount returns the number of archived chats.
func (s *State) ArchivedCount() int {
	return len(s.archive)
}

// Lookup returns a copy of archived chat id.
func (s *State) Lookup(id int) (model.ArchivedConversation, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return model.ArchivedConversation{}, false
	}
	return s.archive[idx].Clone(), true
}

// indexOf returns the position of id in the archive. Archive ids are unique:
// each entry takes the active id, which only the counter assigns.
func (s *State) indexOf(id int) int {
	for i := range s.archive {
		if s.archive[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// EDIT FLAGS
// =============================================================================

// BeginEdit marks archived chat id as being renamed.
func (s *State) BeginEdit(id int) error {
	if s.indexOf(id) < 0 {
		return fmt.Errorf("edit chat %d: %w", id, ErrChatNotFound)
	}
	s.editing[id] = true
	return nil
}

// CancelEdit leaves edit mode for id without changes.
func (s *State) CancelEdit(id int) {
	delete(s.editing, id)
}

// SaveEdit renames id and leaves edit mode. The flag is cleared even when the
// chat no longer exists.
func (s *State) SaveEdit(id int, title string) error {
	delete(s.editing, id)
	return s.RenameArchived(id, title)
}

// IsEditing reports whether id is in edit mode.
func (s *State) IsEditing(id int) bool {
	return s.editing[id]
}
