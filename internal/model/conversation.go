// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the active conversation of a session: the one receiving
// new messages.
type Conversation struct {
	ID       int       `json:"id"`
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// NewConversation creates an empty conversation with the given id.
func NewConversation(id int) *Conversation {
	return &Conversation{
		ID:       id,
		Messages: make([]Message, 0),
	}
}

// AddMessage appends msg to the conversation.
func (c *Conversation) AddMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Archive snapshots the conversation under the given title. The snapshot
// owns its own message slice.
func (c *Conversation) Archive(title, model string) ArchivedConversation {
	return ArchivedConversation{
		ID:       c.ID,
		Title:    title,
		Model:    model,
		Messages: CloneMessages(c.Messages),
	}
}

// =============================================================================
// ARCHIVED CONVERSATION
// =============================================================================

// ArchivedConversation is a snapshot of a past active conversation. Only the
// title may change after it has been archived.
type ArchivedConversation struct {
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Label is the text shown for the entry in history lists, e.g. "Chat 1 (llama3)".
func (a ArchivedConversation) Label() string {
	if a.Model == "" {
		return a.Title
	}
	return a.Title + " (" + a.Model + ")"
}

// Clone returns a deep copy of the archived conversation.
func (a ArchivedConversation) Clone() ArchivedConversation {
	a.Messages = CloneMessages(a.Messages)
	return a
}
