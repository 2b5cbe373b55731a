// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"testing"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleUser, true},
		{RoleAssistant, true},
		{Role("system"), false},
		{Role(""), false},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			if got := tc.role.Valid(); got != tc.want {
				t.Errorf("Role(%q).Valid() = %v, want %v", tc.role, got, tc.want)
			}
		})
	}
}

func TestMessage_IsUser(t *testing.T) {
	if !NewUserMessage("Hi").IsUser() {
		t.Error("user message should report IsUser")
	}
	if NewAssistantMessage("Hello").IsUser() {
		t.Error("assistant message should not report IsUser")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_AddMessage(t *testing.T) {
	conv := NewConversation(3)
	if !conv.IsEmpty() {
		t.Fatal("new conversation should be empty")
	}

	conv.AddMessage(NewUserMessage("Hi"))
	conv.AddMessage(NewAssistantMessage("Hello!"))

	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount() = %d, want 2", conv.MessageCount())
	}
	if last := conv.Messages[1]; last.Role != RoleAssistant || last.Content != "Hello!" {
		t.Errorf("last message = %+v", last)
	}
}

func TestConversation_ArchiveIsSnapshot(t *testing.T) {
	conv := NewConversation(7)
	conv.AddMessage(NewUserMessage("first"))

	snap := conv.Archive("Chat 1", "llama3")
	conv.AddMessage(NewAssistantMessage("later"))
	conv.Messages[0].Content = "mutated"

	if snap.ID != 7 {
		t.Errorf("snapshot ID = %d, want 7", snap.ID)
	}
	if len(snap.Messages) != 1 {
		t.Fatalf("snapshot has %d messages, want 1", len(snap.Messages))
	}
	if snap.Messages[0].Content != "first" {
		t.Errorf("snapshot content = %q, want %q", snap.Messages[0].Content, "first")
	}
}

func TestArchivedConversation_Label(t *testing.T) {
	a := ArchivedConversation{Title: "Python Hilfe", Model: "mistral"}
	if got := a.Label(); got != "Python Hilfe (mistral)" {
		t.Errorf("Label() = %q", got)
	}

	a.Model = ""
	if got := a.Label(); got != "Python Hilfe" {
		t.Errorf("Label() without model = %q", got)
	}
}

func TestCloneMessages(t *testing.T) {
	if got := CloneMessages(nil); got == nil || len(got) != 0 {
		t.Errorf("CloneMessages(nil) = %#v, want empty non-nil slice", got)
	}

	src := []Message{NewUserMessage("a")}
	dst := CloneMessages(src)
	dst[0].Content = "b"
	if src[0].Content != "a" {
		t.Error("CloneMessages should not share backing storage")
	}
}
