// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the session store,
// the chat controller and every front end.
//
// # Key Types
//
//   - Message: Single turn with a role and text content
//   - Role: Message role enumeration (user, assistant)
//   - Conversation: The active conversation receiving new messages
//   - ArchivedConversation: Titled snapshot of a past conversation
//
// # Usage
//
//	conv := model.NewConversation(0)
//	conv.AddMessage(model.NewUserMessage("Hello!"))
//	snap := conv.Archive("Chat 1", "llama3")
package model
