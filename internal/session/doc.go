// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds per-user chat state and the registry that keeps one
// state per browser.
//
// # Key Types
//
//   - State: Active conversation, archive, id counter, selected model, edit flags
//   - Registry: Session id to value map with idle eviction and per-session locking
//   - Status: Age and idle time of one registry session
//
// # Usage
//
//	st := session.NewState()
//	st.SelectModel("llama3")
//	_ = st.AppendMessage(model.RoleUser, "Hi")
//	st.StartNewConversation("")   // archived as "Chat 1"
//
//	reg := session.NewRegistry(session.DefaultConfig(), newController, logger)
//	go reg.Run(ctx)
//	id = reg.Do(cookieID, func(c *chat.Controller) { ... })
//
// Nothing is persisted. An evicted session is gone.
package session
