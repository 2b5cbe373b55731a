// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is the browser front end of ollama-chat and its JSON API.
//
// Every browser gets an isolated chat session identified by an HttpOnly
// cookie. Sessions live in memory and end after an idle timeout.
//
// # Pages
//
//   - GET  /                      - Chat page
//   - POST /model                 - Select model
//   - POST /messages              - Send a message
//   - POST /chats                 - Archive the current chat and start a new one
//   - POST /chats/{id}/open       - Load an archived chat
//   - POST /chats/{id}/edit       - Show the rename form
//   - POST /chats/{id}/cancel     - Hide the rename form
//   - POST /chats/{id}/rename     - Save a new title
//   - GET  /chats/{id}/export     - Download a chat (id "current" for the active one)
//
// Form actions redirect back to / so a reload never resubmits.
//
// # JSON API
//
//   - GET   /api/models              - Installed models and the selection
//   - POST  /api/model               - Select model
//   - GET   /api/status              - Status line (?probe=false skips the probe)
//   - GET   /api/session             - Session snapshot
//   - POST  /api/messages            - Run one turn
//   - POST  /api/chats               - New chat
//   - POST  /api/chats/{id}/activate - Load an archived chat
//   - PATCH /api/chats/{id}          - Rename an archived chat
//   - GET   /api/chats/{id}/export   - Download as ?format=md|json|html
//
// # Operations
//
//   - GET /health  - Liveness
//   - GET /metrics - Prometheus metrics (when enabled)
//
// # Usage
//
//	dir := ollama.NewDirectory(ollama.NewClientWithConfig(clientCfg), tr, logger)
//	srv, err := server.New(server.ConfigFrom(cfg), dir, logger)
//	if err != nil {
//		return err
//	}
//	return srv.ListenAndServe(ctx)
package server
