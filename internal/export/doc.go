// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export turns a chat into a downloadable file.
//
// # Supported Formats
//
//   - md: Markdown with YAML front matter
//   - json: the full transcript
//   - html: a standalone page with highlighted code
//
// # Usage
//
//	e, err := export.ForFormat("md", opts)
//	t := export.FromArchived(ctrl.Transcript(), time.Now())
//	path, err := export.WriteFile(".", t, e)
//
// Exports are copies made on request. Chats themselves still live only in
// memory.
package export
