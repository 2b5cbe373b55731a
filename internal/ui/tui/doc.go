// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the terminal front end of the chat client, built with
// Bubble Tea.
//
// It shows the same page as the web front end: a sidebar with the model
// list and the chat history, and a main column with title, status line,
// notice, messages and the input box. Assistant replies are rendered as
// markdown with glamour.
//
// The model drives a chat.Controller. Controller methods are only called
// from Update; listing models, probing and generating run as commands in
// their own goroutines and report back as messages.
//
// Usage:
//
//	ctrl := chat.New(dir, i18n.New("de"), logger)
//	if err := tui.Run(ctrl, tui.Options{Theme: "auto", ProbeStatus: true}); err != nil {
//		return err
//	}
package tui
