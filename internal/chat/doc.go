// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the conversation controller shared by the web, TUI and
// REPL front ends.
//
// A turn moves Idle -> AwaitingResponse -> Idle. Front ends that can block
// call Submit; front ends that must keep serving while the model thinks call
// BeginTurn, Generate and CompleteTurn.
//
// # Usage
//
//	c := chat.New(dir, i18n.New("de"), logger)
//	c.RefreshModels(ctx)
//	reply, err := c.Submit(ctx, "Hi")
//	if errors.Is(err, chat.ErrNoModelSelected) {
//	    fmt.Println(c.Notice())
//	}
//	snap := c.View()
package chat
