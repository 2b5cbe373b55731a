// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the terminal commands of
// ollama-chat.
//
// # Key Types
//
//   - Command: the subcommand to run (serve, tui, chat, models, config, version)
//   - Args: parsed global and command-specific flags
//   - ChatREPL: the line based chat on a chat.Controller
//   - JSONResponse: the envelope written by --json
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	switch cmd {
//	case cli.CmdChat:
//	    err = cli.HandleChat(ctx, ctrl, args, cfg.UI.Theme, true)
//	case cli.CmdModels:
//	    err = cli.HandleModels(ctx, os.Stdout, dir, tr, args)
//	}
//	if err != nil {
//	    cli.DisplayError(os.Stderr, cmd.String(), err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// Output is colored only on a terminal and never when NO_COLOR is set.
package cli
