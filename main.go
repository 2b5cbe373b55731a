// ollama-chat - Chat with local Ollama models in the browser or the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jeranaias/ollama-chat/internal/chat"
	"github.com/jeranaias/ollama-chat/internal/cli"
	"github.com/jeranaias/ollama-chat/internal/config"
	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/ollama"
	"github.com/jeranaias/ollama-chat/internal/server"
	"github.com/jeranaias/ollama-chat/internal/ui/tui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args := cli.Parse(argv)

	switch cmd {
	case cli.CmdHelp:
		if args.Unknown != "" {
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args.Unknown)
			cli.PrintUsage(os.Stderr)
			return cli.ExitUsageError
		}
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		return exit(cmd, args, cli.HandleVersion(os.Stdout, args))
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	cfg, path, err := loadConfig(args)
	if err != nil {
		return exit(cmd, args, err)
	}

	logger, level, closeLog := newLogger(cfg.Log, args, cmd)
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr := i18n.New(cfg.UI.Language)
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Ollama.BaseURL,
		Timeout:      cfg.Ollama.Timeout.Std(),
		ProbeTimeout: cfg.Ollama.ProbeTimeout.Std(),
		ProbePrompt:  cfg.Ollama.ProbePrompt,
	})
	dir := ollama.NewDirectory(client, tr, logger)

	switch cmd {
	case cli.CmdConfig:
		err = cli.HandleConfig(os.Stdout, cfg, path, args)

	case cli.CmdModels:
		err = cli.HandleModels(ctx, os.Stdout, dir, tr, args)

	case cli.CmdChat:
		ctrl := chat.New(dir, tr, logger)
		err = cli.HandleChat(ctx, ctrl, args, cfg.UI.Theme, cfg.UI.ProbeOnRender)

	case cli.CmdTUI:
		ctrl := chat.New(dir, tr, logger)
		if args.Model != "" {
			ctrl.RefreshModels(ctx)
			if selErr := ctrl.SelectModel(args.Model); selErr != nil {
				logger.Warn("model not available", "model", args.Model)
			}
		}
		err = tui.Run(ctrl, tui.Options{
			Theme:       cfg.UI.Theme,
			ProbeStatus: cfg.UI.ProbeOnRender,
		})

	default:
		if path != "" {
			watchConfig(ctx, path, level, args, logger)
		}
		err = serve(ctx, cfg, dir, logger)
	}

	return exit(cmd, args, err)
}

func exit(cmd cli.Command, args cli.Args, err error) int {
	if err == nil {
		return cli.ExitSuccess
	}
	w := os.Stderr
	if args.JSON {
		w = os.Stdout
	}
	cli.DisplayError(w, cmd.String(), err, args.JSON)
	return cli.GetExitCode(err)
}

func serve(ctx context.Context, cfg *config.Config, dir *ollama.Directory, logger *slog.Logger) error {
	srv, err := server.New(server.ConfigFrom(cfg), dir, logger)
	if err != nil {
		return err
	}
	logger.Info("starting ollama-chat",
		"version", Version,
		"ollama", cfg.Ollama.BaseURL,
		"language", cfg.UI.Language,
	)
	return srv.ListenAndServe(ctx)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// loadConfig loads the config file (from --config or the search path),
// applies flag overrides and validates the result. It returns the path of
// the file used, or "" for defaults only.
func loadConfig(args cli.Args) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path = args.ConfigPath
		err  error
	)
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		path = config.FindConfigFile()
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, "", err
	}

	applyFlags(cfg, args)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// applyFlags copies command line overrides into cfg. Flags win over the
// environment, which wins over the file.
func applyFlags(cfg *config.Config, args cli.Args) {
	if args.BaseURL != "" {
		cfg.Ollama.BaseURL = strings.TrimRight(args.BaseURL, "/")
	}
	if args.Addr != "" {
		cfg.Server.Addr = args.Addr
	}
	if args.Language != "" {
		cfg.UI.Language = args.Language
	}
	if args.Theme != "" {
		cfg.UI.Theme = args.Theme
	}
	switch {
	case args.Verbose:
		cfg.Log.Level = "debug"
	case args.Quiet:
		cfg.Log.Level = "warn"
	}
}

// watchConfig follows edits to the config file while serving. Only the log
// level applies live; the other settings are read once at startup.
func watchConfig(ctx context.Context, path string, level *slog.LevelVar, args cli.Args, logger *slog.Logger) {
	w, err := config.NewWatcher(path, config.DefaultWatchDebounce, logger, func(c *config.Config) {
		applyFlags(c, args)
		level.Set(parseLevel(c.Log.Level))
	})
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
		return
	}
	go func() {
		defer w.Close()
		w.Run(ctx)
	}()
}

// =============================================================================
// LOGGING
// =============================================================================

// newLogger builds the process logger from cfg. The web server logs to
// stderr. The terminal front ends own the screen, so the TUI logs to a file
// in the config directory and the chat REPL only shows errors unless -v is
// given.
func newLogger(cfg config.LogConfig, args cli.Args, cmd cli.Command) (*slog.Logger, *slog.LevelVar, func()) {
	level := parseLevel(cfg.Level)
	var w io.Writer = os.Stderr
	closeFn := func() {}

	switch cmd {
	case cli.CmdTUI:
		w = io.Discard
		if dir, err := config.ConfigDir(); err == nil {
			if err := os.MkdirAll(dir, 0700); err == nil {
				f, err := os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
				if err == nil {
					w = f
					closeFn = func() { f.Close() }
				}
			}
		}
	case cli.CmdChat, cli.CmdModels, cli.CmdConfig:
		if !args.Verbose && level < slog.LevelError {
			level = slog.LevelError
		}
	}

	lv := new(slog.LevelVar)
	lv.Set(level)
	return slog.New(newHandler(w, cfg.Format, lv)), lv, closeFn
}

func newHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
