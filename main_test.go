// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ollama-chat/internal/cli"
	"github.com/jeranaias/ollama-chat/internal/config"
)

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, cli.Args{
		BaseURL:  "http://gpu-box:11434/",
		Addr:     ":9000",
		Language: "en",
		Theme:    "dark",
		Verbose:  true,
	})

	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "en", cfg.UI.Language)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyFlags_NoneKeepsConfig(t *testing.T) {
	cfg := config.Default()
	want := *cfg
	applyFlags(cfg, cli.Args{})
	assert.Equal(t, want, *cfg)
}

func TestLoadConfig_FromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	cfg.UI.Language = "en"
	require.NoError(t, config.SaveTOML(cfg, path))

	got, used, err := loadConfig(cli.Args{ConfigPath: path, Addr: "127.0.0.1:9999"})
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "en", got.UI.Language)
	assert.Equal(t, "127.0.0.1:9999", got.Server.Addr)
}

func TestLoadConfig_InvalidFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.SaveTOML(config.Default(), path))

	_, _, err := loadConfig(cli.Args{ConfigPath: path, Language: "fr"})
	require.Error(t, err)
	assert.Equal(t, cli.ExitConfigError, cli.GetExitCode(err))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestNewLogger_ChatOnlyErrors(t *testing.T) {
	logger, _, closeFn := newLogger(config.LogConfig{Level: "info", Format: "text"}, cli.Args{}, cli.CmdChat)
	defer closeFn()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))

	verbose, _, closeVerbose := newLogger(config.LogConfig{Level: "debug"}, cli.Args{Verbose: true}, cli.CmdChat)
	defer closeVerbose()
	assert.True(t, verbose.Enabled(context.Background(), slog.LevelDebug))
}

func TestRun_HelpAndUnknown(t *testing.T) {
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer devnull.Close()

	stdout, stderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = devnull, devnull
	defer func() { os.Stdout, os.Stderr = stdout, stderr }()

	assert.Equal(t, cli.ExitSuccess, run([]string{"--help"}))
	assert.Equal(t, cli.ExitUsageError, run([]string{"frobnicate"}))
}

func TestNewLogger_LevelFollowsReload(t *testing.T) {
	logger, level, closeFn := newLogger(config.LogConfig{Level: "info", Format: "json"}, cli.Args{}, cli.CmdServe)
	defer closeFn()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))

	level.Set(parseLevel("debug"))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
