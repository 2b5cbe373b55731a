// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// ollama-chat.
//
// # Configuration Sources
//
// Configuration is loaded from (in order of precedence):
//  1. Environment variables (OLLAMA_CHAT_*, OLLAMA_HOST), optionally from .env
//  2. $OLLAMA_CHAT_CONFIG or ~/.ollama-chat/config.{toml,json,yaml}
//  3. Built-in defaults
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Ollama.BaseURL)
//
// # Example
//
//	[ollama]
//	base_url = "http://localhost:11434"
//	timeout = "5m"
//
//	[server]
//	addr = "127.0.0.1:8501"
//	session_ttl = "2h"
//
//	[ui]
//	language = "de"
package config
