// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command line parsing, usage and version output.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the subcommand to run.
type Command int

const (
	CmdServe Command = iota
	CmdTUI
	CmdChat
	CmdModels
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdServe:
		return "serve"
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdModels:
		return "models"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Verbose    bool
	Quiet      bool
	JSON       bool
	ConfigPath string

	// Overrides applied on top of the loaded config
	Model    string
	Addr     string
	Language string
	Theme    string
	BaseURL  string

	// Command-specific
	Probe      bool
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Unknown is set when the first word was not a command.
	Unknown string

	// Raw args after the command word
	Raw []string
}

const usageText = `ollama-chat - chat with local Ollama models

Usage:
  ollama-chat [flags] [command]

Commands:
  serve                  Start the browser front end (default)
  tui                    Full-screen terminal front end
  chat                   Line based chat in the terminal
  models [--probe]       List installed models
  config [show|path|init|get|set]
                         Show or change the configuration
  version                Show version information
  help                   Show this help

Flags:
  --config PATH          Read configuration from PATH
  --url URL              Ollama base URL (default http://localhost:11434)
  --model NAME           Preselect a model
  --addr HOST:PORT       Listen address for serve (default 127.0.0.1:8501)
  --lang de|en           Interface language (default de)
  --theme NAME           Terminal theme: auto, dark, light, notty
  --json                 Machine readable output (models, config, version)
  -v, --verbose          Debug logging
  -q, --quiet            Only log warnings and errors

Chat commands (inside "ollama-chat chat"):
  /new [title]           Archive the current chat and start a new one
  /history               List archived chats
  /open ID               Load an archived chat
  /rename ID TITLE       Rename an archived chat
  /models                List models
  /model NAME            Select a model
  /status                Show model status
  /export [FMT] [ID]     Save a chat to a file (md, json, html)
  /help                  Show chat commands
  /quit                  Leave

Environment:
  OLLAMA_CHAT_CONFIG, OLLAMA_CHAT_BASE_URL (or OLLAMA_HOST), OLLAMA_CHAT_ADDR,
  OLLAMA_CHAT_LANGUAGE, OLLAMA_CHAT_TIMEOUT, OLLAMA_CHAT_SESSION_TTL,
  OLLAMA_CHAT_LOG_LEVEL, OLLAMA_CHAT_LOG_FORMAT, NO_COLOR

Version: %s
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// VersionData is the JSON form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion prints version information.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(w)
	}
	fmt.Fprintf(w, "ollama-chat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
	return nil
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses argv (without the program name) into a command and its
// arguments. Without a command it returns CmdServe.
func Parse(argv []string) (Command, Args) {
	p := NewArgParser(argv)

	args := Args{
		Verbose:    p.BoolFlag("v") || p.BoolFlag("verbose"),
		Quiet:      p.BoolFlag("q") || p.BoolFlag("quiet"),
		JSON:       p.BoolFlag("json"),
		ConfigPath: p.Flag("config"),
		Model:      firstNonEmpty(p.Flag("model"), p.Flag("m")),
		Addr:       p.Flag("addr"),
		Language:   strings.ToLower(p.Flag("lang")),
		Theme:      p.Flag("theme"),
		BaseURL:    p.Flag("url"),
		Probe:      p.BoolFlag("probe"),
	}

	if p.BoolFlag("h") || p.BoolFlag("help") {
		return CmdHelp, args
	}
	if p.BoolFlag("version") {
		return CmdVersion, args
	}

	word := strings.ToLower(p.Subcommand())
	args.Raw = p.PositionalFrom(1)

	switch word {
	case "", "serve", "server", "web":
		return CmdServe, args
	case "tui", "ui":
		return CmdTUI, args
	case "chat", "repl":
		return CmdChat, args
	case "models", "list", "ls":
		return CmdModels, args
	case "config":
		args.Subcommand = p.Positional(1)
		args.ConfigKey = p.Positional(2)
		args.ConfigVal = JoinPositionalArgs(p, 3)
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		args.Unknown = word
		return CmdHelp, args
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
