// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - The "config" command.
//
// Examples:
//
//	ollama-chat config                       Show the effective configuration
//	ollama-chat config path                  Show the config file location
//	ollama-chat config init                  Write a default config file
//	ollama-chat config get ollama.base_url   Print one value
//	ollama-chat config set ui.language en    Change one value in the file

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/ollama-chat/internal/config"
)

// ConfigPathData is the JSON form of "config path".
type ConfigPathData struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// HandleConfig runs a config subcommand. cfg is the effective configuration
// (file, environment and flags); path is the file it came from, or "" when
// only defaults were used.
func HandleConfig(w io.Writer, cfg *config.Config, path string, args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(w, cfg, args)
	case "path":
		return configPath(w, path, args)
	case "init":
		return configInit(w, path)
	case "get":
		return configGet(w, cfg, args)
	case "set":
		return configSet(w, path, args)
	default:
		return &UsageError{
			Reason:  "unknown config subcommand: " + args.Subcommand,
			Example: "ollama-chat config [show|path|init|get|set]",
		}
	}
}

// targetPath is the file that init and set write.
func targetPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return config.ConfigPathTOML()
}

func configShow(w io.Writer, cfg *config.Config, args Args) error {
	if args.JSON {
		return NewJSONResponse("config show", cfg).Write(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("ollama-chat configuration"))
	fmt.Fprintln(w, RenderSeparator())
	section := ""
	for _, key := range config.GetAllKeys() {
		head, _, _ := strings.Cut(key, ".")
		if head != section {
			section = head
			fmt.Fprintln(w, SectionStyle.Render("["+section+"]"))
		}
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s %s\n", RenderLabel(key), ValueStyle.Render(fmt.Sprint(v)))
	}
	return nil
}

func configPath(w io.Writer, path string, args Args) error {
	p, err := targetPath(path)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(p)
	exists := statErr == nil

	if args.JSON {
		return NewJSONResponse("config path", ConfigPathData{Path: p, Exists: exists}).Write(w)
	}
	if exists {
		fmt.Fprintln(w, p)
	} else {
		fmt.Fprintf(w, "%s %s\n", p, DimStyle.Render("(not created yet, run: ollama-chat config init)"))
	}
	return nil
}

func configInit(w io.Writer, path string) error {
	p, err := targetPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err == nil {
		return fmt.Errorf("config file already exists: %s", p)
	}
	if err := saveByExt(config.Default(), p); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("Created"), p)
	return nil
}

func configGet(w io.Writer, cfg *config.Config, args Args) error {
	if args.ConfigKey == "" {
		return ErrMissingArgument("KEY", "ollama-chat config get ollama.base_url")
	}
	v, err := cfg.Get(args.ConfigKey)
	if err != nil {
		return &UsageError{Reason: err.Error()}
	}
	if args.JSON {
		return NewJSONResponse("config get", map[string]any{args.ConfigKey: v}).Write(w)
	}
	fmt.Fprintln(w, v)
	return nil
}

// configSet changes one key in the config file only, so environment
// overrides are never written back.
func configSet(w io.Writer, path string, args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return ErrMissingArgument("KEY VALUE", "ollama-chat config set ui.language en")
	}
	p, err := targetPath(path)
	if err != nil {
		return err
	}

	cfg, err := loadFileOnly(p)
	if err != nil {
		return err
	}
	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return &UsageError{Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := saveByExt(cfg, p); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s = %s\n", SuccessStyle.Render("Set"), args.ConfigKey, args.ConfigVal)
	return nil
}

// loadFileOnly reads path without environment overrides. A missing file
// yields the defaults.
func loadFileOnly(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = config.LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = config.LoadYAML(cfg, path)
	default:
		err = config.LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return cfg, nil
}

func saveByExt(cfg *config.Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return config.SaveJSON(cfg, path)
	case ".yaml", ".yml":
		return config.SaveYAML(cfg, path)
	default:
		return config.SaveTOML(cfg, path)
	}
}
