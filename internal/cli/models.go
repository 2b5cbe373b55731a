// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - The "models" command.
//
// Examples:
//
//	ollama-chat models            List installed models
//	ollama-chat models --probe    Also run a readiness probe per model
//	ollama-chat models --json     Machine readable output

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/ollama"
	"github.com/jeranaias/ollama-chat/internal/util"
)

// ModelEntry is one line of the models command.
type ModelEntry struct {
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	Family        string `json:"family,omitempty"`
	ParameterSize string `json:"parameter_size,omitempty"`
	Quantization  string `json:"quantization,omitempty"`
	Ready         *bool  `json:"ready,omitempty"`
}

// HandleModels lists the installed models. Unlike the chat front ends it
// reports server errors instead of hiding them, so scripts can tell an empty
// server from an unreachable one.
func HandleModels(ctx context.Context, w io.Writer, dir *ollama.Directory, tr *i18n.Translator, args Args) error {
	client := dir.Client()
	if err := client.CheckRunning(ctx); err != nil {
		return fmt.Errorf("ollama at %s: %w", client.BaseURL(), err)
	}
	infos, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models from %s: %w", client.BaseURL(), err)
	}

	entries := make([]ModelEntry, 0, len(infos))
	for _, m := range infos {
		e := ModelEntry{
			Name:          m.Name,
			Size:          m.Size,
			Family:        m.Details.Family,
			ParameterSize: m.Details.ParameterSize,
			Quantization:  m.Details.QuantizationLevel,
		}
		if args.Probe {
			ready := dir.IsModelReady(ctx, m.Name)
			e.Ready = &ready
		}
		entries = append(entries, e)
	}

	if args.JSON {
		return NewJSONResponse("models", entries).Write(w)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, WarningStyle.Render(tr.T(i18n.KeyNoModelsFound)))
		return nil
	}

	nameWidth := 0
	for _, e := range entries {
		nameWidth = max(nameWidth, util.StringWidth(e.Name))
	}

	for i, e := range entries {
		info := ollama.ModelInfo{Size: e.Size}
		line := fmt.Sprintf("%s  %8s", util.PadWidth(e.Name, nameWidth), info.FormatSize())
		if e.ParameterSize != "" {
			line += "  " + DimStyle.Render(e.ParameterSize)
		}
		if e.Quantization != "" {
			line += " " + DimStyle.Render(e.Quantization)
		}
		if e.Ready != nil {
			word := tr.T(i18n.KeyStatusOffline)
			if *e.Ready {
				word = tr.T(i18n.KeyStatusActive)
			}
			line += "  " + RenderReady(*e.Ready, word)
		}
		if i == 0 {
			line += "  " + DimStyle.Render("(default)")
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
