// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"log/slog"
	"time"

	"github.com/jeranaias/ollama-chat/internal/i18n"
)

// Observer receives the outcome of every call made through a Directory.
// op is one of "list", "probe" or "generate"; err is nil on success.
type Observer interface {
	ObserveCall(op, model string, elapsed time.Duration, err error)
}

// Directory is the error-free face of Client used by the chat controller.
//
// Every failure is absorbed here: listing yields an empty slice, probing
// yields false and generation yields a localized sentinel reply. The reply
// is indistinguishable from a real answer once it is in the conversation;
// callers that need to tell them apart use GenerateResult.
type Directory struct {
	client   *Client
	tr       *i18n.Translator
	logger   *slog.Logger
	observer Observer
}

// NewDirectory wraps client. A nil translator uses the default language and a
// nil logger uses slog.Default().
func NewDirectory(client *Client, tr *i18n.Translator, logger *slog.Logger) *Directory {
	if tr == nil {
		tr = i18n.New("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{client: client, tr: tr, logger: logger}
}

// WithObserver sets the call observer and returns d.
func (d *Directory) WithObserver(o Observer) *Directory {
	d.observer = o
	return d
}

// Client returns the underlying API client.
func (d *Directory) Client() *Client {
	return d.client
}

// ListModels returns installed model names in server order, or an empty
// slice on any failure.
func (d *Directory) ListModels(ctx context.Context) []string {
	start := time.Now()
	names, err := d.client.ModelNames(ctx)
	d.observe("list", "", start, err)
	if err != nil {
		d.logger.Warn("list models failed",
			"base_url", d.client.BaseURL(),
			"error_type", ErrorTypeOf(err).String(),
			"error", err)
		return []string{}
	}
	return names
}

// IsModelReady runs the readiness probe for model. It costs one inference
// cycle on the server.
func (d *Directory) IsModelReady(ctx context.Context, model string) bool {
	start := time.Now()
	err := d.client.Probe(ctx, model)
	d.observe("probe", model, start, err)
	if err != nil {
		d.logger.Debug("model probe failed",
			"model", model,
			"error_type", ErrorTypeOf(err).String(),
			"error", err)
		return false
	}
	return true
}

// Generate returns the model's reply, or a sentinel string when the call
// fails.
func (d *Directory) Generate(ctx context.Context, model, prompt string) string {
	reply, _ := d.GenerateResult(ctx, model, prompt)
	return reply
}

// GenerateResult is Generate with the underlying error kept. On failure reply
// holds the sentinel text and err the cause.
func (d *Directory) GenerateResult(ctx context.Context, model, prompt string) (reply string, err error) {
	start := time.Now()
	resp, err := d.client.Generate(ctx, model, prompt)
	d.observe("generate", model, start, err)
	if err != nil {
		d.logger.Warn("generate failed",
			"model", model,
			"error_type", ErrorTypeOf(err).String(),
			"error", err)
		return d.SentinelFor(err), err
	}

	d.logger.Debug("generate complete",
		"model", model,
		"eval_count", resp.EvalCount,
		"tokens_per_sec", resp.TokensPerSecond(),
		"server_time", resp.TotalTime(),
		"elapsed", time.Since(start))
	return *resp.Response, nil
}

// SentinelFor maps a client error to the reply stored in the conversation. A
// non-200 status gets the communication error text; everything else
// (unreachable server, timeout, unreadable payload) gets the request error
// text.
func (d *Directory) SentinelFor(err error) string {
	switch ErrorTypeOf(err) {
	case ErrTypeStatus, ErrTypeModelNotFound:
		return d.tr.T(i18n.KeyErrModelStatus)
	default:
		return d.tr.T(i18n.KeyErrModelRequest)
	}
}

func (d *Directory) observe(op, model string, start time.Time, err error) {
	if d.observer != nil {
		d.observer.ObserveCall(op, model, time.Since(start), err)
	}
}
