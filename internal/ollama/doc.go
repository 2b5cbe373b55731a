// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// Two layers are provided. Client speaks the wire protocol and reports
// failures as typed *ClientError values. Directory sits on top and never
// fails: it is what the chat controller talks to.
//
// # Key Types
//
//   - Client: HTTP client for /api/tags and non-streaming /api/generate
//   - ClientError: Typed error (not running, timeout, status, invalid response)
//   - Directory: Model listing, readiness probe and generation with fallbacks
//   - Observer: Hook receiving the outcome of every Directory call
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL: "http://localhost:11434",
//	})
//	dir := ollama.NewDirectory(client, i18n.New("de"), slog.Default())
//	models := dir.ListModels(ctx)          // [] on any failure
//	ready := dir.IsModelReady(ctx, "llama3") // one full inference round trip
//	reply := dir.Generate(ctx, "llama3", "Hi")
//
// # Failure Replies
//
// Generate never returns an error. A non-200 status becomes
// "Fehler bei der Kommunikation mit dem Modell." and any other failure
// becomes "Fehler bei der API-Anfrage." (German defaults). Use
// GenerateResult to keep the cause.
package ollama
