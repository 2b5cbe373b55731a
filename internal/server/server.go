// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jeranaias/ollama-chat/internal/chat"
	"github.com/jeranaias/ollama-chat/internal/config"
	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/ollama"
	"github.com/jeranaias/ollama-chat/internal/render"
	"github.com/jeranaias/ollama-chat/internal/session"
	"github.com/jeranaias/ollama-chat/web"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

// maxBodyBytes caps form and JSON request bodies.
const maxBodyBytes = 1 << 20

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Config controls the HTTP front end.
type Config struct {
	Addr string

	// SessionTTL evicts browser sessions idle for this long.
	SessionTTL time.Duration

	// RateLimit is the sustained requests per second per client IP; 0
	// disables limiting. RateBurst is the bucket size.
	RateLimit float64
	RateBurst int

	// Metrics exposes /metrics.
	Metrics bool

	// ProbeOnRender runs a readiness probe for the status line on every
	// page render. The probe is a real inference.
	ProbeOnRender bool

	CodeStyle string
	Language  string

	// GenerateTimeout bounds one model call; the write timeout is derived
	// from it so long replies are not cut off.
	GenerateTimeout time.Duration
}

// ConfigFrom maps the application config onto the server's.
func ConfigFrom(c *config.Config) Config {
	return Config{
		Addr:            c.Server.Addr,
		SessionTTL:      c.Server.SessionTTL.Std(),
		RateLimit:       c.Server.RateLimit,
		RateBurst:       c.Server.RateBurst,
		Metrics:         c.Server.Metrics,
		ProbeOnRender:   c.UI.ProbeOnRender,
		CodeStyle:       c.UI.CodeStyle,
		Language:        c.UI.Language,
		GenerateTimeout: c.Ollama.Timeout.Std(),
	}
}

func (c *Config) fillDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8501"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = session.DefaultConfig().IdleTimeout
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = ollama.DefaultConfig().Timeout
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the browser and JSON front end. Each browser gets its own
// chat.Controller, keyed by a session cookie.
type Server struct {
	cfg      Config
	dir      *ollama.Directory
	tr       *i18n.Translator
	logger   *slog.Logger
	sessions *session.Registry[*chat.Controller]
	limiter  *RateLimiter
	metrics  *Metrics
	markdown *render.HTML
	pages    *template.Template
	codeCSS  []byte
	router   chi.Router
}

// New builds a server on top of dir. When metrics are enabled dir's
// observer is set to the server's collectors.
func New(cfg Config, dir *ollama.Directory, logger *slog.Logger) (*Server, error) {
	cfg.fillDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	s := &Server{
		cfg:      cfg,
		dir:      dir,
		tr:       i18n.New(cfg.Language),
		logger:   logger,
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		markdown: render.NewHTML(cfg.CodeStyle),
	}

	s.sessions = session.NewRegistry(session.Config{IdleTimeout: cfg.SessionTTL}, func() *chat.Controller {
		return chat.New(s.dir, s.tr, s.logger)
	}, logger)

	if cfg.Metrics {
		s.metrics = NewMetrics(s.sessions.Len)
		dir.WithObserver(s.metrics)
	}

	pages, err := parseTemplates(s.tr)
	if err != nil {
		return nil, err
	}
	s.pages = pages

	var css bytes.Buffer
	if err := s.markdown.WriteCSS(&css); err != nil {
		return nil, fmt.Errorf("failed to build code stylesheet: %w", err)
	}
	s.codeCSS = css.Bytes()

	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Registry[*chat.Controller] {
	return s.sessions
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	base := []func(http.Handler) http.Handler{
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
	}
	if s.metrics != nil {
		base = append(base, s.metrics.Middleware)
	}
	r.Use(Chain(append(base, SecurityHeadersMiddleware())...))
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(IdentityMiddleware())

	r.Handle("/static/*", http.StripPrefix("/static", web.StaticHandler()))
	r.Get("/code.css", s.handleCodeCSS)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.limiter, s.rejectHTML))

		r.Get("/", s.handleIndex)
		r.Post("/model", s.handleSelectModel)
		r.Post("/messages", s.handleSend)
		r.Post("/chats", s.handleNewChat)
		r.Post("/chats/{id}/open", s.handleOpenChat)
		r.Post("/chats/{id}/edit", s.handleEditChat)
		r.Post("/chats/{id}/cancel", s.handleCancelEdit)
		r.Post("/chats/{id}/rename", s.handleRenameChat)
		r.Get("/chats/{id}/export", s.handleExport)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.limiter, s.rejectJSON))

		r.Get("/models", s.apiModels)
		r.Post("/model", s.apiSelectModel)
		r.Get("/status", s.apiStatus)
		r.Get("/session", s.apiSession)
		r.Post("/messages", s.apiSend)
		r.Post("/chats", s.apiNewChat)
		r.Post("/chats/{id}/activate", s.apiOpenChat)
		r.Patch("/chats/{id}", s.apiRenameChat)
		r.Get("/chats/{id}/export", s.apiExport)
	})

	return r
}

func (s *Server) handleCodeCSS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(s.codeCSS); err != nil {
		s.logger.Debug("failed to write stylesheet", "error", err)
	}
}

// ============================================================================
// TURNS
// ============================================================================

// runTurn starts a turn on the caller's session, generates the reply
// without holding the session lock and completes the turn. Other requests
// for the same session see the pending state meanwhile.
//
// The reply is generated on a context detached from the request so a
// closed tab does not leave the session stuck awaiting.
func (s *Server) runTurn(w http.ResponseWriter, r *http.Request, prompt string) (id, reply string, err error) {
	var turn chat.Turn
	id = s.withSession(w, r, func(c *chat.Controller) {
		turn, err = c.BeginTurn(prompt)
	})
	if err != nil {
		return id, "", err
	}

	reply = s.dir.Generate(context.WithoutCancel(r.Context()), turn.Model, turn.Prompt)

	if !s.sessions.Peek(id, func(c *chat.Controller) { err = c.CompleteTurn(reply) }) {
		s.logger.Warn("session ended before reply arrived", "model", turn.Model)
		return id, reply, nil
	}
	if err != nil {
		return id, "", err
	}
	if s.metrics != nil {
		s.metrics.TurnCompleted()
	}
	return id, reply, nil
}

// statusFor builds the status line for a selection, probing the model when
// configured to. The probe runs outside the session lock.
func (s *Server) statusFor(ctx context.Context, id, selected string, probe bool) chat.Status {
	var status chat.Status
	if !probe {
		s.sessions.Peek(id, func(c *chat.Controller) { status = c.StatusUnchecked(selected) })
		return status
	}
	ready := false
	if selected != "" && !i18n.IsPlaceholder(selected) {
		ready = s.dir.IsModelReady(ctx, selected)
	}
	s.sessions.Peek(id, func(c *chat.Controller) { status = c.StatusFor(selected, ready) })
	return status
}

// noticeFor maps controller errors to the notice shown to the user.
// ErrNoModelSelected already set its own notice.
func (s *Server) noticeFor(err error) string {
	switch {
	case errors.Is(err, chat.ErrBusy):
		return s.tr.T(i18n.KeyResponsePending)
	case errors.Is(err, chat.ErrUnknownModel):
		return s.tr.T(i18n.KeyUnknownModel)
	case errors.Is(err, session.ErrChatNotFound):
		return s.tr.T(i18n.KeyChatNotFound)
	default:
		return ""
	}
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// The session sweeper and the rate limiter cleanup run alongside.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      s.cfg.GenerateTimeout + readTimeout,
		IdleTimeout:       idleTimeout,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.sessions.Run(runCtx)
	go s.limiter.Run(runCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Addr, "metrics", s.metrics != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped", "sessions", s.sessions.Len())
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]apiError{
		"error": {Message: message, Code: code},
	})
}

func (s *Server) rejectJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]apiError{
		"error": {Message: s.tr.T(i18n.KeyTooManyRequests), Code: "rate_limited"},
	}); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}

func (s *Server) rejectHTML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := fmt.Fprintln(w, s.tr.T(i18n.KeyTooManyRequests)); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}
