// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/ollama-chat/internal/chat"
)

// SessionCookieName carries the browser's session id.
const SessionCookieName = "ollama_chat_session"

type contextKey int

const sessionIDKey contextKey = iota

// sessionIDFromCookie returns the cookie value if it looks like a session
// id. Anything else is treated as no session.
func sessionIDFromCookie(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// SessionIDFromContext returns the session id the identity middleware found
// on the request, or "".
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// IdentityMiddleware puts the validated session cookie into the request
// context. It never creates sessions; that happens on first use.
func IdentityMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), sessionIDKey, sessionIDFromCookie(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	maxAge := s.cfg.SessionTTL
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

// withSession runs fn on the caller's controller, creating a session when
// the cookie is missing or stale, and refreshes the cookie. It returns the
// session id in use.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(c *chat.Controller)) string {
	id := s.sessions.Do(SessionIDFromContext(r.Context()), fn)
	s.setSessionCookie(w, r, id)
	return id
}
