// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/ollama-chat/internal/chat"
	"github.com/jeranaias/ollama-chat/internal/export"
	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/model"
)

// ============================================================================
// EXPORT
// ============================================================================

// currentChat is the {id} value that selects the active chat.
const currentChat = "current"

// exportOptions labels messages in the server's language.
func (s *Server) exportOptions() *export.Options {
	return &export.Options{
		IncludeMetadata: true,
		UserLabel:       s.tr.T(i18n.KeyRoleUser),
		AssistantLabel:  s.tr.T(i18n.KeyRoleAssistant),
		Language:        s.tr.Lang(),
	}
}

// transcriptFor reads the requested chat from the caller's session.
func (s *Server) transcriptFor(w http.ResponseWriter, r *http.Request) (*export.Transcript, error) {
	param := chi.URLParam(r, "id")
	id := -1
	if param != currentChat {
		n, err := strconv.Atoi(param)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("export chat %q: %w", param, errBadChatID)
		}
		id = n
	}

	var (
		conv model.ArchivedConversation
		err  error
	)
	s.withSession(w, r, func(c *chat.Controller) {
		if id < 0 {
			conv = c.Transcript()
			return
		}
		conv, err = c.ArchivedTranscript(id)
	})
	if err != nil {
		return nil, err
	}
	return export.FromArchived(conv, time.Now()), nil
}

var errBadChatID = errors.New("invalid chat id")

// writeExport sends t as a download in the ?format= requested (md by
// default).
func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, t *export.Transcript) error {
	e, err := export.ForFormat(r.URL.Query().Get("format"), s.exportOptions())
	if err != nil {
		return err
	}
	body, err := e.Export(t)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", e.MimeType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(t, e)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("failed to write export", "error", err)
	}
	return nil
}

// apiExport answers GET /api/chats/{id}/export.
func (s *Server) apiExport(w http.ResponseWriter, r *http.Request) {
	t, err := s.transcriptFor(w, r)
	if err == nil {
		err = s.writeExport(w, r, t)
	}
	switch {
	case err == nil:
	case errors.Is(err, errBadChatID):
		s.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, export.ErrUnknownFormat):
		s.writeError(w, http.StatusBadRequest, "unknown_format", err.Error())
	case errors.Is(err, export.ErrEmptyTranscript):
		s.writeError(w, http.StatusConflict, "empty_chat", s.tr.T(i18n.KeyNothingToExport))
	default:
		s.writeControllerError(w, err, "")
	}
}

// handleExport answers the page's download links. Failures become a notice
// on the page.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	t, err := s.transcriptFor(w, r)
	if err == nil {
		err = s.writeExport(w, r, t)
	}
	if err == nil {
		return
	}

	msg := s.noticeFor(err)
	switch {
	case errors.Is(err, export.ErrEmptyTranscript):
		msg = s.tr.T(i18n.KeyNothingToExport)
	case msg == "":
		msg = err.Error()
	}
	s.withSession(w, r, func(c *chat.Controller) { c.SetNotice(msg) })
	s.redirectHome(w, r)
}
