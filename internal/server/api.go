// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/jeranaias/ollama-chat/internal/chat"
	"github.com/jeranaias/ollama-chat/internal/model"
	"github.com/jeranaias/ollama-chat/internal/session"
)

// ============================================================================
// API TYPES
// ============================================================================

// ModelsResponse answers GET /api/models.
type ModelsResponse struct {
	Models    []string `json:"models"`
	Selected  string   `json:"selected"`
	Available bool     `json:"available"`
}

// StatusResponse answers GET /api/status.
type StatusResponse struct {
	chat.Status
	Phase string `json:"phase"`
}

// SelectModelRequest is the body of POST /api/model.
type SelectModelRequest struct {
	Model string `json:"model"`
}

// SendRequest is the body of POST /api/messages.
type SendRequest struct {
	Prompt string `json:"prompt"`
}

// SendResponse answers POST /api/messages.
type SendResponse struct {
	Reply    string          `json:"reply"`
	Messages []model.Message `json:"messages"`
}

// TitleRequest is the body of POST /api/chats and PATCH /api/chats/{id}.
type TitleRequest struct {
	Title string `json:"title"`
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeControllerError maps controller errors to API responses. notice is
// the session's notice at the time of the error, if any.
func (s *Server) writeControllerError(w http.ResponseWriter, err error, notice string) {
	switch {
	case errors.Is(err, chat.ErrNoModelSelected):
		s.writeError(w, http.StatusConflict, "no_model_selected", notice)
	case errors.Is(err, chat.ErrBusy):
		s.writeError(w, http.StatusConflict, "response_pending", s.noticeFor(err))
	case errors.Is(err, chat.ErrEmptyPrompt):
		s.writeError(w, http.StatusBadRequest, "empty_prompt", err.Error())
	case errors.Is(err, chat.ErrUnknownModel):
		s.writeError(w, http.StatusNotFound, "unknown_model", s.noticeFor(err))
	case errors.Is(err, session.ErrChatNotFound):
		s.writeError(w, http.StatusNotFound, "chat_not_found", s.noticeFor(err))
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal_error", http.StatusText(http.StatusInternalServerError))
	}
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) apiModels(w http.ResponseWriter, r *http.Request) {
	listed := s.dir.ListModels(r.Context())

	var resp ModelsResponse
	s.withSession(w, r, func(c *chat.Controller) {
		c.SyncModels(listed)
		resp = ModelsResponse{
			Models:    c.Models(),
			Selected:  c.SelectedModel(),
			Available: len(listed) > 0,
		}
	})
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) apiSelectModel(w http.ResponseWriter, r *http.Request) {
	var req SelectModelRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	listed := s.dir.ListModels(r.Context())

	var (
		snap chat.Snapshot
		err  error
	)
	s.withSession(w, r, func(c *chat.Controller) {
		c.SyncModels(listed)
		err = c.SelectModel(req.Model)
		snap = c.View()
	})
	if err != nil {
		s.writeControllerError(w, err, "")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// apiStatus probes the selected model unless ?probe=false.
func (s *Server) apiStatus(w http.ResponseWriter, r *http.Request) {
	probe := true
	if v := r.URL.Query().Get("probe"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			probe = b
		}
	}

	var selected, phase string
	id := s.withSession(w, r, func(c *chat.Controller) {
		selected = c.SelectedModel()
		phase = c.Phase().String()
	})

	s.writeJSON(w, http.StatusOK, StatusResponse{
		Status: s.statusFor(r.Context(), id, selected, probe),
		Phase:  phase,
	})
}

func (s *Server) apiSession(w http.ResponseWriter, r *http.Request) {
	var snap chat.Snapshot
	id := s.withSession(w, r, func(c *chat.Controller) {
		snap = c.View()
	})
	if st, ok := s.sessions.GetStatus(id); ok {
		w.Header().Set("X-Session-Expires-In", strconv.Itoa(int(st.RemainingTime.Seconds())))
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// apiSend runs a whole turn and answers with the reply. The request blocks
// for as long as the model takes.
func (s *Server) apiSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	id, reply, err := s.runTurn(w, r, req.Prompt)

	var (
		notice   string
		messages []model.Message
	)
	s.sessions.Peek(id, func(c *chat.Controller) {
		notice = c.Notice()
		messages = c.View().Messages
	})
	if err != nil {
		s.writeControllerError(w, err, notice)
		return
	}
	s.writeJSON(w, http.StatusOK, SendResponse{Reply: reply, Messages: messages})
}

func (s *Server) apiNewChat(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	var (
		snap chat.Snapshot
		err  error
	)
	s.withSession(w, r, func(c *chat.Controller) {
		err = c.NewChat(req.Title)
		snap = c.View()
	})
	if err != nil {
		s.writeControllerError(w, err, "")
		return
	}
	s.writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) apiOpenChat(w http.ResponseWriter, r *http.Request) {
	id, ok := chatIDParam(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, "chat_not_found", s.noticeFor(session.ErrChatNotFound))
		return
	}

	var (
		snap chat.Snapshot
		err  error
	)
	s.withSession(w, r, func(c *chat.Controller) {
		err = c.OpenChat(id)
		snap = c.View()
	})
	if err != nil {
		s.writeControllerError(w, err, "")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) apiRenameChat(w http.ResponseWriter, r *http.Request) {
	id, ok := chatIDParam(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, "chat_not_found", s.noticeFor(session.ErrChatNotFound))
		return
	}
	var req TitleRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	var (
		snap chat.Snapshot
		err  error
	)
	s.withSession(w, r, func(c *chat.Controller) {
		err = c.Rename(id, req.Title)
		snap = c.View()
	})
	if err != nil {
		s.writeControllerError(w, err, "")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}
