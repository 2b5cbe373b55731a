// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/ollama-chat/internal/chat"
	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/model"
	"github.com/jeranaias/ollama-chat/web"
)

// ============================================================================
// TEMPLATES
// ============================================================================

func parseTemplates(tr *i18n.Translator) (*template.Template, error) {
	funcs := template.FuncMap{
		"t": func(name string) string {
			key, ok := templateKeys[name]
			if !ok {
				return name
			}
			return tr.T(key)
		},
	}
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(web.Templates(), "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// messageView is one rendered chat bubble.
type messageView struct {
	Role  string
	Label string
	HTML  template.HTML
}

// pageData feeds index.html.
type pageData struct {
	Lang     string
	Snap     chat.Snapshot
	Status   chat.Status
	Messages []messageView
	Thinking bool
}

// templateKeys exposes message keys to templates by short name so the
// template text does not repeat English source strings.
var templateKeys = map[string]string{
	"Title":           i18n.KeyTitle,
	"ModelSettings":   i18n.KeyModelSettings,
	"ChooseModel":     i18n.KeyChooseModel,
	"Apply":           i18n.KeyApply,
	"ChatName":        i18n.KeyChatName,
	"ChatNameHint":    i18n.KeyChatNameExample,
	"NewChat":         i18n.KeyNewChat,
	"ChatHistory":     i18n.KeyChatHistory,
	"EmptyHistory":    i18n.KeyEmptyHistory,
	"RenameChat":      i18n.KeyRenameChat,
	"NewName":         i18n.KeyNewName,
	"Save":            i18n.KeySave,
	"Cancel":          i18n.KeyCancel,
	"Edit":            i18n.KeyEdit,
	"Open":            i18n.KeyOpen,
	"Send":            i18n.KeySend,
	"WriteMessage":    i18n.KeyWriteMessage,
	"Thinking":        i18n.KeyThinking,
	"ResponsePending": i18n.KeyResponsePending,
	"Export":          i18n.KeyExport,
}

func (s *Server) roleLabel(role model.Role) string {
	if role == model.RoleUser {
		return s.tr.T(i18n.KeyRoleUser)
	}
	return s.tr.T(i18n.KeyRoleAssistant)
}

// ============================================================================
// PAGE
// ============================================================================

// handleIndex renders the chat page. The model list is refreshed on every
// render; a notice is shown once and then cleared.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	models := s.dir.ListModels(r.Context())

	var snap chat.Snapshot
	id := s.withSession(w, r, func(c *chat.Controller) {
		c.SyncModels(models)
		snap = c.View()
		c.ClearNotice()
	})

	data := pageData{
		Lang:     snap.Language,
		Snap:     snap,
		Status:   s.statusFor(r.Context(), id, snap.SelectedModel, s.cfg.ProbeOnRender),
		Messages: make([]messageView, 0, len(snap.Messages)),
		Thinking: snap.Awaiting(),
	}
	for _, m := range snap.Messages {
		data.Messages = append(data.Messages, messageView{
			Role:  string(m.Role),
			Label: s.roleLabel(m.Role),
			HTML:  s.markdown.Render(m.Content),
		})
	}

	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error("failed to render page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("failed to write page", "error", err)
	}
}

// ============================================================================
// FORM ACTIONS
// ============================================================================

// Every form action redirects back to the page (POST/redirect/GET).

func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	return true
}

// applyForm runs action on the session and turns its error into a notice.
func (s *Server) applyForm(w http.ResponseWriter, r *http.Request, action func(c *chat.Controller) error) {
	s.withSession(w, r, func(c *chat.Controller) {
		if err := action(c); err != nil {
			if msg := s.noticeFor(err); msg != "" {
				c.SetNotice(msg)
			}
		}
	})
	s.redirectHome(w, r)
}

func chatIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil
}

func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	name := r.PostFormValue("model")
	models := s.dir.ListModels(r.Context())
	s.applyForm(w, r, func(c *chat.Controller) error {
		c.SyncModels(models)
		return c.SelectModel(name)
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	prompt := r.PostFormValue("prompt")

	id, _, err := s.runTurn(w, r, prompt)
	if err != nil {
		if msg := s.noticeFor(err); msg != "" {
			s.sessions.Peek(id, func(c *chat.Controller) { c.SetNotice(msg) })
		}
	}
	s.redirectHome(w, r)
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	title := strings.TrimSpace(r.PostFormValue("title"))
	s.applyForm(w, r, func(c *chat.Controller) error {
		return c.NewChat(title)
	})
}

func (s *Server) chatAction(action func(c *chat.Controller, id int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := chatIDParam(r)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if !s.parseForm(w, r) {
			return
		}
		s.applyForm(w, r, func(c *chat.Controller) error {
			return action(c, id)
		})
	}
}

func (s *Server) handleOpenChat(w http.ResponseWriter, r *http.Request) {
	s.chatAction(func(c *chat.Controller, id int) error {
		return c.OpenChat(id)
	})(w, r)
}

func (s *Server) handleEditChat(w http.ResponseWriter, r *http.Request) {
	s.chatAction(func(c *chat.Controller, id int) error {
		return c.BeginRename(id)
	})(w, r)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.chatAction(func(c *chat.Controller, id int) error {
		return c.CancelRename(id)
	})(w, r)
}

func (s *Server) handleRenameChat(w http.ResponseWriter, r *http.Request) {
	s.chatAction(func(c *chat.Controller, id int) error {
		return c.SaveRename(id, r.PostFormValue("title"))
	})(w, r)
}
