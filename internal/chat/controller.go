// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/model"
	"github.com/jeranaias/ollama-chat/internal/session"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoModelSelected is returned when a message is sent without a usable
	// model. Nothing is appended and no request is made.
	ErrNoModelSelected = errors.New("no model selected")

	// ErrBusy is returned while a reply is still pending.
	ErrBusy = errors.New("response pending")

	// ErrEmptyPrompt is returned for blank input.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrNoPendingTurn is returned by CompleteTurn when no turn was started.
	ErrNoPendingTurn = errors.New("no pending turn")

	// ErrUnknownModel is returned when selecting a model the server did not
	// list.
	ErrUnknownModel = errors.New("model not available")
)

// =============================================================================
// BACKEND
// =============================================================================

// Backend is what the controller needs from the model server. It never
// fails: errors are already folded into empty lists, false and sentinel
// replies. *ollama.Directory implements it.
type Backend interface {
	ListModels(ctx context.Context) []string
	IsModelReady(ctx context.Context, model string) bool
	Generate(ctx context.Context, model, prompt string) string
}

// =============================================================================
// PHASE
// =============================================================================

// Phase is where the controller is within a turn.
type Phase int

const (
	// PhaseIdle accepts new input.
	PhaseIdle Phase = iota
	// PhaseAwaitingResponse has the user message appended and waits for the
	// reply.
	PhaseAwaitingResponse
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives one user session: model selection, turns, and chat
// management. It wraps a session.State and a Backend.
//
// A Controller is not safe for concurrent use; the web server serializes
// access per session through session.Registry.
type Controller struct {
	state   *session.State
	backend Backend
	tr      *i18n.Translator
	logger  *slog.Logger

	models  []string
	phase   Phase
	pending string
	notice  string
}

// New creates a controller with an empty session.
func New(backend Backend, tr *i18n.Translator, logger *slog.Logger) *Controller {
	if tr == nil {
		tr = i18n.New("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		state:   session.NewState(),
		backend: backend,
		tr:      tr,
		logger:  logger,
		models:  []string{},
	}
}

// Backend returns the model server the controller talks to.
func (c *Controller) Backend() Backend {
	return c.backend
}

// Translator returns the controller's translator.
func (c *Controller) Translator() *i18n.Translator {
	return c.tr
}

// Phase returns the current turn phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Notice returns the last user-facing notice, or "".
func (c *Controller) Notice() string {
	return c.notice
}

// SetNotice replaces the user-facing notice.
func (c *Controller) SetNotice(msg string) {
	c.notice = msg
}

// ClearNotice drops the current notice.
func (c *Controller) ClearNotice() {
	c.notice = ""
}

// =============================================================================
// MODELS
// =============================================================================

// RefreshModels asks the backend for installed models and applies them with
// SyncModels.
func (c *Controller) RefreshModels(ctx context.Context) []string {
	c.SyncModels(c.backend.ListModels(ctx))
	return c.Models()
}

// SyncModels replaces the known model list. An empty list selects the
// placeholder entry. A selection that is no longer listed falls back to the
// first model.
func (c *Controller) SyncModels(models []string) {
	c.models = append(c.models[:0:0], models...)

	if len(c.models) == 0 {
		if c.phase == PhaseIdle {
			c.state.SelectModel(c.tr.T(i18n.KeyNoModelsFound))
		}
		return
	}

	if c.phase == PhaseIdle && !c.isListed(c.state.SelectedModel()) {
		c.state.SelectModel(c.models[0])
	}
}

// Models returns the known model list. When the server listed nothing the
// list holds only the placeholder.
func (c *Controller) Models() []string {
	if len(c.models) == 0 {
		return []string{c.tr.T(i18n.KeyNoModelsFound)}
	}
	return append([]string(nil), c.models...)
}

// SelectedModel returns the model that will answer the next turn.
func (c *Controller) SelectedModel() string {
	return c.state.SelectedModel()
}

// SelectModel picks name for the next turns.
func (c *Controller) SelectModel(name string) error {
	if c.phase != PhaseIdle {
		return ErrBusy
	}
	if len(c.models) > 0 && !c.isListed(name) {
		return ErrUnknownModel
	}
	c.state.SelectModel(name)
	c.notice = ""
	return nil
}

func (c *Controller) isListed(name string) bool {
	for _, m := range c.models {
		if m == name {
			return true
		}
	}
	return false
}

// HasUsableModel reports whether a real model is selected.
func (c *Controller) HasUsableModel() bool {
	sel := c.state.SelectedModel()
	return strings.TrimSpace(sel) != "" && !i18n.IsPlaceholder(sel)
}

// =============================================================================
// TURNS
// =============================================================================

// Turn is a started exchange waiting for its reply.
type Turn struct {
	Model  string
	Prompt string
}

// Submit runs a whole turn: it appends prompt, asks the backend and appends
// the reply. The call blocks for as long as the model takes.
//
// Without a usable model it returns ErrNoModelSelected and sets the notice.
func (c *Controller) Submit(ctx context.Context, prompt string) (string, error) {
	turn, err := c.BeginTurn(prompt)
	if err != nil {
		return "", err
	}
	reply := c.backend.Generate(ctx, turn.Model, turn.Prompt)
	if err := c.CompleteTurn(reply); err != nil {
		return "", err
	}
	return reply, nil
}

// BeginTurn validates input, appends the user message and moves to
// PhaseAwaitingResponse. The caller fetches the reply with Generate and hands
// it to CompleteTurn.
func (c *Controller) BeginTurn(prompt string) (Turn, error) {
	if c.phase != PhaseIdle {
		return Turn{}, ErrBusy
	}
	if strings.TrimSpace(prompt) == "" {
		return Turn{}, ErrEmptyPrompt
	}
	if !c.HasUsableModel() {
		c.notice = c.tr.T(i18n.KeySelectModelFirst)
		c.logger.Debug("turn rejected", "reason", "no model selected")
		return Turn{}, ErrNoModelSelected
	}

	if err := c.state.AppendMessage(model.RoleUser, prompt); err != nil {
		return Turn{}, err
	}
	c.notice = ""
	c.pending = prompt
	c.phase = PhaseAwaitingResponse

	return Turn{Model: c.state.SelectedModel(), Prompt: prompt}, nil
}

// CompleteTurn appends reply as the assistant message and returns to
// PhaseIdle.
func (c *Controller) CompleteTurn(reply string) error {
	if c.phase != PhaseAwaitingResponse {
		return ErrNoPendingTurn
	}
	if err := c.state.AppendMessage(model.RoleAssistant, reply); err != nil {
		return err
	}
	c.phase = PhaseIdle
	c.pending = ""
	return nil
}

// Generate asks the backend for a reply without touching the session. It is
// the middle step between BeginTurn and CompleteTurn and is safe to call
// without holding the session lock.
func (c *Controller) Generate(ctx context.Context, turn Turn) string {
	return c.backend.Generate(ctx, turn.Model, turn.Prompt)
}

// =============================================================================
// CHAT MANAGEMENT
// =============================================================================

// NewChat archives the active chat (when it has messages) under title and
// starts an empty one.
func (c *Controller) NewChat(title string) error {
	if c.phase != PhaseIdle {
		return ErrBusy
	}
	c.state.StartNewConversation(title)
	c.notice = ""
	return nil
}

// OpenChat loads a copy of archived chat id.
func (c *Controller) OpenChat(id int) error {
	if c.phase != PhaseIdle {
		return ErrBusy
	}
	if err := c.state.SwitchTo(id); err != nil {
		return err
	}
	c.notice = ""
	return nil
}

// BeginRename puts archived chat id into edit mode.
func (c *Controller) BeginRename(id int) error {
	if c.phase != PhaseIdle {
		return ErrBusy
	}
	return c.state.BeginEdit(id)
}

// CancelRename leaves edit mode for id.
func (c *Controller) CancelRename(id int) error {
	if c.phase != PhaseIdle {
		return ErrBusy
	}
	c.state.CancelEdit(id)
	return nil
}

// SaveRename applies title to id and leaves edit mode.
func (c *Controller) SaveRename(id int, title string) error {
	if c.phase != PhaseIdle {
		return ErrBusy
	}
	return c.state.SaveEdit(id, title)
}

// Rename sets the title of id directly, without the edit flow.
func (c *Controller) Rename(id int, title string) error {
	if c.phase != PhaseIdle {
		return ErrBusy
	}
	return c.state.RenameArchived(id, title)
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the content of the status bar.
type Status struct {
	Model    string `json:"model,omitempty"`
	Selected bool   `json:"selected"`
	Ready    bool   `json:"ready"`
	Text     string `json:"text"`
}

// Status probes the selected model. The probe runs a real inference and may
// take a while.
func (c *Controller) Status(ctx context.Context) Status {
	if !c.HasUsableModel() {
		return Status{Text: c.tr.T(i18n.KeyNoModelSelected)}
	}
	sel := c.state.SelectedModel()
	ready := c.backend.IsModelReady(ctx, sel)
	return c.StatusFor(sel, ready)
}

// StatusUnchecked formats a status without probing the model.
func (c *Controller) StatusUnchecked(modelName string) Status {
	if strings.TrimSpace(modelName) == "" || i18n.IsPlaceholder(modelName) {
		return Status{Text: c.tr.T(i18n.KeyNoModelSelected)}
	}
	return Status{
		Model:    modelName,
		Selected: true,
		Text:     c.tr.T(i18n.KeyActiveModel, modelName, c.tr.T(i18n.KeyStatusUnknown)),
	}
}

// StatusFor formats a status for a probe result obtained elsewhere.
func (c *Controller) StatusFor(modelName string, ready bool) Status {
	if strings.TrimSpace(modelName) == "" || i18n.IsPlaceholder(modelName) {
		return Status{Text: c.tr.T(i18n.KeyNoModelSelected)}
	}
	label := c.tr.T(i18n.KeyStatusOffline)
	if ready {
		label = c.tr.T(i18n.KeyStatusActive)
	}
	return Status{
		Model:    modelName,
		Selected: true,
		Ready:    ready,
		Text:     c.tr.T(i18n.KeyActiveModel, modelName, label),
	}
}
