// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ollama-chat/internal/chat"
	"github.com/jeranaias/ollama-chat/internal/export"
	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/render"
	"github.com/jeranaias/ollama-chat/internal/session"
	"github.com/jeranaias/ollama-chat/internal/ui/styles"
)

// =============================================================================
// FOCUS
// =============================================================================

// Focus is the part of the screen that receives keys.
type Focus int

const (
	FocusInput   Focus = iota // Typing a message
	FocusHistory              // Browsing archived chats
	FocusModels               // Choosing a model
	FocusRename               // Editing an archived chat's title
	FocusNewChat              // Naming the chat about to be archived
)

// listTimeout bounds the model list request.
const listTimeout = 30 * time.Second

// Options configure the TUI.
type Options struct {
	// Theme is passed to the styles and the markdown renderer.
	Theme string

	// ProbeStatus runs a readiness probe whenever the selection changes.
	ProbeStatus bool

	// ExportDir receives exported chats. Empty means the working directory.
	ExportDir string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat TUI. It drives a
// chat.Controller; all controller calls happen in Update, model server
// calls run as commands.
type Model struct {
	ctrl    *chat.Controller
	backend chat.Backend
	tr      *i18n.Translator
	opts    Options

	theme *styles.Theme
	keys  KeyMap
	help  help.Model

	width  int
	height int
	ready  bool

	viewport   viewport.Model
	input      textinput.Model
	titleInput textinput.Model
	spinner    spinner.Model

	focus    Focus
	cursor   int
	renaming int
	status   chat.Status
	checked  bool

	md      *render.Terminal
	mdWidth int
}

// New creates the TUI model around ctrl.
func New(ctrl *chat.Controller, opts Options) Model {
	tr := ctrl.Translator()

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = tr.T(i18n.KeyWriteMessage)
	ti.CharLimit = 8192
	ti.Focus()

	title := textinput.New()
	title.Prompt = ""
	title.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	return Model{
		ctrl:       ctrl,
		backend:    ctrl.Backend(),
		tr:         tr,
		opts:       opts,
		theme:      styles.NewTheme(opts.Theme),
		keys:       DefaultKeyMap(),
		help:       help.New(),
		viewport:   viewport.New(80, 20),
		input:      ti,
		titleInput: title,
		spinner:    sp,
		focus:      FocusInput,
		renaming:   -1,
		status:     ctrl.StatusUnchecked(ctrl.SelectedModel()),
	}
}

// Focus returns the focused area.
func (m Model) Focus() Focus {
	return m.focus
}

// Controller returns the driven controller.
func (m Model) Controller() *chat.Controller {
	return m.ctrl
}

// =============================================================================
// MESSAGES AND COMMANDS
// =============================================================================

type modelsMsg struct{ models []string }

type statusMsg struct {
	model string
	ready bool
}

type replyMsg struct{ reply string }

func listModelsCmd(b chat.Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		return modelsMsg{models: b.ListModels(ctx)}
	}
}

func probeCmd(b chat.Backend, model string) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{model: model, ready: b.IsModelReady(context.Background(), model)}
	}
}

// generateCmd fetches the reply of a started turn. The client's own timeout
// bounds the call.
func generateCmd(b chat.Backend, turn chat.Turn) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{reply: b.Generate(context.Background(), turn.Model, turn.Prompt)}
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init loads the model list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listModelsCmd(m.backend), m.spinner.Tick)
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case modelsMsg:
		m.ctrl.SyncModels(msg.models)
		cmd := m.refreshStatus()
		return m, cmd

	case statusMsg:
		// Ignore probes for a model that is no longer selected.
		if msg.model == m.ctrl.SelectedModel() {
			m.status = m.ctrl.StatusFor(msg.model, msg.ready)
			m.checked = true
		}
		return m, nil

	case replyMsg:
		if err := m.ctrl.CompleteTurn(msg.reply); err != nil {
			m.ctrl.SetNotice(err.Error())
		}
		m.refreshViewport(true)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		switch m.focus {
		case FocusHistory:
			return m.updateHistory(msg)
		case FocusModels:
			return m.updateModels(msg)
		case FocusRename:
			return m.updateRename(msg)
		case FocusNewChat:
			return m.updateNewChat(msg)
		default:
			return m.updateInput(msg)
		}
	}

	return m, nil
}

// =============================================================================
// KEY HANDLING PER FOCUS
// =============================================================================

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		turn, err := m.ctrl.BeginTurn(m.input.Value())
		switch {
		case err == nil:
			m.input.Reset()
			m.refreshViewport(true)
			return m, generateCmd(m.backend, turn)
		case errors.Is(err, chat.ErrBusy):
			m.ctrl.SetNotice(m.tr.T(i18n.KeyResponsePending))
		}
		// ErrNoModelSelected sets its own notice; blank input is ignored.
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.focus = FocusNewChat
		m.titleInput.Reset()
		m.titleInput.Placeholder = m.tr.T(i18n.KeyChatNameExample)
		m.input.Blur()
		return m, m.titleInput.Focus()

	case key.Matches(msg, m.keys.History):
		if len(m.ctrl.View().Archive) == 0 {
			return m, nil
		}
		m.focus = FocusHistory
		m.cursor = 0
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Models):
		m.focus = FocusModels
		m.cursor = indexOf(m.ctrl.Models(), m.ctrl.SelectedModel())
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, listModelsCmd(m.backend)

	case key.Matches(msg, m.keys.Export):
		m.exportActive()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// exportActive writes the active chat as Markdown and reports the result
// as a notice.
func (m Model) exportActive() {
	e := export.NewMarkdownExporter(&export.Options{
		IncludeMetadata: true,
		UserLabel:       m.tr.T(i18n.KeyRoleUser),
		AssistantLabel:  m.tr.T(i18n.KeyRoleAssistant),
		Language:        m.tr.Lang(),
	})
	t := export.FromArchived(m.ctrl.Transcript(), time.Now())
	path, err := export.WriteFile(m.opts.ExportDir, t, e)
	switch {
	case errors.Is(err, export.ErrEmptyTranscript):
		m.ctrl.SetNotice(m.tr.T(i18n.KeyNothingToExport))
	case err != nil:
		m.ctrl.SetNotice(err.Error())
	default:
		m.ctrl.SetNotice(m.tr.T(i18n.KeyExportedTo, path))
	}
}

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	archive := m.ctrl.View().Archive
	if len(archive) == 0 {
		return m.backToInput()
	}
	if m.cursor >= len(archive) {
		m.cursor = len(archive) - 1
	}
	entry := archive[m.cursor]

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(archive)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Submit):
		before := m.ctrl.SelectedModel()
		if err := m.ctrl.OpenChat(entry.ID); err != nil {
			m.noticeFor(err)
			return m, nil
		}
		m.refreshViewport(true)
		next, cmd := m.backToInput()
		if m.ctrl.SelectedModel() != before {
			nm := next.(Model)
			probe := nm.refreshStatus()
			return nm, tea.Batch(cmd, probe)
		}
		return next, cmd
	case key.Matches(msg, m.keys.Rename):
		if err := m.ctrl.BeginRename(entry.ID); err != nil {
			m.noticeFor(err)
			return m, nil
		}
		m.focus = FocusRename
		m.renaming = entry.ID
		m.titleInput.Placeholder = ""
		m.titleInput.SetValue(entry.Title)
		m.titleInput.CursorEnd()
		return m, m.titleInput.Focus()
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.History):
		return m.backToInput()
	}
	return m, nil
}

func (m Model) updateModels(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	models := m.ctrl.Models()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(models)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Submit):
		if m.cursor >= 0 && m.cursor < len(models) {
			if err := m.ctrl.SelectModel(models[m.cursor]); err != nil {
				m.noticeFor(err)
			}
		}
		next, cmd := m.backToInput()
		nm := next.(Model)
		probe := nm.refreshStatus()
		return nm, tea.Batch(cmd, probe)
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Models):
		return m.backToInput()
	}
	return m, nil
}

func (m Model) updateRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		if err := m.ctrl.SaveRename(m.renaming, m.titleInput.Value()); err != nil {
			m.noticeFor(err)
		}
		return m.leaveRename()
	case key.Matches(msg, m.keys.Back):
		if err := m.ctrl.CancelRename(m.renaming); err != nil {
			m.noticeFor(err)
		}
		return m.leaveRename()
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m Model) leaveRename() (tea.Model, tea.Cmd) {
	m.renaming = -1
	m.titleInput.Blur()
	m.focus = FocusHistory
	return m, nil
}

func (m Model) updateNewChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		if err := m.ctrl.NewChat(m.titleInput.Value()); err != nil {
			m.noticeFor(err)
		}
		m.titleInput.Blur()
		m.refreshViewport(true)
		return m.backToInput()
	case key.Matches(msg, m.keys.Back):
		m.titleInput.Blur()
		return m.backToInput()
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m Model) backToInput() (tea.Model, tea.Cmd) {
	m.focus = FocusInput
	return m, m.input.Focus()
}

// =============================================================================
// HELPERS
// =============================================================================

// refreshStatus updates the status line for the current selection and
// returns the probe command, if probing is enabled.
func (m *Model) refreshStatus() tea.Cmd {
	sel := m.ctrl.SelectedModel()
	m.checked = false
	if !m.ctrl.HasUsableModel() {
		m.status = m.ctrl.StatusFor(sel, false)
		return nil
	}
	m.status = m.ctrl.StatusUnchecked(sel)
	if !m.opts.ProbeStatus {
		return nil
	}
	return probeCmd(m.backend, sel)
}

func (m *Model) noticeFor(err error) {
	switch {
	case errors.Is(err, chat.ErrBusy):
		m.ctrl.SetNotice(m.tr.T(i18n.KeyResponsePending))
	case errors.Is(err, chat.ErrUnknownModel):
		m.ctrl.SetNotice(m.tr.T(i18n.KeyUnknownModel))
	case errors.Is(err, session.ErrChatNotFound):
		m.ctrl.SetNotice(m.tr.T(i18n.KeyChatNotFound))
	default:
		m.ctrl.SetNotice(err.Error())
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}

// Run starts the TUI on the alternate screen and blocks until it quits.
func Run(ctrl *chat.Controller, opts Options) error {
	p := tea.NewProgram(New(ctrl, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
