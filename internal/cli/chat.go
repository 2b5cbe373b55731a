// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line based chat.
//
// Command: chat
//
// Examples:
//
//	ollama-chat chat                  Chat with the first installed model
//	ollama-chat chat --model mistral  Preselect a model
//	echo "Hallo" | ollama-chat chat   Scripted input, one prompt per line
//
// Interactive commands are listed by /help. Ctrl+D or /quit leaves.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/ollama-chat/internal/chat"
	"github.com/jeranaias/ollama-chat/internal/config"
	"github.com/jeranaias/ollama-chat/internal/export"
	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/render"
	"github.com/jeranaias/ollama-chat/internal/session"
	"github.com/jeranaias/ollama-chat/internal/util"
)

// =============================================================================
// INPUT
// =============================================================================

// LineReader reads one line of input per call. io.EOF ends the chat.
type LineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// linerReader adds line editing and persistent history on a terminal.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &linerReader{line: line, historyFile: filepath.Join(dir, "chat_history")}

	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", io.EOF
		}
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (r *linerReader) Close() error {
	var buf bytes.Buffer
	if _, err := r.line.WriteHistory(&buf); err == nil {
		_ = util.AtomicWriteFileWithDir(r.historyFile, buf.Bytes(), 0600, 0700)
	}
	return r.line.Close()
}

// scanReader reads piped input without echo or history.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &scanReader{sc: sc}
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

// ChatREPL is a line based front end on a chat.Controller.
type ChatREPL struct {
	ctrl  *chat.Controller
	tr    *i18n.Translator
	in    LineReader
	out   io.Writer
	md    *render.Terminal
	probe bool

	// exportDir receives /export files.
	exportDir string
}

// NewChatREPL creates a REPL reading from in and writing to out. probe runs
// a readiness probe for /status and the welcome banner.
func NewChatREPL(ctrl *chat.Controller, in LineReader, out io.Writer, md *render.Terminal, probe bool) *ChatREPL {
	return &ChatREPL{
		ctrl:  ctrl,
		tr:    ctrl.Translator(),
		in:    in,
		out:   out,
		md:    md,
		probe: probe,

		exportDir: ".",
	}
}

// HandleChat runs the chat command on the terminal.
func HandleChat(ctx context.Context, ctrl *chat.Controller, args Args, theme string, probe bool) error {
	var in LineReader
	if IsTTY() {
		in = newLinerReader()
	} else {
		in = newScanReader(os.Stdin)
	}
	defer in.Close()

	md := render.NewTerminal(GetTerminalWidth()-4, GlamourTheme(theme))
	repl := NewChatREPL(ctrl, in, os.Stdout, md, probe && IsTTY())
	return repl.Run(ctx, args.Model)
}

// Run loads the model list, selects preselect when given and reads lines
// until EOF, /quit or ctx ends.
func (r *ChatREPL) Run(ctx context.Context, preselect string) error {
	r.ctrl.RefreshModels(ctx)
	if preselect != "" {
		if err := r.ctrl.SelectModel(preselect); err != nil {
			r.warn(r.noticeFor(err))
		}
	}
	r.printWelcome(ctx)

	prompt := PromptStyle.Render(">") + " "
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.in.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/"):
			if quit := r.command(ctx, line); quit {
				return nil
			}
		default:
			r.send(ctx, line)
		}
	}
}

func (r *ChatREPL) send(ctx context.Context, prompt string) {
	fmt.Fprintln(r.out, DimStyle.Render(r.tr.T(i18n.KeyThinking)))

	reply, err := r.ctrl.Submit(ctx, prompt)
	switch {
	case errors.Is(err, chat.ErrNoModelSelected):
		r.warn(r.ctrl.Notice())
		return
	case err != nil:
		r.warn(r.noticeFor(err))
		return
	}

	fmt.Fprintln(r.out, AssistantLabelStyle.Render(r.tr.T(i18n.KeyRoleAssistant)))
	fmt.Fprint(r.out, r.md.Render(reply))
	fmt.Fprintln(r.out)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command runs a slash command and reports whether the chat should end.
func (r *ChatREPL) command(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "/quit", "/q", "/exit":
		return true
	case "/help", "/h", "/?":
		r.printHelp()
	case "/new", "/n":
		if err := r.ctrl.NewChat(rest); err != nil {
			r.warn(r.noticeFor(err))
			return false
		}
		fmt.Fprintln(r.out, SuccessStyle.Render(r.tr.T(i18n.KeyNewChat)))
	case "/history", "/chats":
		r.printHistory()
	case "/open", "/o":
		id, ok := r.parseID(rest)
		if !ok {
			return false
		}
		if err := r.ctrl.OpenChat(id); err != nil {
			r.warn(r.noticeFor(err))
			return false
		}
		r.printTranscript()
	case "/rename":
		idText, title, _ := strings.Cut(rest, " ")
		id, ok := r.parseID(idText)
		if !ok {
			return false
		}
		if err := r.ctrl.Rename(id, title); err != nil {
			r.warn(r.noticeFor(err))
			return false
		}
		r.printHistory()
	case "/models":
		r.ctrl.RefreshModels(ctx)
		r.printModels()
	case "/model", "/m":
		if rest == "" {
			fmt.Fprintln(r.out, r.ctrl.SelectedModel())
			return false
		}
		if err := r.ctrl.SelectModel(rest); err != nil {
			r.warn(r.noticeFor(err))
			return false
		}
		r.printStatus(ctx)
	case "/status", "/s":
		r.printStatus(ctx)
	case "/export", "/e":
		r.export(rest)
	default:
		r.warn(r.tr.T(i18n.KeyUnknownCommand, name))
	}
	return false
}

// export writes the active chat, or archived chat ID, to exportDir.
func (r *ChatREPL) export(args string) {
	fields := strings.Fields(args)
	format := ""
	if len(fields) > 0 {
		format = fields[0]
	}
	e, err := export.ForFormat(format, &export.Options{
		IncludeMetadata: true,
		UserLabel:       r.tr.T(i18n.KeyRoleUser),
		AssistantLabel:  r.tr.T(i18n.KeyRoleAssistant),
		Language:        r.tr.Lang(),
	})
	if err != nil {
		r.warn(err.Error())
		return
	}

	conv := r.ctrl.Transcript()
	if len(fields) > 1 {
		id, ok := r.parseID(fields[1])
		if !ok {
			return
		}
		if conv, err = r.ctrl.ArchivedTranscript(id); err != nil {
			r.warn(r.noticeFor(err))
			return
		}
	}

	path, err := export.WriteFile(r.exportDir, export.FromArchived(conv, time.Now()), e)
	switch {
	case errors.Is(err, export.ErrEmptyTranscript):
		r.warn(r.tr.T(i18n.KeyNothingToExport))
	case err != nil:
		r.warn(err.Error())
	default:
		fmt.Fprintln(r.out, SuccessStyle.Render(r.tr.T(i18n.KeyExportedTo, path)))
	}
}

func (r *ChatREPL) parseID(s string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		r.warn(r.tr.T(i18n.KeyChatNotFound))
		return 0, false
	}
	return id, true
}

func (r *ChatREPL) noticeFor(err error) string {
	switch {
	case errors.Is(err, session.ErrChatNotFound):
		return r.tr.T(i18n.KeyChatNotFound)
	case errors.Is(err, chat.ErrUnknownModel):
		return r.tr.T(i18n.KeyUnknownModel)
	case errors.Is(err, chat.ErrBusy):
		return r.tr.T(i18n.KeyResponsePending)
	default:
		return err.Error()
	}
}

func (r *ChatREPL) warn(msg string) {
	if msg != "" {
		fmt.Fprintln(r.out, WarningStyle.Render(msg))
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *ChatREPL) printWelcome(ctx context.Context) {
	fmt.Fprintln(r.out, TitleStyle.Render(r.tr.T(i18n.KeyTitle)))
	r.printStatus(ctx)
	fmt.Fprintln(r.out, DimStyle.Render("/help, /quit"))
	fmt.Fprintln(r.out)
}

func (r *ChatREPL) printStatus(ctx context.Context) {
	var st chat.Status
	if r.probe {
		st = r.ctrl.Status(ctx)
	} else {
		st = r.ctrl.StatusUnchecked(r.ctrl.SelectedModel())
	}
	if st.Ready {
		fmt.Fprintln(r.out, SuccessStyle.Render(st.Text))
		return
	}
	fmt.Fprintln(r.out, ValueStyle.Render(st.Text))
}

func (r *ChatREPL) printModels() {
	fmt.Fprintln(r.out, SectionStyle.Render(r.tr.T(i18n.KeyChooseModel)))
	selected := r.ctrl.SelectedModel()
	for _, m := range r.ctrl.Models() {
		marker := "  "
		if m == selected {
			marker = "* "
		}
		fmt.Fprintln(r.out, marker+m)
	}
}

func (r *ChatREPL) printHistory() {
	fmt.Fprintln(r.out, SectionStyle.Render(r.tr.T(i18n.KeyChatHistory)))
	archive := r.ctrl.View().Archive
	if len(archive) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render(r.tr.T(i18n.KeyEmptyHistory)))
		return
	}
	for _, e := range archive {
		line := fmt.Sprintf("  [%d] %s", e.ID, e.Label)
		if e.Preview != "" {
			line += "  " + DimStyle.Render(util.TruncateRunes(e.Preview, 40))
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *ChatREPL) printTranscript() {
	for _, m := range r.ctrl.View().Messages {
		if m.IsUser() {
			fmt.Fprintln(r.out, UserLabelStyle.Render(r.tr.T(i18n.KeyRoleUser)))
			fmt.Fprintln(r.out, m.Content)
		} else {
			fmt.Fprintln(r.out, AssistantLabelStyle.Render(r.tr.T(i18n.KeyRoleAssistant)))
			fmt.Fprint(r.out, r.md.Render(m.Content))
		}
		fmt.Fprintln(r.out)
	}
}

func (r *ChatREPL) printHelp() {
	fmt.Fprintln(r.out, SectionStyle.Render("Commands"))
	for _, row := range [][2]string{
		{"/new [title]", "archive this chat and start a new one"},
		{"/history", "list archived chats"},
		{"/open ID", "load an archived chat"},
		{"/rename ID TITLE", "rename an archived chat"},
		{"/models", "list models"},
		{"/model NAME", "select a model"},
		{"/status", "show model status"},
		{"/export [md|json|html] [ID]", "save a chat to a file"},
		{"/quit", "leave"},
	} {
		fmt.Fprintf(r.out, "  %s %s\n", RenderLabel(row[0]), DimStyle.Render(row[1]))
	}
}
