// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes.
//
// Commands always return errors; main displays them once and exits with
// GetExitCode.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ollama-chat/internal/config"
	"github.com/jeranaias/ollama-chat/internal/ollama"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is returned for invalid command lines.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nExample: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// ErrMissingArgument reports a missing positional argument.
func ErrMissingArgument(name, example string) error {
	return &UsageError{Reason: "missing argument: " + name, Example: example}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON envelope in JSON mode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
	if hint := errorHint(err); hint != "" {
		fmt.Fprintf(w, "%s %s\n", DimStyle.Render("Hint:"), hint)
	}
}

// errorHint suggests a next step for the Ollama failures users hit most.
func errorHint(err error) string {
	switch {
	case ollama.IsNotRunning(err):
		return "start Ollama with 'ollama serve' or point --url at a running server"
	case ollama.IsTimeout(err):
		return "the model may still be loading; raise ollama.timeout in the config"
	case ollama.IsModelNotFound(err):
		return "install it with 'ollama pull <model>'"
	case ollama.IsTransport(err):
		return "check ollama.base_url and your network"
	}
	return ""
}

// GetExitCode returns the exit code for err.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}

	var cfgErrs config.ValidateErrors
	var cfgErr config.ValidationError
	if errors.As(err, &cfgErrs) || errors.As(err, &cfgErr) {
		return ExitConfigError
	}

	switch ollama.ErrorTypeOf(err) {
	case ollama.ErrTypeNotRunning, ollama.ErrTypeConnection:
		return ExitNetworkError
	case ollama.ErrTypeTimeout:
		return ExitTimeoutError
	case ollama.ErrTypeModelNotFound:
		return ExitNotFoundError
	}

	return ExitGeneralError
}
