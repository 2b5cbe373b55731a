// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultsToGerman(t *testing.T) {
	for _, lang := range []string{"", "de", "de-AT", "not a tag!"} {
		tr := New(lang)
		assert.Equal(t, "de", tr.Lang(), "lang %q", lang)
		assert.Equal(t, "Fehler bei der API-Anfrage.", tr.T(KeyErrModelRequest))
	}
}

func TestNew_English(t *testing.T) {
	tr := New("en-US")
	assert.Equal(t, "en", tr.Lang())
	assert.Equal(t, "Error communicating with the model.", tr.T(KeyErrModelStatus))
	assert.Equal(t, "No models found", tr.T(KeyNoModelsFound))
}

func TestT_FormatsArguments(t *testing.T) {
	de := New("de")
	assert.Equal(t, "Chat 3", de.T(KeyChatTitle, 3))
	assert.Equal(t, "Aktives Modell: llama3 | Status: Aktiv", de.T(KeyActiveModel, "llama3", de.T(KeyStatusActive)))
	assert.Equal(t, "Unbekannter Befehl /x. Gib /help ein.", de.T(KeyUnknownCommand, "/x"))
	assert.Equal(t, "Unknown command /x. Type /help.", New("en").T(KeyUnknownCommand, "/x"))
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder("Keine Modelle gefunden"))
	assert.True(t, IsPlaceholder("No models found"))
	assert.False(t, IsPlaceholder("llama3"))
	assert.False(t, IsPlaceholder(""))
}

func TestEveryKeyHasGermanText(t *testing.T) {
	de := New("de")
	for key, want := range german {
		if key == KeyChatTitle || key == KeyActiveModel || key == KeyExportedTo || key == KeyUnknownCommand {
			continue
		}
		assert.Equal(t, want, de.T(key))
	}
	assert.ElementsMatch(t, []string{"de", "en"}, Languages())
}
