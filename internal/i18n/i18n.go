// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package i18n holds the user-visible strings of ollama-chat and their
// translations.
//
// Keys are the English source strings. German is the default language.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The sentinel replies are appended to conversations verbatim,
// so their wording is part of observable behavior.
const (
	KeyErrModelStatus   = "Error communicating with the model."
	KeyErrModelRequest  = "Error during the API request."
	KeyNoModelsFound    = "No models found"
	KeyChatTitle        = "Chat %d"
	KeySelectModelFirst = "Please select an available model first."
	KeyResponsePending  = "A response is still pending."
	KeyChatNotFound     = "Chat not found."
	KeyNoModelSelected  = "No model selected"
	KeyActiveModel      = "Active model: %s | Status: %s"
	KeyStatusActive     = "Active"
	KeyStatusOffline    = "Unavailable"
	KeyThinking         = "Thinking..."
	KeyModelSettings    = "Model settings"
	KeyChooseModel      = "Choose a model"
	KeyChatName         = "Chat name (optional)"
	KeyChatNameExample  = "e.g. Python help"
	KeyNewChat          = "New chat"
	KeyChatHistory      = "Chat history"
	KeyRenameChat       = "Rename chat"
	KeyNewName          = "New name:"
	KeySave             = "Save"
	KeyCancel           = "Cancel"
	KeySend             = "Send"
	KeyWriteMessage     = "Write a message..."
	KeyEmptyHistory     = "No saved chats yet."
	KeyTitle            = "Ollama Chat"
	KeyStatusUnknown    = "Unknown"
	KeyRoleUser         = "You"
	KeyRoleAssistant    = "Assistant"
	KeyEdit             = "Edit"
	KeyOpen             = "Open"
	KeyTooManyRequests  = "Too many requests. Please wait a moment."
	KeyUnknownModel     = "This model is not available."
	KeyApply            = "Apply"
	KeyExport           = "Export"
	KeyExportedTo       = "Exported to %s"
	KeyNothingToExport  = "This chat has no messages yet."
	KeyUnknownCommand   = "Unknown command %s. Type /help."
)

var german = map[string]string{
	KeyErrModelStatus:   "Fehler bei der Kommunikation mit dem Modell.",
	KeyErrModelRequest:  "Fehler bei der API-Anfrage.",
	KeyNoModelsFound:    "Keine Modelle gefunden",
	KeyChatTitle:        "Chat %d",
	KeySelectModelFirst: "Bitte wähle zuerst ein verfügbares Modell aus.",
	KeyResponsePending:  "Eine Antwort steht noch aus.",
	KeyChatNotFound:     "Chat nicht gefunden.",
	KeyNoModelSelected:  "Kein Modell ausgewählt",
	KeyActiveModel:      "Aktives Modell: %s | Status: %s",
	KeyStatusActive:     "Aktiv",
	KeyStatusOffline:    "Nicht verfügbar",
	KeyThinking:         "Denke nach...",
	KeyModelSettings:    "Modelleinstellungen",
	KeyChooseModel:      "Wähle ein Modell",
	KeyChatName:         "Chat-Name (optional)",
	KeyChatNameExample:  "z.B. Python Hilfe",
	KeyNewChat:          "Neuer Chat",
	KeyChatHistory:      "Chat-Historie",
	KeyRenameChat:       "Chat umbenennen",
	KeyNewName:          "Neuer Name:",
	KeySave:             "Speichern",
	KeyCancel:           "Abbrechen",
	KeySend:             "Senden",
	KeyWriteMessage:     "Schreibe eine Nachricht...",
	KeyEmptyHistory:     "Noch keine gespeicherten Chats.",
	KeyTitle:            "Ollama Chat",
	KeyStatusUnknown:    "Unbekannt",
	KeyRoleUser:         "Du",
	KeyRoleAssistant:    "Assistent",
	KeyEdit:             "Bearbeiten",
	KeyOpen:             "Öffnen",
	KeyTooManyRequests:  "Zu viele Anfragen. Bitte warte einen Moment.",
	KeyUnknownModel:     "Dieses Modell ist nicht verfügbar.",
	KeyApply:            "Übernehmen",
	KeyExport:           "Exportieren",
	KeyExportedTo:       "Exportiert nach %s",
	KeyNothingToExport:  "Dieser Chat enthält noch keine Nachrichten.",
	KeyUnknownCommand:   "Unbekannter Befehl %s. Gib /help ein.",
}

// supported lists the available languages; the first entry is the fallback.
var supported = []language.Tag{language.German, language.English}

var (
	cat     = buildCatalog()
	matcher = language.NewMatcher(supported)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.German))
	for key, msg := range german {
		_ = b.SetString(language.German, key, msg)
		_ = b.SetString(language.English, key, key)
	}
	return b
}

// Translator renders message keys in one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Translator for lang ("de", "en", "en-US", ...). Unknown or
// empty values fall back to German.
func New(lang string) *Translator {
	tag := Match(lang)
	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(cat)),
	}
}

// Match resolves lang to one of the supported languages.
func Match(lang string) language.Tag {
	t, err := language.Parse(lang)
	if err != nil {
		return supported[0]
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}

// T formats key with args in the translator's language.
func (t *Translator) T(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// Lang returns the BCP 47 code of the translator's language.
func (t *Translator) Lang() string {
	return t.tag.String()
}

// IsPlaceholder reports whether s is the "no models found" placeholder in
// any supported language.
func IsPlaceholder(s string) bool {
	return s == KeyNoModelsFound || s == german[KeyNoModelsFound]
}

// Languages returns the codes of all supported languages.
func Languages() []string {
	out := make([]string, len(supported))
	for i, tag := range supported {
		out[i] = tag.String()
	}
	return out
}
