// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI_ExportCurrentChat(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hallo!"}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)
	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)
	doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "Hi"}, nil)

	resp, body := get(t, c, ts.URL+"/api/chats/current/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename="chat_Chat_1_`)
	assert.Contains(t, body, "### Du\n\nHi")
	assert.Contains(t, body, "### Assistent\n\nHallo!")

	resp, body = get(t, c, ts.URL+"/api/chats/current/export?format=json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Title    string `json:"title"`
		Model    string `json:"model"`
		Messages []any  `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, "llama3", doc.Model)
	assert.Len(t, doc.Messages, 2)
}

func TestAPI_ExportArchivedChat(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hallo!"}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)
	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)
	doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "Hi"}, nil)
	doJSON(t, c, http.MethodPost, ts.URL+"/api/chats", TitleRequest{Title: "Greeting"}, nil)

	resp, body := get(t, c, ts.URL+"/api/chats/0/export?format=html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.Contains(t, body, "<title>Greeting</title>")
	assert.Contains(t, body, `lang="de"`)
}

func TestAPI_ExportErrors(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hallo!"}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)

	var e errorBody
	resp := doJSON(t, c, http.MethodGet, ts.URL+"/api/chats/current/export", nil, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "empty_chat", e.Error.Code)

	resp = doJSON(t, c, http.MethodGet, ts.URL+"/api/chats/7/export", nil, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "chat_not_found", e.Error.Code)

	resp = doJSON(t, c, http.MethodGet, ts.URL+"/api/chats/abc/export", nil, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)
	doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "Hi"}, nil)
	resp = doJSON(t, c, http.MethodGet, ts.URL+"/api/chats/current/export?format=pdf", nil, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_format", e.Error.Code)
}

func TestPage_ExportLinks(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hallo!"}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)

	_, body := get(t, c, ts.URL+"/")
	assert.NotContains(t, body, "/chats/current/export")

	postForm(t, c, ts.URL+"/messages", url.Values{"prompt": {"Hi"}})
	_, body = get(t, c, ts.URL+"/")
	assert.Contains(t, body, `href="/chats/current/export?format=md"`)

	resp, body := get(t, c, ts.URL+"/chats/current/export?format=md")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hallo!")
}

func TestPage_ExportEmptyShowsNotice(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)

	resp, _ := get(t, c, ts.URL+"/chats/current/export")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := get(t, c, ts.URL+"/")
	assert.Contains(t, body, "Dieser Chat enthält noch keine Nachrichten.")
}
