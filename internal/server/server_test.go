// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ollama-chat/internal/chat"
	"github.com/jeranaias/ollama-chat/internal/i18n"
	"github.com/jeranaias/ollama-chat/internal/model"
	"github.com/jeranaias/ollama-chat/internal/ollama"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeOllama answers /api/tags and /api/generate.
type fakeOllama struct {
	models    []string
	reply     string
	delay     time.Duration
	status    int
	generates atomic.Int32
}

func (f *fakeOllama) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			type tag struct {
				Name string `json:"name"`
			}
			tags := make([]tag, 0, len(f.models))
			for _, m := range f.models {
				tags = append(tags, tag{Name: m})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"models": tags})
		case "/api/generate":
			f.generates.Add(1)
			if f.delay > 0 {
				time.Sleep(f.delay)
			}
			if f.status != 0 {
				w.WriteHeader(f.status)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"response": f.reply, "done": true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		SessionTTL:    time.Hour,
		Metrics:       true,
		ProbeOnRender: true,
		Language:      "de",
	}
}

// newTestServer starts the chat server against an Ollama at ollamaURL.
func newTestServer(t *testing.T, cfg Config, ollamaURL string) (*Server, *httptest.Server) {
	t.Helper()
	clientCfg := ollama.DefaultConfig()
	clientCfg.BaseURL = ollamaURL
	clientCfg.Timeout = 5 * time.Second
	clientCfg.ProbeTimeout = 2 * time.Second

	tr := i18n.New(cfg.Language)
	dir := ollama.NewDirectory(ollama.NewClientWithConfig(clientCfg), tr, quietLogger())

	s, err := New(cfg, dir, quietLogger())
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

// browser is an HTTP client with its own cookie jar that does not follow
// redirects.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: 10 * time.Second,
	}
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func postForm(t *testing.T, c *http.Client, u string, form url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, form)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func doJSON(t *testing.T, c *http.Client, method, u string, body any, out any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, u, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type errorBody struct {
	Error apiError `json:"error"`
}

// =============================================================================
// PAGE TESTS
// =============================================================================

func TestHealth(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)

	resp, _ := get(t, browser(t), ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndex_RendersModelsAndStatus(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3", "mistral"}, reply: "Hi"}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)

	resp, body := get(t, browser(t), ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, body, `<option value="llama3" selected>llama3</option>`)
	assert.Contains(t, body, `<option value="mistral">mistral</option>`)
	assert.Contains(t, body, "Aktives Modell: llama3 | Status: Aktiv")
	assert.Contains(t, body, "Modelleinstellungen")
	assert.Equal(t, int32(1), fake.generates.Load(), "status probe runs once per render")

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			found = true
			assert.True(t, c.HttpOnly)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		}
	}
	assert.True(t, found, "session cookie set")
}

func TestIndex_ProbeDisabled(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	cfg := testConfig()
	cfg.ProbeOnRender = false
	_, ts := newTestServer(t, cfg, fake.start(t).URL)

	_, body := get(t, browser(t), ts.URL+"/")
	assert.Contains(t, body, "Aktives Modell: llama3 | Status: Unbekannt")
	assert.Equal(t, int32(0), fake.generates.Load())
}

func TestIndex_NoServer(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), deadURL(t))

	_, body := get(t, browser(t), ts.URL+"/")
	assert.Contains(t, body, "Keine Modelle gefunden")
	assert.Contains(t, body, "Kein Modell ausgewählt")
}

func TestIndex_UnknownPath(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)

	resp, _ := get(t, browser(t), ts.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFormFlow_SendAndRender(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hello **there**!"}
	cfg := testConfig()
	cfg.ProbeOnRender = false
	_, ts := newTestServer(t, cfg, fake.start(t).URL)
	c := browser(t)

	get(t, c, ts.URL+"/")
	resp := postForm(t, c, ts.URL+"/messages", url.Values{"prompt": {"Hi"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body := get(t, c, ts.URL+"/")
	assert.Contains(t, body, "<p>Hi</p>")
	assert.Contains(t, body, "<strong>there</strong>")
	assert.Contains(t, body, "Assistent")
}

func TestFormFlow_NoModelShowsNoticeOnce(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), deadURL(t))
	c := browser(t)

	get(t, c, ts.URL+"/")
	postForm(t, c, ts.URL+"/messages", url.Values{"prompt": {"Hi"}})

	_, body := get(t, c, ts.URL+"/")
	assert.Contains(t, body, "Bitte wähle zuerst ein verfügbares Modell aus.")
	assert.NotContains(t, body, "<p>Hi</p>", "nothing appended without a model")

	_, body = get(t, c, ts.URL+"/")
	assert.NotContains(t, body, "Bitte wähle zuerst ein verfügbares Modell aus.")
}

func TestFormFlow_ChatManagement(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hello!"}
	cfg := testConfig()
	cfg.ProbeOnRender = false
	_, ts := newTestServer(t, cfg, fake.start(t).URL)
	c := browser(t)

	get(t, c, ts.URL+"/")
	postForm(t, c, ts.URL+"/messages", url.Values{"prompt": {"Hi"}})
	postForm(t, c, ts.URL+"/chats", url.Values{"title": {"Greeting"}})

	_, body := get(t, c, ts.URL+"/")
	assert.Contains(t, body, "Greeting (llama3)")
	assert.NotContains(t, body, "<p>Hello!</p>", "new chat is empty")

	// The first chat has id 0 and keeps it in the archive.
	postForm(t, c, ts.URL+"/chats/0/edit", nil)
	_, body = get(t, c, ts.URL+"/")
	assert.Contains(t, body, `action="/chats/0/rename"`)

	postForm(t, c, ts.URL+"/chats/0/rename", url.Values{"title": {"Hallo"}})
	_, body = get(t, c, ts.URL+"/")
	assert.Contains(t, body, "Hallo (llama3)")
	assert.NotContains(t, body, `action="/chats/0/rename"`)

	postForm(t, c, ts.URL+"/chats/0/open", nil)
	_, body = get(t, c, ts.URL+"/")
	assert.Contains(t, body, "<p>Hello!</p>")

	postForm(t, c, ts.URL+"/chats/99/open", nil)
	_, body = get(t, c, ts.URL+"/")
	assert.Contains(t, body, "Chat nicht gefunden.")

	resp := postForm(t, c, ts.URL+"/chats/abc/open", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPage_EscapesUnsafeMarkup(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: `<script>alert(1)</script><img src=x onerror=alert(1)>`}
	cfg := testConfig()
	cfg.ProbeOnRender = false
	_, ts := newTestServer(t, cfg, fake.start(t).URL)
	c := browser(t)

	get(t, c, ts.URL+"/")
	postForm(t, c, ts.URL+"/messages", url.Values{"prompt": {"x"}})

	_, body := get(t, c, ts.URL+"/")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.NotContains(t, body, "onerror")
}

func TestStaticAndCodeCSS(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)

	resp, body := get(t, c, ts.URL+"/static/style.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".sidebar")

	resp, body = get(t, c, ts.URL+"/code.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	assert.NotEmpty(t, body)

	resp, _ = get(t, c, ts.URL+"/static/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// API TESTS
// =============================================================================

func TestAPI_SendRoundTrip(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hello!"}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)

	var models ModelsResponse
	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, &models)
	assert.Equal(t, []string{"llama3"}, models.Models)
	assert.Equal(t, "llama3", models.Selected)
	assert.True(t, models.Available)

	var sent SendResponse
	resp := doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "Hi"}, &sent)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello!", sent.Reply)
	assert.Equal(t, []model.Message{
		{Role: model.RoleUser, Content: "Hi"},
		{Role: model.RoleAssistant, Content: "Hello!"},
	}, sent.Messages)

	var snap chat.Snapshot
	doJSON(t, c, http.MethodGet, ts.URL+"/api/session", nil, &snap)
	assert.Len(t, snap.Messages, 2)
	assert.Equal(t, "idle", snap.Phase)
}

func TestAPI_ServerErrorBecomesSentinelReply(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, status: http.StatusInternalServerError}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)

	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)

	var sent SendResponse
	resp := doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "Hi"}, &sent)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Fehler bei der Kommunikation mit dem Modell.", sent.Reply)
	assert.Len(t, sent.Messages, 2)
}

func TestAPI_NoModelSelected(t *testing.T) {
	_, ts := newTestServer(t, testConfig(), deadURL(t))
	c := browser(t)

	var models ModelsResponse
	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, &models)
	assert.Equal(t, []string{"Keine Modelle gefunden"}, models.Models)
	assert.False(t, models.Available)

	var e errorBody
	resp := doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "Hi"}, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "no_model_selected", e.Error.Code)
	assert.Equal(t, "Bitte wähle zuerst ein verfügbares Modell aus.", e.Error.Message)

	var snap chat.Snapshot
	doJSON(t, c, http.MethodGet, ts.URL+"/api/session", nil, &snap)
	assert.Empty(t, snap.Messages)
}

func TestAPI_EmptyPrompt(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)
	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)

	var e errorBody
	resp := doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "  "}, &e)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "empty_prompt", e.Error.Code)
}

func TestAPI_InvalidJSON(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)

	resp, err := browser(t).Post(ts.URL+"/api/messages", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_SelectModel(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3", "mistral"}}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)

	var snap chat.Snapshot
	resp := doJSON(t, c, http.MethodPost, ts.URL+"/api/model", SelectModelRequest{Model: "mistral"}, &snap)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mistral", snap.SelectedModel)

	var e errorBody
	resp = doJSON(t, c, http.MethodPost, ts.URL+"/api/model", SelectModelRequest{Model: "gpt"}, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "unknown_model", e.Error.Code)
}

func TestAPI_Status(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "ok"}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)
	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)

	var st StatusResponse
	doJSON(t, c, http.MethodGet, ts.URL+"/api/status", nil, &st)
	assert.True(t, st.Ready)
	assert.Equal(t, "Aktives Modell: llama3 | Status: Aktiv", st.Text)
	assert.Equal(t, "idle", st.Phase)

	before := fake.generates.Load()
	doJSON(t, c, http.MethodGet, ts.URL+"/api/status?probe=false", nil, &st)
	assert.Equal(t, before, fake.generates.Load())
	assert.Equal(t, "Aktives Modell: llama3 | Status: Unbekannt", st.Text)
}

func TestAPI_StatusUnavailable(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, status: http.StatusNotFound}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)
	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)

	var st StatusResponse
	doJSON(t, c, http.MethodGet, ts.URL+"/api/status", nil, &st)
	assert.False(t, st.Ready)
	assert.Equal(t, "Aktives Modell: llama3 | Status: Nicht verfügbar", st.Text)
}

func TestAPI_ChatManagement(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hello!"}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)
	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)
	doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "Hi"}, nil)

	var snap chat.Snapshot
	resp := doJSON(t, c, http.MethodPost, ts.URL+"/api/chats", TitleRequest{}, &snap)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, snap.Archive, 1)
	assert.Equal(t, "Chat 1", snap.Archive[0].Title)
	assert.Equal(t, "Chat 1 (llama3)", snap.Archive[0].Label)
	assert.Empty(t, snap.Messages)
	archivedID := snap.Archive[0].ID

	chatURL := ts.URL + "/api/chats/" + strconv.Itoa(archivedID)

	resp = doJSON(t, c, http.MethodPatch, chatURL, TitleRequest{Title: "  Greeting  "}, &snap)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Greeting", snap.Archive[0].Title)

	resp = doJSON(t, c, http.MethodPatch, chatURL, TitleRequest{Title: "   "}, &snap)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Greeting", snap.Archive[0].Title, "blank title keeps the old one")

	resp = doJSON(t, c, http.MethodPost, chatURL+"/activate", nil, &snap)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, snap.Messages, 2)

	var e errorBody
	resp = doJSON(t, c, http.MethodPost, ts.URL+"/api/chats/42/activate", nil, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "chat_not_found", e.Error.Code)

	resp = doJSON(t, c, http.MethodPatch, ts.URL+"/api/chats/42", TitleRequest{Title: "x"}, &e)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_BusyWhileAwaiting(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "slow", delay: 500 * time.Millisecond}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)
	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)

	done := make(chan SendResponse, 1)
	go func() {
		var sent SendResponse
		doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "first"}, &sent)
		done <- sent
	}()

	require.Eventually(t, func() bool {
		var snap chat.Snapshot
		doJSON(t, c, http.MethodGet, ts.URL+"/api/session", nil, &snap)
		return snap.Awaiting()
	}, 2*time.Second, 10*time.Millisecond)

	var e errorBody
	resp := doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "second"}, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "response_pending", e.Error.Code)

	resp = doJSON(t, c, http.MethodPost, ts.URL+"/api/chats", TitleRequest{}, &e)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	sent := <-done
	assert.Equal(t, "slow", sent.Reply)
	assert.Len(t, sent.Messages, 2)
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestSessions_Isolated(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hello!"}
	s, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	alice, bob := browser(t), browser(t)

	doJSON(t, alice, http.MethodGet, ts.URL+"/api/models", nil, nil)
	doJSON(t, bob, http.MethodGet, ts.URL+"/api/models", nil, nil)
	doJSON(t, alice, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "Hi"}, nil)

	var a, b chat.Snapshot
	doJSON(t, alice, http.MethodGet, ts.URL+"/api/session", nil, &a)
	doJSON(t, bob, http.MethodGet, ts.URL+"/api/session", nil, &b)
	assert.Len(t, a.Messages, 2)
	assert.Empty(t, b.Messages)
	assert.Equal(t, 2, s.Sessions().Len())
}

func TestSessions_ForeignCookieNotAdopted(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	s, ts := newTestServer(t, testConfig(), fake.start(t).URL)

	forged := "7f9c2ba4-e88f-4d3b-9f4a-1b2c3d4e5f60"
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/session", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: forged})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	var issued string
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			issued = c.Value
		}
	}
	assert.NotEmpty(t, issued)
	assert.NotEqual(t, forged, issued)
	assert.Equal(t, 1, s.Sessions().Len())
}

func TestSessions_MalformedCookieIgnored(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "../../etc/passwd"})
	assert.Empty(t, sessionIDFromCookie(req))
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestSecurityHeaders(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)

	resp, _ := get(t, browser(t), ts.URL+"/api/session")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'self'")
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestAPI_SessionExpiryHeader(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)

	resp, _ := get(t, browser(t), ts.URL+"/api/session")
	secs, err := strconv.Atoi(resp.Header.Get("X-Session-Expires-In"))
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), float64(secs), 5)
}

func TestRateLimit(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	cfg := testConfig()
	cfg.RateLimit = 0.01
	cfg.RateBurst = 2
	_, ts := newTestServer(t, cfg, fake.start(t).URL)
	c := browser(t)

	for i := 0; i < 2; i++ {
		resp, _ := get(t, c, ts.URL+"/api/session")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	var e errorBody
	resp := doJSON(t, c, http.MethodGet, ts.URL+"/api/session", nil, &e)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "rate_limited", e.Error.Code)

	// Health checks are not limited.
	resp, _ = get(t, c, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiter_AllowAndCleanup(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("10.0.0.1")
	assert.True(t, ok)

	ok, wait := rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, time.Second.Seconds(), wait.Seconds(), 0.01)

	ok, _ = rl.Allow("10.0.0.2")
	assert.True(t, ok, "clients have separate buckets")

	now = now.Add(time.Second)
	ok, _ = rl.Allow("10.0.0.1")
	assert.True(t, ok, "bucket refills")

	now = now.Add(limiterIdleTTL + time.Second)
	assert.Equal(t, 2, rl.Cleanup())
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	assert.False(t, rl.Enabled())
	for i := 0; i < 100; i++ {
		ok, _ := rl.Allow("10.0.0.1")
		require.True(t, ok)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.7:5555", "", "", "203.0.113.7"},
		{"untrusted proxy header ignored", "203.0.113.7:5555", "1.2.3.4", "", "203.0.113.7"},
		{"trusted proxy xff", "127.0.0.1:5555", "198.51.100.1, 10.0.0.1", "", "198.51.100.1"},
		{"trusted proxy x-real-ip", "10.1.2.3:5555", "", "198.51.100.2", "198.51.100.2"},
		{"trusted proxy invalid header", "10.1.2.3:5555", "not-an-ip", "", "10.1.2.3"},
		{"no port", "192.0.2.1", "", "", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mw("a"), mw("b"), mw("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

// =============================================================================
// METRICS TESTS
// =============================================================================

func TestMetrics_Exposed(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}, reply: "Hello!"}
	_, ts := newTestServer(t, testConfig(), fake.start(t).URL)
	c := browser(t)

	doJSON(t, c, http.MethodGet, ts.URL+"/api/models", nil, nil)
	doJSON(t, c, http.MethodPost, ts.URL+"/api/messages", SendRequest{Prompt: "Hi"}, nil)

	resp, body := get(t, c, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `ollama_chat_ollama_calls_total{op="generate",result="ok"} 1`)
	assert.Contains(t, body, `ollama_chat_ollama_calls_total{op="list",result="ok"} 1`)
	assert.Contains(t, body, "ollama_chat_chat_turns_total 1")
	assert.Contains(t, body, "ollama_chat_active_sessions 1")
	assert.Contains(t, body, `route="/api/messages"`)
}

func TestMetrics_Disabled(t *testing.T) {
	fake := &fakeOllama{models: []string{"llama3"}}
	cfg := testConfig()
	cfg.Metrics = false
	_, ts := newTestServer(t, cfg, fake.start(t).URL)

	resp, _ := get(t, browser(t), ts.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics_ObserveCallErrorLabel(t *testing.T) {
	m := NewMetrics(func() int { return 0 })
	m.ObserveCall("generate", "llama3", time.Second, &ollama.ClientError{Type: ollama.ErrTypeTimeout})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `ollama_chat_ollama_calls_total{op="generate",result="timeout"} 1`)
}

func TestConfigFrom_Defaults(t *testing.T) {
	var cfg Config
	cfg.fillDefaults()
	assert.Equal(t, "127.0.0.1:8501", cfg.Addr)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.GenerateTimeout)
}
