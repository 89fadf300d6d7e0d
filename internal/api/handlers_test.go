package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aria-ai/aria/internal/assistant"
	"github.com/aria-ai/aria/internal/auth"
	"github.com/aria-ai/aria/internal/automation"
	"github.com/aria-ai/aria/internal/identity"
	"github.com/aria-ai/aria/internal/orchestrator"
	"github.com/aria-ai/aria/internal/provider"
	"github.com/aria-ai/aria/internal/store"
	"github.com/aria-ai/aria/internal/voice"
	"github.com/aria-ai/aria/internal/web"
)

// echoAdapter answers every command with a fixed-confidence echo.
type echoAdapter struct{ identity provider.Identity }

func (a *echoAdapter) Identity() provider.Identity        { return a.identity }
func (a *echoAdapter) Configure(cfg provider.Config) bool { return true }
func (a *echoAdapter) Shutdown()                          {}

func (a *echoAdapter) TestConnection(ctx context.Context, cfg provider.Config) provider.TestResult {
	return provider.TestResult{OK: cfg.APIKey != "", Error: "API key required"}
}

func (a *echoAdapter) Generate(ctx context.Context, command string, conv *provider.Context) *provider.Reply {
	return &provider.Reply{Text: "echo: " + command, Confidence: 0.9, Model: string(a.identity)}
}

type apiFixture struct {
	srv    *httptest.Server
	token  string
	userID string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := zerolog.Nop()

	registry := provider.NewRegistry()
	for _, id := range provider.Identities() {
		registry.Register(&echoAdapter{identity: id})
	}
	orch := orchestrator.New(registry, log)

	st, err := store.Open(filepath.Join(t.TempDir(), "aria.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	authMgr, err := auth.NewManager([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	transcriber := voice.NewSimTranscriber(log)
	synthesizer := voice.NewSimSynthesizer(log)
	wake := voice.NewSimWakeDetector(1, log)
	engine := automation.NewEngine([]string{"echo", "pwd"}, log)
	search := web.NewSearchEngine(log)

	core := assistant.New(assistant.Deps{
		Orchestrator: orch,
		Transcriber:  transcriber,
		Synthesizer:  synthesizer,
		WakeDetector: wake,
		Automation:   engine,
		Search:       search,
		Store:        st,
	}, log)
	t.Cleanup(core.Shutdown)

	server := NewServer(Deps{
		Core:         core,
		Orchestrator: orch,
		Auth:         authMgr,
		Identity:     identity.NewManager(log),
		Store:        st,
		Transcriber:  transcriber,
		Synthesizer:  synthesizer,
		WakeDetector: wake,
		Automation:   engine,
		Search:       search,
	}, log)

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)

	f := &apiFixture{srv: srv}
	f.login(t, "test@example.com")
	return f
}

func (f *apiFixture) login(t *testing.T, email string) {
	t.Helper()
	var out struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	resp := f.do(t, "POST", "/api/auth/login", map[string]string{"email": email}, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	f.token = out.Token
	f.userID = out.UserID
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (f *apiFixture) configureModel(t *testing.T) {
	t.Helper()
	resp := f.do(t, "POST", "/api/ai/configure", map[string]string{
		"model":   "deepseek",
		"api_key": "sk-test",
	}, f.token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndRoot(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, "GET", "/health", nil, "")
	var health map[string]string
	decodeBody(t, resp, &health)
	assert.Equal(t, "ok", health["status"])

	resp = f.do(t, "GET", "/", nil, "")
	var root map[string]string
	decodeBody(t, resp, &root)
	assert.Equal(t, "aria", root["name"])
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)
	assert.NotEmpty(t, f.token)
	assert.NotEmpty(t, f.userID)

	// Same email yields the same user.
	first := f.userID
	f.login(t, "test@example.com")
	assert.Equal(t, first, f.userID)

	resp := f.do(t, "POST", "/api/auth/login", map[string]string{}, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/api/ai/command", "/api/system/execute"} {
		resp := f.do(t, "POST", path, map[string]string{"text": "hi"}, "")
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp := f.do(t, "GET", "/api/history", nil, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConfigureAndCommand(t *testing.T) {
	f := newAPIFixture(t)

	// Command before configure conflicts.
	resp := f.do(t, "POST", "/api/ai/command", map[string]string{"text": "hello"}, f.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	f.configureModel(t)

	resp = f.do(t, "POST", "/api/ai/command", map[string]string{"text": "hello there"}, f.token)
	var result assistant.Result
	decodeBody(t, resp, &result)
	assert.Equal(t, "echo: hello there", result.Text)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)

	// Dangerous command flagged, not executed.
	resp = f.do(t, "POST", "/api/ai/command", map[string]string{"text": "delete my temp files"}, f.token)
	decodeBody(t, resp, &result)
	assert.True(t, result.NeedsConfirmation)
	assert.Empty(t, result.ActionsExecuted)
}

func TestConfigure_Rejections(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, "POST", "/api/ai/configure", map[string]string{"model": "gemini"}, f.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing API key fails the connection test.
	resp = f.do(t, "POST", "/api/ai/configure", map[string]string{"model": "openai"}, f.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestVoiceEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	audio := base64.StdEncoding.EncodeToString([]byte("audio bytes"))
	resp := f.do(t, "POST", "/api/voice/transcribe", map[string]string{"audio": audio, "language": "french"}, f.token)
	var tr map[string]string
	decodeBody(t, resp, &tr)
	assert.Contains(t, tr["text"], "fr-FR")

	resp = f.do(t, "POST", "/api/voice/synthesize", map[string]string{"text": "bonjour"}, f.token)
	var sy map[string]string
	decodeBody(t, resp, &sy)
	wav, err := base64.StdEncoding.DecodeString(sy["audio"])
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(wav[:4]))

	resp = f.do(t, "GET", "/api/voice/languages", nil, f.token)
	var langs map[string]string
	decodeBody(t, resp, &langs)
	assert.Equal(t, "en-US", langs["english"])
}

func TestVoiceSessions(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, "POST", "/api/voice/sessions", nil, f.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]string
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created["session_id"])

	resp = f.do(t, "DELETE", "/api/voice/sessions/"+created["session_id"], nil, f.token)
	var stopped map[string]string
	decodeBody(t, resp, &stopped)
	assert.Equal(t, "stopped", stopped["status"])
}

func TestTrainWakeWord(t *testing.T) {
	f := newAPIFixture(t)

	sample := base64.StdEncoding.EncodeToString([]byte("sample"))
	resp := f.do(t, "POST", "/api/voice/wake-word", map[string]any{
		"wake_word": "jarvis",
		"samples":   []string{sample},
	}, f.token)
	var out struct {
		Trained   bool     `json:"trained"`
		WakeWords []string `json:"wake_words"`
	}
	decodeBody(t, resp, &out)
	assert.True(t, out.Trained)
	assert.Contains(t, out.WakeWords, "jarvis")
}

func TestSystemEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, "GET", "/api/system/info", nil, f.token)
	var info map[string]any
	decodeBody(t, resp, &info)
	assert.NotEmpty(t, info["os"])

	resp = f.do(t, "POST", "/api/system/execute", map[string]string{"command": "echo hi"}, f.token)
	var exec map[string]any
	decodeBody(t, resp, &exec)
	assert.Equal(t, "hi\n", exec["stdout"])

	resp = f.do(t, "POST", "/api/system/execute", map[string]string{"command": "rm -rf /"}, f.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSearchEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, "GET", "/api/search?q=golang&max=2", nil, f.token)
	var out web.SearchResponse
	decodeBody(t, resp, &out)
	assert.Equal(t, "golang", out.Query)
	assert.Len(t, out.Results, 2)

	resp = f.do(t, "GET", "/api/search", nil, f.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.configureModel(t)

	resp := f.do(t, "POST", "/api/ai/command", map[string]string{"text": "remember this"}, f.token)
	resp.Body.Close()

	resp = f.do(t, "GET", "/api/history?limit=10", nil, f.token)
	var out struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, 1, out.Count)
}

func TestCreateDIDEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, "POST", "/api/identity/did", nil, f.token)
	var out struct {
		DID string `json:"did"`
	}
	decodeBody(t, resp, &out)
	assert.True(t, strings.HasPrefix(out.DID, "did:aria:"))

	// Deterministic per user.
	resp = f.do(t, "POST", "/api/identity/did", nil, f.token)
	var again struct {
		DID string `json:"did"`
	}
	decodeBody(t, resp, &again)
	assert.Equal(t, out.DID, again.DID)
}

func TestWebSocket(t *testing.T) {
	f := newAPIFixture(t)
	f.configureModel(t)

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/" + f.userID + "?token=" + f.token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Ping.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong wsResponse
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Type)

	// Command.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "command", "text": "hello"}))
	var resp struct {
		Type   string           `json:"type"`
		Result assistant.Result `json:"result"`
	}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "response", resp.Type)
	assert.Equal(t, "echo: hello", resp.Result.Text)

	// Unknown type.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "mystery"}))
	var unknown wsResponse
	require.NoError(t, conn.ReadJSON(&unknown))
	assert.Equal(t, "error", unknown.Type)
}

func TestWebSocket_RejectsBadToken(t *testing.T) {
	f := newAPIFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/" + f.userID + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
