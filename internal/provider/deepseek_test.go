package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChatCompletionServer serves the OpenAI-compatible endpoints used by the
// DeepSeek and OpenAI clients.
func newChatCompletionServer(t *testing.T, text string, totalTokens int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model    string        `json:"model"`
			Messages []chatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body.Messages)
		assert.Equal(t, "system", body.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-1",
			"model": body.Model,
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": text}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": totalTokens - 10, "total_tokens": totalTokens},
		})
	})
	return httptest.NewServer(mux)
}

func newStatusServer(status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
}

func TestDeepSeekConfigure(t *testing.T) {
	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	defer c.Shutdown()

	assert.True(t, c.Configure(Config{APIKey: "sk-test"}))

	// A later invalid call keeps the prior configuration.
	assert.False(t, c.Configure(Config{}))
	assert.True(t, c.isConfigured())
}

func TestDeepSeekConfigure_EnvFallback(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-from-env")

	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	defer c.Shutdown()

	assert.True(t, c.Configure(Config{}))
	assert.Equal(t, "sk-from-env", c.snapshot().APIKey)
}

func TestDeepSeekTestConnection(t *testing.T) {
	srv := newChatCompletionServer(t, "pong", 20)
	defer srv.Close()

	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	defer c.Shutdown()

	result := c.TestConnection(context.Background(), Config{APIKey: "sk-test", BaseURL: srv.URL})
	require.True(t, result.OK, result.Error)
	assert.Equal(t, "deepseek-chat", result.Model)

	// The tested configuration was adopted.
	assert.True(t, c.isConfigured())
	assert.Equal(t, srv.URL, c.snapshot().BaseURL)
}

func TestDeepSeekTestConnection_Unauthorized(t *testing.T) {
	srv := newStatusServer(http.StatusUnauthorized)
	defer srv.Close()

	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	defer c.Shutdown()

	result := c.TestConnection(context.Background(), Config{APIKey: "sk-bad", BaseURL: srv.URL})
	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Error)
	assert.False(t, c.isConfigured())
}

func TestDeepSeekTestConnection_MissingKey(t *testing.T) {
	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	defer c.Shutdown()

	result := c.TestConnection(context.Background(), Config{})
	assert.False(t, result.OK)
	assert.Equal(t, "API key required", result.Error)
}

func TestDeepSeekGenerate(t *testing.T) {
	srv := newChatCompletionServer(t, "use a binary search here", 42)
	defer srv.Close()

	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	defer c.Shutdown()
	require.True(t, c.Configure(Config{APIKey: "sk-test", BaseURL: srv.URL}))

	reply := c.Generate(context.Background(), "debug this lookup", &Context{UserID: "u1"})
	require.NotNil(t, reply)

	assert.Equal(t, "use a binary search here", reply.Text)
	assert.Equal(t, deepSeekConfidence, reply.Confidence)
	assert.Equal(t, "deepseek-chat", reply.Model)
	assert.Equal(t, 42, reply.TokensUsed)
}

func TestDeepSeekGenerate_NotConfigured(t *testing.T) {
	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	defer c.Shutdown()

	reply := c.Generate(context.Background(), "hello", &Context{UserID: "u1"})
	require.NotNil(t, reply)
	assert.Zero(t, reply.Confidence)
	assert.NotEmpty(t, reply.Text)
}

func TestDeepSeekGenerate_ServerErrorBecomesApology(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		srv := newStatusServer(status)

		c := NewDeepSeekClient(Config{}, zerolog.Nop())
		require.True(t, c.Configure(Config{APIKey: "sk-test", BaseURL: srv.URL}))

		reply := c.Generate(context.Background(), "hello", &Context{UserID: "u1"})
		require.NotNil(t, reply, "status %d", status)
		assert.Equal(t, deepSeekApology, reply.Text, "status %d", status)
		assert.Zero(t, reply.Confidence, "status %d", status)

		c.Shutdown()
		srv.Close()
	}
}

func TestDeepSeekGenerate_NetworkFailureBecomesApology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	defer c.Shutdown()
	require.True(t, c.Configure(Config{APIKey: "sk-test", BaseURL: srv.URL}))

	reply := c.Generate(context.Background(), "hello", &Context{UserID: "u1"})
	require.NotNil(t, reply)
	assert.Equal(t, deepSeekApology, reply.Text)
	assert.Zero(t, reply.Confidence)
}

func TestDeepSeekGenerate_MalformedResponseBecomesApology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	defer c.Shutdown()
	require.True(t, c.Configure(Config{APIKey: "sk-test", BaseURL: srv.URL}))

	reply := c.Generate(context.Background(), "hello", &Context{UserID: "u1"})
	require.NotNil(t, reply)
	assert.Equal(t, deepSeekApology, reply.Text)
	assert.Zero(t, reply.Confidence)
}
