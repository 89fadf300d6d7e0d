package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/errors"
)

const (
	anthropicConfidence = 0.95
	anthropicApology    = "Sorry, I encountered an error with the AI service."
	anthropicVersion    = "2023-06-01"
)

// AnthropicClient implements Adapter using the Anthropic messages API.
type AnthropicClient struct {
	mu         sync.RWMutex
	cfg        Config
	configured bool

	client *http.Client
	log    zerolog.Logger
}

// NewAnthropicClient creates a new Anthropic client with the given defaults.
func NewAnthropicClient(defaults Config, log zerolog.Logger) *AnthropicClient {
	if defaults.BaseURL == "" {
		defaults.BaseURL = "https://api.anthropic.com/v1"
	}
	if defaults.Model == "" {
		defaults.Model = "claude-2.1"
	}
	return &AnthropicClient{
		cfg: defaults,
		client: &http.Client{
			Timeout: requestTimeout,
		},
		log: log.With().Str("provider", string(Anthropic)).Logger(),
	}
}

// Identity returns the provider tag.
func (c *AnthropicClient) Identity() Identity { return Anthropic }

// Configure validates and stores the given settings.
func (c *AnthropicClient) Configure(cfg Config) bool {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		c.log.Warn().Msg("no API key provided")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = mergeConfig(c.cfg, cfg)
	c.cfg.APIKey = key
	c.configured = true
	return true
}

// TestConnection checks reachability with a model-list request.
// On success the tested configuration becomes the active one.
func (c *AnthropicClient) TestConnection(ctx context.Context, cfg Config) TestResult {
	candidate := mergeConfig(c.snapshot(), cfg)
	if candidate.APIKey == "" {
		return TestResult{OK: false, Error: "API key required"}
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, "GET", candidate.BaseURL+"/models", nil)
	if err != nil {
		return TestResult{OK: false, Error: err.Error()}
	}
	req.Header.Set("x-api-key", candidate.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("connection test failed")
		return TestResult{OK: false, Error: err.Error()}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TestResult{OK: false, Error: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	c.mu.Lock()
	c.cfg = candidate
	c.configured = true
	c.mu.Unlock()

	return TestResult{OK: true, Latency: time.Since(start), Model: candidate.Model}
}

// Generate sends the command to Anthropic and normalizes the response.
func (c *AnthropicClient) Generate(ctx context.Context, command string, conv *Context) *Reply {
	if !c.isConfigured() {
		return &Reply{
			Text:       "The Anthropic model is not configured. Please provide an API key.",
			Confidence: 0.0,
		}
	}

	reply, err := c.generate(ctx, command, conv)
	if err != nil {
		c.log.Error().Err(err).Str("category", errors.GetCategory(err).String()).Msg("generation failed")
		return &Reply{Text: anthropicApology, Confidence: 0.0}
	}
	return reply
}

func (c *AnthropicClient) generate(ctx context.Context, command string, conv *Context) (*Reply, error) {
	cfg := c.snapshot()

	// Anthropic takes the system instruction separately; only user/assistant
	// turns go in the messages list.
	all := BuildMessages(command, conv)
	messages := make([]chatMessage, 0, len(all)-1)
	for _, m := range all {
		if m.Role != "system" {
			messages = append(messages, m)
		}
	}

	body := map[string]any{
		"model":       cfg.Model,
		"max_tokens":  maxTokensOrDefault(cfg),
		"temperature": temperatureOrDefault(cfg),
		"system":      BuildSystemPrompt(conv),
		"messages":    messages,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProviderBadResponse, "failed to marshal request", errors.CategoryPermanent)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", cfg.BaseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "failed to create HTTP request", errors.CategoryTemporary)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	r, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "network request failed", errors.CategoryTemporary)
	}

	respBody, readErr := io.ReadAll(r.Body)
	r.Body.Close()
	if readErr != nil {
		return nil, errors.Wrap(readErr, errors.CodeNetworkUnavailable, "failed to read response body", errors.CategoryTemporary)
	}

	switch r.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, errors.RateLimit(errors.CodeProviderRateLimit, "Anthropic rate limit exceeded", 30*time.Second)
	case http.StatusUnauthorized:
		return nil, errors.NewBuilder(errors.CodeProviderUnavailable, "invalid API key").
			User().
			WithSuggestion("Check your Anthropic API key").
			Build()
	default:
		return nil, errors.Temporary(errors.CodeProviderUnavailable, fmt.Sprintf("API error (status %d): %s", r.StatusCode, string(respBody)))
	}

	var anResp anthropicResponse
	if err := json.Unmarshal(respBody, &anResp); err != nil {
		return nil, errors.NewBuilder(errors.CodeProviderParseError, "failed to parse API response").
			Permanent().
			Wrap(err).
			Build()
	}

	if len(anResp.Content) == 0 {
		return nil, errors.New(errors.CodeProviderBadResponse, "API response contained no content blocks", errors.CategoryPermanent)
	}

	model := anResp.Model
	if model == "" {
		model = cfg.Model
	}

	return &Reply{
		Text:       anResp.Content[0].Text,
		Confidence: anthropicConfidence,
		Model:      model,
		TokensUsed: anResp.Usage.InputTokens + anResp.Usage.OutputTokens,
	}, nil
}

// Shutdown releases held connections.
func (c *AnthropicClient) Shutdown() {
	c.client.CloseIdleConnections()
}

func (c *AnthropicClient) isConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configured
}

func (c *AnthropicClient) snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// ============================================================
// Anthropic API Types
// ============================================================

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
