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
	deepSeekConfidence = 0.9
	deepSeekApology    = "I apologize, but I'm having trouble processing your request right now."
)

// DeepSeekClient implements Adapter using the DeepSeek API.
type DeepSeekClient struct {
	mu         sync.RWMutex
	cfg        Config
	configured bool

	client *http.Client
	log    zerolog.Logger
}

// NewDeepSeekClient creates a new DeepSeek client with the given defaults.
func NewDeepSeekClient(defaults Config, log zerolog.Logger) *DeepSeekClient {
	if defaults.BaseURL == "" {
		defaults.BaseURL = "https://api.deepseek.com/v1"
	}
	if defaults.Model == "" {
		defaults.Model = "deepseek-chat"
	}
	return &DeepSeekClient{
		cfg: defaults,
		client: &http.Client{
			Timeout: requestTimeout,
		},
		log: log.With().Str("provider", string(DeepSeek)).Logger(),
	}
}

// Identity returns the provider tag.
func (c *DeepSeekClient) Identity() Identity { return DeepSeek }

// Configure validates and stores the given settings.
// A missing API key fails validation and leaves the prior configuration alone.
func (c *DeepSeekClient) Configure(cfg Config) bool {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("DEEPSEEK_API_KEY")
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

// TestConnection checks reachability with a lightweight model-list request.
// On success the tested configuration becomes the active one.
func (c *DeepSeekClient) TestConnection(ctx context.Context, cfg Config) TestResult {
	candidate := mergeConfig(c.snapshot(), cfg)
	if candidate.APIKey == "" {
		return TestResult{OK: false, Error: "API key required"}
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, "GET", candidate.BaseURL+"/models", nil)
	if err != nil {
		return TestResult{OK: false, Error: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+candidate.APIKey)
	req.Header.Set("Content-Type", "application/json")

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

// Generate sends the command to DeepSeek and normalizes the response.
// Failures never propagate; they become a zero-confidence apologetic Reply.
func (c *DeepSeekClient) Generate(ctx context.Context, command string, conv *Context) *Reply {
	if !c.isConfigured() {
		return &Reply{
			Text:       "The DeepSeek model is not configured. Please provide an API key.",
			Confidence: 0.0,
		}
	}

	reply, err := c.generate(ctx, command, conv)
	if err != nil {
		c.log.Error().Err(err).Str("category", errors.GetCategory(err).String()).Msg("generation failed")
		return &Reply{Text: deepSeekApology, Confidence: 0.0}
	}
	return reply
}

// generate performs the single API attempt. Internal failures are typed;
// the caller converts them at the adapter boundary.
func (c *DeepSeekClient) generate(ctx context.Context, command string, conv *Context) (*Reply, error) {
	cfg := c.snapshot()

	body := map[string]any{
		"model":       cfg.Model,
		"messages":    BuildMessages(command, conv),
		"temperature": temperatureOrDefault(cfg),
		"max_tokens":  maxTokensOrDefault(cfg),
		"stream":      false,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProviderBadResponse, "failed to marshal request", errors.CategoryPermanent)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "failed to create HTTP request", errors.CategoryTemporary)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

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
		// fall through to parsing
	case http.StatusTooManyRequests:
		return nil, errors.RateLimit(errors.CodeProviderRateLimit, "DeepSeek rate limit exceeded", 30*time.Second)
	case http.StatusUnauthorized:
		return nil, errors.NewBuilder(errors.CodeProviderUnavailable, "invalid API key").
			User().
			WithSuggestion("Check your DeepSeek API key").
			Build()
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return nil, errors.Temporary(errors.CodeProviderUnavailable, fmt.Sprintf("API unavailable: %s", r.Status))
	default:
		return nil, errors.Temporary(errors.CodeProviderUnavailable, fmt.Sprintf("API error (status %d): %s", r.StatusCode, string(respBody)))
	}

	var dsResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &dsResp); err != nil {
		return nil, errors.NewBuilder(errors.CodeProviderParseError, "failed to parse API response").
			Permanent().
			Wrap(err).
			WithContext("response_body", string(respBody)).
			Build()
	}

	if len(dsResp.Choices) == 0 {
		return nil, errors.New(errors.CodeProviderBadResponse, "API response contained no choices", errors.CategoryPermanent)
	}

	model := dsResp.Model
	if model == "" {
		model = cfg.Model
	}

	return &Reply{
		Text:       dsResp.Choices[0].Message.Content,
		Confidence: deepSeekConfidence,
		Model:      model,
		TokensUsed: dsResp.Usage.TotalTokens,
	}, nil
}

// Shutdown releases held connections.
func (c *DeepSeekClient) Shutdown() {
	c.client.CloseIdleConnections()
}

func (c *DeepSeekClient) isConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configured
}

func (c *DeepSeekClient) snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// ============================================================
// Shared chat-completions wire types and helpers
// ============================================================

// chatCompletionResponse is the OpenAI-compatible completion shape used by
// DeepSeek and OpenAI.
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// mergeConfig overlays non-empty fields of override onto base.
func mergeConfig(base, override Config) Config {
	out := base
	if override.APIKey != "" {
		out.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		out.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.ModelPath != "" {
		out.ModelPath = override.ModelPath
	}
	if override.Temperature != 0 {
		out.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		out.MaxTokens = override.MaxTokens
	}
	return out
}

func temperatureOrDefault(cfg Config) float64 {
	if cfg.Temperature != 0 {
		return cfg.Temperature
	}
	return defaultTemperature
}

func maxTokensOrDefault(cfg Config) int {
	if cfg.MaxTokens != 0 {
		return cfg.MaxTokens
	}
	return defaultMaxTokens
}
