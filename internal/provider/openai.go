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
	openAIConfidence = 0.95
	openAIApology    = "Sorry, I encountered an error processing your request."
)

// OpenAIClient implements Adapter using the OpenAI chat completions API.
type OpenAIClient struct {
	mu         sync.RWMutex
	cfg        Config
	configured bool

	client *http.Client
	log    zerolog.Logger
}

// NewOpenAIClient creates a new OpenAI client with the given defaults.
func NewOpenAIClient(defaults Config, log zerolog.Logger) *OpenAIClient {
	if defaults.BaseURL == "" {
		defaults.BaseURL = "https://api.openai.com/v1"
	}
	if defaults.Model == "" {
		defaults.Model = "gpt-4"
	}
	return &OpenAIClient{
		cfg: defaults,
		client: &http.Client{
			Timeout: requestTimeout,
		},
		log: log.With().Str("provider", string(OpenAI)).Logger(),
	}
}

// Identity returns the provider tag.
func (c *OpenAIClient) Identity() Identity { return OpenAI }

// Configure validates and stores the given settings.
func (c *OpenAIClient) Configure(cfg Config) bool {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
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
func (c *OpenAIClient) TestConnection(ctx context.Context, cfg Config) TestResult {
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

// Generate sends the command to OpenAI and normalizes the response.
func (c *OpenAIClient) Generate(ctx context.Context, command string, conv *Context) *Reply {
	if !c.isConfigured() {
		return &Reply{
			Text:       "The OpenAI model is not configured. Please provide an API key.",
			Confidence: 0.0,
		}
	}

	reply, err := c.generate(ctx, command, conv)
	if err != nil {
		c.log.Error().Err(err).Str("category", errors.GetCategory(err).String()).Msg("generation failed")
		return &Reply{Text: openAIApology, Confidence: 0.0}
	}
	return reply
}

func (c *OpenAIClient) generate(ctx context.Context, command string, conv *Context) (*Reply, error) {
	cfg := c.snapshot()

	body := map[string]any{
		"model":       cfg.Model,
		"messages":    BuildMessages(command, conv),
		"temperature": temperatureOrDefault(cfg),
		"max_tokens":  maxTokensOrDefault(cfg),
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
	case http.StatusTooManyRequests:
		return nil, errors.RateLimit(errors.CodeProviderRateLimit, "OpenAI rate limit exceeded", 30*time.Second)
	case http.StatusUnauthorized:
		return nil, errors.NewBuilder(errors.CodeProviderUnavailable, "invalid API key").
			User().
			WithSuggestion("Check your OpenAI API key").
			Build()
	default:
		return nil, errors.Temporary(errors.CodeProviderUnavailable, fmt.Sprintf("API error (status %d): %s", r.StatusCode, string(respBody)))
	}

	var oaResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &oaResp); err != nil {
		return nil, errors.NewBuilder(errors.CodeProviderParseError, "failed to parse API response").
			Permanent().
			Wrap(err).
			Build()
	}

	if len(oaResp.Choices) == 0 {
		return nil, errors.New(errors.CodeProviderBadResponse, "API response contained no choices", errors.CategoryPermanent)
	}

	model := oaResp.Model
	if model == "" {
		model = cfg.Model
	}

	return &Reply{
		Text:       oaResp.Choices[0].Message.Content,
		Confidence: openAIConfidence,
		Model:      model,
		TokensUsed: oaResp.Usage.TotalTokens,
	}, nil
}

// Shutdown releases held connections.
func (c *OpenAIClient) Shutdown() {
	c.client.CloseIdleConnections()
}

func (c *OpenAIClient) isConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configured
}

func (c *OpenAIClient) snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}
