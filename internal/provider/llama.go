package provider

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const llamaConfidence = 0.9

// LlamaClient implements Adapter for a local model file.
type LlamaClient struct {
	mu         sync.RWMutex
	cfg        Config
	configured bool

	log zerolog.Logger
}

// NewLlamaClient creates a new local model client with the given defaults.
func NewLlamaClient(defaults Config, log zerolog.Logger) *LlamaClient {
	return &LlamaClient{
		cfg: defaults,
		log: log.With().Str("provider", string(Llama)).Logger(),
	}
}

// Identity returns the provider tag.
func (c *LlamaClient) Identity() Identity { return Llama }

// Configure validates that the model path exists.
// An invalid path fails validation and leaves the prior configuration alone.
func (c *LlamaClient) Configure(cfg Config) bool {
	path := cfg.ModelPath
	if path == "" {
		path = c.snapshot().ModelPath
	}
	if path == "" {
		c.log.Warn().Msg("no model path provided")
		return false
	}
	if _, err := os.Stat(path); err != nil {
		c.log.Warn().Str("path", path).Msg("model path does not exist")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = mergeConfig(c.cfg, cfg)
	c.cfg.ModelPath = path
	c.configured = true
	return true
}

// TestConnection checks that the model file is present.
// On success the tested configuration becomes the active one.
func (c *LlamaClient) TestConnection(ctx context.Context, cfg Config) TestResult {
	candidate := mergeConfig(c.snapshot(), cfg)
	if candidate.ModelPath == "" {
		return TestResult{OK: false, Error: "model path required"}
	}

	start := time.Now()
	if _, err := os.Stat(candidate.ModelPath); err != nil {
		return TestResult{OK: false, Error: "model path does not exist"}
	}

	c.mu.Lock()
	c.cfg = candidate
	c.configured = true
	c.mu.Unlock()

	return TestResult{OK: true, Latency: time.Since(start), Model: string(Llama)}
}

// Generate produces a simulated local-model reply.
func (c *LlamaClient) Generate(ctx context.Context, command string, conv *Context) *Reply {
	if !c.isConfigured() {
		return &Reply{
			Text:       "The local model is not configured. Please provide a model path.",
			Confidence: 0.0,
		}
	}

	select {
	case <-ctx.Done():
		c.log.Error().Err(ctx.Err()).Msg("generation canceled")
		return &Reply{
			Text:       "Sorry, I encountered an error with the local AI model.",
			Confidence: 0.0,
		}
	default:
	}

	cfg := c.snapshot()
	text := fmt.Sprintf("I received your message: %q. This is a simulated response from the local model at %s.",
		command, cfg.ModelPath)

	return &Reply{
		Text:       text,
		Confidence: llamaConfidence,
		Model:      string(Llama),
	}
}

// Shutdown releases model resources. No-op for the simulated model.
func (c *LlamaClient) Shutdown() {}

func (c *LlamaClient) isConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configured
}

func (c *LlamaClient) snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}
