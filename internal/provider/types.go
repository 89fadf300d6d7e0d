package provider

import (
	"fmt"
	"time"
)

// Identity is the enumerated tag for a backend.
type Identity string

const (
	DeepSeek  Identity = "deepseek"  // coding-specialized cloud chat
	OpenAI    Identity = "openai"    // creative-writing cloud chat
	Llama     Identity = "llama"     // local/offline model
	Anthropic Identity = "anthropic" // enterprise-oriented cloud chat
)

// Identities lists all known provider tags.
func Identities() []Identity {
	return []Identity{DeepSeek, OpenAI, Llama, Anthropic}
}

// ParseIdentity converts a string into a known Identity.
func ParseIdentity(s string) (Identity, error) {
	switch Identity(s) {
	case DeepSeek, OpenAI, Llama, Anthropic:
		return Identity(s), nil
	}
	return "", fmt.Errorf("unknown provider: %q", s)
}

// Config holds per-user, per-provider settings.
type Config struct {
	APIKey      string  `json:"api_key,omitempty"`
	ModelPath   string  `json:"model_path,omitempty"` // local models only
	BaseURL     string  `json:"base_url,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Exchange is one role-tagged message in a conversation.
type Exchange struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Preferences holds caller-supplied user preferences.
type Preferences struct {
	Language string `json:"language,omitempty"`
}

// Context is the transient, caller-supplied conversation context.
// Read-only to adapters; never persisted here.
type Context struct {
	UserID      string      `json:"user_id"`
	History     []Exchange  `json:"history,omitempty"` // oldest-first
	Preferences Preferences `json:"preferences,omitempty"`
}

// Action is a proposed side-effecting operation extracted from a response.
type Action struct {
	Kind   string         `json:"kind"`
	Params map[string]any `json:"params,omitempty"`
}

// Reply is the adapter's normalized output.
//
// Confidence is a fixed policy constant: a per-provider positive value on
// success, exactly 0.0 on failure. Text is never empty; on failure it carries
// a human-readable apology.
type Reply struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Actions    []Action `json:"actions,omitempty"`
	Model      string   `json:"model,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty"`
}

// TestResult reports a reachability check.
type TestResult struct {
	OK      bool          `json:"success"`
	Latency time.Duration `json:"latency"`
	Model   string        `json:"model,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// requestTimeout bounds every provider call uniformly. Timeout expiry is
// treated like any other transport failure.
const requestTimeout = 30 * time.Second

// Default generation parameters for cloud providers.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)
