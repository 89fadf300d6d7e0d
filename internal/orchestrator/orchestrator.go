// Package orchestrator routes user commands across AI providers.
//
// Holds one configured provider binding per user, picks the best provider per
// command via the keyword policy, delegates generation, and flags responses
// that need explicit user confirmation before any action executes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/provider"
)

// ErrNotConfigured is returned when a command arrives for a user with no
// active binding. This indicates a caller ordering bug, not a transient
// condition to retry.
var ErrNotConfigured = errors.New("no AI model configured for user")

// Response is the orchestrator's answer to one command.
type Response struct {
	Text              string            `json:"text"`
	Actions           []provider.Action `json:"actions,omitempty"`
	NeedsConfirmation bool              `json:"needs_confirmation"`
	Confidence        float64           `json:"confidence"`
	ModelUsed         provider.Identity `json:"model_used"`
}

// binding associates a user with one configured, tested provider.
type binding struct {
	identity provider.Identity
	cfg      provider.Config
	adapter  provider.Adapter
}

// Orchestrator manages per-user provider bindings and command routing.
//
// The binding map is guarded by a read-mostly lock. Concurrent reconfigure
// and process calls for the same user are last-writer-wins; reconfiguration
// is rare and not safety-critical. Bindings live until process shutdown.
type Orchestrator struct {
	registry *provider.Registry

	mu          sync.RWMutex
	bindings    map[string]*binding
	defaultUser string

	log zerolog.Logger
}

// New creates an orchestrator over the given adapter registry.
func New(registry *provider.Registry, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		bindings: make(map[string]*binding),
		log:      log.With().Str("component", "orchestrator").Logger(),
	}
}

// ConfigureModel tests the provider configuration for the user and installs
// an active binding on success, replacing any prior one. Returns false
// without installing anything when the connection test fails.
func (o *Orchestrator) ConfigureModel(ctx context.Context, userID string, identity provider.Identity, cfg provider.Config) bool {
	adapter, ok := o.registry.Resolve(identity)
	if !ok {
		o.log.Error().Str("provider", string(identity)).Msg("unknown provider")
		return false
	}

	result := adapter.TestConnection(ctx, cfg)
	if !result.OK {
		o.log.Error().
			Str("user", userID).
			Str("provider", string(identity)).
			Str("reason", result.Error).
			Msg("model connection test failed")
		return false
	}

	o.mu.Lock()
	o.bindings[userID] = &binding{
		identity: identity,
		cfg:      cfg,
		adapter:  adapter,
	}
	// First successfully configured user becomes the process-wide default
	// reference. Fallback identity only, not security-relevant.
	if o.defaultUser == "" {
		o.defaultUser = userID
	}
	o.mu.Unlock()

	o.log.Info().
		Str("user", userID).
		Str("provider", string(identity)).
		Dur("latency", result.Latency).
		Msg("model configured")
	return true
}

// ProcessCommand routes the command to the best provider and returns the
// normalized, confirmation-gated response. The user must have an active
// binding; ErrNotConfigured is the only error this method surfaces.
func (o *Orchestrator) ProcessCommand(ctx context.Context, command string, conv *provider.Context) (*Response, error) {
	if conv == nil {
		return nil, fmt.Errorf("%w: missing context", ErrNotConfigured)
	}

	o.mu.RLock()
	bound, ok := o.bindings[conv.UserID]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotConfigured, conv.UserID)
	}

	// Switch providers when the command matches a specialization.
	adapter := bound.adapter
	selected := SelectProvider(command, bound.identity)
	if selected != bound.identity {
		if specialized, ok := o.registry.Resolve(selected); ok {
			adapter = specialized
			o.log.Info().
				Str("user", conv.UserID).
				Str("provider", string(selected)).
				Msg("switched provider for specialized task")
		} else {
			selected = bound.identity
		}
	}

	reply := adapter.Generate(ctx, command, conv)

	// Actions come from the adapter verbatim; no inference from free text.
	actions := reply.Actions

	return &Response{
		Text:              reply.Text,
		Actions:           actions,
		NeedsConfirmation: NeedsConfirmation(command, actions),
		Confidence:        reply.Confidence,
		ModelUsed:         selected,
	}, nil
}

// Binding reports the provider currently bound for the user.
func (o *Orchestrator) Binding(userID string) (provider.Identity, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	b, ok := o.bindings[userID]
	if !ok {
		return "", false
	}
	return b.identity, true
}

// DefaultUser returns the first successfully configured user, if any.
func (o *Orchestrator) DefaultUser() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.defaultUser
}

// Shutdown shuts down every registered adapter.
func (o *Orchestrator) Shutdown() {
	o.registry.Shutdown()
}
