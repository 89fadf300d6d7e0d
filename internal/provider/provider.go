// Package provider provides the adapter interface and per-provider clients.
package provider

import "context"

// Adapter wraps one concrete AI backend behind a uniform contract.
//
// Every adapter absorbs its provider's request/response shape and error
// vocabulary: Generate never returns an error, only a Reply. Adapters are
// shared across users and must be safe for concurrent use.
type Adapter interface {
	// Identity returns the provider tag.
	Identity() Identity

	// Configure validates and stores the given settings without making a
	// production request. Idempotent; a failed validation leaves any prior
	// successful configuration in place.
	Configure(cfg Config) bool

	// TestConnection performs a lightweight reachability check. Ordinary
	// network/auth failures are reported in the result, never raised.
	TestConnection(ctx context.Context, cfg Config) TestResult

	// Generate runs the provider on the command plus conversation context
	// and normalizes the outcome. Transport and parsing failures become a
	// zero-confidence Reply with an apologetic text.
	Generate(ctx context.Context, command string, conv *Context) *Reply

	// Shutdown releases held connection resources. Safe to call even if
	// Configure was never called.
	Shutdown()
}
