package orchestrator

import (
	"strings"

	"github.com/aria-ai/aria/internal/provider"
)

// Routing keyword sets, checked in priority order. First match wins; no match
// keeps the currently bound provider. The exact words and their order are part
// of the routing contract.
var (
	codingKeywords   = []string{"code", "program", "function", "algorithm", "debug", "python", "javascript"}
	creativeKeywords = []string{"write", "create", "story", "poem", "article", "blog"}
	privacyKeywords  = []string{"private", "confidential", "personal", "sensitive"}
	businessKeywords = []string{"business", "enterprise", "corporate", "professional"}
)

// Confirmation-gating vocabulary. A deliberately small, fixed set: this is a
// safety hint, not an access-control mechanism, and phrasings outside it
// ("wipe", "erase") are knowingly missed.
var dangerousKeywords = []string{"delete", "remove", "uninstall", "format", "shutdown"}

var dangerousActionKinds = map[string]bool{
	"delete_file":     true,
	"uninstall_app":   true,
	"shutdown_system": true,
}

// SelectProvider picks the provider best suited for the command.
// Pure function: case-insensitive substring match against the raw command,
// falling through to the current provider.
func SelectProvider(command string, current provider.Identity) provider.Identity {
	lower := strings.ToLower(command)

	if containsAny(lower, codingKeywords) {
		return provider.DeepSeek
	}
	if containsAny(lower, creativeKeywords) {
		return provider.OpenAI
	}
	if containsAny(lower, privacyKeywords) {
		return provider.Llama
	}
	if containsAny(lower, businessKeywords) {
		return provider.Anthropic
	}

	return current
}

// NeedsConfirmation reports whether the command or any proposed action should
// be confirmed by the user before execution. False positives on harmless
// commands containing a flagged word are accepted by design.
func NeedsConfirmation(command string, actions []provider.Action) bool {
	lower := strings.ToLower(command)
	if containsAny(lower, dangerousKeywords) {
		return true
	}

	for _, action := range actions {
		if dangerousActionKinds[action.Kind] {
			return true
		}
	}

	return false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
