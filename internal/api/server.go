// Package api exposes the assistant over HTTP and WebSocket.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/assistant"
	"github.com/aria-ai/aria/internal/auth"
	"github.com/aria-ai/aria/internal/automation"
	"github.com/aria-ai/aria/internal/identity"
	"github.com/aria-ai/aria/internal/orchestrator"
	"github.com/aria-ai/aria/internal/store"
	"github.com/aria-ai/aria/internal/voice"
	"github.com/aria-ai/aria/internal/web"
)

// Server holds the components the HTTP handlers reach into.
type Server struct {
	core         *assistant.Core
	orch         *orchestrator.Orchestrator
	auth         *auth.Manager
	identity     *identity.Manager
	store        *store.Store
	transcriber  voice.Transcriber
	synthesizer  voice.Synthesizer
	wakeDetector voice.WakeDetector
	automation   *automation.Engine
	search       *web.SearchEngine

	log zerolog.Logger
}

// Deps are the server's dependencies.
type Deps struct {
	Core         *assistant.Core
	Orchestrator *orchestrator.Orchestrator
	Auth         *auth.Manager
	Identity     *identity.Manager
	Store        *store.Store
	Transcriber  voice.Transcriber
	Synthesizer  voice.Synthesizer
	WakeDetector voice.WakeDetector
	Automation   *automation.Engine
	Search       *web.SearchEngine
}

// NewServer creates the API server.
func NewServer(deps Deps, log zerolog.Logger) *Server {
	return &Server{
		core:         deps.Core,
		orch:         deps.Orchestrator,
		auth:         deps.Auth,
		identity:     deps.Identity,
		store:        deps.Store,
		transcriber:  deps.Transcriber,
		synthesizer:  deps.Synthesizer,
		wakeDetector: deps.WakeDetector,
		automation:   deps.Automation,
		search:       deps.Search,
		log:          log.With().Str("component", "api").Logger(),
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// ===== PUBLIC ROUTES =====

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
	})

	// WebSocket authenticates via token query parameter during the upgrade.
	r.Get("/ws/{userID}", s.handleWebSocket)

	// ===== PROTECTED ROUTES =====

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Route("/ai", func(r chi.Router) {
			r.Post("/configure", s.handleConfigure)
			r.Post("/command", s.handleCommand)
		})

		r.Route("/voice", func(r chi.Router) {
			r.Post("/transcribe", s.handleTranscribe)
			r.Post("/synthesize", s.handleSynthesize)
			r.Get("/languages", s.handleLanguages)
			r.Post("/sessions", s.handleStartSession)
			r.Delete("/sessions/{sessionID}", s.handleStopSession)
			r.Post("/wake-word", s.handleTrainWakeWord)
		})

		r.Route("/system", func(r chi.Router) {
			r.Get("/info", s.handleSystemInfo)
			r.Post("/execute", s.handleSystemExecute)
		})

		r.Get("/search", s.handleSearch)
		r.Get("/history", s.handleHistory)

		r.Route("/identity", func(r chi.Router) {
			r.Post("/did", s.handleCreateDID)
		})
	})

	return r
}

// ============================================================
// RESPONSE HELPERS
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
