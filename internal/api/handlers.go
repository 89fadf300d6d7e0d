package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aria-ai/aria/internal/auth"
	"github.com/aria-ai/aria/internal/orchestrator"
	"github.com/aria-ai/aria/internal/provider"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":   "aria",
		"status": "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================
// AUTH
// ============================================================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	user, err := s.store.UpsertUserByEmail(r.Context(), req.Email)
	if err != nil {
		s.log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	token, expiresAt, err := s.auth.IssueToken(user.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("token issue failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
		"user_id":    user.ID,
	})
}

// ============================================================
// AI
// ============================================================

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		Model     string  `json:"model"`
		APIKey    string  `json:"api_key"`
		ModelPath string  `json:"model_path"`
		BaseURL   string  `json:"base_url"`
		ModelName string  `json:"model_name"`
		MaxTokens int     `json:"max_tokens"`
		Temp      float64 `json:"temperature"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := provider.ParseIdentity(req.Model)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown model: "+req.Model)
		return
	}

	cfg := provider.Config{
		APIKey:      req.APIKey,
		ModelPath:   req.ModelPath,
		BaseURL:     req.BaseURL,
		Model:       req.ModelName,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temp,
	}
	if !s.orch.ConfigureModel(r.Context(), userID, identity, cfg) {
		writeError(w, http.StatusUnprocessableEntity, "model configuration failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"configured": true,
		"model":      string(identity),
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		Text      string `json:"text"`
		SessionID string `json:"session_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text required")
		return
	}

	result, err := s.core.ProcessTextCommand(r.Context(), req.Text, userID, req.SessionID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNotConfigured) {
			writeError(w, http.StatusConflict, "no AI model configured")
			return
		}
		s.log.Error().Err(err).Msg("command failed")
		writeError(w, http.StatusInternalServerError, "command failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ============================================================
// VOICE
// ============================================================

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Audio    string `json:"audio"` // base64
		Language string `json:"language"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Audio == "" {
		writeError(w, http.StatusBadRequest, "audio required")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio must be base64")
		return
	}

	text, err := s.transcriber.Transcribe(r.Context(), audio, req.Language)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "transcription failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text required")
		return
	}

	audio, err := s.synthesizer.Synthesize(r.Context(), req.Text, req.Language)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "synthesis failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"audio": base64.StdEncoding.EncodeToString(audio),
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.transcriber.SupportedLanguages())
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		WakeWordEnabled *bool `json:"wake_word_enabled"`
	}
	// Body is optional; wake word defaults to enabled.
	decodeJSON(r, &req)
	wakeEnabled := req.WakeWordEnabled == nil || *req.WakeWordEnabled

	sessionID, err := s.core.StartVoiceSession(r.Context(), userID, wakeEnabled)
	if err != nil {
		s.log.Error().Err(err).Msg("session start failed")
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	s.core.StopVoiceSession(r.Context(), sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sessionID, "status": "stopped"})
}

func (s *Server) handleTrainWakeWord(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		WakeWord string   `json:"wake_word"`
		Samples  []string `json:"samples"` // base64
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	samples := make([][]byte, 0, len(req.Samples))
	for _, s64 := range req.Samples {
		sample, err := base64.StdEncoding.DecodeString(s64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "samples must be base64")
			return
		}
		samples = append(samples, sample)
	}

	if err := s.core.TrainWakeWord(r.Context(), userID, req.WakeWord, samples); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trained":    true,
		"wake_words": s.wakeDetector.WakeWords(userID),
	})
}

// ============================================================
// SYSTEM
// ============================================================

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	result := s.automation.Execute(r.Context(), provider.Action{Kind: "system_info"}, userID)
	if !result.Success {
		writeError(w, http.StatusInternalServerError, result.Error)
		return
	}
	writeJSON(w, http.StatusOK, result.Output)
}

func (s *Server) handleSystemExecute(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Command == "" {
		writeError(w, http.StatusBadRequest, "command required")
		return
	}

	result := s.automation.Execute(r.Context(), provider.Action{
		Kind:   "run_command",
		Params: map[string]any{"command": req.Command},
	}, userID)
	if !result.Success {
		writeError(w, http.StatusUnprocessableEntity, result.Error)
		return
	}

	writeJSON(w, http.StatusOK, result.Output)
}

// ============================================================
// SEARCH & HISTORY
// ============================================================

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q required")
		return
	}
	maxResults, _ := strconv.Atoi(r.URL.Query().Get("max"))

	resp, err := s.search.Search(r.Context(), query, maxResults)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.store.RecentCommands(r.Context(), userID, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("history query failed")
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"history": records,
		"count":   len(records),
	})
}

// ============================================================
// IDENTITY
// ============================================================

func (s *Server) handleCreateDID(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	doc, err := s.identity.CreateDID(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create DID")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"did":          doc.ID,
		"did_document": doc,
	})
}
