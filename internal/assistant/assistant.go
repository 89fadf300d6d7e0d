// Package assistant is the top-level pipeline: it takes voice or text
// commands through transcription, AI routing, action execution, and speech
// synthesis, and records what happened.
package assistant

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/automation"
	"github.com/aria-ai/aria/internal/orchestrator"
	"github.com/aria-ai/aria/internal/provider"
	"github.com/aria-ai/aria/internal/store"
	"github.com/aria-ai/aria/internal/voice"
	"github.com/aria-ai/aria/internal/web"
)

// maxMemoryHistory bounds the in-memory command log.
const maxMemoryHistory = 1000

// didNotCatchReply is returned when transcription yields nothing usable.
const didNotCatchReply = "I didn't catch that. Could you please repeat?"

// Result is the outcome of one processed command.
type Result struct {
	Text              string            `json:"text"`
	Audio             []byte            `json:"audio,omitempty"`
	ActionsExecuted   []ExecutedAction  `json:"actions_executed,omitempty"`
	NeedsConfirmation bool              `json:"needs_confirmation"`
	Confidence        float64           `json:"confidence"`
	ModelUsed         provider.Identity `json:"model_used"`
}

// ExecutedAction pairs an action with its execution result.
type ExecutedAction struct {
	Action provider.Action    `json:"action"`
	Result *automation.Result `json:"result"`
}

// HistoryEntry is one in-memory command record.
type HistoryEntry struct {
	UserID    string    `json:"user_id"`
	Command   string    `json:"command"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// voiceSession tracks one active voice session.
type voiceSession struct {
	userID       string
	startedAt    time.Time
	wakeDetected bool
	conversation []provider.Exchange
}

// Deps are the components the assistant core orchestrates. Store may be nil
// for a purely in-memory assistant.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Transcriber  voice.Transcriber
	Synthesizer  voice.Synthesizer
	WakeDetector voice.WakeDetector
	Automation   *automation.Engine
	Search       *web.SearchEngine
	Fetcher      *web.Fetcher
	Store        *store.Store
}

// Core wires the assistant components into one pipeline.
type Core struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*voiceSession
	history  []HistoryEntry

	log zerolog.Logger
}

// New creates the assistant core.
func New(deps Deps, log zerolog.Logger) *Core {
	return &Core{
		deps:     deps,
		sessions: make(map[string]*voiceSession),
		log:      log.With().Str("component", "assistant").Logger(),
	}
}

// ProcessTextCommand runs a typed command through the pipeline.
func (c *Core) ProcessTextCommand(ctx context.Context, text, userID, sessionID string) (*Result, error) {
	return c.process(ctx, text, userID, sessionID, "text", false)
}

// ProcessVoiceCommand transcribes the audio and runs the command through the
// pipeline, synthesizing the spoken reply.
func (c *Core) ProcessVoiceCommand(ctx context.Context, audio []byte, userID, sessionID string) (*Result, error) {
	language := c.userLanguage(ctx, userID)

	transcript, err := c.deps.Transcriber.Transcribe(ctx, audio, language)
	if err != nil || transcript == "" {
		if err != nil {
			c.log.Warn().Err(err).Str("user", userID).Msg("transcription failed")
		}
		return &Result{Text: didNotCatchReply, Confidence: 0.0}, nil
	}

	return c.process(ctx, transcript, userID, sessionID, "voice", true)
}

// process is the shared command path. Only the orchestrator's not-configured
// error propagates; everything else is absorbed into the result.
func (c *Core) process(ctx context.Context, command, userID, sessionID, commandType string, speak bool) (*Result, error) {
	conv := &provider.Context{
		UserID:      userID,
		History:     c.sessionHistory(sessionID),
		Preferences: provider.Preferences{Language: c.userLanguage(ctx, userID)},
	}

	resp, err := c.deps.Orchestrator.ProcessCommand(ctx, command, conv)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Text:              resp.Text,
		NeedsConfirmation: resp.NeedsConfirmation,
		Confidence:        resp.Confidence,
		ModelUsed:         resp.ModelUsed,
	}

	// Commands that need confirmation come back unexecuted; the caller
	// re-submits after the user approves.
	if !resp.NeedsConfirmation {
		for _, action := range resp.Actions {
			execResult := c.deps.Automation.Execute(ctx, action, userID)
			result.ActionsExecuted = append(result.ActionsExecuted, ExecutedAction{
				Action: action,
				Result: execResult,
			})
		}
	}

	if speak && result.Text != "" && c.deps.Synthesizer != nil {
		audio, synthErr := c.deps.Synthesizer.Synthesize(ctx, result.Text, conv.Preferences.Language)
		if synthErr != nil {
			c.log.Warn().Err(synthErr).Msg("speech synthesis failed")
		} else {
			result.Audio = audio
		}
	}

	c.appendConversation(sessionID, command, result.Text)
	c.recordHistory(ctx, userID, sessionID, command, commandType, resp)

	return result, nil
}

// ============================================================
// VOICE SESSIONS
// ============================================================

// StartVoiceSession opens a voice session and begins wake-word listening.
func (c *Core) StartVoiceSession(ctx context.Context, userID string, wakeWordEnabled bool) (string, error) {
	sessionID := uuid.New().String()

	c.mu.Lock()
	c.sessions[sessionID] = &voiceSession{
		userID:    userID,
		startedAt: time.Now(),
	}
	c.mu.Unlock()

	if c.deps.Store != nil {
		if _, err := c.deps.Store.CreateSession(ctx, sessionID, userID, ""); err != nil {
			c.log.Warn().Err(err).Str("session", sessionID).Msg("failed to persist session")
		}
	}

	if wakeWordEnabled && c.deps.WakeDetector != nil {
		c.deps.WakeDetector.StartListening(sessionID, c.onWakeWord)
	}

	c.log.Info().Str("user", userID).Str("session", sessionID).Msg("voice session started")
	return sessionID, nil
}

// StopVoiceSession closes the session and stops wake-word listening.
func (c *Core) StopVoiceSession(ctx context.Context, sessionID string) {
	c.mu.Lock()
	_, known := c.sessions[sessionID]
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	if !known {
		return
	}

	if c.deps.WakeDetector != nil {
		c.deps.WakeDetector.StopListening(sessionID)
	}
	if c.deps.Store != nil {
		if err := c.deps.Store.EndSession(ctx, sessionID); err != nil {
			c.log.Warn().Err(err).Str("session", sessionID).Msg("failed to end persisted session")
		}
	}

	c.log.Info().Str("session", sessionID).Msg("voice session stopped")
}

// ActiveSessionCount returns the number of open voice sessions.
func (c *Core) ActiveSessionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// TrainWakeWord registers a custom wake word for the user.
func (c *Core) TrainWakeWord(ctx context.Context, userID, wakeWord string, samples [][]byte) error {
	return c.deps.WakeDetector.TrainWakeWord(ctx, userID, wakeWord, samples)
}

func (c *Core) onWakeWord(sessionID, wakeWord string) {
	c.mu.Lock()
	if session, ok := c.sessions[sessionID]; ok {
		session.wakeDetected = true
	}
	c.mu.Unlock()

	c.log.Info().Str("session", sessionID).Str("wake_word", wakeWord).Msg("wake word detected")
}

// ============================================================
// WEB
// ============================================================

// SearchWeb performs a web search for the user.
func (c *Core) SearchWeb(ctx context.Context, query string, maxResults int) (*web.SearchResponse, error) {
	return c.deps.Search.Search(ctx, query, maxResults)
}

// FetchPage downloads and extracts one web page.
func (c *Core) FetchPage(ctx context.Context, url string) (*web.Page, error) {
	return c.deps.Fetcher.Fetch(ctx, url)
}

// ============================================================
// HISTORY
// ============================================================

// RecentHistory returns the newest in-memory command records, newest first.
func (c *Core) RecentHistory(limit int) []HistoryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 || limit > len(c.history) {
		limit = len(c.history)
	}
	out := make([]HistoryEntry, limit)
	for i := 0; i < limit; i++ {
		out[i] = c.history[len(c.history)-1-i]
	}
	return out
}

func (c *Core) recordHistory(ctx context.Context, userID, sessionID, command, commandType string, resp *orchestrator.Response) {
	c.mu.Lock()
	c.history = append(c.history, HistoryEntry{
		UserID:    userID,
		Command:   command,
		Response:  resp.Text,
		Timestamp: time.Now(),
	})
	if len(c.history) > maxMemoryHistory {
		c.history = c.history[len(c.history)-maxMemoryHistory:]
	}
	c.mu.Unlock()

	if c.deps.Store == nil {
		return
	}

	actionsJSON := ""
	if len(resp.Actions) > 0 {
		if data, err := json.Marshal(resp.Actions); err == nil {
			actionsJSON = string(data)
		}
	}
	if _, err := c.deps.Store.SaveCommand(ctx, &store.CommandRecord{
		UserID:      userID,
		SessionID:   sessionID,
		Command:     command,
		CommandType: commandType,
		Response:    resp.Text,
		Actions:     actionsJSON,
		Confidence:  resp.Confidence,
		ModelUsed:   string(resp.ModelUsed),
	}); err != nil {
		c.log.Warn().Err(err).Str("user", userID).Msg("failed to persist command")
	}
}

func (c *Core) sessionHistory(sessionID string) []provider.Exchange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	session, ok := c.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]provider.Exchange, len(session.conversation))
	copy(out, session.conversation)
	return out
}

func (c *Core) appendConversation(sessionID, command, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.sessions[sessionID]
	if !ok {
		return
	}
	session.conversation = append(session.conversation,
		provider.Exchange{Role: "user", Content: command},
		provider.Exchange{Role: "assistant", Content: response},
	)
}

func (c *Core) userLanguage(ctx context.Context, userID string) string {
	if c.deps.Store == nil {
		return ""
	}
	user, err := c.deps.Store.GetUser(ctx, userID)
	if err != nil || user == nil || user.Preferences == "" {
		return ""
	}
	var prefs struct {
		Language string `json:"language"`
	}
	if err := json.Unmarshal([]byte(user.Preferences), &prefs); err != nil {
		return ""
	}
	return prefs.Language
}

// Shutdown stops sessions and releases component resources.
func (c *Core) Shutdown() {
	c.mu.Lock()
	sessionIDs := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		sessionIDs = append(sessionIDs, id)
	}
	c.sessions = make(map[string]*voiceSession)
	c.mu.Unlock()

	if c.deps.WakeDetector != nil {
		for _, id := range sessionIDs {
			c.deps.WakeDetector.StopListening(id)
		}
	}
	if c.deps.Fetcher != nil {
		c.deps.Fetcher.Shutdown()
	}
	c.deps.Orchestrator.Shutdown()

	c.log.Info().Msg("assistant core shut down")
}
