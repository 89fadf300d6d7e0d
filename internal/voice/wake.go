package voice

import (
	"context"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/errors"
)

// defaultWakeWords are always active for every user.
var defaultWakeWords = []string{"aria", "hey aria"}

// simTriggerChance is the per-frame probability of a simulated detection.
const simTriggerChance = 0.001

// wakeSession tracks one listening session.
type wakeSession struct {
	callback func(sessionID, wakeWord string)
}

// SimWakeDetector is a simulated wake-word detector. Without a real keyword
// engine it fires randomly at a very low per-frame rate, enough to exercise
// the session plumbing.
type SimWakeDetector struct {
	mu          sync.RWMutex
	sessions    map[string]*wakeSession
	customWords map[string][]string

	rng *rand.Rand
	log zerolog.Logger
}

// NewSimWakeDetector creates a simulated wake-word detector.
func NewSimWakeDetector(seed int64, log zerolog.Logger) *SimWakeDetector {
	return &SimWakeDetector{
		sessions:    make(map[string]*wakeSession),
		customWords: make(map[string][]string),
		rng:         rand.New(rand.NewSource(seed)),
		log:         log.With().Str("component", "wake_detector").Logger(),
	}
}

// StartListening registers the session. Re-registering replaces the callback.
func (d *SimWakeDetector) StartListening(sessionID string, callback func(sessionID, wakeWord string)) {
	d.mu.Lock()
	d.sessions[sessionID] = &wakeSession{callback: callback}
	d.mu.Unlock()

	d.log.Info().Str("session", sessionID).Msg("wake word listening started")
}

// StopListening removes the session. Unknown sessions are ignored.
func (d *SimWakeDetector) StopListening(sessionID string) {
	d.mu.Lock()
	_, known := d.sessions[sessionID]
	delete(d.sessions, sessionID)
	d.mu.Unlock()

	if known {
		d.log.Info().Str("session", sessionID).Msg("wake word listening stopped")
	}
}

// ProcessFrame feeds one audio frame. Frames for unknown sessions report no
// detection.
func (d *SimWakeDetector) ProcessFrame(sessionID string, frame []byte) bool {
	d.mu.Lock()
	session, ok := d.sessions[sessionID]
	var fired bool
	if ok && len(frame) > 0 {
		fired = d.rng.Float64() < simTriggerChance
	}
	d.mu.Unlock()

	if !fired {
		return false
	}

	if session.callback != nil {
		session.callback(sessionID, defaultWakeWords[0])
	}
	return true
}

// TrainWakeWord registers a custom wake word for the user. Training is
// simulated; the samples are only validated for presence.
func (d *SimWakeDetector) TrainWakeWord(ctx context.Context, userID, wakeWord string, samples [][]byte) error {
	if wakeWord == "" {
		return errors.New(errors.CodeValidationFailed, "wake word required", errors.CategoryUser)
	}
	if len(samples) == 0 {
		return errors.New(errors.CodeValidationFailed, "audio samples required", errors.CategoryUser)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	d.mu.Lock()
	d.customWords[userID] = append(d.customWords[userID], wakeWord)
	d.mu.Unlock()

	d.log.Info().Str("user", userID).Str("wake_word", wakeWord).Msg("custom wake word trained")
	return nil
}

// WakeWords returns default plus custom wake words for the user.
func (d *SimWakeDetector) WakeWords(userID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	words := make([]string, 0, len(defaultWakeWords)+len(d.customWords[userID]))
	words = append(words, defaultWakeWords...)
	words = append(words, d.customWords[userID]...)
	return words
}
