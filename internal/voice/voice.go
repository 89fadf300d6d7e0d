// Package voice provides speech-to-text, text-to-speech, and wake-word
// detection behind small interfaces.
//
// The shipped engines are simulated: they validate inputs, honor the language
// table, and fabricate plausible outputs without touching real audio hardware.
package voice

import "context"

// Transcriber converts captured audio into text.
type Transcriber interface {
	// Transcribe converts the audio to text in the given language.
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)

	// SupportedLanguages returns the language-name to locale-code table.
	SupportedLanguages() map[string]string
}

// Synthesizer converts assistant text into speech audio.
type Synthesizer interface {
	// Synthesize renders the text as WAV audio.
	Synthesize(ctx context.Context, text, language string) ([]byte, error)

	// SetProperties adjusts speech rate and volume. Zero values keep the
	// current setting.
	SetProperties(rate int, volume float64)
}

// WakeDetector listens for wake words on per-session audio streams.
type WakeDetector interface {
	// StartListening registers a session; the callback fires with the
	// detected wake word.
	StartListening(sessionID string, callback func(sessionID, wakeWord string))

	// StopListening removes the session.
	StopListening(sessionID string)

	// ProcessFrame feeds one audio frame for the session and reports
	// whether a wake word fired.
	ProcessFrame(sessionID string, frame []byte) bool

	// TrainWakeWord registers a custom wake word for the user.
	TrainWakeWord(ctx context.Context, userID, wakeWord string, samples [][]byte) error

	// WakeWords returns default plus custom wake words for the user.
	WakeWords(userID string) []string
}
