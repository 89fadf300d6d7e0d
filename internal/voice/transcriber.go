package voice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/errors"
)

// supportedLanguages maps language names to recognizer locale codes.
var supportedLanguages = map[string]string{
	"english":  "en-US",
	"spanish":  "es-ES",
	"sinhala":  "si-LK",
	"tamil":    "ta-IN",
	"french":   "fr-FR",
	"german":   "de-DE",
	"chinese":  "zh-CN",
	"japanese": "ja-JP",
	"hindi":    "hi-IN",
	"arabic":   "ar-SA",
}

// SimTranscriber is a simulated speech recognizer.
type SimTranscriber struct {
	log zerolog.Logger
}

// NewSimTranscriber creates a simulated transcriber.
func NewSimTranscriber(log zerolog.Logger) *SimTranscriber {
	return &SimTranscriber{
		log: log.With().Str("component", "transcriber").Logger(),
	}
}

// Transcribe fabricates a transcript for the audio. Unknown languages fall
// back to English, matching the recognizer's behavior.
func (t *SimTranscriber) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", errors.New(errors.CodeTranscribeFailed, "empty audio data", errors.CategoryUser)
	}

	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), errors.CodeTranscribeFailed, "transcription canceled", errors.CategoryTemporary)
	default:
	}

	code, ok := supportedLanguages[language]
	if !ok {
		code = "en-US"
	}

	text := fmt.Sprintf("simulated transcript (%s, %d bytes)", code, len(audio))
	t.log.Debug().Str("language", code).Int("bytes", len(audio)).Msg("transcribed audio")
	return text, nil
}

// SupportedLanguages returns a copy of the language table.
func (t *SimTranscriber) SupportedLanguages() map[string]string {
	out := make(map[string]string, len(supportedLanguages))
	for name, code := range supportedLanguages {
		out[name] = code
	}
	return out
}

// ValidateLanguage reports whether the language name is supported.
func ValidateLanguage(language string) bool {
	_, ok := supportedLanguages[language]
	return ok
}
