package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aria-ai/aria/internal/errors"
)

const (
	defaultRate   = 150
	defaultVolume = 0.8

	sampleRate = 16000
	// Samples fabricated per character of input text.
	samplesPerChar = 160
)

// SimSynthesizer is a simulated text-to-speech engine producing silent WAV
// audio whose duration scales with the text length.
type SimSynthesizer struct {
	mu     sync.RWMutex
	rate   int
	volume float64

	log zerolog.Logger
}

// NewSimSynthesizer creates a simulated synthesizer with default properties.
func NewSimSynthesizer(log zerolog.Logger) *SimSynthesizer {
	return &SimSynthesizer{
		rate:   defaultRate,
		volume: defaultVolume,
		log:    log.With().Str("component", "synthesizer").Logger(),
	}
}

// Synthesize renders the text as a minimal 16-bit mono WAV.
func (s *SimSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if text == "" {
		return nil, errors.New(errors.CodeSynthesizeFailed, "empty text", errors.CategoryUser)
	}

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.CodeSynthesizeFailed, "synthesis canceled", errors.CategoryTemporary)
	default:
	}

	samples := len(text) * samplesPerChar
	audio := encodeWAV(samples)

	s.log.Debug().
		Str("language", language).
		Int("chars", len(text)).
		Int("bytes", len(audio)).
		Msg("synthesized speech")
	return audio, nil
}

// SetProperties adjusts speech rate and volume. Zero values keep the current
// setting; volume is clamped to [0, 1].
func (s *SimSynthesizer) SetProperties(rate int, volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate > 0 {
		s.rate = rate
	}
	if volume > 0 {
		if volume > 1 {
			volume = 1
		}
		s.volume = volume
	}
}

// Properties returns the current rate and volume.
func (s *SimSynthesizer) Properties() (int, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rate, s.volume
}

// encodeWAV builds a valid RIFF/WAVE container around silent PCM samples.
func encodeWAV(samples int) []byte {
	dataSize := samples * 2 // 16-bit mono

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	return buf.Bytes()
}
