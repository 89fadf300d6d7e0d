package provider

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Resolve(DeepSeek)
	assert.False(t, ok)

	c := NewDeepSeekClient(Config{}, zerolog.Nop())
	r.Register(c)

	got, ok := r.Resolve(DeepSeek)
	require.True(t, ok)
	assert.Same(t, Adapter(c), got)

	assert.Len(t, r.All(), 1)

	r.Shutdown()
}

func TestParseIdentity(t *testing.T) {
	for _, id := range Identities() {
		parsed, ok := ParseIdentity(string(id))
		require.True(t, ok)
		assert.Equal(t, id, parsed)
	}

	_, ok := ParseIdentity("gemini")
	assert.False(t, ok)
}
