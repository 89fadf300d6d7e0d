package orchestrator

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aria-ai/aria/internal/provider"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAdapter is a scriptable in-memory Adapter.
type fakeAdapter struct {
	identity  provider.Identity
	testOK    bool
	reply     *provider.Reply
	generated int
}

func (f *fakeAdapter) Identity() provider.Identity { return f.identity }

func (f *fakeAdapter) Configure(cfg provider.Config) bool { return f.testOK }

func (f *fakeAdapter) TestConnection(ctx context.Context, cfg provider.Config) provider.TestResult {
	return provider.TestResult{OK: f.testOK, Model: string(f.identity)}
}

func (f *fakeAdapter) Generate(ctx context.Context, command string, conv *provider.Context) *provider.Reply {
	f.generated++
	if f.reply != nil {
		return f.reply
	}
	return &provider.Reply{Text: "ok from " + string(f.identity), Confidence: 0.9, Model: string(f.identity)}
}

func (f *fakeAdapter) Shutdown() {}

func newTestOrchestrator(adapters ...*fakeAdapter) (*Orchestrator, map[provider.Identity]*fakeAdapter) {
	registry := provider.NewRegistry()
	byID := make(map[provider.Identity]*fakeAdapter)
	for _, a := range adapters {
		registry.Register(a)
		byID[a.identity] = a
	}
	return New(registry, zerolog.Nop()), byID
}

func allFakes() []*fakeAdapter {
	return []*fakeAdapter{
		{identity: provider.DeepSeek, testOK: true},
		{identity: provider.OpenAI, testOK: true},
		{identity: provider.Llama, testOK: true},
		{identity: provider.Anthropic, testOK: true},
	}
}

func TestConfigureModel_Success(t *testing.T) {
	o, _ := newTestOrchestrator(allFakes()...)

	ok := o.ConfigureModel(context.Background(), "u1", provider.DeepSeek, provider.Config{APIKey: "k"})
	require.True(t, ok)

	id, bound := o.Binding("u1")
	require.True(t, bound)
	assert.Equal(t, provider.DeepSeek, id)
	assert.Equal(t, "u1", o.DefaultUser())
}

func TestConfigureModel_TestFailureInstallsNothing(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeAdapter{identity: provider.Llama, testOK: false})

	ok := o.ConfigureModel(context.Background(), "u2", provider.Llama, provider.Config{ModelPath: "/nonexistent"})
	assert.False(t, ok)

	_, bound := o.Binding("u2")
	assert.False(t, bound)

	// Subsequent commands fail with the not-configured error.
	_, err := o.ProcessCommand(context.Background(), "hello", &provider.Context{UserID: "u2"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfigureModel_UnknownProvider(t *testing.T) {
	o, _ := newTestOrchestrator()

	ok := o.ConfigureModel(context.Background(), "u1", provider.Identity("nope"), provider.Config{})
	assert.False(t, ok)
}

func TestConfigureModel_ReplacesBinding(t *testing.T) {
	o, _ := newTestOrchestrator(allFakes()...)

	require.True(t, o.ConfigureModel(context.Background(), "u1", provider.DeepSeek, provider.Config{APIKey: "k"}))
	require.True(t, o.ConfigureModel(context.Background(), "u1", provider.Anthropic, provider.Config{APIKey: "k2"}))

	id, bound := o.Binding("u1")
	require.True(t, bound)
	assert.Equal(t, provider.Anthropic, id)
}

func TestProcessCommand_NotConfigured(t *testing.T) {
	fakes := allFakes()
	o, byID := newTestOrchestrator(fakes...)

	_, err := o.ProcessCommand(context.Background(), "hello there", &provider.Context{UserID: "ghost"})
	require.ErrorIs(t, err, ErrNotConfigured)

	// No adapter was ever invoked.
	for _, f := range byID {
		assert.Zero(t, f.generated)
	}
}

func TestProcessCommand_RoutesToSpecializedProvider(t *testing.T) {
	o, byID := newTestOrchestrator(allFakes()...)
	require.True(t, o.ConfigureModel(context.Background(), "u1", provider.DeepSeek, provider.Config{APIKey: "k"}))

	resp, err := o.ProcessCommand(context.Background(), "write me a poem", &provider.Context{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, provider.OpenAI, resp.ModelUsed)
	assert.Equal(t, 1, byID[provider.OpenAI].generated)
	assert.Zero(t, byID[provider.DeepSeek].generated)
	assert.False(t, resp.NeedsConfirmation)

	// The one-call switch does not change the binding.
	id, _ := o.Binding("u1")
	assert.Equal(t, provider.DeepSeek, id)
}

func TestProcessCommand_KeepsBoundProviderWithoutMatch(t *testing.T) {
	o, byID := newTestOrchestrator(allFakes()...)
	require.True(t, o.ConfigureModel(context.Background(), "u1", provider.Anthropic, provider.Config{APIKey: "k"}))

	resp, err := o.ProcessCommand(context.Background(), "how tall is the Eiffel tower", &provider.Context{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, provider.Anthropic, resp.ModelUsed)
	assert.Equal(t, 1, byID[provider.Anthropic].generated)
}

func TestProcessCommand_ConfirmationGateIndependentOfReply(t *testing.T) {
	fakes := allFakes()
	for _, f := range fakes {
		f.reply = &provider.Reply{Text: "done, no questions asked", Confidence: 0.9}
	}
	o, _ := newTestOrchestrator(fakes...)
	require.True(t, o.ConfigureModel(context.Background(), "u1", provider.OpenAI, provider.Config{APIKey: "k"}))

	resp, err := o.ProcessCommand(context.Background(), "please delete my old notes file", &provider.Context{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, resp.NeedsConfirmation)
}

func TestProcessCommand_ActionsPassThrough(t *testing.T) {
	actions := []provider.Action{
		{Kind: "open_app", Params: map[string]any{"name": "chrome"}},
		{Kind: "shutdown_system"},
	}
	f := &fakeAdapter{
		identity: provider.Anthropic,
		testOK:   true,
		reply:    &provider.Reply{Text: "on it", Confidence: 0.95, Actions: actions},
	}
	o, _ := newTestOrchestrator(f)
	require.True(t, o.ConfigureModel(context.Background(), "u1", provider.Anthropic, provider.Config{APIKey: "k"}))

	resp, err := o.ProcessCommand(context.Background(), "do the corporate thing", &provider.Context{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, actions, resp.Actions)
	// shutdown_system action kind forces confirmation even without keywords.
	assert.True(t, resp.NeedsConfirmation)
}

func TestProcessCommand_ZeroConfidenceFailureStillAnswers(t *testing.T) {
	f := &fakeAdapter{
		identity: provider.Llama,
		testOK:   true,
		reply:    &provider.Reply{Text: "Sorry, I encountered an error with the local AI model.", Confidence: 0.0},
	}
	o, _ := newTestOrchestrator(f)
	require.True(t, o.ConfigureModel(context.Background(), "u1", provider.Llama, provider.Config{ModelPath: "/m"}))

	resp, err := o.ProcessCommand(context.Background(), "hello", &provider.Context{UserID: "u1"})
	require.NoError(t, err)
	assert.Zero(t, resp.Confidence)
	assert.NotEmpty(t, resp.Text)
}

func TestProcessCommand_IndependentUsers(t *testing.T) {
	o, byID := newTestOrchestrator(allFakes()...)
	require.True(t, o.ConfigureModel(context.Background(), "u1", provider.DeepSeek, provider.Config{APIKey: "k"}))
	require.True(t, o.ConfigureModel(context.Background(), "u2", provider.Llama, provider.Config{ModelPath: "/m"}))

	_, err := o.ProcessCommand(context.Background(), "hi", &provider.Context{UserID: "u1"})
	require.NoError(t, err)
	_, err = o.ProcessCommand(context.Background(), "hi", &provider.Context{UserID: "u2"})
	require.NoError(t, err)

	assert.Equal(t, 1, byID[provider.DeepSeek].generated)
	assert.Equal(t, 1, byID[provider.Llama].generated)
	assert.Equal(t, "u1", o.DefaultUser())
}
