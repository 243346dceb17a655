package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentes-ia/internal/entities"
)

type fakeRegistry struct {
	providers map[string]struct{}
	addCalls  int
	added     []string
	loadErr   error
	addErr    error
}

func newFakeRegistry(senders ...string) *fakeRegistry {
	providers := make(map[string]struct{})
	for _, s := range senders {
		providers[s] = struct{}{}
	}
	return &fakeRegistry{providers: providers}
}

func (f *fakeRegistry) Load(_ context.Context, _ string) (map[string]struct{}, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	// Copy so the router's local mutations stay local.
	out := make(map[string]struct{}, len(f.providers))
	for k := range f.providers {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeRegistry) Add(_ context.Context, _ string, senders ...string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.addCalls++
	f.added = append(f.added, senders...)
	for _, s := range senders {
		f.providers[s] = struct{}{}
	}
	return nil
}

type fakeConfig struct {
	prompt string
	err    error
}

func (f *fakeConfig) GetConfig(_ context.Context, _, _ string) (string, error) {
	return f.prompt, f.err
}

func TestRouteMixedBatch(t *testing.T) {
	// A is already registered, B declares itself a provider, C just greets.
	registry := newFakeRegistry("sender-a")
	router := NewConversationRouter(registry, &fakeConfig{})

	actions, err := router.Route(context.Background(), "acme", []entities.InboundMessage{
		{Sender: "sender-a", Text: "hola, tengo novedades"},
		{Sender: "sender-b", Text: "buenas, soy proveedor"},
		{Sender: "sender-c", Text: "hola"},
	})
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, "sender-c", actions[0].To)
	assert.Equal(t, WelcomePrompt, actions[0].Message)
	assert.Equal(t, entities.NextAwaitIntent, actions[0].Next)

	assert.Equal(t, 1, registry.addCalls)
	assert.Equal(t, []string{"sender-b"}, registry.added)
}

func TestRouteClientIntent(t *testing.T) {
	registry := newFakeRegistry()
	router := NewConversationRouter(registry, &fakeConfig{prompt: "Eres BUMI."})

	actions, err := router.Route(context.Background(), "acme", []entities.InboundMessage{
		{Sender: "sender-x", Text: "Soy cliente y quiero cotizar"},
	})
	require.NoError(t, err)

	require.Len(t, actions, 1)
	assert.Equal(t, ClientAck, actions[0].Message)
	assert.Equal(t, entities.NextDelegateToLLM, actions[0].Next)
	assert.Equal(t, "Eres BUMI.", actions[0].Context)
	assert.Zero(t, registry.addCalls)
}

func TestRouteProviderBeatsClient(t *testing.T) {
	registry := newFakeRegistry()
	router := NewConversationRouter(registry, &fakeConfig{})

	actions, err := router.Route(context.Background(), "acme", []entities.InboundMessage{
		{Sender: "sender-y", Text: "soy proveedor y cliente"},
	})
	require.NoError(t, err)

	assert.Empty(t, actions)
	assert.Equal(t, []string{"sender-y"}, registry.added)
}

func TestRouteSkipsEmptySender(t *testing.T) {
	registry := newFakeRegistry()
	router := NewConversationRouter(registry, &fakeConfig{})

	actions, err := router.Route(context.Background(), "acme", []entities.InboundMessage{
		{Sender: "", Text: "hola"},
	})
	require.NoError(t, err)
	assert.Empty(t, actions)
	assert.Zero(t, registry.addCalls)
}

func TestRouteProviderSilencedWithinBatch(t *testing.T) {
	// A sender who declares provider earlier in the batch is ignored for the
	// rest of it, and Add still runs exactly once.
	registry := newFakeRegistry()
	router := NewConversationRouter(registry, &fakeConfig{})

	actions, err := router.Route(context.Background(), "acme", []entities.InboundMessage{
		{Sender: "sender-z", Text: "soy proveedor"},
		{Sender: "sender-z", Text: "hola de nuevo"},
	})
	require.NoError(t, err)

	assert.Empty(t, actions)
	assert.Equal(t, 1, registry.addCalls)
	assert.Equal(t, []string{"sender-z"}, registry.added)
}

func TestRouteEmptyBatchReturnsEmptySlice(t *testing.T) {
	router := NewConversationRouter(newFakeRegistry(), &fakeConfig{})

	actions, err := router.Route(context.Background(), "acme", nil)
	require.NoError(t, err)
	require.NotNil(t, actions)
	assert.Empty(t, actions)
}

func TestRouteConfigFailureDegradesContext(t *testing.T) {
	router := NewConversationRouter(newFakeRegistry(), &fakeConfig{err: errors.New("db down")})

	actions, err := router.Route(context.Background(), "acme", []entities.InboundMessage{
		{Sender: "sender-w", Text: "hola"},
	})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Empty(t, actions[0].Context)
}

func TestRouteRegistryErrors(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		registry := newFakeRegistry()
		registry.loadErr = errors.New("disk gone")
		router := NewConversationRouter(registry, &fakeConfig{})

		_, err := router.Route(context.Background(), "acme", []entities.InboundMessage{
			{Sender: "s", Text: "hola"},
		})
		require.Error(t, err)
	})

	t.Run("add failure", func(t *testing.T) {
		registry := newFakeRegistry()
		registry.addErr = errors.New("disk gone")
		router := NewConversationRouter(registry, &fakeConfig{})

		_, err := router.Route(context.Background(), "acme", []entities.InboundMessage{
			{Sender: "s", Text: "soy proveedor"},
		})
		require.Error(t, err)
	})
}
