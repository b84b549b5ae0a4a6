package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studyforge/internal/ai"
	"studyforge/internal/cache"
)

func ptr[T any](v T) *T { return &v }

func newStore(kv cache.Store, opts ...Option) *Store {
	return New(kv, append([]Option{WithLogger(zap.NewNop())}, opts...)...)
}

func TestDefaults(t *testing.T) {
	s := newStore(cache.NewMemoryStore())
	require.NoError(t, s.Load(context.Background()))

	got := s.Get()
	assert.Equal(t, ai.ProviderGoogle, got.PrimaryProvider)
	assert.Equal(t, ai.ProviderHuggingFace, got.FallbackProvider)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 500, got.MaxTokens)
	assert.True(t, got.UseMultipleProviders)
	assert.Empty(t, got.SelectedLocalModel)
}

func TestSaveThenLoadOnFreshStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")
	kv, err := cache.NewFileStore(path)
	require.NoError(t, err)

	first := newStore(kv)
	_, err = first.Save(ctx, Patch{
		FallbackProvider: ptr(ai.ProviderOllama),
		Temperature:      ptr(0.2),
	})
	require.NoError(t, err)

	reopened, err := cache.NewFileStore(path)
	require.NoError(t, err)
	second := newStore(reopened)
	require.NoError(t, second.Load(ctx))

	got := second.Get()
	assert.Equal(t, ai.ProviderOllama, got.FallbackProvider)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, ai.ProviderGoogle, got.PrimaryProvider)
	assert.Equal(t, 500, got.MaxTokens)
	assert.True(t, got.UseMultipleProviders)
}

func TestLoadDecodesOverDefaults(t *testing.T) {
	ctx := context.Background()
	kv := cache.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, Key, `{"primaryProvider":"anthropic","maxTokens":-5}`))

	s := newStore(kv)
	require.NoError(t, s.Load(ctx))

	got := s.Get()
	assert.Equal(t, ai.ProviderID("anthropic"), got.PrimaryProvider, "load does not validate")
	assert.Equal(t, -5, got.MaxTokens)
	assert.Equal(t, ai.ProviderHuggingFace, got.FallbackProvider)
	assert.Equal(t, 0.7, got.Temperature)
}

func TestLoadInvalidJSONKeepsSettings(t *testing.T) {
	ctx := context.Background()
	kv := cache.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, Key, `not json`))

	s := newStore(kv)
	_, err := s.Save(ctx, Patch{MaxTokens: ptr(900)})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, Key, `{"maxTokens":`))

	err = s.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, 900, s.Get().MaxTokens)
}

func TestSaveMergesAndNotifiesListeners(t *testing.T) {
	ctx := context.Background()
	var models []string
	s := newStore(cache.NewMemoryStore(), WithLocalModelListener(func(m string) { models = append(models, m) }))

	saved, err := s.Save(ctx, Patch{SelectedLocalModel: ptr("mistral:latest"), UseMultipleProviders: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "mistral:latest", saved.SelectedLocalModel)
	assert.False(t, saved.UseMultipleProviders)
	assert.Equal(t, ai.ProviderGoogle, saved.PrimaryProvider)

	_, err = s.Save(ctx, Patch{Temperature: ptr(0.1)})
	require.NoError(t, err)
	_, err = s.Save(ctx, Patch{SelectedLocalModel: ptr("mistral:latest")})
	require.NoError(t, err)

	assert.Equal(t, []string{"mistral:latest"}, models, "listeners only fire when the model changes")
}

func TestLoadNotifiesPersistedModel(t *testing.T) {
	ctx := context.Background()
	kv := cache.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, Key, `{"selectedLocalModel":"phi3"}`))

	var got string
	s := newStore(kv)
	s.OnLocalModelChange(func(m string) { got = m })
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, "phi3", got)
}

type failingStore struct{ cache.Store }

func (failingStore) Set(context.Context, string, string) error { return errors.New("disk full") }

func TestSaveKeepsInMemoryUpdateWhenPersistFails(t *testing.T) {
	s := newStore(failingStore{cache.NewMemoryStore()})

	_, err := s.Save(context.Background(), Patch{MaxTokens: ptr(1000)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1000, s.Get().MaxTokens)
}

func TestGetReturnsCopy(t *testing.T) {
	s := newStore(cache.NewMemoryStore())
	got := s.Get()
	got.MaxTokens = 1
	assert.Equal(t, 500, s.Get().MaxTokens)
}

func TestRouting(t *testing.T) {
	s := newStore(cache.NewMemoryStore())
	_, err := s.Save(context.Background(), Patch{PrimaryProvider: ptr(ai.ProviderOllama), FallbackProvider: ptr(ai.ProviderOllama)})
	require.NoError(t, err)

	r := s.Routing()
	assert.Equal(t, []ai.ProviderID{ai.ProviderOllama}, r.Order())
	assert.Equal(t, ai.GenerateOptions{Temperature: 0.7, MaxTokens: 500, TopP: ai.DefaultTopP}, r.Options())
}

func TestPatchValidate(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"empty", Patch{}, false},
		{"valid", Patch{PrimaryProvider: ptr(ai.ProviderOpenAI), Temperature: ptr(1.0), MaxTokens: ptr(1)}, false},
		{"unknown primary", Patch{PrimaryProvider: ptr(ai.ProviderID("anthropic"))}, true},
		{"unknown fallback", Patch{FallbackProvider: ptr(ai.ProviderID(""))}, true},
		{"temperature too high", Patch{Temperature: ptr(1.5)}, true},
		{"negative temperature", Patch{Temperature: ptr(-0.1)}, true},
		{"zero tokens", Patch{MaxTokens: ptr(0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSettings)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.True(t, Patch{}.Empty())
	assert.False(t, Patch{MaxTokens: ptr(1)}.Empty())
}
