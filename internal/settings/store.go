// Package settings persists the AI routing settings in a key-value store.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"studyforge/internal/ai"
	"studyforge/internal/cache"
	"studyforge/internal/logging"
	"studyforge/internal/metrics"
)

// Key is the key-value entry holding the serialized settings
const Key = "ai-settings"

// ErrInvalidSettings is returned by Patch.Validate
var ErrInvalidSettings = errors.New("invalid AI settings")

// Settings is the process-wide AI configuration
type Settings struct {
	PrimaryProvider      ai.ProviderID `json:"primaryProvider"`
	FallbackProvider     ai.ProviderID `json:"fallbackProvider"`
	SelectedLocalModel   string        `json:"selectedLocalModel,omitempty"`
	Temperature          float64       `json:"temperature"`
	MaxTokens            int           `json:"maxTokens"`
	UseMultipleProviders bool          `json:"useMultipleProviders"`
}

// Defaults returns the built-in settings
func Defaults() Settings {
	return Settings{
		PrimaryProvider:      ai.ProviderGoogle,
		FallbackProvider:     ai.ProviderHuggingFace,
		Temperature:          0.7,
		MaxTokens:            500,
		UseMultipleProviders: true,
	}
}

// Patch is a partial update; nil fields keep their current value
type Patch struct {
	PrimaryProvider      *ai.ProviderID `json:"primaryProvider,omitempty"`
	FallbackProvider     *ai.ProviderID `json:"fallbackProvider,omitempty"`
	SelectedLocalModel   *string        `json:"selectedLocalModel,omitempty"`
	Temperature          *float64       `json:"temperature,omitempty"`
	MaxTokens            *int           `json:"maxTokens,omitempty"`
	UseMultipleProviders *bool          `json:"useMultipleProviders,omitempty"`
}

// Validate checks the fields that are set. The store itself never validates.
func (p Patch) Validate() error {
	var problems []string
	if p.PrimaryProvider != nil {
		if _, err := ai.ParseProviderID(string(*p.PrimaryProvider)); err != nil {
			problems = append(problems, fmt.Sprintf("primaryProvider %q is not a known provider", *p.PrimaryProvider))
		}
	}
	if p.FallbackProvider != nil {
		if _, err := ai.ParseProviderID(string(*p.FallbackProvider)); err != nil {
			problems = append(problems, fmt.Sprintf("fallbackProvider %q is not a known provider", *p.FallbackProvider))
		}
	}
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 1) {
		problems = append(problems, "temperature must be between 0 and 1")
	}
	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		problems = append(problems, "maxTokens must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

// Empty reports whether the patch changes nothing
func (p Patch) Empty() bool {
	return p == Patch{}
}

func (p Patch) apply(s Settings) Settings {
	if p.PrimaryProvider != nil {
		s.PrimaryProvider = *p.PrimaryProvider
	}
	if p.FallbackProvider != nil {
		s.FallbackProvider = *p.FallbackProvider
	}
	if p.SelectedLocalModel != nil {
		s.SelectedLocalModel = *p.SelectedLocalModel
	}
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		s.MaxTokens = *p.MaxTokens
	}
	if p.UseMultipleProviders != nil {
		s.UseMultipleProviders = *p.UseMultipleProviders
	}
	return s
}

// LocalModelListener is notified when the selected local model changes
type LocalModelListener func(model string)

// Store holds the current settings and persists them on save
type Store struct {
	kv      cache.Store
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	current   Settings
	listeners []LocalModelListener
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocalModelListener registers a listener at construction time
func WithLocalModelListener(fn LocalModelListener) Option {
	return func(s *Store) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// New creates a store holding the built-in defaults
func New(kv cache.Store, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		logger:  logging.L(),
		metrics: metrics.Get(),
		current: Defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("settings")
	return s
}

// OnLocalModelChange registers a listener for selectedLocalModel changes
func (s *Store) OnLocalModelChange(fn LocalModelListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load reads the persisted settings. A missing entry keeps the defaults.
// The stored record is decoded over the defaults without validation; a
// record that is not JSON returns an error and leaves the settings unchanged.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, Key)
	if errors.Is(err, cache.ErrNotFound) {
		s.logger.Info("no persisted settings, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	next := Defaults()
	if err := json.Unmarshal([]byte(raw), &next); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}

	s.mu.Lock()
	s.current = next
	listeners := append([]LocalModelListener(nil), s.listeners...)
	s.mu.Unlock()

	if next.SelectedLocalModel != "" {
		notify(listeners, next.SelectedLocalModel)
	}
	s.logger.Info("settings loaded",
		zap.String("primary", string(next.PrimaryProvider)),
		zap.String("fallback", string(next.FallbackProvider)),
		zap.Bool("multiple_providers", next.UseMultipleProviders))
	return nil
}

// Save merges the patch into the current settings and persists the full
// record. The in-memory update stands even when persistence fails.
func (s *Store) Save(ctx context.Context, patch Patch) (Settings, error) {
	s.mu.Lock()
	previous := s.current
	next := patch.apply(previous)
	s.current = next
	listeners := append([]LocalModelListener(nil), s.listeners...)
	s.mu.Unlock()

	if next.SelectedLocalModel != previous.SelectedLocalModel {
		notify(listeners, next.SelectedLocalModel)
	}

	err := s.persist(ctx, next)
	s.metrics.RecordSettingsSave(err)
	if err != nil {
		s.logger.Error("failed to persist settings", zap.Error(err))
		return next, err
	}
	return next, nil
}

func (s *Store) persist(ctx context.Context, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}

// Get returns a copy of the current settings
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Routing exposes the settings the AI manager reads on every call
func (s *Store) Routing() ai.RoutingSettings {
	current := s.Get()
	return ai.RoutingSettings{
		PrimaryProvider:      current.PrimaryProvider,
		FallbackProvider:     current.FallbackProvider,
		UseMultipleProviders: current.UseMultipleProviders,
		Temperature:          current.Temperature,
		MaxTokens:            current.MaxTokens,
	}
}

func notify(listeners []LocalModelListener, model string) {
	for _, fn := range listeners {
		fn(model)
	}
}
