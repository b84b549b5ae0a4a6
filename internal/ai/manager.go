package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"studyforge/internal/logging"
	"studyforge/internal/metrics"
)

// RoutingSettings is the part of the persisted settings the manager reads on every call
type RoutingSettings struct {
	PrimaryProvider      ProviderID
	FallbackProvider     ProviderID
	UseMultipleProviders bool
	Temperature          float64
	MaxTokens            int
}

// SettingsSource supplies the current routing settings
type SettingsSource interface {
	Routing() RoutingSettings
}

// Options builds the sampling parameters for one call
func (s RoutingSettings) Options() GenerateOptions {
	return GenerateOptions{
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		TopP:        DefaultTopP,
	}
}

// Order returns [primary, fallback] deduplicated, or [primary] when
// multiple providers are disabled.
func (s RoutingSettings) Order() []ProviderID {
	order := make([]ProviderID, 0, 2)
	if s.PrimaryProvider != "" {
		order = append(order, s.PrimaryProvider)
	}
	if s.UseMultipleProviders && s.FallbackProvider != "" && s.FallbackProvider != s.PrimaryProvider {
		order = append(order, s.FallbackProvider)
	}
	return order
}

// Manager routes generation calls through the configured providers in order
type Manager struct {
	providers map[ProviderID]Provider
	settings  SettingsSource
	prober    *Prober
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithManagerLogger sets the manager logger
func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithManagerClock injects the clock used by local analytics
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager over the given providers
func NewManager(providers []Provider, settings SettingsSource, prober *Prober, opts ...ManagerOption) *Manager {
	m := &Manager{
		providers: make(map[ProviderID]Provider, len(providers)),
		settings:  settings,
		prober:    prober,
		logger:    logging.L(),
		metrics:   metrics.Get(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("ai")
	for _, p := range providers {
		m.providers[p.ID()] = p
	}
	return m
}

// ProviderOrder returns the candidate list for the current settings
func (m *Manager) ProviderOrder() []ProviderID {
	return m.settings.Routing().Order()
}

// AvailableProvider returns the primary if available, else the fallback,
// else the first available provider in AllProviders order.
func (m *Manager) AvailableProvider() (ProviderID, error) {
	s := m.settings.Routing()
	status := m.prober.Status()

	if status[s.PrimaryProvider] {
		return s.PrimaryProvider, nil
	}
	if status[s.FallbackProvider] {
		return s.FallbackProvider, nil
	}
	for _, id := range AllProviders() {
		if status[id] {
			return id, nil
		}
	}
	return "", ErrNoProviderAvailable
}

// GenerateStudyPlan creates a two-week plan with the first provider that succeeds
func (m *Manager) GenerateStudyPlan(ctx context.Context, req StudyPlanRequest) (*StudyPlan, error) {
	var plan *StudyPlan
	err := m.route(ctx, OpStudyPlan, true, func(ctx context.Context, p Provider, opts GenerateOptions) error {
		var err error
		plan, err = p.GenerateStudyPlan(ctx, req, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// GenerateQuestions creates req.Count multiple-choice questions
func (m *Manager) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]GeneratedQuestion, error) {
	req = normalizeQuestionRequest(req)

	var questions []GeneratedQuestion
	err := m.route(ctx, OpQuestions, true, func(ctx context.Context, p Provider, opts GenerateOptions) error {
		var err error
		questions, err = p.GenerateQuestions(ctx, req, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// GenerateConceptExplanation explains a topic
func (m *Manager) GenerateConceptExplanation(ctx context.Context, topic string) (*ConceptExplanation, error) {
	var explanation *ConceptExplanation
	err := m.route(ctx, OpExplanation, true, func(ctx context.Context, p Provider, opts GenerateOptions) error {
		var err error
		explanation, err = p.GenerateConceptExplanation(ctx, topic, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return explanation, nil
}

// GeneratePersonalizedFeedback writes feedback for a progress summary
func (m *Manager) GeneratePersonalizedFeedback(ctx context.Context, summary ProgressSummary) (string, error) {
	var feedback string
	err := m.route(ctx, OpFeedback, false, func(ctx context.Context, p Provider, opts GenerateOptions) error {
		var err error
		feedback, err = p.GeneratePersonalizedFeedback(ctx, summary, opts)
		return err
	})
	if err != nil {
		return "", err
	}
	return feedback, nil
}

// route tries each candidate once, in order, and stops at the first success.
// Candidates without an adapter or marked unavailable are skipped; volatile
// providers are re-probed first when reprobe is set.
func (m *Manager) route(ctx context.Context, op Operation, reprobe bool, call func(context.Context, Provider, GenerateOptions) error) error {
	s := m.settings.Routing()
	opts := s.Options()

	for _, id := range s.Order() {
		if err := ctx.Err(); err != nil {
			return err
		}

		provider, ok := m.providers[id]
		if !ok {
			m.logger.Debug("no adapter registered for provider", zap.String("provider", string(id)))
			continue
		}
		if !m.prober.IsAvailable(id) {
			m.logger.Debug("skipping unavailable provider",
				zap.String("provider", string(id)),
				zap.String("operation", string(op)))
			continue
		}
		if reprobe && isVolatile(provider) && !m.prober.Check(ctx, id) {
			m.logger.Info("provider went offline",
				zap.String("provider", string(id)),
				zap.String("operation", string(op)))
			continue
		}

		if err := call(ctx, provider, opts); err != nil {
			m.logger.Warn("provider call failed, trying next candidate",
				zap.String("provider", string(id)),
				zap.String("operation", string(op)),
				zap.Error(err))
			m.metrics.RecordAIFallback(string(id), string(op))
			continue
		}
		return nil
	}

	m.metrics.RecordAIExhausted(string(op))
	m.logger.Error("all providers failed", zap.String("operation", string(op)))
	return fmt.Errorf("%w to %s", ErrAllProvidersFailed, op.Description())
}

// Status returns the last known provider status map
func (m *Manager) Status() map[ProviderID]bool {
	return m.prober.Status()
}

// RefreshStatus re-probes every provider
func (m *Manager) RefreshStatus(ctx context.Context) map[ProviderID]bool {
	return m.prober.CheckAll(ctx)
}

// Usage returns usage statistics for every registered provider
func (m *Manager) Usage() map[ProviderID]*ProviderUsage {
	out := make(map[ProviderID]*ProviderUsage, len(m.providers))
	for id, p := range m.providers {
		out[id] = p.Usage()
	}
	return out
}

// ListLocalModels lists the models installed in the local daemon
func (m *Manager) ListLocalModels(ctx context.Context) ([]LocalModel, error) {
	provider, ok := m.providers[ProviderOllama]
	if !ok {
		return nil, fmt.Errorf("%w: %s not registered", ErrNoProviderAvailable, ProviderOllama)
	}
	lister, ok := provider.(ModelLister)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot list models", ErrNoProviderAvailable, ProviderOllama)
	}
	return lister.ListModels(ctx)
}
