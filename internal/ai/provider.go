package ai

import "context"

// Provider is implemented by every text-generation backend.
//
// Adapters return errors only for transport failures (connection refused,
// timeout, non-2xx, error envelope). Output that cannot be parsed is replaced
// with a local fallback value of the same shape.
type Provider interface {
	// ID returns the provider identifier
	ID() ProviderID

	// Available reports whether the provider can be called right now
	Available(ctx context.Context) bool

	GenerateStudyPlan(ctx context.Context, req StudyPlanRequest, opts GenerateOptions) (*StudyPlan, error)
	GenerateQuestions(ctx context.Context, req QuestionRequest, opts GenerateOptions) ([]GeneratedQuestion, error)
	GenerateConceptExplanation(ctx context.Context, topic string, opts GenerateOptions) (*ConceptExplanation, error)
	GeneratePersonalizedFeedback(ctx context.Context, summary ProgressSummary, opts GenerateOptions) (string, error)

	// Usage returns a copy of the usage statistics
	Usage() *ProviderUsage
}

// Volatile is implemented by providers whose availability can change between
// status refreshes. The manager re-probes them right before generation calls.
type Volatile interface {
	Volatile() bool
}

// ModelLister is implemented by providers that can enumerate installed models
type ModelLister interface {
	ListModels(ctx context.Context) ([]LocalModel, error)
}

func isVolatile(p Provider) bool {
	v, ok := p.(Volatile)
	return ok && v.Volatile()
}
