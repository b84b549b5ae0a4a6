package ai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"studyforge/internal/logging"
	"studyforge/internal/metrics"
)

// DefaultProviderTimeout bounds a single cloud provider call
const DefaultProviderTimeout = 60 * time.Second

// ClientOption configures a provider client
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL      string
	model        string
	httpClient   *http.Client
	timeout      time.Duration
	probeTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// WithBaseURL overrides the provider endpoint
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel overrides the default model
func WithModel(model string) ClientOption {
	return func(c *clientConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProbeTimeout sets the availability probe timeout (Ollama only)
func WithProbeTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock injects the clock used for plan dates
func WithClock(now func() time.Time) ClientOption {
	return func(c *clientConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func newClientConfig(baseURL, model string, opts []ClientOption) clientConfig {
	cfg := clientConfig{
		baseURL:      baseURL,
		model:        model,
		timeout:      DefaultProviderTimeout,
		probeTimeout: DefaultProbeTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.L()
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: cfg.timeout}
	}
	return cfg
}

// completeFunc sends one prompt to the backend and returns the raw text
type completeFunc func(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

// adapter implements the generation operations on top of a provider's
// completeFunc. Transport errors are returned; parse failures fall back.
type adapter struct {
	id            ProviderID
	format        responseFormat
	complete      completeFunc
	localFeedback bool
	now           func() time.Time
	logger        *zap.Logger
	metrics       *metrics.Metrics
	usage         *usageTracker
}

func newAdapter(id ProviderID, format responseFormat, cfg clientConfig) adapter {
	return adapter{
		id:      id,
		format:  format,
		now:     cfg.now,
		logger:  cfg.logger.Named(string(id)),
		metrics: metrics.Get(),
		usage:   &usageTracker{},
	}
}

// ID returns the provider identifier
func (a *adapter) ID() ProviderID {
	return a.id
}

// Usage returns current usage statistics
func (a *adapter) Usage() *ProviderUsage {
	return a.usage.snapshot(a.id)
}

func (a *adapter) call(ctx context.Context, op Operation, prompt string, opts GenerateOptions) (string, error) {
	done := a.metrics.AIRequestStarted(string(a.id))
	defer done()

	start := time.Now()
	text, err := a.complete(ctx, prompt, opts)
	duration := time.Since(start)
	if err != nil {
		a.usage.recordError()
		a.metrics.RecordAIRequest(string(a.id), string(op), "error", duration)
		return "", err
	}

	a.usage.recordSuccess(duration)
	a.metrics.RecordAIRequest(string(a.id), string(op), "success", duration)
	return text, nil
}

func (a *adapter) parseFallback(op Operation, err error) {
	a.usage.recordParseFallback()
	a.metrics.RecordAIParseFallback(string(a.id), string(op))
	a.logger.Debug("provider output replaced by fallback",
		zap.String("operation", string(op)),
		zap.Error(err))
}

// GenerateStudyPlan asks the provider for focus topics and lays out a 14-day plan
func (a *adapter) GenerateStudyPlan(ctx context.Context, req StudyPlanRequest, opts GenerateOptions) (*StudyPlan, error) {
	text, err := a.call(ctx, OpStudyPlan, buildStudyPlanPrompt(req, a.format), opts)
	if err != nil {
		return nil, err
	}

	var topics []string
	if a.format == formatJSON {
		topics, err = parseJSONPlanTopics(text)
	} else {
		topics, err = parseTaggedPlanTopics(text)
	}
	if err != nil {
		a.parseFallback(OpStudyPlan, err)
		return FallbackStudyPlan(req, a.now(), string(a.id)), nil
	}
	return planFromTopics(req, topics, a.now(), string(a.id)), nil
}

// GenerateQuestions returns exactly req.Count questions, stubbing invalid ones
func (a *adapter) GenerateQuestions(ctx context.Context, req QuestionRequest, opts GenerateOptions) ([]GeneratedQuestion, error) {
	req = normalizeQuestionRequest(req)
	text, err := a.call(ctx, OpQuestions, buildQuestionsPrompt(req, a.format), opts)
	if err != nil {
		return nil, err
	}

	var candidates []GeneratedQuestion
	if a.format == formatJSON {
		candidates, err = parseJSONQuestions(text)
		if err != nil {
			a.parseFallback(OpQuestions, err)
			return FallbackQuestions(req), nil
		}
	} else {
		candidates = parseTaggedQuestions(text)
	}

	questions, stubs := completeQuestions(candidates, req)
	if stubs > 0 {
		a.usage.recordParseFallback()
		a.metrics.RecordAIParseFallback(string(a.id), string(OpQuestions))
		a.logger.Debug("questions replaced by stubs",
			zap.Int("stubs", stubs),
			zap.Int("requested", req.Count))
	}
	return questions, nil
}

// GenerateConceptExplanation explains one topic
func (a *adapter) GenerateConceptExplanation(ctx context.Context, topic string, opts GenerateOptions) (*ConceptExplanation, error) {
	text, err := a.call(ctx, OpExplanation, buildExplanationPrompt(topic, a.format), opts)
	if err != nil {
		return nil, err
	}

	var explanation *ConceptExplanation
	if a.format == formatJSON {
		explanation, err = parseJSONExplanation(text, topic)
	} else {
		explanation, err = parseTaggedExplanation(text, topic)
	}
	if err != nil {
		a.parseFallback(OpExplanation, err)
		return FallbackExplanation(topic), nil
	}
	return explanation, nil
}

// GeneratePersonalizedFeedback writes feedback for a student's progress
func (a *adapter) GeneratePersonalizedFeedback(ctx context.Context, summary ProgressSummary, opts GenerateOptions) (string, error) {
	if a.localFeedback {
		return FallbackFeedback(summary), nil
	}

	text, err := a.call(ctx, OpFeedback, buildFeedbackPrompt(summary, a.format), opts)
	if err != nil {
		return "", err
	}
	feedback, err := parseFeedback(text)
	if err != nil {
		a.parseFallback(OpFeedback, err)
		return FallbackFeedback(summary), nil
	}
	return feedback, nil
}

// readErrorBody trims a provider error body for inclusion in an error message
func readErrorBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
