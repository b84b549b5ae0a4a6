package ai

import (
	"errors"
	"fmt"
	"time"
)

// ProviderID identifies one of the text-generation backends
type ProviderID string

const (
	ProviderGoogle      ProviderID = "google"
	ProviderHuggingFace ProviderID = "huggingface"
	ProviderOllama      ProviderID = "ollama"
	ProviderOpenAI      ProviderID = "openai"
)

// AllProviders returns the closed set of providers in status-map order
func AllProviders() []ProviderID {
	return []ProviderID{ProviderGoogle, ProviderHuggingFace, ProviderOllama, ProviderOpenAI}
}

// ParseProviderID validates a provider name
func ParseProviderID(s string) (ProviderID, error) {
	for _, id := range AllProviders() {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// DisplayName returns the human-readable provider name
func (p ProviderID) DisplayName() string {
	switch p {
	case ProviderGoogle:
		return "Google Gemini"
	case ProviderHuggingFace:
		return "Hugging Face"
	case ProviderOllama:
		return "Ollama (local)"
	case ProviderOpenAI:
		return "OpenAI"
	default:
		return string(p)
	}
}

var (
	// ErrAllProvidersFailed is wrapped by the manager when every candidate failed or was skipped
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrNoProviderAvailable is returned when no provider is marked available
	ErrNoProviderAvailable = errors.New("no AI provider available")
	// ErrUnknownProvider is returned for provider names outside the closed set
	ErrUnknownProvider = errors.New("unknown AI provider")
	// ErrParse marks provider output that could not be turned into a result
	ErrParse = errors.New("unparseable provider response")
)

// Operation names one of the generation calls routed by the manager
type Operation string

const (
	OpStudyPlan   Operation = "study_plan"
	OpQuestions   Operation = "questions"
	OpExplanation Operation = "explanation"
	OpFeedback    Operation = "feedback"
)

// Description is the verb phrase used in error messages
func (o Operation) Description() string {
	switch o {
	case OpStudyPlan:
		return "generate study plan"
	case OpQuestions:
		return "generate questions"
	case OpExplanation:
		return "generate concept explanation"
	case OpFeedback:
		return "generate personalized feedback"
	default:
		return string(o)
	}
}

// SessionType is the kind of study activity scheduled for a day
type SessionType string

const (
	SessionConcept  SessionType = "concept"
	SessionPractice SessionType = "practice"
	SessionReview   SessionType = "review"
	SessionTest     SessionType = "test"
)

// Difficulty of a question or explanation
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps free text onto a difficulty, defaulting to medium
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s)
	default:
		return DifficultyMedium
	}
}

// StudyPlanRequest describes the student a plan is generated for
type StudyPlanRequest struct {
	StudentID    string   `json:"studentId"`
	Subject      string   `json:"subject"`
	WeakAreas    []string `json:"weakAreas"`
	CurrentLevel string   `json:"currentLevel,omitempty"`
}

// QuestionRequest asks for a batch of multiple-choice questions
type QuestionRequest struct {
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Count      int        `json:"count"`
}

// StudyPlan is a two-week schedule of study sessions
type StudyPlan struct {
	ID            string         `json:"id"`
	StudentID     string         `json:"studentId"`
	Subject       string         `json:"subject"`
	WeakAreas     []string       `json:"weakAreas"`
	StudySchedule []StudySession `json:"studySchedule"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Provider      string         `json:"provider,omitempty"`
}

// StudySession is one day of a study plan
type StudySession struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	Time      string      `json:"time"`
	Topic     string      `json:"topic"`
	Type      SessionType `json:"type"`
	Duration  int         `json:"duration"`
	Completed bool        `json:"completed"`
	Score     *int        `json:"score,omitempty"`
}

// GeneratedQuestion is a four-option multiple-choice question
type GeneratedQuestion struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correctAnswer"`
	Explanation   string     `json:"explanation"`
	Difficulty    Difficulty `json:"difficulty"`
	Topic         string     `json:"topic"`
}

// Valid reports whether the question can be shown to a student
func (q *GeneratedQuestion) Valid() bool {
	if q == nil || q.Question == "" || q.Explanation == "" {
		return false
	}
	if len(q.Options) != 4 {
		return false
	}
	for _, opt := range q.Options {
		if opt == "" {
			return false
		}
	}
	return q.CorrectAnswer >= 0 && q.CorrectAnswer <= 3
}

// ConceptExplanation is a structured explanation of one topic
type ConceptExplanation struct {
	ID            string     `json:"id"`
	Topic         string     `json:"topic"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Examples      []string   `json:"examples"`
	KeyPoints     []string   `json:"keyPoints"`
	RelatedTopics []string   `json:"relatedTopics"`
	Difficulty    Difficulty `json:"difficulty"`
}

// ProgressSummary is the input to personalized feedback
type ProgressSummary struct {
	StudentID         string   `json:"studentId"`
	StudentName       string   `json:"studentName"`
	Subject           string   `json:"subject"`
	AverageScore      float64  `json:"averageScore"`
	CompletedSessions int      `json:"completedSessions"`
	TotalSessions     int      `json:"totalSessions"`
	Strengths         []string `json:"strengths"`
	WeakAreas         []string `json:"weakAreas"`
	RecentScores      []int    `json:"recentScores"`
}

// Trend of a student's recent results
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// ProgressAnalysis is the output of the local progress analytics
type ProgressAnalysis struct {
	StudentID       string    `json:"studentId"`
	Subject         string    `json:"subject"`
	OverallScore    int       `json:"overallScore"`
	Trend           Trend     `json:"trend"`
	Strengths       []string  `json:"strengths"`
	WeakAreas       []string  `json:"weakAreas"`
	Recommendations []string  `json:"recommendations"`
	AnalyzedAt      time.Time `json:"analyzedAt"`
	Provider        string    `json:"provider"`
}

// GenerateOptions are the sampling parameters passed to a provider.
// They are rebuilt from settings on every call.
type GenerateOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	TopP        float64 `json:"topP"`
}

// DefaultTopP is the nucleus sampling value used for every provider call
const DefaultTopP = 0.9

// ProviderUsage tracks usage statistics for a provider
type ProviderUsage struct {
	Provider       ProviderID `json:"provider"`
	RequestCount   int64      `json:"request_count"`
	ErrorCount     int64      `json:"error_count"`
	ParseFallbacks int64      `json:"parse_fallbacks"`
	AvgLatency     float64    `json:"avg_latency"`
	LastUsed       time.Time  `json:"last_used"`
}

// LocalModel is a model installed in the local Ollama daemon
type LocalModel struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modifiedAt,omitempty"`
}
