package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studyforge/internal/ai"
	"studyforge/internal/settings"
)

// Request limits
const (
	MaxQuestionCount = 20
	MaxTopicLength   = 200
	MaxWeakAreas     = 20
)

// QuestionsRequest is the body of POST /ai/questions
type QuestionsRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      *int   `json:"count"`
}

// TopicRequest is the body of POST /ai/explanation
type TopicRequest struct {
	Topic string `json:"topic"`
}

// ProgressRequest is the body of POST /ai/progress
type ProgressRequest struct {
	StudentID string `json:"studentId"`
	Subject   string `json:"subject"`
}

// GenerateStudyPlan handles POST /ai/study-plan
func (h *Handler) GenerateStudyPlan(c *gin.Context) {
	var req ai.StudyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", "Invalid request format")
		return
	}

	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.StudentID == "" || req.Subject == "" {
		badRequest(c, "INVALID_REQUEST", "studentId and subject are required")
		return
	}
	if !validText(req.Subject) {
		badRequest(c, "INVALID_SUBJECT", "subject is too long or contains invalid characters")
		return
	}
	if len(req.WeakAreas) > MaxWeakAreas {
		badRequest(c, "TOO_MANY_WEAK_AREAS", "at most 20 weak areas are accepted")
		return
	}
	for _, area := range req.WeakAreas {
		if !validText(area) {
			badRequest(c, "INVALID_WEAK_AREA", "weak areas must be under 200 characters")
			return
		}
	}

	plan, err := h.AI.GenerateStudyPlan(c.Request.Context(), req)
	if err != nil {
		h.aiError(c, ai.OpStudyPlan, err)
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    plan,
	})
}

// GenerateQuestions handles POST /ai/questions
func (h *Handler) GenerateQuestions(c *gin.Context) {
	var req QuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", "Invalid request format")
		return
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" || !validText(topic) {
		badRequest(c, "INVALID_TOPIC", "topic is required and must be under 200 characters")
		return
	}

	count := ai.DefaultQuestionCount
	if req.Count != nil {
		count = *req.Count
	}
	if count < 1 || count > MaxQuestionCount {
		badRequest(c, "INVALID_COUNT", "count must be between 1 and 20")
		return
	}

	difficulty := ai.DifficultyMedium
	if d := strings.ToLower(strings.TrimSpace(req.Difficulty)); d != "" {
		difficulty = ai.ParseDifficulty(d)
		if string(difficulty) != d {
			badRequest(c, "INVALID_DIFFICULTY", "difficulty must be easy, medium or hard")
			return
		}
	}

	questions, err := h.AI.GenerateQuestions(c.Request.Context(), ai.QuestionRequest{
		Topic:      topic,
		Difficulty: difficulty,
		Count:      count,
	})
	if err != nil {
		h.aiError(c, ai.OpQuestions, err)
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    questions,
	})
}

// GenerateExplanation handles POST /ai/explanation
func (h *Handler) GenerateExplanation(c *gin.Context) {
	var req TopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", "Invalid request format")
		return
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" || !validText(topic) {
		badRequest(c, "INVALID_TOPIC", "topic is required and must be under 200 characters")
		return
	}

	explanation, err := h.AI.GenerateConceptExplanation(c.Request.Context(), topic)
	if err != nil {
		h.aiError(c, ai.OpExplanation, err)
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    explanation,
	})
}

// GenerateFeedback handles POST /ai/feedback
func (h *Handler) GenerateFeedback(c *gin.Context) {
	var summary ai.ProgressSummary
	if err := c.ShouldBindJSON(&summary); err != nil {
		badRequest(c, "INVALID_REQUEST", "Invalid request format")
		return
	}

	if summary.AverageScore < 0 || summary.AverageScore > 100 {
		badRequest(c, "INVALID_SCORE", "averageScore must be between 0 and 100")
		return
	}
	if summary.CompletedSessions < 0 || summary.TotalSessions < 0 {
		badRequest(c, "INVALID_SESSIONS", "session counts cannot be negative")
		return
	}

	feedback, err := h.AI.GeneratePersonalizedFeedback(c.Request.Context(), summary)
	if err != nil {
		h.aiError(c, ai.OpFeedback, err)
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    gin.H{"feedback": feedback},
	})
}

// AnalyzeProgress handles POST /ai/progress
func (h *Handler) AnalyzeProgress(c *gin.Context) {
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", "Invalid request format")
		return
	}

	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.StudentID == "" || req.Subject == "" {
		badRequest(c, "INVALID_REQUEST", "studentId and subject are required")
		return
	}

	analysis, err := h.AI.AnalyzeStudentProgress(c.Request.Context(), req.StudentID, req.Subject)
	if err != nil {
		h.aiError(c, "progress", err)
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    analysis,
	})
}

// GetSettings handles GET /ai/settings
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    h.Settings.Get(),
	})
}

// UpdateSettings handles PUT /ai/settings with a partial body
func (h *Handler) UpdateSettings(c *gin.Context) {
	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "INVALID_REQUEST", "Invalid request format")
		return
	}

	if err := patch.Validate(); err != nil {
		badRequest(c, "INVALID_SETTINGS", err.Error())
		return
	}
	if patch.Empty() {
		c.JSON(http.StatusOK, StandardResponse{
			Success: true,
			Data:    h.Settings.Get(),
			Message: "No changes",
		})
		return
	}

	updated, err := h.Settings.Save(c.Request.Context(), patch)
	if err != nil {
		h.Logger.Error("failed to persist AI settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, StandardResponse{
			Success: false,
			Data:    updated,
			Error:   "Settings were applied but could not be saved",
			Code:    "SETTINGS_PERSIST_FAILED",
		})
		return
	}

	h.Logger.Info("AI settings updated",
		zap.String("primary", string(updated.PrimaryProvider)),
		zap.String("fallback", string(updated.FallbackProvider)),
		zap.Bool("multi", updated.UseMultipleProviders))

	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    updated,
		Message: "Settings updated",
	})
}

// GetProviderStatus handles GET /ai/providers/status
func (h *Handler) GetProviderStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    h.AI.Status(),
	})
}

// RefreshProviderStatus handles POST /ai/providers/status/refresh
func (h *Handler) RefreshProviderStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    h.AI.RefreshStatus(c.Request.Context()),
	})
}

// GetProviderOrder handles GET /ai/providers/order
func (h *Handler) GetProviderOrder(c *gin.Context) {
	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    h.AI.ProviderOrder(),
	})
}

// GetAvailableProvider handles GET /ai/providers/available
func (h *Handler) GetAvailableProvider(c *gin.Context) {
	id, err := h.AI.AvailableProvider()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, StandardResponse{
			Success: false,
			Error:   "No AI provider is currently available",
			Code:    "NO_PROVIDER_AVAILABLE",
		})
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data: gin.H{
			"provider":    id,
			"displayName": id.DisplayName(),
		},
	})
}

// ListLocalModels handles GET /ai/models
func (h *Handler) ListLocalModels(c *gin.Context) {
	models, err := h.AI.ListLocalModels(c.Request.Context())
	if err != nil {
		h.Logger.Warn("failed to list local models", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, StandardResponse{
			Success: false,
			Error:   "Local model server is not reachable",
			Code:    "LOCAL_MODELS_UNAVAILABLE",
		})
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data: gin.H{
			"models":   models,
			"selected": h.Settings.Get().SelectedLocalModel,
		},
	})
}

// GetUsage handles GET /ai/usage
func (h *Handler) GetUsage(c *gin.Context) {
	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    h.AI.Usage(),
	})
}

// aiError maps router errors onto HTTP responses
func (h *Handler) aiError(c *gin.Context, op ai.Operation, err error) {
	switch {
	case errors.Is(err, ai.ErrAllProvidersFailed):
		c.JSON(http.StatusServiceUnavailable, StandardResponse{
			Success: false,
			Error:   "AI service is temporarily unavailable. Please try again later.",
			Code:    "AI_UNAVAILABLE",
		})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, StandardResponse{
			Success: false,
			Error:   "Request timeout",
			Code:    "REQUEST_TIMEOUT",
		})
	case errors.Is(err, context.Canceled):
		// Client went away
		c.Status(499)
	default:
		h.Logger.Error("AI request failed", zap.String("operation", string(op)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, StandardResponse{
			Success: false,
			Error:   "AI request failed",
			Code:    "AI_ERROR",
		})
	}
}

func validText(s string) bool {
	return utf8.ValidString(s) && utf8.RuneCountInString(s) <= MaxTopicLength
}
