// Package handlers exposes the AI manager and settings store over HTTP.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studyforge/internal/ai"
	"studyforge/internal/logging"
	"studyforge/internal/settings"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler contains all the dependencies for API handlers
type Handler struct {
	AI       *ai.Manager
	Settings *settings.Store
	Logger   *zap.Logger

	startTime time.Time
}

// NewHandler creates a new handler instance
func NewHandler(manager *ai.Manager, store *settings.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = logging.Named("handlers")
	}
	return &Handler{
		AI:        manager,
		Settings:  store,
		Logger:    logger,
		startTime: time.Now(),
	}
}

// StandardResponse represents a standard API response
type StandardResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// RegisterRoutes mounts the AI API under the given group
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/ai")
	{
		group.POST("/study-plan", h.GenerateStudyPlan)
		group.POST("/questions", h.GenerateQuestions)
		group.POST("/explanation", h.GenerateExplanation)
		group.POST("/feedback", h.GenerateFeedback)
		group.POST("/progress", h.AnalyzeProgress)

		group.GET("/settings", h.GetSettings)
		group.PUT("/settings", h.UpdateSettings)

		group.GET("/providers/status", h.GetProviderStatus)
		group.POST("/providers/status/refresh", h.RefreshProviderStatus)
		group.GET("/providers/order", h.GetProviderOrder)
		group.GET("/providers/available", h.GetAvailableProvider)

		group.GET("/models", h.ListLocalModels)
		group.GET("/usage", h.GetUsage)
	}
}

// Health returns quickly for load balancer health checks
func (h *Handler) Health(c *gin.Context) {
	status := h.AI.Status()
	available := 0
	for _, ok := range status {
		if ok {
			available++
		}
	}

	state := "healthy"
	if available == 0 {
		state = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              state,
		"ai_providers":        status,
		"available_providers": available,
		"total_providers":     len(status),
		"uptime":              time.Since(h.startTime).Round(time.Second).String(),
		"version":             Version,
	})
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, StandardResponse{
		Success: false,
		Error:   msg,
		Code:    code,
	})
}
