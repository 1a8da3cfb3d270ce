package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/internal/models"
	"github.com/pageza/datemeal/backend/internal/service"
	"github.com/pageza/datemeal/backend/internal/types"
)

// RecommendationHandler serves the pipeline endpoints
type RecommendationHandler struct {
	recommendations service.IRecommendationService
	conversation    service.IConversationService
	history         service.IHistoryService
	logger          *zap.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler. history may
// be nil, in which case runs are not recorded and /history is not served.
func NewRecommendationHandler(
	recommendations service.IRecommendationService,
	conversation service.IConversationService,
	history service.IHistoryService,
	logger *zap.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommendations: recommendations,
		conversation:    conversation,
		history:         history,
		logger:          logger.Named("api"),
	}
}

func (h *RecommendationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/recommendations", h.Recommend)
	router.POST("/refine", h.Refine)
	router.POST("/conversation", h.Converse)
	if h.history != nil {
		router.GET("/history", h.ListHistory)
	}
}

func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req types.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.recommendations.Recommend(c.Request.Context(), req.Preferences, req.ConversationHistory, req.Limit)
	h.record(c, service.RunRecord{
		Kind:        models.RunKindRecommend,
		Preferences: req.Preferences.Tags(),
		Result:      result,
	})

	c.JSON(http.StatusOK, result)
}

func (h *RecommendationHandler) Refine(c *gin.Context) {
	var req types.RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.recommendations.Refine(c.Request.Context(), req.PreviousRecommendations, req.UserMessage, req.ConversationHistory)
	h.record(c, service.RunRecord{
		Kind:     models.RunKindRefine,
		Feedback: req.UserMessage,
		Result:   result,
	})

	c.JSON(http.StatusOK, result)
}

func (h *RecommendationHandler) Converse(c *gin.Context) {
	var req types.ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := h.conversation.Respond(c.Request.Context(), req)

	status := types.StatusOK
	if len(resp.UpdatedRecommendations) == 0 {
		status = types.StatusEmpty
	}
	h.record(c, service.RunRecord{
		Kind:     models.RunKindConversation,
		Feedback: req.UserMessage,
		Result: types.RecommendationResult{
			Recommendations: resp.UpdatedRecommendations,
			Reasoning:       resp.Response,
			Status:          status,
		},
	})

	c.JSON(http.StatusOK, resp)
}

func (h *RecommendationHandler) ListHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	runs, err := h.history.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// record stores a finished run. Failures are logged and never reach the client.
func (h *RecommendationHandler) record(c *gin.Context, rec service.RunRecord) {
	if h.history == nil {
		return
	}
	rec.ClientIP = c.ClientIP()
	if _, err := h.history.Record(context.WithoutCancel(c.Request.Context()), rec); err != nil {
		h.logger.Warn("failed to record run", zap.String("kind", rec.Kind), zap.Error(err))
	}
}
