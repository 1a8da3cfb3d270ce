package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether an optional dependency is reachable
type HealthChecker func(ctx context.Context) error

// HealthHandler serves the liveness endpoints
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a new HealthHandler. checks may be empty.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthCheck returns the health status of the API. A failing optional
// dependency degrades the status but never the HTTP code, since the
// pipeline keeps serving without it.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"message":      "DateMeal API is running",
		"dependencies": deps,
	})
}

// RegisterRoutes registers all API routes. The pipeline routes are served
// both at the root and under /api/restaurant. limiter may be nil.
func RegisterRoutes(router *gin.Engine, recommendations *RecommendationHandler, health *HealthHandler, limiter gin.HandlerFunc) {
	router.GET("/health", health.HealthCheck)
	router.GET("/api/health", health.HealthCheck)

	for _, group := range []*gin.RouterGroup{router.Group(""), router.Group("/api/restaurant")} {
		if limiter != nil {
			group.Use(limiter)
		}
		recommendations.RegisterRoutes(group)
	}
}
