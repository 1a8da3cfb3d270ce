package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/config"
	"github.com/pageza/datemeal/backend/internal/api"
	"github.com/pageza/datemeal/backend/internal/middleware"
	"github.com/pageza/datemeal/backend/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Dependencies are the services the HTTP server exposes. History and Redis
// are optional.
type Dependencies struct {
	Recommendations service.IRecommendationService
	Conversation    service.IConversationService
	History         service.IHistoryService
	Redis           *redis.Client
	HealthChecks    map[string]api.HealthChecker
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// New creates a new server instance
func New(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Server {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.RequestLogger(logger), middleware.CORS(cfg.CORSAllowedOrigins))

	var limiter gin.HandlerFunc
	if deps.Redis != nil {
		limiter = middleware.NewRateLimiter(deps.Redis, middleware.RateLimitConfig{
			Window: cfg.RateLimitWindow,
			Limit:  cfg.RateLimitMaxRequests,
		}, logger).Middleware()
	} else {
		logger.Warn("redis not configured, rate limiting disabled")
	}

	handler := api.NewRecommendationHandler(deps.Recommendations, deps.Conversation, deps.History, logger)
	api.RegisterRoutes(router, handler, api.NewHealthHandler(deps.HealthChecks), limiter)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.ServerHost, cfg.ServerPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
