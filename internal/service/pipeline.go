package service

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/config"
)

// Pipeline bundles the services built from one configuration
type Pipeline struct {
	Recommendations *RecommendationService
	Conversation    *ConversationAgent
}

// PipelineOptions carries the optional infrastructure for NewPipeline
type PipelineOptions struct {
	// Redis, when set, backs the shared snapshot store
	Redis *redis.Client
	// S3, when set, enables image mirroring
	S3 *config.S3Config
}

// NewPipeline wires the production clients. Missing provider credentials
// are not an error: the clients then fail fast and the pipeline runs on
// its offline fallbacks.
func NewPipeline(cfg *config.Config, opts PipelineOptions, logger *zap.Logger) (*Pipeline, error) {
	templates, err := LoadFallbackTemplates()
	if err != nil {
		return nil, err
	}

	chat := NewChatClient(cfg, logger)
	search := NewSearchClient(cfg, logger)

	var snapshots SnapshotStore = NewMemorySnapshotStore()
	if opts.Redis != nil {
		snapshots = NewRedisSnapshotStore(opts.Redis, cfg.SnapshotTTL, logger)
	}

	var mirror ImageMirror
	if opts.S3 != nil {
		mirror = NewS3ImageMirror(opts.S3, logger)
	}

	if missing := cfg.MissingProviders(); len(missing) > 0 {
		logger.Warn("providers not configured", zap.Strings("missing", missing))
	}
	if !cfg.ModelConfigured() {
		logger.Warn("language model not configured, recommendations come from offline templates")
	}
	if !cfg.SearchConfigured() {
		logger.Warn("search not configured, restaurants get placeholder images")
	}

	recommendations := NewRecommendationService(RecommendationDeps{
		Generator:   NewCandidateGenerator(chat, snapshots, cfg.DefaultCity, logger),
		Web:         NewWebGrounder(search, logger),
		Image:       NewImageGrounder(search, mirror, logger),
		Reasoning:   NewReasoningGenerator(chat, logger),
		Snapshots:   snapshots,
		Templates:   templates,
		DefaultCity: cfg.DefaultCity,
		Concurrency: cfg.GroundingConcurrency,
	}, logger)

	return &Pipeline{
		Recommendations: recommendations,
		Conversation:    NewConversationAgent(chat, recommendations, cfg.DefaultCity, logger),
	}, nil
}
