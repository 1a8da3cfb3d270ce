package service

import (
	"context"

	"github.com/pageza/datemeal/backend/internal/models"
	"github.com/pageza/datemeal/backend/internal/types"
)

// IRecommendationService defines the recommendation pipeline operations
type IRecommendationService interface {
	Recommend(ctx context.Context, prefs types.PreferenceSet, conversationContext string, limit int) types.RecommendationResult
	Refine(ctx context.Context, previous []types.GroundedRestaurant, feedback, conversationContext string) types.RecommendationResult
}

// IConversationService defines the chat operations
type IConversationService interface {
	Respond(ctx context.Context, req types.ConversationRequest) types.ConversationResponse
}

// IHistoryService defines the recommendation history operations
type IHistoryService interface {
	Record(ctx context.Context, rec RunRecord) (*models.RecommendationRun, error)
	ListRuns(ctx context.Context, limit int) ([]*models.RecommendationRun, error)
}

var (
	_ IRecommendationService = (*RecommendationService)(nil)
	_ IConversationService   = (*ConversationAgent)(nil)
	_ IHistoryService        = (*HistoryService)(nil)
	_ Completer              = (*ChatClient)(nil)
	_ WebSearcher            = (*SearchClient)(nil)
	_ ImageSearcher          = (*SearchClient)(nil)
	_ SnapshotStore          = (*MemorySnapshotStore)(nil)
	_ SnapshotStore          = (*RedisSnapshotStore)(nil)
	_ ImageMirror            = (*S3ImageMirror)(nil)
)
