package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/datemeal/backend/internal/models"
	"github.com/pageza/datemeal/backend/internal/service"
	"github.com/pageza/datemeal/backend/internal/types"
)

// MockRecommendationService is a mock implementation of the recommendation service
type MockRecommendationService struct {
	mock.Mock
}

// Recommend mocks the Recommend method
func (m *MockRecommendationService) Recommend(ctx context.Context, prefs types.PreferenceSet, conversationContext string, limit int) types.RecommendationResult {
	args := m.Called(ctx, prefs, conversationContext, limit)
	return args.Get(0).(types.RecommendationResult)
}

// Refine mocks the Refine method
func (m *MockRecommendationService) Refine(ctx context.Context, previous []types.GroundedRestaurant, feedback, conversationContext string) types.RecommendationResult {
	args := m.Called(ctx, previous, feedback, conversationContext)
	return args.Get(0).(types.RecommendationResult)
}

// MockConversationService is a mock implementation of the conversation agent
type MockConversationService struct {
	mock.Mock
}

// Respond mocks the Respond method
func (m *MockConversationService) Respond(ctx context.Context, req types.ConversationRequest) types.ConversationResponse {
	args := m.Called(ctx, req)
	return args.Get(0).(types.ConversationResponse)
}

// MockHistoryService is a mock implementation of the history service
type MockHistoryService struct {
	mock.Mock
}

// Record mocks the Record method
func (m *MockHistoryService) Record(ctx context.Context, rec service.RunRecord) (*models.RecommendationRun, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationRun), args.Error(1)
}

// ListRuns mocks the ListRuns method
func (m *MockHistoryService) ListRuns(ctx context.Context, limit int) ([]*models.RecommendationRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RecommendationRun), args.Error(1)
}

var (
	_ service.IRecommendationService = (*MockRecommendationService)(nil)
	_ service.IConversationService   = (*MockConversationService)(nil)
	_ service.IHistoryService        = (*MockHistoryService)(nil)
)
