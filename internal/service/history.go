package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/datemeal/backend/internal/models"
	"github.com/pageza/datemeal/backend/internal/types"
)

const (
	// DefaultHistoryLimit is the page size of ListRuns when none is given
	DefaultHistoryLimit = 20
	// MaxHistoryLimit caps the page size of ListRuns
	MaxHistoryLimit = 100
)

// RunRecord describes a finished pipeline call to be stored
type RunRecord struct {
	Kind        string
	Preferences []string
	Feedback    string
	Result      types.RecommendationResult
	ClientIP    string
}

// HistoryService stores and lists served recommendation runs
type HistoryService struct {
	db *gorm.DB
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Record persists one run
func (s *HistoryService) Record(ctx context.Context, rec RunRecord) (*models.RecommendationRun, error) {
	run := &models.RecommendationRun{
		Kind:            rec.Kind,
		Preferences:     models.JSONBStringArray(rec.Preferences),
		Feedback:        rec.Feedback,
		RestaurantNames: models.JSONBStringArray(rec.Result.Names()),
		Recommendations: models.JSONBRestaurants(rec.Result.Recommendations),
		Reasoning:       rec.Result.Reasoning,
		Status:          rec.Result.Status,
		ClientIP:        rec.ClientIP,
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// ListRuns returns the newest runs first
func (s *HistoryService) ListRuns(ctx context.Context, limit int) ([]*models.RecommendationRun, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	var runs []*models.RecommendationRun
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
