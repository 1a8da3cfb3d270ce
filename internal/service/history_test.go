package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/datemeal/backend/internal/models"
	"github.com/pageza/datemeal/backend/internal/testhelpers"
	"github.com/pageza/datemeal/backend/internal/types"
)

func TestHistoryService(t *testing.T) {
	ctx := context.Background()

	t.Run("should record a run", func(t *testing.T) {
		svc := NewHistoryService(testhelpers.SetupSQLiteDB(t))

		run, err := svc.Record(ctx, RunRecord{
			Kind:        models.RunKindRecommend,
			Preferences: []string{"Italian", "$$"},
			Result: types.RecommendationResult{
				Recommendations: []types.GroundedRestaurant{testhelpers.TestRestaurant("Carbone", "$$$")},
				Reasoning:       "Great pasta.",
				Status:          types.StatusOK,
			},
			ClientIP: "10.0.0.1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)

		runs, err := svc.ListRuns(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		got := runs[0]
		assert.Equal(t, models.RunKindRecommend, got.Kind)
		assert.Equal(t, models.JSONBStringArray{"Italian", "$$"}, got.Preferences)
		assert.Equal(t, models.JSONBStringArray{"Carbone"}, got.RestaurantNames)
		require.Len(t, got.Recommendations, 1)
		assert.Equal(t, "$$$", got.Recommendations[0].PriceTier)
		assert.Equal(t, types.StatusOK, got.Status)
		assert.Equal(t, "10.0.0.1", got.ClientIP)
	})

	t.Run("should list newest first and respect the limit", func(t *testing.T) {
		db := testhelpers.SetupSQLiteDB(t)
		svc := NewHistoryService(db)
		base := time.Now().Add(-time.Hour)
		for i, name := range []string{"oldest", "middle", "newest"} {
			testhelpers.CreateTestRun(t, db, models.RunKindRefine, base.Add(time.Duration(i)*time.Minute), name)
		}

		runs, err := svc.ListRuns(ctx, 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, models.JSONBStringArray{"newest"}, runs[0].RestaurantNames)
		assert.Equal(t, models.JSONBStringArray{"middle"}, runs[1].RestaurantNames)

		runs, err = svc.ListRuns(ctx, MaxHistoryLimit+50)
		require.NoError(t, err)
		assert.Len(t, runs, 3)
	})
}
