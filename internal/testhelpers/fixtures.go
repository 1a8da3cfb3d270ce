package testhelpers

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/pageza/datemeal/backend/internal/models"
	"github.com/pageza/datemeal/backend/internal/types"
)

// TestRestaurant returns a fully grounded restaurant
func TestRestaurant(name, priceTier string) types.GroundedRestaurant {
	return types.GroundedRestaurant{
		CandidateStub: types.CandidateStub{
			Name:         name,
			Cuisine:      "Italian",
			PriceTier:    priceTier,
			Neighborhood: "SoHo",
			Description:  "A test restaurant",
			Highlights:   []string{"Pasta"},
		},
		ImageURL:       "https://images.example.com/" + name + ".jpg",
		Rating:         4.5,
		WhyYoullLoveIt: []string{"Pasta"},
	}
}

// CreateTestRun inserts a run with an explicit creation time
func CreateTestRun(t *testing.T, db *gorm.DB, kind string, createdAt time.Time, names ...string) *models.RecommendationRun {
	t.Helper()
	recs := make(models.JSONBRestaurants, 0, len(names))
	for _, n := range names {
		recs = append(recs, TestRestaurant(n, "$$"))
	}
	run := &models.RecommendationRun{
		CreatedAt:       createdAt,
		Kind:            kind,
		Preferences:     models.JSONBStringArray{"Italian"},
		RestaurantNames: models.JSONBStringArray(names),
		Recommendations: recs,
		Reasoning:       "test run",
		Status:          types.StatusOK,
	}
	if err := db.Create(run).Error; err != nil {
		t.Fatalf("failed to create test run: %v", err)
	}
	return run
}
