package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/internal/types"
)

const (
	webResultCount = 3
	defaultCuisine = "Restaurant"
	defaultPrice   = "$$"
	// DefaultRating is used whenever no rating could be found
	DefaultRating = 4.2
)

// WebGrounder enriches candidates with the top web search result
type WebGrounder struct {
	search WebSearcher
	logger *zap.Logger
}

// NewWebGrounder creates a new WebGrounder
func NewWebGrounder(search WebSearcher, logger *zap.Logger) *WebGrounder {
	return &WebGrounder{
		search: search,
		logger: logger.Named("web"),
	}
}

// WebQuery builds the search query for a candidate
func WebQuery(c types.CandidateStub, city string) string {
	loc := c.Neighborhood
	if loc == "" {
		loc = city
	}
	return strings.TrimSpace(fmt.Sprintf("%s restaurant %s %s", c.Name, loc, c.Cuisine))
}

// Ground fills the empty fields of r from the top web result. Fields that are
// already set are never overwritten. On error r is left untouched.
func (w *WebGrounder) Ground(ctx context.Context, r *types.GroundedRestaurant, city string) error {
	query := WebQuery(r.CandidateStub, city)
	results, err := w.search.SearchWeb(ctx, query, webResultCount)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: %q", ErrNoResults, query)
	}

	top := results[0]
	if r.Name == "" {
		r.Name = CleanRestaurantName(top.Title)
	}
	if r.Description == "" {
		r.Description = top.Snippet
	}
	if r.Neighborhood == "" {
		r.Neighborhood = ExtractLocation(top.Snippet)
		if r.Neighborhood == "" {
			r.Neighborhood = city
		}
	}
	if r.Cuisine == "" {
		r.Cuisine = ExtractCuisine(top.Snippet)
		if r.Cuisine == "" {
			r.Cuisine = defaultCuisine
		}
	}
	if r.PriceTier == "" {
		r.PriceTier = ExtractPriceTier(top.Snippet)
		if r.PriceTier == "" {
			r.PriceTier = defaultPrice
		}
	}
	if r.Rating == 0 {
		r.Rating = ExtractRating(top.Snippet)
	}
	if r.SourceURL == "" {
		r.SourceURL = top.URL
	}

	w.logger.Debug("grounded candidate",
		zap.String("candidate", r.Name),
		zap.String("source", top.URL))
	return nil
}

// Finalize applies the defaults every returned restaurant must satisfy:
// a rating in [1, 5], 1-3 reasons to love it and a non-empty highlight list.
func Finalize(r *types.GroundedRestaurant, prefs types.PreferenceSet) {
	switch {
	case r.Rating == 0:
		r.Rating = DefaultRating
	case r.Rating < 1:
		r.Rating = 1
	case r.Rating > 5:
		r.Rating = 5
	}

	if len(r.WhyYoullLoveIt) == 0 {
		if len(r.Highlights) > 0 {
			n := len(r.Highlights)
			if n > 3 {
				n = 3
			}
			r.WhyYoullLoveIt = append([]string(nil), r.Highlights[:n]...)
		} else {
			r.WhyYoullLoveIt = generateReasons(*r)
		}
	}

	if len(r.Highlights) == 0 {
		r.Highlights = generateHighlights(*r, prefs)
	}
}

func generateReasons(r types.GroundedRestaurant) []string {
	var reasons []string
	if r.Rating > 0 {
		reasons = append(reasons, fmt.Sprintf("Highly rated with %.1f stars", r.Rating))
	}
	if r.Neighborhood != "" {
		reasons = append(reasons, "Perfect location in "+r.Neighborhood)
	}
	if r.Cuisine != "" {
		reasons = append(reasons, fmt.Sprintf("Authentic %s cuisine", r.Cuisine))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "Popular dining destination with excellent ambiance")
	}
	return reasons
}

func generateHighlights(r types.GroundedRestaurant, prefs types.PreferenceSet) []string {
	var highlights []string
	for _, v := range []string{r.Cuisine, r.Neighborhood, r.PriceTier} {
		if v != "" {
			highlights = append(highlights, v)
		}
	}

	vibes := lowerAll(append([]string{prefs.Mood, prefs.VenueType}, prefs.Extra...))
	switch {
	case containsFold(vibes, "romantic"):
		highlights = append(highlights, "Romantic")
	case containsFold(vibes, "cozy"):
		highlights = append(highlights, "Cozy")
	case containsFold(vibes, "bar or lounge"):
		highlights = append(highlights, "Bar")
	}

	if len(highlights) == 0 {
		highlights = []string{defaultCuisine}
	}
	return highlights
}
