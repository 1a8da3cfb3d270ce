package service

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pageza/datemeal/backend/internal/types"
)

//go:embed templates/fallback.yaml
var fallbackYAML []byte

type restaurantTemplate struct {
	Name         string   `yaml:"name"`
	Cuisine      string   `yaml:"cuisine"`
	Moods        []string `yaml:"moods"`
	Neighborhood string   `yaml:"neighborhood"`
	PriceTier    string   `yaml:"priceTier"`
	Description  string   `yaml:"description"`
	Highlights   []string `yaml:"highlights"`
	Rating       float64  `yaml:"rating"`
	ImageURL     string   `yaml:"imageUrl"`
}

func (t restaurantTemplate) stub() types.CandidateStub {
	return types.CandidateStub{
		Name:         t.Name,
		Cuisine:      t.Cuisine,
		PriceTier:    t.PriceTier,
		Neighborhood: t.Neighborhood,
		Description:  t.Description,
		Highlights:   append([]string(nil), t.Highlights...),
	}
}

// FallbackTemplates holds the offline restaurant catalogue and the fixed
// refinement replacements.
type FallbackTemplates struct {
	Restaurants []restaurantTemplate `yaml:"restaurants"`
	Refinements struct {
		Budget     restaurantTemplate `yaml:"budget"`
		Romantic   restaurantTemplate `yaml:"romantic"`
		Vegetarian restaurantTemplate `yaml:"vegetarian"`
	} `yaml:"refinements"`
}

// LoadFallbackTemplates parses the embedded template file
func LoadFallbackTemplates() (*FallbackTemplates, error) {
	return ParseFallbackTemplates(fallbackYAML)
}

// ParseFallbackTemplates parses a template document
func ParseFallbackTemplates(data []byte) (*FallbackTemplates, error) {
	var t FallbackTemplates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse fallback templates: %w", err)
	}
	if len(t.Restaurants) == 0 {
		return nil, fmt.Errorf("fallback templates contain no restaurants")
	}
	return &t, nil
}

// SynthesizeCandidates picks n template restaurants for prefs. Templates are
// ranked by cuisine match (weighted double) plus mood match, ties keep file
// order. When the caller asked for a cuisine the catalogue lacks, generic
// restaurants for that cuisine are generated first. The result is fully
// deterministic.
func (t *FallbackTemplates) SynthesizeCandidates(prefs types.PreferenceSet, city string, n int) []types.CandidateStub {
	if n <= 0 {
		return nil
	}

	cuisines := lowerAll(append(append([]string(nil), prefs.Cuisines...), prefs.Extra...))
	moods := lowerAll(append([]string{prefs.Mood, prefs.Occasion, prefs.VenueType}, prefs.Extra...))

	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, len(t.Restaurants))
	cuisineHit := false
	for i, r := range t.Restaurants {
		s := 0
		if containsFold(cuisines, r.Cuisine) {
			s += 2
			cuisineHit = true
		}
		for _, m := range r.Moods {
			if containsFold(moods, m) {
				s++
				break
			}
		}
		ranked[i] = scored{idx: i, score: s}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	var out []types.CandidateStub
	if !cuisineHit && len(prefs.Cuisines) > 0 {
		out = append(out, genericCandidates(prefs, city)...)
	}
	for _, r := range ranked {
		out = append(out, t.Restaurants[r.idx].stub())
	}
	if len(out) > n {
		out = out[:n]
	}

	if !isDefaultCity(city) {
		for i := range out {
			out[i].Neighborhood = city
		}
	}
	return out
}

// genericCandidates builds placeholder restaurants named after cuisine, mood and city
func genericCandidates(prefs types.PreferenceSet, city string) []types.CandidateStub {
	cuisine := strings.TrimSpace(prefs.Cuisines[0])
	vibe := strings.TrimSpace(prefs.Mood)
	if vibe == "" {
		vibe = "Cozy"
	}
	price := NormalizePriceTier(prefs.Budget)
	if price == "" {
		price = "$$"
	}
	lowerVibe := strings.ToLower(vibe)

	return []types.CandidateStub{
		{
			Name:         fmt.Sprintf("%s %s Bistro", vibe, cuisine),
			Cuisine:      cuisine,
			PriceTier:    price,
			Neighborhood: city,
			Description:  fmt.Sprintf("A charming %s restaurant with a %s atmosphere in %s.", cuisine, lowerVibe, city),
			Highlights:   []string{cuisine, vibe, "Authentic"},
		},
		{
			Name:         fmt.Sprintf("The %s Experience", cuisine),
			Cuisine:      cuisine,
			PriceTier:    price,
			Neighborhood: city,
			Description:  fmt.Sprintf("Authentic %s cuisine in a %s setting.", cuisine, lowerVibe),
			Highlights:   []string{cuisine, "Local Favorite"},
		},
		{
			Name:         fmt.Sprintf("%s %s House", city, cuisine),
			Cuisine:      cuisine,
			PriceTier:    price,
			Neighborhood: city,
			Description:  fmt.Sprintf("A hidden gem for %s food lovers in %s.", cuisine, city),
			Highlights:   []string{cuisine, "Hidden gem"},
		},
	}
}

func (t restaurantTemplate) grounded(cuisine string) types.GroundedRestaurant {
	stub := t.stub()
	if stub.Cuisine == "" {
		stub.Cuisine = cuisine
	}
	g := types.GroundedRestaurant{
		CandidateStub: stub,
		ImageURL:      t.ImageURL,
		Rating:        t.Rating,
	}
	if g.ImageURL == "" {
		g.ImageURL = PlaceholderImageURL(stub.Cuisine)
	}
	return g
}

func isDefaultCity(city string) bool {
	switch strings.ToLower(strings.TrimSpace(city)) {
	case "", "nyc", "new york", "new york city":
		return true
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsFold(haystack []string, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return false
	}
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
