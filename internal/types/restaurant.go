package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Price tiers accepted on a candidate
var PriceTiers = []string{"$", "$$", "$$$", "$$$$"}

// FlexibleString accepts both string and number JSON values (party size arrives as either)
type FlexibleString struct {
	Value string
}

func (s *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		s.Value = ""
		return nil
	}

	// Try to unmarshal as number first
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		s.Value = fmt.Sprintf("%d", int(num))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Value = str
		return nil
	}

	return fmt.Errorf("invalid value %s", string(data))
}

func (s FlexibleString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value)
}

// PreferenceSet is the free-text description of what the user wants. Every
// field is optional. It is treated as immutable once a pipeline run starts.
type PreferenceSet struct {
	Cuisines            []string       `json:"cuisinePreferences,omitempty"`
	Mood                string         `json:"moodOrVibe,omitempty"`
	Occasion            string         `json:"occasion,omitempty"`
	VenueType           string         `json:"venueType,omitempty"`
	Budget              string         `json:"budgetRange,omitempty"`
	PartySize           FlexibleString `json:"partySize"`
	Location            string         `json:"location,omitempty"`
	DietaryRestrictions []string       `json:"dietaryRestrictions,omitempty"`
	AbsoluteNogos       []string       `json:"absoluteNogos,omitempty"`
	Extra               []string       `json:"tags,omitempty"`
}

// NewPreferenceSet builds a PreferenceSet from loose tags only
func NewPreferenceSet(tags ...string) PreferenceSet {
	return PreferenceSet{Extra: tags}
}

// Tags flattens the preferences into the tag list embedded in prompts.
// Hard exclusions are prefixed with "no ".
func (p PreferenceSet) Tags() []string {
	var tags []string
	add := func(values ...string) {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				tags = append(tags, v)
			}
		}
	}

	add(p.Cuisines...)
	add(p.Mood, p.Occasion, p.VenueType, p.Budget)
	if p.PartySize.Value != "" {
		add("party of " + p.PartySize.Value)
	}
	add(p.Location)
	add(p.DietaryRestrictions...)
	for _, nogo := range p.AbsoluteNogos {
		if nogo = strings.TrimSpace(nogo); nogo != "" {
			add("no " + nogo)
		}
	}
	add(p.Extra...)
	return tags
}

// IsEmpty reports whether no preference was given at all
func (p PreferenceSet) IsEmpty() bool {
	return len(p.Tags()) == 0
}

// City returns the preferred location, or fallback when none was given
func (p PreferenceSet) City(fallback string) string {
	if loc := strings.TrimSpace(p.Location); loc != "" {
		return loc
	}
	return fallback
}

// CandidateStub is a restaurant suggestion produced by the language model
// before it is grounded against search results.
type CandidateStub struct {
	Name         string   `json:"name"`
	Cuisine      string   `json:"cuisine"`
	PriceTier    string   `json:"priceRange,omitempty"`
	Neighborhood string   `json:"location,omitempty"`
	Description  string   `json:"description,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
}

// GroundedRestaurant is a candidate enriched with search data. Once a
// pipeline run returns it, it is never modified.
type GroundedRestaurant struct {
	CandidateStub
	ImageURL       string   `json:"imageUrl"`
	Rating         float64  `json:"rating"`
	SourceURL      string   `json:"sourceUrl,omitempty"`
	WhyYoullLoveIt []string `json:"whyYoullLoveIt"`
}

// Result statuses
const (
	StatusOK       = "ok"
	StatusFallback = "fallback"
	StatusOffline  = "offline"
	StatusEmpty    = "empty"
)

// RecommendationResult is the output of one pipeline run
type RecommendationResult struct {
	Recommendations []GroundedRestaurant `json:"recommendations"`
	Reasoning       string               `json:"reasoning"`
	Status          string               `json:"status"`
}

// Names returns the restaurant names in order
func (r RecommendationResult) Names() []string {
	names := make([]string, 0, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		names = append(names, rec.Name)
	}
	return names
}

// IsEmpty reports whether the run produced no recommendations
func (r RecommendationResult) IsEmpty() bool {
	return len(r.Recommendations) == 0
}
