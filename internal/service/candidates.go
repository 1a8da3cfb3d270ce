package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/internal/types"
)

const (
	maxHighlights       = 5
	candidateMaxTokens  = 1200
	defaultTemperature  = 0.7
	candidateSystemRole = "You are a restaurant recommendation expert. Provide accurate, specific recommendations of real restaurants based on preferences."
)

// candidateEnvelope accepts either list key the model is known to use
type candidateEnvelope struct {
	Restaurants     *[]types.CandidateStub `json:"restaurants"`
	Recommendations *[]types.CandidateStub `json:"recommendations"`
}

// ParseCandidates decodes a model response into candidate stubs. The payload
// must contain a "restaurants" (or "recommendations") array; anything else
// yields (nil, false). Entries without a name are dropped.
func ParseCandidates(content string) ([]types.CandidateStub, bool) {
	payload := ExtractJSON(content)
	if payload == "" {
		return nil, false
	}

	var env candidateEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, false
	}

	var raw []types.CandidateStub
	switch {
	case env.Restaurants != nil:
		raw = *env.Restaurants
	case env.Recommendations != nil:
		raw = *env.Recommendations
	default:
		return nil, false
	}

	stubs := make([]types.CandidateStub, 0, len(raw))
	for _, stub := range raw {
		stub.Name = strings.TrimSpace(stub.Name)
		if stub.Name == "" {
			continue
		}
		stub.Cuisine = strings.TrimSpace(stub.Cuisine)
		stub.Neighborhood = strings.TrimSpace(stub.Neighborhood)
		stub.PriceTier = NormalizePriceTier(stub.PriceTier)
		if len(stub.Highlights) > maxHighlights {
			stub.Highlights = stub.Highlights[:maxHighlights]
		}
		stubs = append(stubs, stub)
	}
	return stubs, true
}

// CandidateCount returns how many candidates to request: 3 for empty
// preferences, 5 otherwise, kept within [limit, 2*limit].
func CandidateCount(prefs types.PreferenceSet, limit int) int {
	n := 5
	if prefs.IsEmpty() {
		n = 3
	}
	if n < limit {
		n = limit
	}
	if n > limit*2 {
		n = limit * 2
	}
	return n
}

// CandidateGenerator asks the language model for restaurant candidates
type CandidateGenerator struct {
	llm       Completer
	snapshots SnapshotStore
	city      string
	logger    *zap.Logger
}

// NewCandidateGenerator creates a new CandidateGenerator. Successful
// generations are written to snapshots when it is non-nil.
func NewCandidateGenerator(llm Completer, snapshots SnapshotStore, defaultCity string, logger *zap.Logger) *CandidateGenerator {
	return &CandidateGenerator{
		llm:       llm,
		snapshots: snapshots,
		city:      defaultCity,
		logger:    logger.Named("generator"),
	}
}

// Generate requests n candidates. The error wraps ErrModelUnavailable when
// the model could not be reached and ErrMalformedOutput when its answer had
// no usable restaurant list.
func (g *CandidateGenerator) Generate(ctx context.Context, prefs types.PreferenceSet, conversationContext string, n int) ([]types.CandidateStub, error) {
	content, err := g.llm.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: candidateSystemRole},
			{Role: "user", Content: g.buildPrompt(prefs, conversationContext, n)},
		},
		Temperature: defaultTemperature,
		MaxTokens:   candidateMaxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	stubs, ok := ParseCandidates(content)
	if !ok {
		g.logger.Warn("unparsable candidate response", zap.String("content", truncate(content, 200)))
		return nil, fmt.Errorf("%w: no restaurants list in response", ErrMalformedOutput)
	}
	if len(stubs) == 0 {
		return nil, fmt.Errorf("%w: empty restaurants list", ErrMalformedOutput)
	}

	if g.snapshots != nil {
		if err := g.snapshots.Save(ctx, Snapshot{Candidates: stubs}); err != nil {
			g.logger.Warn("failed to save snapshot", zap.Error(err))
		}
	}

	g.logger.Debug("generated candidates", zap.Int("requested", n), zap.Int("parsed", len(stubs)))
	return stubs, nil
}

func (g *CandidateGenerator) buildPrompt(prefs types.PreferenceSet, conversationContext string, n int) string {
	city := prefs.City(g.city)

	var b strings.Builder
	fmt.Fprintf(&b, "You are a restaurant recommendation expert for %s.\n", city)
	if tags := prefs.Tags(); len(tags) > 0 {
		fmt.Fprintf(&b, "Based on the following preferences: %s\n", strings.Join(tags, ", "))
	}
	if len(prefs.AbsoluteNogos) > 0 {
		fmt.Fprintf(&b, "Never suggest anything involving: %s\n", strings.Join(prefs.AbsoluteNogos, ", "))
	}
	if ctx := strings.TrimSpace(conversationContext); ctx != "" {
		fmt.Fprintf(&b, "And considering this conversation context: %s\n", ctx)
	}
	fmt.Fprintf(&b, `
Generate %d restaurant options that would be perfect matches.
Each restaurant should be a real, well-known establishment in %s that matches the preferences.
For each restaurant, provide:
1. The restaurant name
2. Cuisine type
3. Price range ($ to $$$$)
4. Location (neighborhood in %s)
5. A brief description (1-2 sentences)
6. 2-3 key highlights that make it special

Respond with JSON only, no other text, in this format:
{
  "restaurants": [
    {
      "name": "Restaurant Name",
      "cuisine": "Cuisine Type",
      "priceRange": "$$",
      "location": "Neighborhood",
      "description": "Brief description of the restaurant",
      "highlights": ["highlight 1", "highlight 2"]
    }
  ]
}
`, n, city, city)
	return b.String()
}
