package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/internal/types"
)

// Refine produces a fresh recommendation run that takes feedback on a
// previous list into account. When generation fails it falls back to fixed
// keyword rules applied to the previous list.
func (s *RecommendationService) Refine(ctx context.Context, previous []types.GroundedRestaurant, feedback, conversationContext string) types.RecommendationResult {
	limit := NormalizeLimit(len(previous))
	prefs := types.NewPreferenceSet(ExtractPreferences(feedback)...)
	refineContext := RefinementContext(previous, feedback, conversationContext)

	stubs, err := s.generator.Generate(ctx, prefs, refineContext, CandidateCount(prefs, limit))
	if err != nil {
		s.logger.Warn("refinement generation failed, applying feedback rules",
			zap.String("stage", StageGenerate),
			zap.Error(err))
		return s.refineOffline(previous, feedback)
	}

	result := s.finish(ctx, stubs, prefs, limit, types.StatusOK, nil)
	if result.IsEmpty() {
		return s.refineOffline(previous, feedback)
	}
	return result
}

// RefinementContext embeds the previous restaurant names and the feedback
// into the conversation context handed to the generator.
func RefinementContext(previous []types.GroundedRestaurant, feedback, conversationContext string) string {
	names := make([]string, 0, len(previous))
	for _, r := range previous {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}

	var b strings.Builder
	if c := strings.TrimSpace(conversationContext); c != "" {
		b.WriteString(c)
		b.WriteString("\n")
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "Previously recommended restaurants: %s.\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "User feedback on those recommendations: %s\n", strings.TrimSpace(feedback))
	b.WriteString("Suggest a new set of restaurants that addresses the feedback.")
	return b.String()
}

func (s *RecommendationService) refineOffline(previous []types.GroundedRestaurant, feedback string) types.RecommendationResult {
	previous = usablePrevious(previous)
	if len(previous) == 0 {
		return TerminalEmpty(noRecommendationsReasoning)
	}

	refined := ApplyFeedbackRules(previous, feedback, s.templates)
	for i := range refined {
		if refined[i].ImageURL == "" {
			refined[i].ImageURL = PlaceholderImageURL(refined[i].Cuisine)
		}
		Finalize(&refined[i], types.PreferenceSet{})
	}

	return types.RecommendationResult{
		Recommendations: refined,
		Reasoning:       fmt.Sprintf("I've updated these restaurants based on your feedback about %q.%s", strings.TrimSpace(feedback), offlineMarker),
		Status:          types.StatusOffline,
	}
}

// ApplyFeedbackRules is the deterministic last-resort refinement. The first
// matching rule wins:
//   - "cheaper" or "less expensive" replaces the highest-priced entry with a budget template
//   - "romantic" or "intimate" replaces the first entry with a romantic template
//   - "vegetarian" or "vegan" replaces the first entry with a vegetarian template
//
// Unmatched feedback returns a copy of previous unchanged.
func ApplyFeedbackRules(previous []types.GroundedRestaurant, feedback string, templates *FallbackTemplates) []types.GroundedRestaurant {
	refined := append([]types.GroundedRestaurant(nil), previous...)
	if len(refined) == 0 || templates == nil {
		return refined
	}

	lower := strings.ToLower(feedback)
	switch {
	case strings.Contains(lower, "cheaper") || strings.Contains(lower, "less expensive"):
		idx := mostExpensiveIndex(refined)
		refined[idx] = templates.Refinements.Budget.grounded(refined[idx].Cuisine)
	case strings.Contains(lower, "romantic") || strings.Contains(lower, "intimate"):
		refined[0] = templates.Refinements.Romantic.grounded("")
	case strings.Contains(lower, "vegetarian") || strings.Contains(lower, "vegan"):
		refined[0] = templates.Refinements.Vegetarian.grounded("")
	}
	return refined
}

func mostExpensiveIndex(restaurants []types.GroundedRestaurant) int {
	idx, best := 0, -1
	for i, r := range restaurants {
		if n := len(r.PriceTier); n > best {
			idx, best = i, n
		}
	}
	return idx
}

// usablePrevious drops client-sent entries without a name and replaces image
// URLs that are not absolute http(s) URLs with a placeholder.
func usablePrevious(previous []types.GroundedRestaurant) []types.GroundedRestaurant {
	usable := make([]types.GroundedRestaurant, 0, len(previous))
	for _, r := range previous {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		if !IsHTTPURL(r.ImageURL) {
			r.ImageURL = PlaceholderImageURL(r.Cuisine)
		}
		usable = append(usable, r)
	}
	return usable
}
