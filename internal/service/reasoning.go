package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/internal/types"
)

const reasoningMaxTokens = 150

// ReasoningGenerator explains why a set of restaurants fits the preferences
type ReasoningGenerator struct {
	llm    Completer
	logger *zap.Logger
}

// NewReasoningGenerator creates a new ReasoningGenerator
func NewReasoningGenerator(llm Completer, logger *zap.Logger) *ReasoningGenerator {
	return &ReasoningGenerator{
		llm:    llm,
		logger: logger.Named("reasoning"),
	}
}

// Generate returns a short justification. It never fails: when the model
// call does, the templated sentence from FallbackReasoning is returned along
// with the error so the caller can log it.
func (g *ReasoningGenerator) Generate(ctx context.Context, restaurants []types.GroundedRestaurant, prefs types.PreferenceSet) (string, error) {
	names := make([]string, 0, len(restaurants))
	for _, r := range restaurants {
		names = append(names, r.Name)
	}

	prompt := fmt.Sprintf(`Based on the user's preferences (%s), I've found these restaurants: %s.
Write a brief paragraph (2-3 sentences) explaining why these restaurants match the user's preferences.
Be specific about how they match the preferences. Keep it conversational and friendly.`,
		strings.Join(prefs.Tags(), ", "), strings.Join(names, ", "))

	content, err := g.llm.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "You are a helpful restaurant recommendation assistant."},
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
		MaxTokens:   reasoningMaxTokens,
	})
	if err != nil {
		return FallbackReasoning(prefs), err
	}
	return content, nil
}

// FallbackReasoning is the deterministic sentence used when the model is unavailable
func FallbackReasoning(prefs types.PreferenceSet) string {
	tags := prefs.Tags()
	if len(tags) == 0 {
		return "I found these restaurants that should be perfect for you!"
	}
	return fmt.Sprintf("Based on your preferences (%s), I found these restaurants that should be perfect for you!", strings.Join(tags, ", "))
}
