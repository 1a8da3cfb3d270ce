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
	conversationMaxTokens = 1200

	clarifyingQuestion = "I'd be happy to recommend some restaurants for your date night. Could you tell me what type of cuisine you're interested in, your budget, or any specific neighborhood you'd like to explore?"
	defaultChatReply   = "Here are some recommendations based on your preferences. Each one offers a unique experience that matches what you're looking for!"
)

const personaPrompt = `You're my stylish %[1]s bestie who always knows the hottest spots. Your vibe is upbeat, a bit sassy, and you use casual language with the occasional emoji. Talk like you're texting a friend.

If the user has expressed preferences, recommend 3 different real restaurants in %[1]s. For each one give the name, a vibrant description, 3-5 highlight tags, 2-3 reasons they'll love it, cuisine type, price range ($ to $$$$), neighborhood and a rating from 1 to 5.

Your response MUST be a single valid JSON object with no text before or after it:
{
  "conversationalResponse": "Your friendly reply",
  "recommendations": [
    {
      "name": "Restaurant Name",
      "description": "Enthusiastic description",
      "highlights": ["rooftop", "hidden gem"],
      "cuisine": "Cuisine type",
      "priceRange": "$$",
      "location": "Neighborhood"
    }
  ]
}
Only include the "recommendations" array if you have enough information to make specific recommendations.`

type chatReply struct {
	ConversationalResponse string                `json:"conversationalResponse"`
	Recommendations        []types.CandidateStub `json:"recommendations"`
}

// ConversationAgent answers free-form chat messages, delegating to the
// recommendation pipeline whenever restaurants are involved.
type ConversationAgent struct {
	llm            Completer
	recommendation *RecommendationService
	city           string
	logger         *zap.Logger
}

// NewConversationAgent creates a new ConversationAgent
func NewConversationAgent(llm Completer, recommendation *RecommendationService, defaultCity string, logger *zap.Logger) *ConversationAgent {
	return &ConversationAgent{
		llm:            llm,
		recommendation: recommendation,
		city:           defaultCity,
		logger:         logger.Named("conversation"),
	}
}

// Respond answers one user message. It never fails.
func (a *ConversationAgent) Respond(ctx context.Context, req types.ConversationRequest) types.ConversationResponse {
	history := FormatHistory(req.ConversationHistory)

	if len(req.CurrentRecommendations) > 0 {
		result := a.recommendation.Refine(ctx, req.CurrentRecommendations, req.UserMessage, history)
		return types.ConversationResponse{
			Response:               result.Reasoning,
			UpdatedRecommendations: result.Recommendations,
		}
	}

	content, err := a.llm.Complete(ctx, CompletionRequest{
		Messages:    a.buildMessages(req),
		Temperature: defaultTemperature,
		MaxTokens:   conversationMaxTokens,
		JSON:        true,
	})
	if err != nil {
		a.logger.Warn("chat completion failed", zap.String("stage", StageChat), zap.Error(err))
		return a.fromExtractedPreferences(ctx, req.UserMessage, history, "")
	}

	var reply chatReply
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &reply); err != nil {
		a.logger.Warn("unparsable chat reply", zap.String("stage", StageChat), zap.Error(err))
		return a.fromExtractedPreferences(ctx, req.UserMessage, history, stripFences(content))
	}

	response := strings.TrimSpace(reply.ConversationalResponse)
	if response == "" {
		response = defaultChatReply
	}

	stubs, _ := ParseCandidates(content)
	if len(stubs) == 0 {
		return types.ConversationResponse{Response: response}
	}

	prefs := types.NewPreferenceSet(ExtractPreferences(req.UserMessage)...)
	result := a.recommendation.GroundCandidates(ctx, stubs, prefs, len(stubs))
	out := types.ConversationResponse{Response: response}
	if !result.IsEmpty() {
		out.UpdatedRecommendations = result.Recommendations
	}
	return out
}

func (a *ConversationAgent) buildMessages(req types.ConversationRequest) []Message {
	messages := []Message{{Role: "system", Content: fmt.Sprintf(personaPrompt, a.city)}}
	for _, m := range req.ConversationHistory {
		role := strings.ToLower(m.Role)
		if role != "user" && role != "assistant" {
			continue
		}
		messages = append(messages, Message{Role: role, Content: m.Content})
	}
	return append(messages, Message{Role: "user", Content: req.UserMessage})
}

// fromExtractedPreferences runs the pipeline on keywords found in the message,
// or asks a clarifying question when there are none.
func (a *ConversationAgent) fromExtractedPreferences(ctx context.Context, message, history, rawReply string) types.ConversationResponse {
	tags := ExtractPreferences(message)
	if len(tags) == 0 {
		return types.ConversationResponse{Response: clarifyingQuestion}
	}

	result := a.recommendation.Recommend(ctx, types.NewPreferenceSet(tags...), history, DefaultLimit)
	response := rawReply
	if response != "" {
		response += DegradedMarker(result.Status)
	} else {
		response = fmt.Sprintf("I've found some wonderful spots that match your preferences for %s. %s",
			strings.Join(tags, ", "), result.Reasoning)
	}
	out := types.ConversationResponse{Response: response}
	if !result.IsEmpty() {
		out.UpdatedRecommendations = result.Recommendations
	}
	return out
}

// FormatHistory flattens chat messages into "ROLE: content" lines
func FormatHistory(messages []types.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), m.Content))
	}
	return strings.Join(lines, "\n")
}

func stripFences(content string) string {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}
