package types

// RecommendationRequest is the body of POST /recommendations
type RecommendationRequest struct {
	Preferences         PreferenceSet `json:"preferences"`
	ConversationHistory string        `json:"conversationHistory"`
	Limit               int           `json:"limit"`
}

// RefineRequest is the body of POST /refine
type RefineRequest struct {
	PreviousRecommendations []GroundedRestaurant `json:"previousRecommendations"`
	UserMessage             string               `json:"userMessage" binding:"required"`
	ConversationHistory     string               `json:"conversationHistory"`
}

// ChatMessage is one turn of the chat UI conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationRequest is the body of POST /conversation
type ConversationRequest struct {
	ConversationHistory    []ChatMessage        `json:"conversationHistory"`
	UserMessage            string               `json:"userMessage" binding:"required"`
	CurrentRecommendations []GroundedRestaurant `json:"currentRecommendations"`
}

// ConversationResponse is the response of POST /conversation
type ConversationResponse struct {
	Response               string               `json:"response"`
	UpdatedRecommendations []GroundedRestaurant `json:"updatedRecommendations,omitempty"`
}
