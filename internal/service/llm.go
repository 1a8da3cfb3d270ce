package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/config"
)

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one chat completion call
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// Completer is anything that can answer a chat completion request
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// chatRequest is the wire format of the Azure OpenAI chat completions API
type chatRequest struct {
	Model          string            `json:"model,omitempty"`
	Messages       []Message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatClient handles interactions with the Azure OpenAI chat completions API
type ChatClient struct {
	apiKey     string
	endpoint   string
	deployment string
	apiVersion string
	client     *http.Client
	logger     *zap.Logger
}

// NewChatClient creates a new ChatClient. A client without credentials is
// valid; every call then fails fast with ErrModelUnavailable.
func NewChatClient(cfg *config.Config, logger *zap.Logger) *ChatClient {
	return &ChatClient{
		apiKey:     cfg.AzureOpenAIKey,
		endpoint:   strings.TrimRight(cfg.AzureOpenAIEndpoint, "/"),
		deployment: cfg.AzureOpenAIDeployment,
		apiVersion: cfg.AzureOpenAIAPIVersion,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.Named("llm"),
	}
}

// Configured reports whether the client has credentials and an endpoint
func (c *ChatClient) Configured() bool {
	return c.apiKey != "" && c.endpoint != ""
}

func (c *ChatClient) completionsURL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))
}

// Complete sends one chat completion request and returns the first choice's content
func (c *ChatClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: AZURE_OPENAI_KEY or AZURE_OPENAI_ENDPOINT not set", ErrModelUnavailable)
	}

	reqBody := chatRequest{
		Model:       c.deployment,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		reqBody.ResponseFormat = map[string]string{"type": "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: failed to send request: %v", ErrModelUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrModelUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("chat completion failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 300)))
		return "", fmt.Errorf("%w: API request failed with status %d", ErrModelUnavailable, resp.StatusCode)
	}

	c.logger.Debug("chat completion",
		zap.Duration("latency", time.Since(start)),
		zap.Int("bytes", len(body)))

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrMalformedOutput, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in API response", ErrMalformedOutput)
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedOutput)
	}
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
