package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pageza/datemeal/backend/internal/types"
)

// fakeCompleter answers candidate and reasoning requests separately
type fakeCompleter struct {
	candidates func(req CompletionRequest) (string, error)
	reasoning  func(req CompletionRequest) (string, error)
	calls      atomic.Int32
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.MaxTokens == reasoningMaxTokens {
		if f.reasoning == nil {
			return "These spots match what you asked for.", nil
		}
		return f.reasoning(req)
	}
	return f.candidates(req)
}

func respondWith(content string) func(CompletionRequest) (string, error) {
	return func(CompletionRequest) (string, error) { return content, nil }
}

func failWith(err error) func(CompletionRequest) (string, error) {
	return func(CompletionRequest) (string, error) { return "", err }
}

// fakeSearch implements both search interfaces
type fakeSearch struct {
	web    func(query string) ([]WebResult, error)
	images func(query string) ([]ImageResult, error)
	delay  func(query string) time.Duration

	mu      sync.Mutex
	queries []string
}

func (f *fakeSearch) record(query string) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
}

func (f *fakeSearch) wait(ctx context.Context, query string) error {
	if f.delay == nil {
		return nil
	}
	select {
	case <-time.After(f.delay(query)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSearch) SearchWeb(ctx context.Context, query string, count int) ([]WebResult, error) {
	f.record(query)
	if err := f.wait(ctx, query); err != nil {
		return nil, err
	}
	if f.web == nil {
		return nil, ErrSearchUnavailable
	}
	return f.web(query)
}

func (f *fakeSearch) SearchImages(ctx context.Context, query string, count int) ([]ImageResult, error) {
	f.record(query)
	if err := f.wait(ctx, query); err != nil {
		return nil, err
	}
	if f.images == nil {
		return nil, ErrSearchUnavailable
	}
	return f.images(query)
}

func goodImages(string) ([]ImageResult, error) {
	return []ImageResult{{ContentURL: "https://images.example.com/photo.jpg", Width: 800, Height: 600}}, nil
}

func newTestService(t *testing.T, llm Completer, search *fakeSearch) *RecommendationService {
	t.Helper()
	logger := zaptest.NewLogger(t)

	templates, err := LoadFallbackTemplates()
	require.NoError(t, err)

	snapshots := NewMemorySnapshotStore()
	return NewRecommendationService(RecommendationDeps{
		Generator:   NewCandidateGenerator(llm, snapshots, "NYC", logger),
		Web:         NewWebGrounder(search, logger),
		Image:       NewImageGrounder(search, nil, logger),
		Reasoning:   NewReasoningGenerator(llm, logger),
		Snapshots:   snapshots,
		Templates:   templates,
		DefaultCity: "NYC",
		Concurrency: 5,
	}, logger)
}

const threeItalian = `{
  "restaurants": [
    {"name": "Carbone", "cuisine": "Italian", "priceRange": "$$$", "location": "Greenwich Village", "description": "Red-sauce revival.", "highlights": ["Spicy rigatoni", "Tableside caesar"]},
    {"name": "Lilia", "cuisine": "Italian", "priceRange": "$$", "location": "Williamsburg", "highlights": ["Handmade pasta"]},
    {"name": "Via Carota", "cuisine": "Italian", "priceRange": "$$", "location": "West Village"}
  ]
}`

func candidatesJSON(names ...string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = `{"name": "` + n + `", "cuisine": "Italian", "priceRange": "$$", "location": "SoHo"}`
	}
	return `{"restaurants": [` + strings.Join(parts, ",") + `]}`
}

func assertInvariants(t *testing.T, result types.RecommendationResult, limit int) {
	t.Helper()
	require.LessOrEqual(t, len(result.Recommendations), limit)
	for _, r := range result.Recommendations {
		require.NotEmpty(t, r.Name)
		require.True(t, IsHTTPURL(r.ImageURL), "image URL %q", r.ImageURL)
		require.GreaterOrEqual(t, r.Rating, 1.0)
		require.LessOrEqual(t, r.Rating, 5.0)
		require.NotEmpty(t, r.WhyYoullLoveIt)
		require.LessOrEqual(t, len(r.WhyYoullLoveIt), 3)
	}
}
