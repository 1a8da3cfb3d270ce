package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/pageza/datemeal/backend/config"
	"github.com/pageza/datemeal/backend/internal/types"
)

func italianWeb(query string) ([]WebResult, error) {
	return []WebResult{{
		Title:   query,
		Snippet: "Cheap Italian trattoria in Manhattan, rated 4.5 stars.",
		URL:     "https://example.com/" + strings.ReplaceAll(query, " ", "-"),
	}}, nil
}

func TestRecommend_HappyPath(t *testing.T) {
	var reasoningPrompt string
	llm := &fakeCompleter{
		candidates: respondWith(threeItalian),
		reasoning: func(req CompletionRequest) (string, error) {
			reasoningPrompt = req.Messages[1].Content
			return "These Italian spots all fit a $$ night out in NYC.", nil
		},
	}
	svc := newTestService(t, llm, &fakeSearch{web: italianWeb, images: goodImages})

	prefs := types.PreferenceSet{Cuisines: []string{"Italian"}, Budget: "$$", Location: "NYC"}
	result := svc.Recommend(context.Background(), prefs, "", 3)

	assert.Equal(t, types.StatusOK, result.Status)
	assert.Equal(t, []string{"Carbone", "Lilia", "Via Carota"}, result.Names())
	assert.Contains(t, result.Reasoning, "Italian")
	assert.Contains(t, reasoningPrompt, "Italian, $$, NYC")
	assert.Contains(t, reasoningPrompt, "Carbone, Lilia, Via Carota")
	assertInvariants(t, result, 3)

	carbone := result.Recommendations[0]
	assert.Equal(t, "$$$", carbone.PriceTier, "generated price must survive a cheaper snippet")
	assert.Equal(t, "Greenwich Village", carbone.Neighborhood)
	assert.Equal(t, "Red-sauce revival.", carbone.Description)
	assert.Equal(t, 4.5, carbone.Rating)
	assert.Equal(t, []string{"Spicy rigatoni", "Tableside caesar"}, carbone.WhyYoullLoveIt)
	assert.NotEmpty(t, carbone.SourceURL)
	assert.Equal(t, "https://images.example.com/photo.jpg", carbone.ImageURL)
}

func TestRecommend_OfflineWhenModelUnreachable(t *testing.T) {
	cfg := &config.Config{DefaultCity: "NYC", RequestTimeout: time.Second, GroundingConcurrency: 5}
	pipeline, err := NewPipeline(cfg, PipelineOptions{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result := pipeline.Recommendations.Recommend(context.Background(), types.PreferenceSet{}, "", 3)

	assert.Equal(t, types.StatusOffline, result.Status)
	assert.Len(t, result.Recommendations, 3)
	assert.Equal(t, []string{"Bella Notte", "Trattoria Milano", "Sakura"}, result.Names())
	assert.True(t, strings.HasSuffix(result.Reasoning, "(offline mode)"))
	assertInvariants(t, result, 3)
	for _, r := range result.Recommendations {
		assert.True(t, strings.HasPrefix(r.ImageURL, "https://source.unsplash.com/featured/?"), r.ImageURL)
	}
}

func TestRecommend_MalformedOutput(t *testing.T) {
	t.Run("should return the explicit empty result without preferences", func(t *testing.T) {
		svc := newTestService(t, &fakeCompleter{candidates: respondWith("Sorry, I can't do that.")}, &fakeSearch{})

		result := svc.Recommend(context.Background(), types.PreferenceSet{}, "", 3)

		assert.Equal(t, types.StatusEmpty, result.Status)
		assert.NotNil(t, result.Recommendations)
		assert.Empty(t, result.Recommendations)
		assert.Equal(t, "Unable to generate recommendations based on your preferences.", result.Reasoning)
	})

	t.Run("should synthesize when preferences were given", func(t *testing.T) {
		svc := newTestService(t, &fakeCompleter{candidates: respondWith(`{"foo": "bar"}`)}, &fakeSearch{})

		prefs := types.PreferenceSet{Cuisines: []string{"Mexican"}}
		result := svc.Recommend(context.Background(), prefs, "", 3)

		assert.Equal(t, types.StatusOffline, result.Status)
		require.NotEmpty(t, result.Recommendations)
		assert.Equal(t, "Mexican", result.Recommendations[0].Cuisine)
		assert.Contains(t, result.Reasoning, "(offline mode)")
		assertInvariants(t, result, 3)
	})
}

func TestRecommend_UsesLastSuccessfulGeneration(t *testing.T) {
	var fail atomic.Bool
	llm := &fakeCompleter{candidates: func(CompletionRequest) (string, error) {
		if fail.Load() {
			return "", fmt.Errorf("%w: connection refused", ErrModelUnavailable)
		}
		return threeItalian, nil
	}}
	svc := newTestService(t, llm, &fakeSearch{web: italianWeb, images: goodImages})
	ctx := context.Background()

	first := svc.Recommend(ctx, types.PreferenceSet{}, "", 3)
	require.Equal(t, types.StatusOK, first.Status)

	fail.Store(true)
	second := svc.Recommend(ctx, types.PreferenceSet{}, "", 3)

	assert.Equal(t, types.StatusFallback, second.Status)
	assert.Equal(t, first.Names(), second.Names())
	assert.True(t, strings.HasSuffix(second.Reasoning, "(using fallback data)"))
	assertInvariants(t, second, 3)
}

func TestRecommend_FallbackSkipsReasoningWhenModelUnreachable(t *testing.T) {
	var fail atomic.Bool
	var reasoningCalls atomic.Int32
	llm := &fakeCompleter{
		candidates: func(CompletionRequest) (string, error) {
			if fail.Load() {
				return "", fmt.Errorf("%w: connection refused", ErrModelUnavailable)
			}
			return threeItalian, nil
		},
		reasoning: func(CompletionRequest) (string, error) {
			reasoningCalls.Add(1)
			return "Great picks.", nil
		},
	}
	svc := newTestService(t, llm, &fakeSearch{web: italianWeb, images: goodImages})
	ctx := context.Background()
	prefs := types.PreferenceSet{Cuisines: []string{"Italian"}}

	require.Equal(t, types.StatusOK, svc.Recommend(ctx, prefs, "", 3).Status)
	require.Equal(t, int32(1), reasoningCalls.Load())

	fail.Store(true)
	second := svc.Recommend(ctx, prefs, "", 3)

	assert.Equal(t, types.StatusFallback, second.Status)
	assert.Equal(t, FallbackReasoning(prefs)+" (using fallback data)", second.Reasoning)
	assert.Equal(t, int32(1), reasoningCalls.Load(), "no reasoning call after the model went down")
}

func TestRecommend_BoundedOutput(t *testing.T) {
	many := make([]string, 12)
	for i := range many {
		many[i] = fmt.Sprintf("Place %d", i)
	}
	llm := &fakeCompleter{candidates: respondWith(candidatesJSON(many...))}
	svc := newTestService(t, llm, &fakeSearch{web: italianWeb, images: goodImages})
	prefs := types.PreferenceSet{Cuisines: []string{"Italian"}}

	for limit, want := range map[int]int{1: 1, 2: 2, 0: DefaultLimit, -4: DefaultLimit, 50: MaxLimit} {
		result := svc.Recommend(context.Background(), prefs, "", limit)
		assert.Len(t, result.Recommendations, want, "limit %d", limit)
		assertInvariants(t, result, want)
	}
}

func TestRecommend_OrderStableUnderReversedLatency(t *testing.T) {
	order := []string{"First", "Second", "Third", "Fourth", "Fifth"}
	delays := map[string]time.Duration{}
	for i, name := range order {
		delays[name] = time.Duration(len(order)-i) * 15 * time.Millisecond
	}

	var completed []string
	done := make(chan string, len(order))

	search := &fakeSearch{
		web: func(q string) ([]WebResult, error) {
			done <- strings.Fields(q)[0]
			return italianWeb(q)
		},
		images: goodImages,
		delay: func(q string) time.Duration {
			if strings.Contains(q, "food interior") {
				return 0
			}
			return delays[strings.Fields(q)[0]]
		},
	}
	llm := &fakeCompleter{candidates: respondWith(candidatesJSON(order...))}
	svc := newTestService(t, llm, search)

	result := svc.Recommend(context.Background(), types.PreferenceSet{Cuisines: []string{"Italian"}}, "", 5)
	close(done)
	for name := range done {
		completed = append(completed, name)
	}

	assert.Equal(t, order, result.Names())
	assert.Equal(t, "Fifth", completed[0], "grounding must actually have completed in reverse")
}

func TestRecommend_CapsConcurrentGrounding(t *testing.T) {
	var inflight, peak atomic.Int32
	search := &fakeSearch{
		web: func(q string) ([]WebResult, error) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inflight.Add(-1)
			return italianWeb(q)
		},
		images: goodImages,
	}
	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("Spot%d", i)
	}
	svc := newTestService(t, &fakeCompleter{candidates: respondWith(candidatesJSON(names...))}, search)

	result := svc.Recommend(context.Background(), types.PreferenceSet{Cuisines: []string{"Italian"}}, "", 10)

	assert.Len(t, result.Recommendations, 10)
	assert.LessOrEqual(t, peak.Load(), int32(5))
}

func TestRecommend_AlwaysTerminates(t *testing.T) {
	defer goleak.VerifyNone(t)

	unreachable := &fakeCompleter{candidates: func(CompletionRequest) (string, error) {
		return "", fmt.Errorf("%w: timeout", ErrModelUnavailable)
	}}
	svc := newTestService(t, unreachable, &fakeSearch{})

	for _, prefs := range []types.PreferenceSet{{}, {Cuisines: []string{"Thai"}, Mood: "lively"}} {
		result := svc.Recommend(context.Background(), prefs, "", 3)
		assert.NotEmpty(t, result.Reasoning)
		assertInvariants(t, result, 3)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	slow := &fakeSearch{delay: func(string) time.Duration { return time.Hour }}
	svc = newTestService(t, unreachable, slow)

	start := time.Now()
	result := svc.Recommend(ctx, types.PreferenceSet{}, "", 3)
	assert.Less(t, time.Since(start), 5*time.Second)
	assertInvariants(t, result, 3)
}

func TestGroundCandidates_DropsNamelessCandidates(t *testing.T) {
	search := &fakeSearch{
		web:    func(string) ([]WebResult, error) { return []WebResult{{Title: "", Snippet: "x"}}, nil },
		images: goodImages,
	}
	svc := newTestService(t, &fakeCompleter{candidates: respondWith(threeItalian)}, search)

	result := svc.GroundCandidates(context.Background(), []types.CandidateStub{{Cuisine: "Thai"}}, types.PreferenceSet{}, 3)

	assert.Equal(t, types.StatusEmpty, result.Status)
	assert.Equal(t, "Unable to find suitable restaurant matches at this time.", result.Reasoning)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 3, NormalizeLimit(0))
	assert.Equal(t, 1, NormalizeLimit(1))
	assert.Equal(t, 10, NormalizeLimit(11))
}
