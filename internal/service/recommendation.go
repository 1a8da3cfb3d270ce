package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pageza/datemeal/backend/internal/types"
)

const (
	// DefaultLimit is the number of recommendations returned when none is requested
	DefaultLimit = 3
	// MaxLimit caps the number of recommendations per call
	MaxLimit = 10

	defaultConcurrency = 5

	offlineMarker  = " (offline mode)"
	fallbackMarker = " (using fallback data)"

	noRecommendationsReasoning = "Unable to generate recommendations based on your preferences."
	noMatchesReasoning         = "Unable to find suitable restaurant matches at this time."
)

// RecommendationService runs the generate, ground and reason pipeline and
// owns the fallback ladder. It is the only place where stage errors are
// turned into results, so its public methods never fail.
type RecommendationService struct {
	generator   *CandidateGenerator
	web         *WebGrounder
	image       *ImageGrounder
	reasoning   *ReasoningGenerator
	snapshots   SnapshotStore
	templates   *FallbackTemplates
	city        string
	concurrency int
	logger      *zap.Logger
}

// RecommendationDeps are the collaborators of a RecommendationService
type RecommendationDeps struct {
	Generator   *CandidateGenerator
	Web         *WebGrounder
	Image       *ImageGrounder
	Reasoning   *ReasoningGenerator
	Snapshots   SnapshotStore
	Templates   *FallbackTemplates
	DefaultCity string
	Concurrency int
}

// NewRecommendationService creates a new RecommendationService
func NewRecommendationService(deps RecommendationDeps, logger *zap.Logger) *RecommendationService {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	snapshots := deps.Snapshots
	if snapshots == nil {
		snapshots = NewMemorySnapshotStore()
	}
	return &RecommendationService{
		generator:   deps.Generator,
		web:         deps.Web,
		image:       deps.Image,
		reasoning:   deps.Reasoning,
		snapshots:   snapshots,
		templates:   deps.Templates,
		city:        deps.DefaultCity,
		concurrency: concurrency,
		logger:      logger.Named("recommendation"),
	}
}

// NormalizeLimit maps a requested limit onto [1, MaxLimit], defaulting to DefaultLimit
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Recommend returns at most limit grounded restaurants for prefs
func (s *RecommendationService) Recommend(ctx context.Context, prefs types.PreferenceSet, conversationContext string, limit int) types.RecommendationResult {
	limit = NormalizeLimit(limit)
	n := CandidateCount(prefs, limit)
	city := prefs.City(s.city)

	stubs, err := s.generator.Generate(ctx, prefs, conversationContext, n)
	if err == nil {
		if len(stubs) > n {
			stubs = stubs[:n]
		}
		return s.finish(ctx, stubs, prefs, limit, types.StatusOK, nil)
	}

	s.logger.Warn("candidate generation failed",
		zap.String("stage", StageGenerate),
		zap.Error(err))

	if snap, ok := s.snapshots.Load(ctx); ok {
		s.logger.Info("using last successful generation", zap.Int("candidates", len(snap.Candidates)))
		stubs = snap.Candidates
		if len(stubs) > n {
			stubs = stubs[:n]
		}
		return s.finish(ctx, stubs, prefs, limit, types.StatusFallback, err)
	}

	if errors.Is(err, ErrModelUnavailable) || !prefs.IsEmpty() {
		if stubs := s.synthesize(prefs, city, n); len(stubs) > 0 {
			s.logger.Info("using synthetic candidates", zap.Int("candidates", len(stubs)))
			return s.finish(ctx, stubs, prefs, limit, types.StatusOffline, err)
		}
	}

	return TerminalEmpty(noRecommendationsReasoning)
}

// GroundCandidates grounds externally produced candidates and reasons about them
func (s *RecommendationService) GroundCandidates(ctx context.Context, stubs []types.CandidateStub, prefs types.PreferenceSet, limit int) types.RecommendationResult {
	return s.finish(ctx, stubs, prefs, NormalizeLimit(limit), types.StatusOK, nil)
}

// DegradedMarker is the suffix that marks text describing fallback or synthetic data
func DegradedMarker(status string) string {
	switch status {
	case types.StatusOffline:
		return offlineMarker
	case types.StatusFallback:
		return fallbackMarker
	}
	return ""
}

// TerminalEmpty is the explicit "nothing could be generated" result
func TerminalEmpty(reasoning string) types.RecommendationResult {
	return types.RecommendationResult{
		Recommendations: []types.GroundedRestaurant{},
		Reasoning:       reasoning,
		Status:          types.StatusEmpty,
	}
}

func (s *RecommendationService) synthesize(prefs types.PreferenceSet, city string, n int) []types.CandidateStub {
	if s.templates == nil {
		return nil
	}
	return s.templates.SynthesizeCandidates(prefs, city, n)
}

// finish grounds, filters, truncates and explains a candidate list. genErr is
// the generation failure that led here, if any; an unreachable model is not
// asked for reasoning again.
func (s *RecommendationService) finish(ctx context.Context, stubs []types.CandidateStub, prefs types.PreferenceSet, limit int, status string, genErr error) types.RecommendationResult {
	grounded := s.ground(ctx, stubs, prefs)

	valid := make([]types.GroundedRestaurant, 0, len(grounded))
	for _, r := range grounded {
		if strings.TrimSpace(r.Name) == "" || r.ImageURL == "" {
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		s.logger.Warn("no candidate survived grounding", zap.Int("candidates", len(stubs)))
		return TerminalEmpty(noMatchesReasoning)
	}
	if len(valid) > limit {
		valid = valid[:limit]
	}

	var reasoning string
	if status == types.StatusOffline || errors.Is(genErr, ErrModelUnavailable) {
		reasoning = FallbackReasoning(prefs)
	} else {
		var err error
		reasoning, err = s.reasoning.Generate(ctx, valid, prefs)
		if err != nil {
			s.logger.Warn("reasoning failed",
				zap.String("stage", StageReasoning),
				zap.Error(err))
		}
	}
	reasoning += DegradedMarker(status)

	return types.RecommendationResult{
		Recommendations: valid,
		Reasoning:       reasoning,
		Status:          status,
	}
}

// ground enriches every stub concurrently, at most s.concurrency at a time.
// The output keeps the input order regardless of completion order.
func (s *RecommendationService) ground(ctx context.Context, stubs []types.CandidateStub, prefs types.PreferenceSet) []types.GroundedRestaurant {
	city := prefs.City(s.city)
	results := make([]types.GroundedRestaurant, len(stubs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, stub := range stubs {
		g.Go(func() error {
			results[i] = s.groundOne(ctx, stub, prefs, city)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *RecommendationService) groundOne(ctx context.Context, stub types.CandidateStub, prefs types.PreferenceSet, city string) types.GroundedRestaurant {
	r := types.GroundedRestaurant{CandidateStub: stub}

	if err := s.web.Ground(ctx, &r, city); err != nil {
		s.logStageError(stageError(StageWeb, stub.Name, err))
	}

	imageURL, err := s.image.Ground(ctx, r, city)
	if err != nil {
		s.logStageError(stageError(StageImage, r.Name, err))
	}
	r.ImageURL = imageURL

	Finalize(&r, prefs)
	return r
}

func (s *RecommendationService) logStageError(err error) {
	var enrichErr *EnrichmentError
	if errors.As(err, &enrichErr) {
		s.logger.Warn("grounding failed",
			zap.String("stage", enrichErr.Stage),
			zap.String("candidate", enrichErr.Candidate),
			zap.Error(enrichErr.Err))
	}
}
