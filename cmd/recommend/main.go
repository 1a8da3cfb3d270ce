// Command recommend runs the recommendation pipeline once and prints the
// result as JSON.
//
// Usage:
//
//	recommend --pref Italian --pref '$$' --city NYC --limit 3
//	recommend --previous last.json --feedback "somewhere cheaper"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/config"
	"github.com/pageza/datemeal/backend/internal/logging"
	"github.com/pageza/datemeal/backend/internal/service"
	"github.com/pageza/datemeal/backend/internal/types"
)

type options struct {
	prefs    []string
	city     string
	limit    int
	context  string
	feedback string
	previous string
}

func main() {
	_ = godotenv.Load()

	logger, err := logging.New(config.GetEnvironment())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate grounded restaurant recommendations",
		Long: `Runs the generate, ground and reason pipeline once and prints the
result as JSON. With --feedback the previous recommendations are refined instead.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.prefs, "pref", nil, "preference tag (repeatable), e.g. Italian, romantic, $$")
	flags.StringVar(&opts.city, "city", "", "city or neighborhood (defaults to DEFAULT_CITY)")
	flags.IntVar(&opts.limit, "limit", service.DefaultLimit, "maximum number of recommendations")
	flags.StringVar(&opts.context, "context", "", "conversation context passed to the model")
	flags.StringVar(&opts.feedback, "feedback", "", "feedback on the previous recommendations")
	flags.StringVar(&opts.previous, "previous", "", "JSON file with previous recommendations (required with --feedback)")
	cmd.MarkFlagsRequiredTogether("feedback", "previous")

	return cmd
}

func runRecommend(cmd *cobra.Command, opts options, logger *zap.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	pipeline, err := service.NewPipeline(cfg, service.PipelineOptions{}, logger)
	if err != nil {
		return err
	}

	var result types.RecommendationResult
	if opts.feedback != "" {
		previous, err := readPrevious(opts.previous)
		if err != nil {
			return err
		}
		result = pipeline.Recommendations.Refine(cmd.Context(), previous, opts.feedback, opts.context)
	} else {
		prefs := types.NewPreferenceSet(opts.prefs...)
		prefs.Location = opts.city
		result = pipeline.Recommendations.Recommend(cmd.Context(), prefs, opts.context, opts.limit)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// readPrevious accepts either a bare restaurant array or a full result object
func readPrevious(path string) ([]types.GroundedRestaurant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read previous recommendations: %w", err)
	}

	var list []types.GroundedRestaurant
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var result types.RecommendationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse previous recommendations: %w", err)
	}
	return result.Recommendations, nil
}
