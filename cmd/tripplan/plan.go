package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"travel-planner/internal/app"
	"travel-planner/internal/common/config"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/llm"
	"travel-planner/internal/pipeline"
)

const offlineSearchText = "Live search is disabled for this offline run."

type planFlags struct {
	req     pipeline.TripRequest
	outDir  string
	offline bool
}

func newPlanCmd() *cobra.Command {
	f := &planFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a trip and write it as a Markdown file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPlan(ctx, cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.req.FromCity, "from", "Delhi", "departure city")
	flags.StringVar(&f.req.DestinationCity, "to", "Singapore", "destination city")
	flags.StringVar(&f.req.DateFrom, "date-from", "", "first day of the trip (YYYY-MM-DD)")
	flags.StringVar(&f.req.DateTo, "date-to", "", "last day of the trip (YYYY-MM-DD)")
	flags.StringVar(&f.req.Interests, "interests", "food, adventure, markets", "comma separated interests")
	flags.Float64Var(&f.req.Budget, "budget", 30000, "total budget")
	flags.StringVar(&f.outDir, "out", ".", "directory the itinerary file is written to")
	flags.BoolVar(&f.offline, "offline", false, "skip the model and web search; the output shows the assembled prompts")
	_ = cmd.MarkFlagRequired("date-from")
	_ = cmd.MarkFlagRequired("date-to")

	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, f *planFlags) error {
	if f.offline {
		viper.Set("llm.api_key", "offline")
		viper.Set("search.backend", config.BackendStatic)
		viper.Set("search.static_text", offlineSearchText)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zapLog := logger.NewWithOptions(logger.Options{Level: cfg.Logging.Level, Format: "console", Output: "stderr"})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if f.req.Budget < cfg.Server.MinBudget {
		return fmt.Errorf("budget must be at least %.0f", cfg.Server.MinBudget)
	}

	var opts []app.Option
	if f.offline {
		opts = append(opts, app.WithLanguageModel(llm.Echo{}))
	}
	planner, err := app.NewPlanner(ctx, cfg, log, opts...)
	if err != nil {
		return err
	}
	defer planner.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "Planning %s -> %s (%s to %s)...\n",
		f.req.FromCity, f.req.DestinationCity, f.req.DateFrom, f.req.DateTo)

	itinerary, err := planner.Plan(ctx, f.req)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(f.outDir, itinerary.Filename)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(itinerary.Markdown)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write itinerary: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
