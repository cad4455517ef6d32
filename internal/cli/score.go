package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/grantmatch/internal/composite"
	"github.com/vijay-prabhu/grantmatch/internal/config"
	"github.com/vijay-prabhu/grantmatch/internal/database"
	"github.com/vijay-prabhu/grantmatch/internal/ein"
	"github.com/vijay-prabhu/grantmatch/internal/metrics"
	"github.com/vijay-prabhu/grantmatch/internal/model"
	"github.com/vijay-prabhu/grantmatch/internal/triage"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an applicant against one or more foundations",
	Long: `Score an applicant profile against foundations and recommend PASS,
ABSTAIN or FAIL for each pair. ABSTAIN results are queued for triage.

Profiles and foundations are read from JSON or YAML files; the foundations
file may hold a single object or a list.

Examples:
  grantmatch score --profile org.yaml --foundations foundations.yaml
  grantmatch score -p org.yaml -f foundations.json --sort --min-score 45
  grantmatch score -p org.yaml -f foundations.yaml --recommendation pass -o json
  grantmatch score -p org.yaml -f foundations.yaml --metrics-file /var/lib/node_exporter/grantmatch.prom`,
	RunE: runScore,
}

var (
	scoreProfile        string
	scoreFoundations    string
	scoreWorkers        int
	scoreNoTriage       bool
	scoreSort           bool
	scoreMinScore       float64
	scoreRecommendation string
	scoreMetricsFile    string
	scoreQuiet          bool
)

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVarP(&scoreProfile, "profile", "p", "", "Applicant profile file (JSON or YAML)")
	scoreCmd.Flags().StringVarP(&scoreFoundations, "foundations", "f", "", "Foundation file (JSON or YAML, object or list)")
	scoreCmd.Flags().IntVarP(&scoreWorkers, "workers", "w", 0, "Concurrent pairs (default from config)")
	scoreCmd.Flags().BoolVar(&scoreNoTriage, "no-triage", false, "Do not queue ABSTAIN results")
	scoreCmd.Flags().BoolVar(&scoreSort, "sort", false, "Sort results by score, highest first")
	scoreCmd.Flags().Float64Var(&scoreMinScore, "min-score", 0, "Hide results scoring below this value")
	scoreCmd.Flags().StringVarP(&scoreRecommendation, "recommendation", "r", "", "Only show results with this recommendation (pass, abstain, fail)")
	scoreCmd.Flags().StringVar(&scoreMetricsFile, "metrics-file", "", "Write metrics in node-exporter textfile format (default from config)")
	scoreCmd.Flags().BoolVarP(&scoreQuiet, "quiet", "q", false, "Suppress progress output")
	_ = scoreCmd.MarkFlagRequired("profile")
	_ = scoreCmd.MarkFlagRequired("foundations")
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var only composite.Recommendation
	if scoreRecommendation != "" {
		only = composite.Recommendation(strings.ToUpper(scoreRecommendation))
		if !only.Valid() {
			return fmt.Errorf("unknown recommendation: %s", scoreRecommendation)
		}
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Load inputs before touching the database
	profile, err := model.LoadProfile(scoreProfile)
	if err != nil {
		return err
	}
	loaded, err := model.LoadFoundations(scoreFoundations)
	if err != nil {
		return err
	}
	foundations := make([]*model.FoundationOpportunityData, len(loaded))
	for i := range loaded {
		foundations[i] = &loaded[i]
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rec := metrics.New()
	session, err := newScoringSession(ctx, cfg, db, rec, !scoreNoTriage)
	if err != nil {
		return err
	}

	workers := scoreWorkers
	if workers <= 0 {
		workers = cfg.Batch.Workers
	}
	opts := composite.BatchOptions{Workers: workers}

	terminal := NewTerminal(useColor(cfg))
	if !scoreQuiet && outputFmt == "table" && len(foundations) > 1 {
		opts.Progress = terminal.ScoreProgress()
	}

	results, err := session.scorer.ScoreBatch(ctx, profile, foundations, opts)
	terminal.ClearLine()
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	if err := session.finish(ctx); err != nil {
		return err
	}

	metricsFile := scoreMetricsFile
	if metricsFile == "" {
		metricsFile = cfg.Metrics.TextfilePath
	}
	if metricsFile != "" {
		if err := rec.WriteTextfile(metricsFile); err != nil {
			return err
		}
	}

	results = filterResults(results, scoreMinScore, only)
	if scoreSort {
		sortResults(results)
	}

	if len(results) == 1 && outputFmt == "table" {
		return printOutput(&results[0])
	}
	if err := printOutput(results); err != nil {
		return err
	}
	if outputFmt == "table" && session.queue != nil {
		printTriageSummary(results, terminal)
	}
	return nil
}

// scoringSession wires the scorer to the database-backed resolver and
// triage queue for one command run
type scoringSession struct {
	scorer   *composite.Scorer
	resolver *ein.Resolver
	queue    *triage.Queue
	cache    *database.CacheStore
	metrics  *metrics.Recorder
	persist  bool
}

func newScoringSession(ctx context.Context, cfg *config.Config, db *database.DB, rec *metrics.Recorder, withTriage bool) (*scoringSession, error) {
	logger := slog.Default()

	s := &scoringSession{
		resolver: ein.NewResolver(db, cfg.EINConfig(), logger, rec),
		cache:    database.NewCacheStore(db),
		metrics:  rec,
		persist:  cfg.Resolver.PersistCache && cfg.Resolver.CacheEnabled,
	}

	if s.persist {
		if err := s.resolver.LoadCache(ctx, s.cache); err != nil {
			logger.Warn("ignoring EIN cache", "error", err)
		}
	}

	deps := composite.Deps{
		Config:   cfg.CompositeConfig(),
		Resolver: s.resolver,
		Logger:   logger,
		Metrics:  rec,
	}
	if withTriage && cfg.Triage.Enabled {
		s.queue = triage.New(database.NewTriageStore(db), logger, rec, nil)
		if err := s.queue.Load(ctx); err != nil {
			return nil, err
		}
		deps.Triage = s.queue
	}

	scorer, err := composite.New(deps)
	if err != nil {
		return nil, err
	}
	s.scorer = scorer
	return s, nil
}

// finish persists the resolver cache and records the open queue size
func (s *scoringSession) finish(ctx context.Context) error {
	if s.queue != nil {
		s.metrics.SetTriageOpen(s.queue.Len())
	}
	if !s.persist {
		return nil
	}
	return s.resolver.SaveCache(ctx, s.cache)
}

func filterResults(results []composite.Result, minScore float64, only composite.Recommendation) []composite.Result {
	out := results[:0]
	for _, r := range results {
		if r.FinalScore < minScore {
			continue
		}
		if only != "" && r.Recommendation != only {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sortResults orders by score, highest first; ties keep input order
func sortResults(results []composite.Result) {
	slices.SortStableFunc(results, func(a, b composite.Result) int {
		switch {
		case a.FinalScore > b.FinalScore:
			return -1
		case a.FinalScore < b.FinalScore:
			return 1
		default:
			return 0
		}
	})
}

func printTriageSummary(results []composite.Result, terminal *Terminal) {
	counts := make(map[composite.Recommendation]int)
	for _, r := range results {
		counts[r.Recommendation]++
	}

	fmt.Println()
	for _, rec := range []composite.Recommendation{composite.RecommendPass, composite.RecommendAbstain, composite.RecommendFail} {
		label := fmt.Sprintf("%-8s %d", rec, counts[rec])
		fmt.Println(terminal.Color(RecommendationColor(rec), label))
	}
	if counts[composite.RecommendAbstain] > 0 {
		fmt.Println()
		fmt.Println("ABSTAIN results were queued; run 'grantmatch triage list' to review them.")
	}
}
