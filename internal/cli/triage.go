package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/grantmatch/internal/config"
	"github.com/vijay-prabhu/grantmatch/internal/database"
	"github.com/vijay-prabhu/grantmatch/internal/metrics"
	"github.com/vijay-prabhu/grantmatch/internal/output"
	"github.com/vijay-prabhu/grantmatch/internal/triage"
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Review ABSTAIN results",
	Long: `Work the human review queue that 'grantmatch score' fills with ABSTAIN
results. Items are claimed by priority, then age.

Examples:
  grantmatch triage list                      # Open items
  grantmatch triage list --status approved    # Archived approvals
  grantmatch triage next --reviewer dana      # Claim the most urgent item
  grantmatch triage review 1a2b3c4d --decision pass --rationale "literacy focus matches"
  grantmatch triage export --file review.json`,
}

var triageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List triage items",
	RunE:  runTriageList,
}

var triageShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one triage item",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriageShow,
}

var triageStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue statistics and reviewer agreement",
	RunE:  runTriageStats,
}

var triageExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export open items as JSON for offline review",
	RunE:  runTriageExport,
}

var (
	triageStatus   string
	triagePriority string
	triageLimit    int
	triageFile     string
)

func init() {
	rootCmd.AddCommand(triageCmd)
	triageCmd.AddCommand(triageListCmd)
	triageCmd.AddCommand(triageShowCmd)
	triageCmd.AddCommand(triageStatsCmd)
	triageCmd.AddCommand(triageExportCmd)

	triageListCmd.Flags().StringVarP(&triageStatus, "status", "s", "", "Filter by status (pending, in_review, approved, rejected, escalated, deferred)")
	triageListCmd.Flags().StringVarP(&triagePriority, "priority", "p", "", "Filter by priority (critical, high, medium, low)")
	triageListCmd.Flags().IntVarP(&triageLimit, "limit", "n", 0, "Maximum number of items")

	triageExportCmd.Flags().StringVarP(&triageFile, "file", "f", "", "Write to file instead of stdout")
}

// triageSession is an open database with the queue loaded from it
type triageSession struct {
	cfg     *config.Config
	db      *database.DB
	queue   *triage.Queue
	metrics *metrics.Recorder
}

func openTriage(ctx context.Context) (*triageSession, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	rec := metrics.New()
	q := triage.New(database.NewTriageStore(db), slog.Default(), rec, nil)
	if err := q.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &triageSession{cfg: cfg, db: db, queue: q, metrics: rec}, nil
}

// Close writes the metrics textfile when configured and closes the database
func (s *triageSession) Close() error {
	if path := s.cfg.Metrics.TextfilePath; path != "" {
		s.metrics.SetTriageOpen(s.queue.Len())
		if err := s.metrics.WriteTextfile(path); err != nil {
			slog.Warn("failed to write metrics", "error", err)
		}
	}
	return s.db.Close()
}

func runTriageList(cmd *cobra.Command, args []string) error {
	opts := triage.ListOptions{Limit: triageLimit}
	if triageStatus != "" {
		st, ok := triage.ParseStatus(triageStatus)
		if !ok {
			return fmt.Errorf("unknown status: %s", triageStatus)
		}
		opts.Status = st
	}
	if triagePriority != "" {
		p := triage.Priority(strings.ToUpper(triagePriority))
		switch p {
		case triage.PriorityCritical, triage.PriorityHigh, triage.PriorityMedium, triage.PriorityLow:
			opts.Priority = p
		default:
			return fmt.Errorf("unknown priority: %s", triagePriority)
		}
	}

	s, err := openTriage(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	return printOutput(s.queue.List(opts))
}

func runTriageShow(cmd *cobra.Command, args []string) error {
	s, err := openTriage(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	item, err := s.queue.Find(args[0])
	if err != nil {
		return err
	}
	return printOutput(&item)
}

func runTriageStats(cmd *cobra.Command, args []string) error {
	s, err := openTriage(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	stats := s.queue.Stats()
	return printOutput(&stats)
}

func runTriageExport(cmd *cobra.Command, args []string) error {
	s, err := openTriage(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := s.queue.ExportForReview()
	if err != nil {
		return err
	}

	if triageFile == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(triageFile, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Printf("Exported %d items to %s\n", s.queue.Len(), triageFile)
	return nil
}

// printItemResult prints a one-line confirmation, or the whole item for
// structured formats
func printItemResult(verb string, item triage.Item) error {
	if outputFmt != output.FormatTable {
		return printOutput(item)
	}
	fmt.Printf("%s %s (%s, %s)\n", verb, item.ID, item.FoundationName, item.Status)
	return nil
}
