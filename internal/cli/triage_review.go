package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/grantmatch/internal/triage"
)

var triageNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Claim the most urgent pending item",
	RunE:  runTriageNext,
}

var triageAssignCmd = &cobra.Command{
	Use:   "assign <id>",
	Short: "Assign an open item to a reviewer",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriageAssign,
}

var triageReviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Record a decision on an item in review",
	Long: `Record a reviewer decision. PASS approves the item, FAIL rejects it and
UNCERTAIN escalates it. A rationale is required.

Examples:
  grantmatch triage review 1a2b3c4d --decision pass --rationale "strong literacy focus"
  grantmatch triage review 1a2b3c4d -d uncertain -m "needs program officer input"`,
	Args: cobra.ExactArgs(1),
	RunE: runTriageReview,
}

var triageDeferCmd = &cobra.Command{
	Use:   "defer <id>",
	Short: "Archive an item under review without a decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runTriageDefer,
}

var (
	triageReviewer  string
	triageDecision  string
	triageRationale string
)

func init() {
	triageCmd.AddCommand(triageNextCmd)
	triageCmd.AddCommand(triageAssignCmd)
	triageCmd.AddCommand(triageReviewCmd)
	triageCmd.AddCommand(triageDeferCmd)

	triageNextCmd.Flags().StringVar(&triageReviewer, "reviewer", "", "Reviewer claiming the item (default from config)")
	triageAssignCmd.Flags().StringVar(&triageReviewer, "reviewer", "", "Reviewer to assign")
	_ = triageAssignCmd.MarkFlagRequired("reviewer")

	triageReviewCmd.Flags().StringVarP(&triageDecision, "decision", "d", "", "Decision (pass, fail, uncertain)")
	triageReviewCmd.Flags().StringVarP(&triageRationale, "rationale", "m", "", "Reason for the decision")
	_ = triageReviewCmd.MarkFlagRequired("decision")
	_ = triageReviewCmd.MarkFlagRequired("rationale")

	triageDeferCmd.Flags().StringVarP(&triageRationale, "rationale", "m", "", "Reason for deferring")
	_ = triageDeferCmd.MarkFlagRequired("rationale")
}

func runTriageNext(cmd *cobra.Command, args []string) error {
	s, err := openTriage(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	reviewer := triageReviewer
	if reviewer == "" {
		reviewer = s.cfg.Triage.DefaultReviewer
	}

	item, err := s.queue.GetNextForReview(cmd.Context(), reviewer)
	if err != nil {
		return err
	}
	return printOutput(&item)
}

func runTriageAssign(cmd *cobra.Command, args []string) error {
	s, err := openTriage(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	item, err := s.queue.Find(args[0])
	if err != nil {
		return err
	}
	item, err = s.queue.Assign(cmd.Context(), item.ID, triageReviewer)
	if err != nil {
		return err
	}
	return printItemResult("Assigned", item)
}

func runTriageReview(cmd *cobra.Command, args []string) error {
	decision, ok := triage.ParseDecision(triageDecision)
	if !ok {
		return fmt.Errorf("%w, got '%s'", triage.ErrInvalidDecision, triageDecision)
	}

	s, err := openTriage(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	item, err := s.queue.Find(args[0])
	if err != nil {
		return err
	}
	item, err = s.queue.SubmitReview(cmd.Context(), item.ID, decision, triageRationale)
	if err != nil {
		return err
	}
	return printItemResult("Reviewed", item)
}

func runTriageDefer(cmd *cobra.Command, args []string) error {
	s, err := openTriage(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	item, err := s.queue.Find(args[0])
	if err != nil {
		return err
	}
	item, err = s.queue.Defer(cmd.Context(), item.ID, triageRationale)
	if err != nil {
		return err
	}
	return printItemResult("Deferred", item)
}
