package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vijay-prabhu/grantmatch/internal/composite"
	"github.com/vijay-prabhu/grantmatch/internal/database"
	"github.com/vijay-prabhu/grantmatch/internal/ein"
	"github.com/vijay-prabhu/grantmatch/internal/triage"
)

// Table writes data as a formatted table to stdout
func Table(data any) error {
	return TableTo(os.Stdout, data)
}

// TableTo writes data as a formatted table to the given writer
func TableTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case []composite.Result:
		return resultsTable(w, v)
	case *composite.Result:
		return resultDetail(w, v)
	case []triage.Item:
		return itemsTable(w, v)
	case *triage.Item:
		return itemDetail(w, v)
	case *triage.Stats:
		return triageStats(w, v)
	case *database.Organization:
		return organizationDetail(w, v)
	case []ein.IdentityMatch:
		return matchesTable(w, v)
	case *ein.Resolution:
		return resolutionDetail(w, v)
	case *database.ImportResult:
		return importSummary(w, v)
	case *database.Stats:
		return databaseStats(w, v)
	default:
		return fmt.Errorf("unsupported data type for table output: %T", data)
	}
}

func resultsTable(w io.Writer, results []composite.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("FOUNDATION", "EIN", "SCORE", "RECOMMENDATION", "CONFIDENCE", "REASON")
	for _, r := range results {
		row := []string{
			truncate(r.FoundationName, 32),
			r.FoundationEIN,
			fmt.Sprintf("%.2f", r.FinalScore),
			string(r.Recommendation),
			fmt.Sprintf("%.2f", r.Confidence),
			string(r.AbstainCode),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func resultDetail(w io.Writer, r *composite.Result) error {
	fmt.Fprintf(w, "Profile:        %s\n", r.ProfileName)
	fmt.Fprintf(w, "Foundation:     %s (%s)\n", r.FoundationName, r.FoundationEIN)
	fmt.Fprintf(w, "Score:          %.2f\n", r.FinalScore)
	fmt.Fprintf(w, "Recommendation: %s\n", r.Recommendation)
	if r.AbstainReason != "" {
		fmt.Fprintf(w, "Reason:         %s\n", r.AbstainReason)
	}
	fmt.Fprintf(w, "Confidence:     %.2f\n", r.Confidence)
	fmt.Fprintf(w, "Boost:          %+.2f\n", r.CoherenceBoost)
	fmt.Fprintf(w, "Decay penalty:  %.2f\n", r.TimeDecayPenalty)
	fmt.Fprintln(w)

	return componentsTable(w, r.Components)
}

func componentsTable(w io.Writer, c composite.Components) error {
	table := tablewriter.NewWriter(w)
	table.Header("COMPONENT", "SCORE")
	rows := [][]string{
		{"ntee", formatScore(c.NTEE)},
		{"geographic", formatScore(c.Geographic)},
		{"coherence", formatScore(c.Coherence)},
		{"financial_capacity", formatScore(c.FinancialCapacity)},
		{"grant_size", formatScore(c.GrantSize)},
		{"application_policy", formatScore(c.ApplicationPolicy)},
		{"filing_recency", formatScore(c.FilingRecency)},
		{"foundation_type", formatScore(c.FoundationType)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func itemsTable(w io.Writer, items []triage.Item) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No triage items.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "PRIORITY", "STATUS", "SCORE", "FOUNDATION", "PROFILE", "ASSIGNED", "AGE")
	now := time.Now()
	for _, it := range items {
		row := []string{
			shortID(it.ID),
			string(it.Priority),
			string(it.Status),
			fmt.Sprintf("%.2f", it.CompositeScore),
			truncate(it.FoundationName, 28),
			truncate(it.ProfileName, 28),
			it.AssignedTo,
			formatAge(now.Sub(it.CreatedAt)),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func itemDetail(w io.Writer, it *triage.Item) error {
	fmt.Fprintf(w, "ID:          %s\n", it.ID)
	fmt.Fprintf(w, "Profile:     %s\n", it.ProfileName)
	fmt.Fprintf(w, "Foundation:  %s (%s)\n", it.FoundationName, it.FoundationEIN)
	fmt.Fprintf(w, "Score:       %.2f\n", it.CompositeScore)
	fmt.Fprintf(w, "Confidence:  %.2f\n", it.Confidence)
	fmt.Fprintf(w, "Reason:      %s\n", it.AbstainReason)
	fmt.Fprintf(w, "Priority:    %s\n", it.Priority)
	fmt.Fprintf(w, "Status:      %s\n", it.Status)
	if len(it.Tags) > 0 {
		fmt.Fprintf(w, "Tags:        %s\n", strings.Join(it.Tags, ", "))
	}
	if it.AssignedTo != "" {
		fmt.Fprintf(w, "Assigned to: %s\n", it.AssignedTo)
	}
	if it.Decision != "" {
		fmt.Fprintf(w, "Decision:    %s\n", it.Decision)
	}
	if it.Rationale != "" {
		fmt.Fprintf(w, "Rationale:   %s\n", it.Rationale)
	}
	fmt.Fprintf(w, "Created:     %s\n", it.CreatedAt.Format("Jan 02, 2006 15:04"))
	if it.ReviewedAt != nil {
		fmt.Fprintf(w, "Reviewed:    %s\n", it.ReviewedAt.Format("Jan 02, 2006 15:04"))
	}
	fmt.Fprintln(w)

	return componentsTable(w, it.Components)
}

func triageStats(w io.Writer, s *triage.Stats) error {
	fmt.Fprintln(w, "Triage Statistics")
	fmt.Fprintln(w, strings.Repeat("-", 30))
	fmt.Fprintf(w, "Total items:            %d\n", s.Total)
	fmt.Fprintf(w, "Open:                   %d\n", s.Open)
	for _, p := range []triage.Priority{triage.PriorityCritical, triage.PriorityHigh, triage.PriorityMedium, triage.PriorityLow} {
		if n := s.ByPriority[p]; n > 0 {
			fmt.Fprintf(w, "  %-21s %d\n", strings.ToLower(string(p))+":", n)
		}
	}
	title := cases.Title(language.English)
	for _, st := range []triage.Status{triage.StatusApproved, triage.StatusRejected, triage.StatusEscalated, triage.StatusDeferred} {
		fmt.Fprintf(w, "%-23s %d\n", title.String(string(st))+":", s.ByStatus[st])
	}
	if s.Decided > 0 {
		fmt.Fprintf(w, "Approval rate:          %.1f%%\n", s.ApprovalRate*100)
		fmt.Fprintf(w, "Mean review time:       %s\n", s.MeanReviewLatency.Round(time.Second))
	}
	if s.AgreementSamples > 0 {
		fmt.Fprintf(w, "Scorer agreement:       %.1f%% (%d)\n", s.AgreementRate*100, s.AgreementSamples)
	}

	if len(s.Calibration) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.Header("RANGE", "REVIEWED", "PASSED", "PASS RATE")
	for _, b := range s.Calibration {
		row := []string{
			fmt.Sprintf("%g-%g", b.Low, b.High),
			fmt.Sprintf("%d", b.Reviewed),
			fmt.Sprintf("%d", b.Passed),
			fmt.Sprintf("%.0f%%", b.PassRate*100),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func organizationDetail(w io.Writer, o *database.Organization) error {
	fmt.Fprintf(w, "EIN:       %s\n", o.EIN)
	fmt.Fprintf(w, "Name:      %s\n", o.Name)
	if loc := location(o.City, o.State, o.ZIP); loc != "" {
		fmt.Fprintf(w, "Location:  %s\n", loc)
	}
	if o.NTEECode != nil {
		fmt.Fprintf(w, "NTEE:      %s\n", *o.NTEECode)
	}
	fmt.Fprintf(w, "Imported:  %s\n", o.ImportedAt.Format("Jan 02, 2006"))
	return nil
}

func matchesTable(w io.Writer, matches []ein.IdentityMatch) error {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No organizations found.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("EIN", "NAME", "CITY", "STATE", "NTEE")
	for _, m := range matches {
		if err := table.Append([]string{m.EIN, truncate(m.Name, 40), m.City, m.State, m.NTEECode}); err != nil {
			return err
		}
	}
	return table.Render()
}

func resolutionDetail(w io.Writer, r *ein.Resolution) error {
	fmt.Fprintf(w, "EIN:         %s\n", r.EIN)
	fmt.Fprintf(w, "Name:        %s\n", r.OrganizationName)
	if r.State != "" {
		fmt.Fprintf(w, "State:       %s\n", r.State)
	}
	if r.NTEECode != "" {
		fmt.Fprintf(w, "NTEE:        %s\n", r.NTEECode)
	}
	fmt.Fprintf(w, "Confidence:  %s (%.2f)\n", r.Confidence, r.ConfidenceWeight)
	fmt.Fprintf(w, "Similarity:  %.2f\n", r.NameSimilarity)
	fmt.Fprintf(w, "Matched by:  %s\n", r.MatchedBy)
	return nil
}

func importSummary(w io.Writer, r *database.ImportResult) error {
	fmt.Fprintf(w, "Rows read:  %d\n", r.Rows)
	fmt.Fprintf(w, "Imported:   %d\n", r.Imported)
	fmt.Fprintf(w, "Skipped:    %d\n", r.Skipped)
	return nil
}

func databaseStats(w io.Writer, s *database.Stats) error {
	fmt.Fprintln(w, "Database")
	fmt.Fprintln(w, strings.Repeat("-", 30))
	fmt.Fprintf(w, "Organizations:          %d\n", s.Organizations)
	fmt.Fprintf(w, "Triage items:           %d\n", s.TriageItems)
	fmt.Fprintf(w, "Cached resolutions:     %d\n", s.CacheEntries)
	return nil
}

func location(city, state, zip *string) string {
	var parts []string
	for _, p := range []*string{city, state, zip} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, ", ")
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
