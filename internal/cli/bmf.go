package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/grantmatch/internal/database"
	"github.com/vijay-prabhu/grantmatch/internal/ein"
)

var bmfCmd = &cobra.Command{
	Use:   "bmf",
	Short: "Manage the IRS Business Master File used for EIN resolution",
}

var bmfImportCmd = &cobra.Command{
	Use:   "import <file.csv>...",
	Short: "Import IRS BMF CSV extracts",
	Long: `Import one or more IRS Exempt Organizations Business Master File CSV
extracts. Existing EINs are updated. Rows without a valid EIN or a name are
skipped.

Examples:
  grantmatch bmf import eo_or.csv eo_wa.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBMFImport,
}

var bmfLookupCmd = &cobra.Command{
	Use:   "lookup <ein>",
	Short: "Show the BMF record for an EIN",
	Args:  cobra.ExactArgs(1),
	RunE:  runBMFLookup,
}

var bmfSearchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "List BMF candidates for an organization name",
	Args:  cobra.ExactArgs(1),
	RunE:  runBMFSearch,
}

var bmfResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve an organization the way scoring does",
	Long: `Resolve an organization to an EIN with a HIGH, MEDIUM or LOW confidence,
using the same thresholds as scoring.

Examples:
  grantmatch bmf resolve --ein 12-3456789
  grantmatch bmf resolve --name "Riverbend Literacy Project" --state OR`,
	RunE: runBMFResolve,
}

var (
	bmfEIN   string
	bmfName  string
	bmfState string
	bmfZIP   string
)

func init() {
	rootCmd.AddCommand(bmfCmd)
	bmfCmd.AddCommand(bmfImportCmd)
	bmfCmd.AddCommand(bmfLookupCmd)
	bmfCmd.AddCommand(bmfSearchCmd)
	bmfCmd.AddCommand(bmfResolveCmd)

	bmfSearchCmd.Flags().StringVar(&bmfState, "state", "", "Narrow by state")
	bmfSearchCmd.Flags().StringVar(&bmfZIP, "zip", "", "Narrow by ZIP code")

	bmfResolveCmd.Flags().StringVar(&bmfEIN, "ein", "", "Employer Identification Number")
	bmfResolveCmd.Flags().StringVar(&bmfName, "name", "", "Organization name")
	bmfResolveCmd.Flags().StringVar(&bmfState, "state", "", "State")
	bmfResolveCmd.Flags().StringVar(&bmfZIP, "zip", "", "ZIP code")
}

func runBMFImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	total := &database.ImportResult{}
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		res, err := db.ImportBMF(ctx, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", path, err)
		}
		slog.Info("imported BMF extract", "file", path, "imported", res.Imported, "skipped", res.Skipped)

		total.Rows += res.Rows
		total.Imported += res.Imported
		total.Skipped += res.Skipped
	}

	return printOutput(total)
}

func runBMFLookup(cmd *cobra.Command, args []string) error {
	id := ein.NormalizeEIN(args[0])
	if id == "" {
		return fmt.Errorf("invalid EIN: %s", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	o, err := db.GetOrganization(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to look up EIN: %w", err)
	}
	if o == nil {
		return fmt.Errorf("EIN %s not found", id)
	}
	return printOutput(o)
}

func runBMFSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := db.SearchName(cmd.Context(), args[0], bmfState, bmfZIP)
	if err != nil {
		return err
	}
	return printOutput(matches)
}

func runBMFResolve(cmd *cobra.Command, args []string) error {
	if bmfEIN == "" && bmfName == "" {
		return fmt.Errorf("--ein or --name is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	resolver := ein.NewResolver(db, cfg.EINConfig(), slog.Default(), nil)
	res := resolver.Resolve(cmd.Context(), ein.Query{EIN: bmfEIN, Name: bmfName, State: bmfState, ZIP: bmfZIP})
	if res == nil {
		return fmt.Errorf("no confident match")
	}
	return printOutput(res)
}
