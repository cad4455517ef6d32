package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/grantmatch/internal/config"
	"github.com/vijay-prabhu/grantmatch/internal/database"
	"github.com/vijay-prabhu/grantmatch/internal/logging"
	"github.com/vijay-prabhu/grantmatch/internal/output"
)

var (
	// Version info set from main
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global flags
	configPath string
	outputFmt  string
	logLevel   string
	noColor    bool
)

// SetVersionInfo sets version information from build flags
func SetVersionInfo(v, c, b string) {
	version = v
	commit = c
	buildTime = b
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "grantmatch",
	Short: "Score how well a nonprofit fits a grant-making foundation",
	Long: `grantmatch scores applicant/foundation pairs on a 0-100 scale and
recommends PASS, ABSTAIN or FAIL.

It provides:
  - Composite scoring from NTEE codes, Schedule I grants, grant size and filings
  - EIN resolution against an imported IRS Business Master File
  - A triage queue where reviewers decide ABSTAIN results`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath,
		"config file")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", output.FormatTable,
		"output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored log output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if !output.ValidFormat(outputFmt) {
		return fmt.Errorf("unknown output format: %s", outputFmt)
	}
	outputFmt = strings.ToLower(outputFmt)
	if outputFmt == "" {
		outputFmt = output.FormatTable
	}
	if logLevel != "" && !logging.ValidLevel(logLevel) {
		return fmt.Errorf("unknown log level: %s", logLevel)
	}
	level := logLevel
	if level == "" {
		level = "warn"
	}
	logging.SetDefaultCLILogger(level, !noColor && isTerminal(os.Stderr))
	return nil
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, and applies the global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logging.SetDefaultCLILogger(cfg.Logging.Level, useColor(cfg))
	return cfg, nil
}

func useColor(cfg *config.Config) bool {
	return cfg.Logging.Color && !noColor && isTerminal(os.Stderr)
}

// openDatabase creates the data directories and opens the database
func openDatabase(cfg *config.Config) (*database.DB, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	slog.Debug("database opened", "path", cfg.Database.Path)
	return db, nil
}

// printOutput writes data to stdout in the selected format
func printOutput(data any) error {
	return output.Output(outputFmt, data)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("grantmatch %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", buildTime)
	},
}
