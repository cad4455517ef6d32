package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/grantmatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration after defaults and the config file are merged.

Examples:
  grantmatch config show            # Effective configuration
  grantmatch config show --default  # Built-in defaults only`,
	RunE: runConfigShow,
}

var (
	configForce   bool
	configDefault bool
)

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configShowCmd.Flags().BoolVar(&configDefault, "default", false, "Show built-in defaults instead of the config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.WriteDefault(configPath, configForce)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	fmt.Printf("Created config file at %s\n", path)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Download an IRS Business Master File extract (eo_*.csv)")
	fmt.Println("  2. Run 'grantmatch bmf import eo_xx.csv' to load it")
	fmt.Println("  3. Run 'grantmatch score --profile org.yaml --foundations foundations.yaml'")

	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	source := "built-in defaults"
	if !configDefault {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		source = configPath
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	fmt.Printf("# Config: %s\n\n", source)
	fmt.Print(string(data))
	return nil
}
