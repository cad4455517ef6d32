package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/vijay-prabhu/grantmatch/internal/logging"
)

// DefaultPath is where 'config init' writes the configuration
const DefaultPath = "~/.config/grantmatch/config.toml"

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand path
	expandedPath, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	// Read file
	data, err := os.ReadFile(expandedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run 'grantmatch config init' to create)", expandedPath)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Parse TOML over the defaults so omitted keys keep their default
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("failed to expand paths: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path if it exists and falls back to the defaults
func LoadOrDefault(path string) (*Config, error) {
	expandedPath, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}
	if _, err := os.Stat(expandedPath); errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := cfg.expandPaths(); err != nil {
			return nil, fmt.Errorf("failed to expand paths: %w", err)
		}
		return cfg, nil
	}
	return Load(path)
}

// MustLoad loads config or exits with error
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// Marshal renders the configuration as TOML
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) (string, error) {
	expandedPath, err := expandPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand config path: %w", err)
	}
	if _, err := os.Stat(expandedPath); err == nil && !force {
		return "", fmt.Errorf("config file already exists: %s (use --force to overwrite)", expandedPath)
	}

	data, err := Default().Marshal()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(expandedPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(expandedPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return expandedPath, nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}

// expandPaths expands ~ in all path fields
func (c *Config) expandPaths() error {
	var err error

	c.Database.Path, err = expandPath(c.Database.Path)
	if err != nil {
		return err
	}

	c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath)
	if err != nil {
		return err
	}

	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	// Logging validation
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got '%s'", c.Logging.Level))
	}

	// Scoring, voting and decay validation
	if err := c.CompositeConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}
	if c.Scoring.InferredCodeCount < 0 {
		errs = append(errs, errors.New("scoring.inferred_code_count must not be negative"))
	}
	if c.Scoring.Voting.ConcentrationTopN < 1 {
		errs = append(errs, errors.New("scoring.voting.concentration_top_n must be at least 1"))
	}

	// Resolver validation
	r := c.Resolver
	if r.MediumSimilarity <= 0 || r.MediumSimilarity > r.HighSimilarity || r.HighSimilarity > 1 {
		errs = append(errs, errors.New("resolver similarities must satisfy 0 < medium_similarity <= high_similarity <= 1"))
	}
	if d, err := r.Timeout(); err != nil {
		errs = append(errs, fmt.Errorf("resolver.lookup_timeout: %w", err))
	} else if d < 0 {
		errs = append(errs, errors.New("resolver.lookup_timeout must not be negative"))
	}

	// Batch validation
	if c.Batch.Workers < 1 || c.Batch.Workers > 64 {
		errs = append(errs, errors.New("batch.workers must be between 1 and 64"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// EnsureDirectories creates necessary directories for the database and metrics
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Database.Path)}
	if c.Metrics.TextfilePath != "" {
		dirs = append(dirs, filepath.Dir(c.Metrics.TextfilePath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
