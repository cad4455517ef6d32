package config

import (
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/composite"
	"github.com/vijay-prabhu/grantmatch/internal/ein"
	"github.com/vijay-prabhu/grantmatch/internal/ntee"
	"github.com/vijay-prabhu/grantmatch/internal/schedulei"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Scoring  ScoringConfig  `toml:"scoring"`
	Decay    DecayConfig    `toml:"decay"`
	Resolver ResolverConfig `toml:"resolver"`
	Triage   TriageConfig   `toml:"triage"`
	Batch    BatchConfig    `toml:"batch"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level string `toml:"level"`
	Color bool   `toml:"color"`
}

// ScoringConfig contains the composite scorer thresholds
type ScoringConfig struct {
	NTEEMaxContribution  float64       `toml:"ntee_max_contribution"`
	AbstainLow           float64       `toml:"abstain_low"`
	AbstainHigh          float64       `toml:"abstain_high"`
	WeakNTEEThreshold    float64       `toml:"weak_ntee_threshold"`
	MaxBoost             float64       `toml:"max_boost"`
	FilingGraceMonths    float64       `toml:"filing_grace_months"`
	FilingMinWeight      float64       `toml:"filing_min_weight"`
	MissingFilingPenalty float64       `toml:"missing_filing_penalty"`
	InferredCodeCount    int           `toml:"inferred_code_count"`
	NTEEMajorWeight      float64       `toml:"ntee_major_weight"`
	NTEELeafWeight       float64       `toml:"ntee_leaf_weight"`
	Weights              WeightsConfig `toml:"weights"`
	Voting               VotingConfig  `toml:"voting"`
}

// WeightsConfig contains the per-dimension weights; they must sum to 1
type WeightsConfig struct {
	NTEE              float64 `toml:"ntee"`
	Geographic        float64 `toml:"geographic"`
	Coherence         float64 `toml:"coherence"`
	FinancialCapacity float64 `toml:"financial_capacity"`
	GrantSize         float64 `toml:"grant_size"`
	ApplicationPolicy float64 `toml:"application_policy"`
	FilingRecency     float64 `toml:"filing_recency"`
	FoundationType    float64 `toml:"foundation_type"`
}

// VotingConfig contains the Schedule I coherence thresholds and boost curve
type VotingConfig struct {
	CoherenceThreshold     float64 `toml:"coherence_threshold"`
	EntropyThreshold       float64 `toml:"entropy_threshold"`
	ConcentrationThreshold float64 `toml:"concentration_threshold"`
	ConcentrationTopN      int     `toml:"concentration_top_n"`
	BoostBase              float64 `toml:"boost_base"`
	BoostSlope             float64 `toml:"boost_slope"`
}

// DecayConfig contains the per-month decay rates
type DecayConfig struct {
	Grants  float64 `toml:"grants"`
	Mission float64 `toml:"mission"`
	Filings float64 `toml:"filings"`
}

// ResolverConfig contains EIN resolution settings
type ResolverConfig struct {
	HighSimilarity   float64 `toml:"high_similarity"`
	MediumSimilarity float64 `toml:"medium_similarity"`
	LookupTimeout    string  `toml:"lookup_timeout"` // Go duration, empty for none
	CacheEnabled     bool    `toml:"cache_enabled"`
	PersistCache     bool    `toml:"persist_cache"` // Keep the cache in the database between runs
}

// Timeout parses LookupTimeout; empty means no timeout
func (r ResolverConfig) Timeout() (time.Duration, error) {
	if r.LookupTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(r.LookupTimeout)
}

// TriageConfig contains review queue settings
type TriageConfig struct {
	Enabled         bool   `toml:"enabled"`          // Queue ABSTAIN results while scoring
	DefaultReviewer string `toml:"default_reviewer"` // Used by 'triage next' when --reviewer is empty
}

// BatchConfig contains batch scoring settings
type BatchConfig struct {
	Workers int `toml:"workers"`
}

// MetricsConfig contains metrics export settings
type MetricsConfig struct {
	TextfilePath string `toml:"textfile_path"` // Empty disables the textfile export
}

// Default returns a Config with sensible defaults
func Default() *Config {
	sc := composite.DefaultConfig()
	rc := ein.DefaultConfig()

	return &Config{
		Database: DatabaseConfig{
			Path: "~/.local/share/grantmatch/grantmatch.db",
		},
		Logging: LoggingConfig{
			Level: "info",
			Color: true,
		},
		Scoring: ScoringConfig{
			NTEEMaxContribution:  sc.NTEEMaxContribution,
			AbstainLow:           sc.AbstainLow,
			AbstainHigh:          sc.AbstainHigh,
			WeakNTEEThreshold:    sc.WeakNTEEThreshold,
			MaxBoost:             sc.MaxBoost,
			FilingGraceMonths:    sc.FilingGraceMonths,
			FilingMinWeight:      sc.FilingMinWeight,
			MissingFilingPenalty: sc.MissingFilingPenalty,
			InferredCodeCount:    sc.InferredCodeCount,
			NTEEMajorWeight:      sc.NTEE.MajorWeight,
			NTEELeafWeight:       sc.NTEE.LeafWeight,
			Weights: WeightsConfig{
				NTEE:              sc.Weights.NTEE,
				Geographic:        sc.Weights.Geographic,
				Coherence:         sc.Weights.Coherence,
				FinancialCapacity: sc.Weights.FinancialCapacity,
				GrantSize:         sc.Weights.GrantSize,
				ApplicationPolicy: sc.Weights.ApplicationPolicy,
				FilingRecency:     sc.Weights.FilingRecency,
				FoundationType:    sc.Weights.FoundationType,
			},
			Voting: VotingConfig{
				CoherenceThreshold:     sc.Voting.CoherenceThreshold,
				EntropyThreshold:       sc.Voting.EntropyThreshold,
				ConcentrationThreshold: sc.Voting.ConcentrationThreshold,
				ConcentrationTopN:      sc.Voting.ConcentrationTopN,
				BoostBase:              sc.Voting.BoostBase,
				BoostSlope:             sc.Voting.BoostSlope,
			},
		},
		Decay: DecayConfig{
			Grants:  sc.Decay.Grants,
			Mission: sc.Decay.Mission,
			Filings: sc.Decay.Filings,
		},
		Resolver: ResolverConfig{
			HighSimilarity:   rc.HighSimilarity,
			MediumSimilarity: rc.MediumSimilarity,
			LookupTimeout:    "2s",
			CacheEnabled:     rc.CacheEnabled,
			PersistCache:     true,
		},
		Triage: TriageConfig{
			Enabled: true,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
	}
}

// CompositeConfig maps the scoring, voting and decay sections onto the
// scorer configuration
func (c *Config) CompositeConfig() composite.Config {
	sc := composite.DefaultConfig()

	sc.NTEEMaxContribution = c.Scoring.NTEEMaxContribution
	sc.AbstainLow = c.Scoring.AbstainLow
	sc.AbstainHigh = c.Scoring.AbstainHigh
	sc.WeakNTEEThreshold = c.Scoring.WeakNTEEThreshold
	sc.MaxBoost = c.Scoring.MaxBoost
	sc.FilingGraceMonths = c.Scoring.FilingGraceMonths
	sc.FilingMinWeight = c.Scoring.FilingMinWeight
	sc.MissingFilingPenalty = c.Scoring.MissingFilingPenalty
	sc.InferredCodeCount = c.Scoring.InferredCodeCount

	w := c.Scoring.Weights
	sc.Weights = composite.Weights{
		NTEE:              w.NTEE,
		Geographic:        w.Geographic,
		Coherence:         w.Coherence,
		FinancialCapacity: w.FinancialCapacity,
		GrantSize:         w.GrantSize,
		ApplicationPolicy: w.ApplicationPolicy,
		FilingRecency:     w.FilingRecency,
		FoundationType:    w.FoundationType,
	}

	sc.NTEE = ntee.ScorerConfig{
		MajorWeight: c.Scoring.NTEEMajorWeight,
		LeafWeight:  c.Scoring.NTEELeafWeight,
	}

	v := c.Scoring.Voting
	sc.Voting = schedulei.Config{
		CoherenceThreshold:     v.CoherenceThreshold,
		EntropyThreshold:       v.EntropyThreshold,
		ConcentrationThreshold: v.ConcentrationThreshold,
		ConcentrationTopN:      v.ConcentrationTopN,
		EntropyScale:           sc.Voting.EntropyScale,
		BoostBase:              v.BoostBase,
		BoostSlope:             v.BoostSlope,
		BoostMax:               c.Scoring.MaxBoost,
	}

	sc.Decay = composite.DecayRates{
		Grants:  c.Decay.Grants,
		Mission: c.Decay.Mission,
		Filings: c.Decay.Filings,
	}
	return sc
}

// EINConfig maps the resolver section onto the resolver configuration.
// An unparseable timeout is rejected by Validate; here it means none.
func (c *Config) EINConfig() ein.Config {
	timeout, _ := c.Resolver.Timeout()
	return ein.Config{
		HighSimilarity:   c.Resolver.HighSimilarity,
		MediumSimilarity: c.Resolver.MediumSimilarity,
		LookupTimeout:    timeout,
		CacheEnabled:     c.Resolver.CacheEnabled,
	}
}
