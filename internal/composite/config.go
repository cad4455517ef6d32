package composite

import (
	"errors"
	"fmt"
	"math"

	"github.com/vijay-prabhu/grantmatch/internal/decay"
	"github.com/vijay-prabhu/grantmatch/internal/ntee"
	"github.com/vijay-prabhu/grantmatch/internal/schedulei"
)

// Weights are the per-dimension weights of the composite. They should sum to 1.
type Weights struct {
	NTEE              float64 `json:"ntee" yaml:"ntee"`
	Geographic        float64 `json:"geographic" yaml:"geographic"`
	Coherence         float64 `json:"coherence" yaml:"coherence"`
	FinancialCapacity float64 `json:"financial_capacity" yaml:"financial_capacity"`
	GrantSize         float64 `json:"grant_size" yaml:"grant_size"`
	ApplicationPolicy float64 `json:"application_policy" yaml:"application_policy"`
	FilingRecency     float64 `json:"filing_recency" yaml:"filing_recency"`
	FoundationType    float64 `json:"foundation_type" yaml:"foundation_type"`
}

// DefaultWeights returns the standard weighting
func DefaultWeights() Weights {
	return Weights{
		NTEE:              0.30,
		Geographic:        0.20,
		Coherence:         0.12,
		FinancialCapacity: 0.10,
		GrantSize:         0.10,
		ApplicationPolicy: 0.08,
		FilingRecency:     0.05,
		FoundationType:    0.05,
	}
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.NTEE + w.Geographic + w.Coherence + w.FinancialCapacity +
		w.GrantSize + w.ApplicationPolicy + w.FilingRecency + w.FoundationType
}

// CoherenceBlend weights the voting metrics inside the coherence dimension
type CoherenceBlend struct {
	Coherence     float64
	Concentration float64
	Entropy       float64 // applied to 1 - min(entropy/EntropyScale, 1)
	EntropyScale  float64
}

// DecayRates are the λ per month of the three decay curves the scorer uses
type DecayRates struct {
	Grants  float64 // Schedule I grant age
	Mission float64 // NTEE code age
	Filings float64 // 990-PF filing age, after the grace period
}

// DefaultDecayRates returns the preset rates
func DefaultDecayRates() DecayRates {
	return DecayRates{
		Grants:  decay.GrantsLambda,
		Mission: decay.MissionLambda,
		Filings: decay.FilingsLambda,
	}
}

// Config holds every tunable of the composite scorer
type Config struct {
	Weights             Weights
	NTEEMaxContribution float64 // cap on the weighted NTEE points
	AbstainLow          float64 // inclusive lower bound of the abstain band
	AbstainHigh         float64 // inclusive upper bound; PASS starts above it
	WeakNTEEThreshold   float64 // NTEE dimension below this abstains
	MaxBoost            float64

	FilingGraceMonths    float64
	FilingMinWeight      float64
	MissingFilingPenalty float64

	// InferredCodeCount is how many Schedule I codes stand in for a
	// foundation that declares none
	InferredCodeCount int

	Coherence CoherenceBlend
	Decay     DecayRates
	NTEE      ntee.ScorerConfig
	Voting    schedulei.Config
}

// DefaultConfig returns the standard configuration
func DefaultConfig() Config {
	return Config{
		Weights:              DefaultWeights(),
		NTEEMaxContribution:  30,
		AbstainLow:           45,
		AbstainHigh:          58,
		WeakNTEEThreshold:    20,
		MaxBoost:             0.15,
		FilingGraceMonths:    24,
		FilingMinWeight:      0.7,
		MissingFilingPenalty: 0.9,
		InferredCodeCount:    3,
		Coherence: CoherenceBlend{
			Coherence:     0.5,
			Concentration: 0.3,
			Entropy:       0.2,
			EntropyScale:  3.0,
		},
		Decay:  DefaultDecayRates(),
		NTEE:   ntee.DefaultScorerConfig(),
		Voting: schedulei.DefaultConfig(),
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	var errs []error

	if math.Abs(c.Weights.Sum()-1.0) > 0.01 {
		errs = append(errs, fmt.Errorf("weights must sum to 1.0, got %.3f", c.Weights.Sum()))
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"ntee", c.Weights.NTEE},
		{"geographic", c.Weights.Geographic},
		{"coherence", c.Weights.Coherence},
		{"financial_capacity", c.Weights.FinancialCapacity},
		{"grant_size", c.Weights.GrantSize},
		{"application_policy", c.Weights.ApplicationPolicy},
		{"filing_recency", c.Weights.FilingRecency},
		{"foundation_type", c.Weights.FoundationType},
	} {
		if w.value < 0 {
			errs = append(errs, fmt.Errorf("weight %s must not be negative", w.name))
		}
	}
	if c.NTEEMaxContribution <= 0 || c.NTEEMaxContribution > 100 {
		errs = append(errs, errors.New("ntee_max_contribution must be in (0, 100]"))
	}
	if c.AbstainLow > c.AbstainHigh {
		errs = append(errs, errors.New("abstain_low must not exceed abstain_high"))
	}
	if c.AbstainLow < 0 || c.AbstainHigh > 100 {
		errs = append(errs, errors.New("abstain band must lie within [0, 100]"))
	}
	if c.MaxBoost < 0 || c.MaxBoost > 1 {
		errs = append(errs, errors.New("max_boost must be in [0, 1]"))
	}
	if c.FilingMinWeight < 0 || c.FilingMinWeight > 1 {
		errs = append(errs, errors.New("filing_min_weight must be in [0, 1]"))
	}
	if c.MissingFilingPenalty < 0 || c.MissingFilingPenalty > 1 {
		errs = append(errs, errors.New("missing_filing_penalty must be in [0, 1]"))
	}
	if c.FilingGraceMonths < 0 {
		errs = append(errs, errors.New("filing_grace_months must not be negative"))
	}
	if c.Coherence.EntropyScale <= 0 {
		errs = append(errs, errors.New("coherence entropy_scale must be positive"))
	}
	for _, r := range []struct {
		name  string
		value float64
	}{
		{"grants", c.Decay.Grants},
		{"mission", c.Decay.Mission},
		{"filings", c.Decay.Filings},
	} {
		if _, err := decay.New(r.value); err != nil {
			errs = append(errs, fmt.Errorf("decay %s: %w", r.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
