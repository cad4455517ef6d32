// Package composite combines the NTEE, Schedule I, grant-size and filing
// signals for one applicant/foundation pair into a bounded score and a
// PASS / ABSTAIN / FAIL recommendation.
package composite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/decay"
	"github.com/vijay-prabhu/grantmatch/internal/grantsize"
	"github.com/vijay-prabhu/grantmatch/internal/logging"
	"github.com/vijay-prabhu/grantmatch/internal/metrics"
	"github.com/vijay-prabhu/grantmatch/internal/model"
	"github.com/vijay-prabhu/grantmatch/internal/ntee"
	"github.com/vijay-prabhu/grantmatch/internal/schedulei"
)

// ErrNilInput is returned when the profile or foundation is nil
var ErrNilInput = errors.New("profile and foundation are required")

// TriageSink receives ABSTAIN results for human review
type TriageSink interface {
	Accept(ctx context.Context, r Result) error
}

// Deps are the collaborators a Scorer is built from
type Deps struct {
	Config   Config
	Resolver schedulei.Resolver
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	Triage   TriageSink
	Clock    func() time.Time
}

// Scorer scores profile/foundation pairs. It is safe for concurrent use;
// the only shared state lives in the resolver cache and the triage sink.
type Scorer struct {
	config  Config
	ntee    *ntee.Scorer
	voting  *schedulei.System
	filings *decay.Calculator
	logger  *slog.Logger
	metrics *metrics.Recorder
	triage  TriageSink
	now     func() time.Time
}

// New validates the configuration and builds a Scorer
func New(deps Deps) (*Scorer, error) {
	if err := deps.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := logging.OrDefault(deps.Logger)

	// rates were checked by Validate
	rates := deps.Config.Decay
	mission, _ := decay.New(rates.Mission)
	grants, _ := decay.New(rates.Grants)
	filings, _ := decay.New(rates.Filings)

	return &Scorer{
		config:  deps.Config,
		ntee:    ntee.NewScorer(deps.Config.NTEE, mission, clock),
		voting:  schedulei.NewSystem(deps.Resolver, deps.Config.Voting, grants, logger, clock),
		filings: filings,
		logger:  logger.WithGroup("composite"),
		metrics: deps.Metrics,
		triage:  deps.Triage,
		now:     clock,
	}, nil
}

// Config returns the scorer's configuration
func (s *Scorer) Config() Config {
	return s.config
}

// ScoreFoundationMatch scores one pair. Missing data never fails scoring;
// only nil inputs are an error.
func (s *Scorer) ScoreFoundationMatch(ctx context.Context, profile *model.OrganizationProfile, foundation *model.FoundationOpportunityData) (Result, error) {
	if profile == nil || foundation == nil {
		return Result{}, ErrNilInput
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	now := s.now()
	cfg := s.config

	voting := s.voting.Analyze(ctx, foundation)

	profileCodes := ntee.ParseStrings(profile.NTEECodes, model.SourceUserProvided)
	foundationCodes := ntee.FromFoundation(foundation.NTEECodes)
	var inferred []string
	if len(foundationCodes) == 0 {
		inferred = voting.TopCodes(cfg.InferredCodeCount)
		foundationCodes = ntee.ParseStrings(inferred, model.SourceScheduleI)
	}
	nteeResult := s.ntee.Score(profileCodes, foundationCodes)

	grant := grantsize.Score(grantsize.ResolveGrantAmount(foundation), profile.Revenue)

	years := yearsSinceFiling(foundation.MostRecentFilingYear, now)

	components := Components{
		NTEE:              nteeResult.Score * 100,
		Geographic:        geographicScore(profile, foundation),
		Coherence:         coherenceScore(voting, cfg.Coherence),
		FinancialCapacity: financialScore(foundation, grant.Multiplier),
		GrantSize:         grant.FitScore * 100,
		ApplicationPolicy: applicationPolicyScore(foundation),
		FilingRecency:     filingRecencyScore(years),
		FoundationType:    foundationTypeScore(foundation.FoundationType),
	}.Sanitized()

	boost := sanitize(voting.RecommendedBoost, 0, 0, cfg.MaxBoost)
	penalty := s.timeDecayPenalty(foundation.MostRecentFilingYear, now)
	final := Aggregate(components, cfg.Weights, cfg.NTEEMaxContribution, boost, cfg.MaxBoost, penalty)

	rec, code, why := cfg.Recommend(final, Signals{
		ProfileHasNTEE:       len(profileCodes) > 0,
		FoundationHasNTEE:    len(foundationCodes) > 0,
		NTEEScore:            components.NTEE,
		GeographicScore:      components.Geographic,
		GeographicRestricted: foundation.HasGeographicRestrictions(),
	})

	result := Result{
		ProfileID:        profile.ID,
		ProfileName:      profile.Name,
		FoundationEIN:    foundation.EIN,
		FoundationName:   foundation.Label(),
		FinalScore:       final,
		Recommendation:   rec,
		Components:       components,
		CoherenceBoost:   boost,
		TimeDecayPenalty: penalty,
		Confidence: Confidence(ConfidenceInputs{
			YearsSinceFiling:   years,
			ResolvedRecipients: voting.ResolvedRecipients(),
			NTEEScore:          components.NTEE,
		}),
		AbstainCode:   code,
		AbstainReason: why,
		Details: Details{
			NTEE:              nteeResult,
			InferredNTEECodes: inferred,
			Voting: VotingSummary{
				TotalGrantees:      voting.TotalGrantees,
				ResolvedRecipients: voting.ResolvedRecipients(),
				Coherence:          voting.Coherence,
				Entropy:            voting.Entropy,
				Concentration:      voting.Concentration,
				IsCoherent:         voting.IsCoherent,
				TopCodes:           voting.TopCodes(cfg.InferredCodeCount),
			},
			GrantSize:        grant,
			YearsSinceFiling: years,
		},
		ScoredAt: now.UTC(),
	}

	s.metrics.ObserveScore(string(rec), final)
	s.logger.Debug("scored foundation",
		"profile", profile.Name,
		"foundation", result.FoundationName,
		"score", fmt.Sprintf("%.2f", final),
		"recommendation", rec,
	)

	if rec == RecommendAbstain && s.triage != nil {
		if err := s.triage.Accept(ctx, result); err != nil {
			s.logger.Warn("failed to queue result for review", "foundation", result.FoundationName, "error", err)
		}
	}

	return result, nil
}

// timeDecayPenalty discounts stale filings after a grace period, never below
// the configured floor. An unknown filing year gets a flat penalty.
func (s *Scorer) timeDecayPenalty(filingYear *int, now time.Time) float64 {
	if filingYear == nil {
		return s.config.MissingFilingPenalty
	}
	months := decay.MonthsBetween(decay.EndOfYear(*filingYear), now) - s.config.FilingGraceMonths
	if months < 0 {
		months = 0
	}
	d, err := s.filings.Decay(months)
	if err != nil {
		return 1.0
	}
	return max(d, s.config.FilingMinWeight)
}

func yearsSinceFiling(filingYear *int, now time.Time) *int {
	if filingYear == nil {
		return nil
	}
	y := now.Year() - *filingYear
	if y < 0 {
		y = 0
	}
	return &y
}
