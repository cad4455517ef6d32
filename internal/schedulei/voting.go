// Package schedulei infers a foundation's funding interests from the
// recipients listed on its Schedule I. Each resolved recipient votes for its
// NTEE codes, weighted by grant amount, resolution confidence and grant age.
package schedulei

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/decay"
	"github.com/vijay-prabhu/grantmatch/internal/ein"
	"github.com/vijay-prabhu/grantmatch/internal/logging"
	"github.com/vijay-prabhu/grantmatch/internal/model"
	"github.com/vijay-prabhu/grantmatch/internal/ntee"
)

// Resolver resolves a recipient's identity. *ein.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, q ein.Query) *ein.Resolution
}

// Config holds the coherence criteria and boost constants
type Config struct {
	CoherenceThreshold     float64 // coherence must exceed this
	EntropyThreshold       float64 // entropy must be below this
	ConcentrationThreshold float64 // top-N share must exceed this
	ConcentrationTopN      int
	EntropyScale           float64 // entropy at which the boost bottoms out
	BoostBase              float64
	BoostSlope             float64
	BoostMax               float64
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		CoherenceThreshold:     0.5,
		EntropyThreshold:       2.0,
		ConcentrationThreshold: 0.6,
		ConcentrationTopN:      3,
		EntropyScale:           3.0,
		BoostBase:              0.12,
		BoostSlope:             0.08,
		BoostMax:               0.15,
	}
}

// DropReason explains why a grantee cast no vote
type DropReason string

const (
	DropUnresolved    DropReason = "unresolved"
	DropLowConfidence DropReason = "low_confidence"
	DropNoNTEE        DropReason = "no_ntee_code"
	DropFutureGrant   DropReason = "future_grant"
	DropBadAmount     DropReason = "invalid_amount"
)

// Vote is one recipient's weighted vote
type Vote struct {
	RecipientName    string         `json:"recipient_name" yaml:"recipient_name"`
	RecipientEIN     string         `json:"recipient_ein,omitempty" yaml:"recipient_ein,omitempty"`
	Codes            []string       `json:"codes" yaml:"codes"`
	Amount           float64        `json:"amount" yaml:"amount"`
	Confidence       ein.Confidence `json:"confidence" yaml:"confidence"`
	ConfidenceWeight float64        `json:"confidence_weight" yaml:"confidence_weight"`
	DecayFactor      float64        `json:"decay_factor" yaml:"decay_factor"`
	Weight           float64        `json:"weight" yaml:"weight"`
}

// CodeTally aggregates the votes cast for one NTEE code
type CodeTally struct {
	Code             string   `json:"code" yaml:"code"`
	TotalVotes       float64  `json:"total_votes" yaml:"total_votes"`
	VoteCount        int      `json:"vote_count" yaml:"vote_count"`
	TotalGrantAmount float64  `json:"total_grant_amount" yaml:"total_grant_amount"`
	Recipients       []string `json:"recipients" yaml:"recipients"`
}

// Result is the voting outcome for one foundation
type Result struct {
	TotalGrantees    int                `json:"total_grantees" yaml:"total_grantees"`
	Votes            []Vote             `json:"votes" yaml:"votes"`
	Dropped          map[DropReason]int `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Tallies          []CodeTally        `json:"tallies" yaml:"tallies"`
	Coherence        float64            `json:"coherence" yaml:"coherence"`
	Entropy          float64            `json:"entropy" yaml:"entropy"`
	Concentration    float64            `json:"concentration" yaml:"concentration"`
	IsCoherent       bool               `json:"is_coherent" yaml:"is_coherent"`
	RecommendedBoost float64            `json:"recommended_boost" yaml:"recommended_boost"`
}

// ResolvedRecipients returns the number of recipients that cast a vote
func (r Result) ResolvedRecipients() int {
	return len(r.Votes)
}

// TopCodes returns up to n codes ranked by total votes
func (r Result) TopCodes(n int) []string {
	if n < 0 {
		n = 0
	}
	if n > len(r.Tallies) {
		n = len(r.Tallies)
	}
	out := make([]string, 0, n)
	for _, t := range r.Tallies[:n] {
		out = append(out, t.Code)
	}
	return out
}

// System runs Schedule I voting
type System struct {
	resolver Resolver
	config   Config
	decay    *decay.Calculator
	logger   *slog.Logger
	now      func() time.Time
}

// NewSystem creates a voting system. A nil calc uses the grants preset.
func NewSystem(resolver Resolver, config Config, calc *decay.Calculator, logger *slog.Logger, clock func() time.Time) *System {
	if calc == nil {
		calc = decay.MustPreset(decay.PresetGrants)
	}
	if clock == nil {
		clock = time.Now
	}
	return &System{
		resolver: resolver,
		config:   config,
		decay:    calc,
		logger:   logging.OrDefault(logger).WithGroup("schedule_i"),
		now:      clock,
	}
}

// Analyze resolves every grantee, collects votes and computes the
// distribution metrics
func (s *System) Analyze(ctx context.Context, f *model.FoundationOpportunityData) Result {
	res := Result{Dropped: map[DropReason]int{}}
	if f == nil {
		return s.finish(res)
	}
	res.TotalGrantees = len(f.Grantees)

	now := s.now()
	for _, g := range f.Grantees {
		vote, reason := s.vote(ctx, g, f.MostRecentFilingYear, now)
		if reason != "" {
			res.Dropped[reason]++
			continue
		}
		res.Votes = append(res.Votes, vote)
	}

	if len(res.Dropped) > 0 {
		s.logger.Debug("dropped grantees", "foundation", f.Label(), "dropped", res.Dropped, "kept", len(res.Votes))
	}
	return s.finish(res)
}

func (s *System) vote(ctx context.Context, g model.ScheduleIGrantee, filingYear *int, now time.Time) (Vote, DropReason) {
	if g.Amount < 0 || math.IsNaN(g.Amount) || math.IsInf(g.Amount, 0) {
		s.logger.Warn("grant with invalid amount dropped", "recipient", g.RecipientName, "amount", g.Amount)
		return Vote{}, DropBadAmount
	}

	var resolution *ein.Resolution
	if s.resolver != nil {
		resolution = s.resolver.Resolve(ctx, ein.Query{
			EIN:   g.RecipientEIN,
			Name:  g.RecipientName,
			State: g.State,
			ZIP:   g.ZIP,
		})
	}
	if resolution == nil {
		return Vote{}, DropUnresolved
	}
	if resolution.Confidence == ein.ConfidenceLow {
		return Vote{}, DropLowConfidence
	}

	raw := make([]string, 0, len(g.NTEECodes)+1)
	if resolution.NTEECode != "" {
		raw = append(raw, resolution.NTEECode)
	}
	raw = append(raw, g.NTEECodes...)
	parsed := ntee.ParseStrings(raw, model.SourceScheduleI)
	if len(parsed) == 0 {
		return Vote{}, DropNoNTEE
	}
	codes := make([]string, len(parsed))
	for i, c := range parsed {
		codes[i] = c.Full
	}

	year := g.Year
	if year == 0 && filingYear != nil {
		year = *filingYear
	}
	decayFactor := 1.0
	if year != 0 {
		if year > now.Year() {
			s.logger.Warn("future-dated grant dropped", "recipient", g.RecipientName, "year", year)
			return Vote{}, DropFutureGrant
		}
		months := decay.MonthsBetween(decay.EndOfYear(year), now)
		if months < 0 {
			months = 0
		}
		d, err := s.decay.Decay(months)
		if err != nil {
			s.logger.Warn("grant decay failed", "recipient", g.RecipientName, "error", err)
			d = 1.0
		}
		decayFactor = d
	}

	return Vote{
		RecipientName:    g.RecipientName,
		RecipientEIN:     resolution.EIN,
		Codes:            codes,
		Amount:           g.Amount,
		Confidence:       resolution.Confidence,
		ConfidenceWeight: resolution.ConfidenceWeight,
		DecayFactor:      decayFactor,
		Weight:           g.Amount * resolution.ConfidenceWeight * decayFactor,
	}, ""
}

func (s *System) finish(res Result) Result {
	res.Tallies = tally(res.Votes)
	res.Coherence = coherence(res.Votes)

	shares := voteShares(res.Tallies)
	res.Entropy = entropy(shares)
	res.Concentration = concentration(shares, s.config.ConcentrationTopN)

	if len(res.Votes) == 0 {
		return res
	}

	met := 0
	if res.Coherence > s.config.CoherenceThreshold {
		met++
	}
	if res.Entropy < s.config.EntropyThreshold {
		met++
	}
	if res.Concentration > s.config.ConcentrationThreshold {
		met++
	}
	res.IsCoherent = met >= 2
	if res.IsCoherent {
		res.RecommendedBoost = s.boost(res.Entropy)
	}
	return res
}

// boost shrinks linearly with entropy, bounded to [0, BoostMax]
func (s *System) boost(entropy float64) float64 {
	return clamp(s.config.BoostBase-s.config.BoostSlope*(entropy/s.config.EntropyScale), 0, s.config.BoostMax)
}

// tally splits each vote's weight evenly across its codes and aggregates per
// code, ordered by total votes then code. Grant amounts are not split.
func tally(votes []Vote) []CodeTally {
	byCode := make(map[string]*CodeTally)
	for _, v := range votes {
		share := v.Weight / float64(len(v.Codes))
		for _, c := range v.Codes {
			t, ok := byCode[c]
			if !ok {
				t = &CodeTally{Code: c}
				byCode[c] = t
			}
			t.TotalVotes += share
			t.VoteCount++
			t.TotalGrantAmount += v.Amount
			t.Recipients = append(t.Recipients, v.RecipientName)
		}
	}

	out := make([]CodeTally, 0, len(byCode))
	for _, t := range byCode {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalVotes != out[j].TotalVotes {
			return out[i].TotalVotes > out[j].TotalVotes
		}
		return out[i].Code < out[j].Code
	})
	return out
}
