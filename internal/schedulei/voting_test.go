package schedulei

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijay-prabhu/grantmatch/internal/decay"
	"github.com/vijay-prabhu/grantmatch/internal/ein"
	"github.com/vijay-prabhu/grantmatch/internal/model"
)

// mapResolver resolves by recipient EIN
type mapResolver map[string]*ein.Resolution

func (m mapResolver) Resolve(_ context.Context, q ein.Query) *ein.Resolution {
	return m[q.EIN]
}

func resolved(einStr, code string, conf ein.Confidence) *ein.Resolution {
	return &ein.Resolution{
		EIN:              einStr,
		NTEECode:         code,
		Confidence:       conf,
		ConfidenceWeight: conf.Weight(),
	}
}

var testNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestSystem(r Resolver) *System {
	return NewSystem(r, DefaultConfig(), nil, nil, func() time.Time { return testNow })
}

func TestAnalyze_TwoCodesEvenSplit(t *testing.T) {
	resolver := mapResolver{}
	var grantees []model.ScheduleIGrantee
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("1000000%02d", i)
		code := "B25"
		if i >= 5 {
			code = "E20"
		}
		resolver[id] = resolved(id, code, ein.ConfidenceHigh)
		grantees = append(grantees, model.ScheduleIGrantee{
			RecipientName: "Recipient " + id,
			RecipientEIN:  id,
			Amount:        10000,
		})
	}

	res := newTestSystem(resolver).Analyze(context.Background(), &model.FoundationOpportunityData{Grantees: grantees})

	require.Len(t, res.Votes, 10)
	require.Len(t, res.Tallies, 2)
	assert.InDelta(t, 1.0, res.Entropy, 1e-9)
	assert.InDelta(t, 1.0, res.Concentration, 1e-9)
	// 20 same-code pairs out of 45
	assert.InDelta(t, 20.0/45.0, res.Coherence, 1e-9)
	assert.True(t, res.IsCoherent)
	assert.InDelta(t, 0.12-0.08/3.0, res.RecommendedBoost, 1e-9)

	for _, tl := range res.Tallies {
		assert.Equal(t, 5, tl.VoteCount)
		assert.InDelta(t, 50000.0, tl.TotalVotes, 1e-6)
		assert.InDelta(t, 50000.0, tl.TotalGrantAmount, 1e-6)
		assert.Len(t, tl.Recipients, 5)
	}
	assert.Equal(t, []string{"B25"}, res.TopCodes(1))
	assert.Equal(t, []string{"B25", "E20"}, res.TopCodes(5))
	assert.Equal(t, 10, res.ResolvedRecipients())
}

func TestAnalyze_DropsIneligibleGrantees(t *testing.T) {
	resolver := mapResolver{
		"111111111": resolved("111111111", "B25", ein.ConfidenceHigh),
		"222222222": resolved("222222222", "B25", ein.ConfidenceLow),
		"333333333": resolved("333333333", "", ein.ConfidenceMedium),
		"444444444": resolved("444444444", "B25", ein.ConfidenceHigh),
	}
	f := &model.FoundationOpportunityData{Grantees: []model.ScheduleIGrantee{
		{RecipientName: "kept", RecipientEIN: "111111111", Amount: 5000, Year: 2025},
		{RecipientName: "low", RecipientEIN: "222222222", Amount: 5000},
		{RecipientName: "no code", RecipientEIN: "333333333", Amount: 5000},
		{RecipientName: "unknown", RecipientEIN: "999999999", Amount: 5000},
		{RecipientName: "future", RecipientEIN: "444444444", Amount: 5000, Year: 2027},
	}}

	res := newTestSystem(resolver).Analyze(context.Background(), f)

	require.Len(t, res.Votes, 1)
	assert.Equal(t, "kept", res.Votes[0].RecipientName)
	assert.Equal(t, 5, res.TotalGrantees)
	assert.Equal(t, map[DropReason]int{
		DropLowConfidence: 1,
		DropNoNTEE:        1,
		DropUnresolved:    1,
		DropFutureGrant:   1,
	}, res.Dropped)
	assert.Equal(t, 1.0, res.Coherence)
}

func TestAnalyze_DropsInvalidAmounts(t *testing.T) {
	resolver := mapResolver{
		"111111111": resolved("111111111", "B25", ein.ConfidenceHigh),
		"222222222": resolved("222222222", "E20", ein.ConfidenceHigh),
		"333333333": resolved("333333333", "P20", ein.ConfidenceHigh),
		"444444444": resolved("444444444", "A23", ein.ConfidenceHigh),
	}
	f := &model.FoundationOpportunityData{Grantees: []model.ScheduleIGrantee{
		{RecipientName: "good", RecipientEIN: "111111111", Amount: 10000},
		{RecipientName: "negative", RecipientEIN: "222222222", Amount: -50000},
		{RecipientName: "nan", RecipientEIN: "333333333", Amount: math.NaN()},
		{RecipientName: "inf", RecipientEIN: "444444444", Amount: math.Inf(1)},
	}}

	res := newTestSystem(resolver).Analyze(context.Background(), f)

	require.Len(t, res.Votes, 1)
	assert.Equal(t, "good", res.Votes[0].RecipientName)
	assert.Equal(t, 3, res.Dropped[DropBadAmount])
	assert.InDelta(t, 0.0, res.Entropy, 1e-9)
	assert.InDelta(t, 1.0, res.Concentration, 1e-9)
	for _, tl := range res.Tallies {
		assert.GreaterOrEqual(t, tl.TotalVotes, 0.0)
	}
}

func TestAnalyze_DeclaredCodesAndSplit(t *testing.T) {
	resolver := mapResolver{
		"111111111": resolved("111111111", "", ein.ConfidenceMedium),
		"222222222": resolved("222222222", "B25", ein.ConfidenceHigh),
	}
	f := &model.FoundationOpportunityData{Grantees: []model.ScheduleIGrantee{
		{RecipientName: "declared", RecipientEIN: "111111111", Amount: 8000, NTEECodes: []string{"P20"}},
		{RecipientName: "two codes", RecipientEIN: "222222222", Amount: 8000, NTEECodes: []string{"b25", "E20"}},
	}}

	res := newTestSystem(resolver).Analyze(context.Background(), f)
	require.Len(t, res.Votes, 2)

	// MEDIUM halves the weight
	assert.Equal(t, []string{"P20"}, res.Votes[0].Codes)
	assert.InDelta(t, 4000.0, res.Votes[0].Weight, 1e-9)

	// resolved code first, duplicates collapse
	assert.Equal(t, []string{"B25", "E20"}, res.Votes[1].Codes)

	votes := map[string]float64{}
	for _, tl := range res.Tallies {
		votes[tl.Code] = tl.TotalVotes
	}
	assert.InDelta(t, 4000.0, votes["P20"], 1e-9)
	assert.InDelta(t, 4000.0, votes["B25"], 1e-9)
	assert.InDelta(t, 4000.0, votes["E20"], 1e-9)
	assert.InDelta(t, math.Log2(3), res.Entropy, 1e-9)
}

func TestAnalyze_GrantAgeDecay(t *testing.T) {
	resolver := mapResolver{"111111111": resolved("111111111", "B25", ein.ConfidenceHigh)}
	calc := decay.MustPreset(decay.PresetGrants)
	want, err := calc.Decay(decay.MonthsBetween(decay.EndOfYear(2023), testNow))
	require.NoError(t, err)

	tests := []struct {
		name       string
		year       int
		filingYear *int
		wantDecay  float64
	}{
		{"grant year", 2023, nil, want},
		{"filing year fallback", 0, model.IntPtr(2023), want},
		{"no dates", 0, nil, 1.0},
		{"current year", 2026, nil, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &model.FoundationOpportunityData{
				MostRecentFilingYear: tt.filingYear,
				Grantees: []model.ScheduleIGrantee{
					{RecipientName: "r", RecipientEIN: "111111111", Amount: 1000, Year: tt.year},
				},
			}
			res := newTestSystem(resolver).Analyze(context.Background(), f)
			require.Len(t, res.Votes, 1)
			assert.InDelta(t, tt.wantDecay, res.Votes[0].DecayFactor, 1e-9)
			assert.InDelta(t, 1000*tt.wantDecay, res.Votes[0].Weight, 1e-6)
		})
	}
}

func TestAnalyze_DiffuseGivingIsNotCoherent(t *testing.T) {
	resolver := mapResolver{}
	var grantees []model.ScheduleIGrantee
	for i, code := range []string{"A20", "B25", "E20", "P20", "X20"} {
		id := fmt.Sprintf("20000000%d", i)
		resolver[id] = resolved(id, code, ein.ConfidenceHigh)
		grantees = append(grantees, model.ScheduleIGrantee{RecipientName: code, RecipientEIN: id, Amount: 1000})
	}

	res := newTestSystem(resolver).Analyze(context.Background(), &model.FoundationOpportunityData{Grantees: grantees})

	assert.InDelta(t, math.Log2(5), res.Entropy, 1e-9)
	assert.InDelta(t, 0.6, res.Concentration, 1e-9)
	assert.Equal(t, 0.0, res.Coherence)
	assert.False(t, res.IsCoherent)
	assert.Equal(t, 0.0, res.RecommendedBoost)
}

func TestAnalyze_NoGrantees(t *testing.T) {
	s := newTestSystem(mapResolver{})

	for _, f := range []*model.FoundationOpportunityData{nil, {}} {
		res := s.Analyze(context.Background(), f)
		assert.Empty(t, res.Votes)
		assert.False(t, res.IsCoherent)
		assert.Equal(t, 0.0, res.RecommendedBoost)
		assert.Empty(t, res.TopCodes(3))
	}
}

func TestBoostIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSystem(nil, cfg, nil, nil, nil)

	for _, h := range []float64{0, 0.5, 1, 2, 3, 5, 100} {
		b := s.boost(h)
		assert.GreaterOrEqual(t, b, 0.0)
		assert.LessOrEqual(t, b, cfg.BoostMax)
	}
	assert.InDelta(t, 0.12, s.boost(0), 1e-9)
	assert.InDelta(t, 0.04, s.boost(3), 1e-9)
}

func TestEntropyAndConcentration(t *testing.T) {
	tests := []struct {
		name              string
		shares            []float64
		wantEntropy       float64
		wantConcentration float64
	}{
		{"single code", []float64{1}, 0, 1},
		{"even pair", []float64{0.5, 0.5}, 1, 1},
		{"four even", []float64{0.25, 0.25, 0.25, 0.25}, 2, 0.75},
		{"empty", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entropy(tt.shares); math.Abs(got-tt.wantEntropy) > 1e-9 {
				t.Errorf("entropy() = %v, want %v", got, tt.wantEntropy)
			}
			if got := concentration(tt.shares, 3); math.Abs(got-tt.wantConcentration) > 1e-9 {
				t.Errorf("concentration() = %v, want %v", got, tt.wantConcentration)
			}
		})
	}
}
