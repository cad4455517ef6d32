package composite

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vijay-prabhu/grantmatch/internal/model"
)

func TestRecommend_AbstainBandBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	clean := Signals{
		ProfileHasNTEE:    true,
		FoundationHasNTEE: true,
		NTEEScore:         80,
		GeographicScore:   100,
	}

	tests := []struct {
		final    float64
		expected Recommendation
	}{
		{44.99, RecommendFail},
		{45.0, RecommendAbstain},
		{52.5, RecommendAbstain},
		{58.0, RecommendAbstain},
		{58.01, RecommendPass},
		{0, RecommendFail},
		{100, RecommendPass},
	}

	for _, tt := range tests {
		got, code, _ := cfg.Recommend(tt.final, clean)
		if got != tt.expected {
			t.Errorf("Recommend(%v) = %v, want %v", tt.final, got, tt.expected)
		}
		if got == RecommendAbstain && code != AbstainScoreInBand {
			t.Errorf("Recommend(%v) code = %v, want %v", tt.final, code, AbstainScoreInBand)
		}
	}
}

func TestRecommend_TriggerPrecedence(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		signals  Signals
		final    float64
		wantCode AbstainCode
	}{
		{
			name:     "missing beats everything",
			signals:  Signals{ProfileHasNTEE: false, FoundationHasNTEE: true, NTEEScore: 0, GeographicScore: 0, GeographicRestricted: true},
			final:    50,
			wantCode: AbstainMissingNTEE,
		},
		{
			name:     "weak NTEE beats geography",
			signals:  Signals{ProfileHasNTEE: true, FoundationHasNTEE: true, NTEEScore: 19.9, GeographicScore: 0, GeographicRestricted: true},
			final:    90,
			wantCode: AbstainWeakNTEE,
		},
		{
			name:     "geography on restricted foundation",
			signals:  Signals{ProfileHasNTEE: true, FoundationHasNTEE: true, NTEEScore: 20, GeographicScore: 0, GeographicRestricted: true},
			final:    90,
			wantCode: AbstainGeographicMismatch,
		},
		{
			name:     "zero geography without restrictions does not abstain",
			signals:  Signals{ProfileHasNTEE: true, FoundationHasNTEE: true, NTEEScore: 20, GeographicScore: 0},
			final:    90,
			wantCode: AbstainNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, code, reason := cfg.Recommend(tt.final, tt.signals)
			assert.Equal(t, tt.wantCode, code)
			if code == AbstainNone {
				assert.Empty(t, reason)
			} else {
				assert.Contains(t, reason, string(code)+": ")
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	all := func(v float64) Components {
		return Components{v, v, v, v, v, v, v, v}
	}
	w := DefaultWeights()

	tests := []struct {
		name    string
		c       Components
		boost   float64
		penalty float64
		want    float64
	}{
		{"all neutral", all(50), 0, 1, 50},
		{"all perfect", all(100), 0, 1, 100},
		{"boost in points", all(50), 0.1, 1, 60},
		{"boost capped", all(50), 0.9, 1, 65},
		{"penalty applies after boost", all(50), 0.1, 0.5, 30},
		{"over range clamps", all(100), 0.15, 1, 100},
		{"NaN component is neutral", Components{NTEE: math.NaN(), Geographic: 50, Coherence: 50, FinancialCapacity: 50, GrantSize: 50, ApplicationPolicy: 50, FilingRecency: 50, FoundationType: 50}, 0, 1, 50},
		{"NaN penalty is no penalty", all(50), 0, math.NaN(), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.c, w, 30, tt.boost, 0.15, tt.penalty)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Aggregate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightedSum_CapsNTEE(t *testing.T) {
	w := Weights{NTEE: 0.6, Geographic: 0.4}
	c := Components{NTEE: 100, Geographic: 0}

	assert.InDelta(t, 30.0, WeightedSum(c, w, 30), 1e-9)
	assert.InDelta(t, 60.0, WeightedSum(c, w, 100), 1e-9)
}

func FuzzAggregate(f *testing.F) {
	f.Add(50.0, 50.0, 50.0, 50.0, 50.0, 50.0, 50.0, 50.0, 0.3, 0.1, 1.0)
	f.Add(100.0, 100.0, 100.0, 100.0, 100.0, 100.0, 100.0, 100.0, 0.9, 0.15, 1.0)
	f.Add(-5.0, 1e9, math.NaN(), 0.0, math.Inf(1), math.Inf(-1), 3.0, 42.0, -1.0, 7.0, 2.0)

	f.Fuzz(func(t *testing.T, ntee, geo, coh, fin, size, app, rec, typ, wNTEE, boost, penalty float64) {
		c := Components{ntee, geo, coh, fin, size, app, rec, typ}
		w := DefaultWeights()
		w.NTEE = wNTEE

		got := Aggregate(c, w, 30, boost, 0.15, penalty)
		if math.IsNaN(got) || got < 0 || got > 100 {
			t.Fatalf("Aggregate() = %v, want value in [0, 100]", got)
		}
	})
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   ConfidenceInputs
		want float64
	}{
		{"baseline", ConfidenceInputs{}, 0.5},
		{"recent filing", ConfidenceInputs{YearsSinceFiling: model.IntPtr(2)}, 0.7},
		{"older filing", ConfidenceInputs{YearsSinceFiling: model.IntPtr(4)}, 0.6},
		{"stale filing", ConfidenceInputs{YearsSinceFiling: model.IntPtr(5)}, 0.5},
		{"rich schedule I", ConfidenceInputs{ResolvedRecipients: 10}, 0.65},
		{"moderate NTEE", ConfidenceInputs{NTEEScore: 50}, 0.55},
		{"strong NTEE", ConfidenceInputs{NTEEScore: 70}, 0.65},
		{"everything", ConfidenceInputs{YearsSinceFiling: model.IntPtr(0), ResolvedRecipients: 25, NTEEScore: 95}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(tt.in); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Confidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGeographicScore(t *testing.T) {
	tests := []struct {
		name   string
		state  string
		states []string
		want   float64
	}{
		{"no restrictions", "OR", nil, 50},
		{"blank restrictions", "OR", []string{" "}, 50},
		{"state match", "or", []string{"WA", "OR"}, 100},
		{"national focus", "TX", []string{"US"}, 75},
		{"national keyword", "", []string{"national"}, 75},
		{"profile state missing", "", []string{"OR"}, 50},
		{"mismatch", "TX", []string{"OR", "WA"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geographicScore(&model.OrganizationProfile{State: tt.state}, &model.FoundationOpportunityData{GeographicFocusStates: tt.states})
			if got != tt.want {
				t.Errorf("geographicScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFinancialScore(t *testing.T) {
	tests := []struct {
		name       string
		paid       *float64
		assets     *float64
		multiplier float64
		want       float64
	}{
		{"large giver", model.Float64Ptr(1_000_000), nil, 1.0, 100},
		{"mid giver", model.Float64Ptr(300_000), nil, 1.0, 85},
		{"small giver", model.Float64Ptr(60_000), nil, 1.0, 70},
		{"tiny giver", model.Float64Ptr(10), nil, 1.0, 50},
		{"assets only", nil, model.Float64Ptr(25_000_000), 1.0, 90},
		{"modest assets", nil, model.Float64Ptr(6_000_000), 1.0, 75},
		{"some assets", nil, model.Float64Ptr(1_000_000), 1.0, 60},
		{"few assets", nil, model.Float64Ptr(500), 1.0, 40},
		{"unknown", nil, nil, 1.0, 50},
		{"scaled down by multiplier", model.Float64Ptr(60_000), nil, 0.5, 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := financialScore(&model.FoundationOpportunityData{GrantsPaid: tt.paid, TotalAssets: tt.assets}, tt.multiplier)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("financialScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimpleDimensions(t *testing.T) {
	assert.Equal(t, 100.0, applicationPolicyScore(&model.FoundationOpportunityData{AcceptsApplications: model.BoolPtr(true)}))
	assert.Equal(t, 20.0, applicationPolicyScore(&model.FoundationOpportunityData{AcceptsApplications: model.BoolPtr(false)}))
	assert.Equal(t, 50.0, applicationPolicyScore(&model.FoundationOpportunityData{}))

	for years, want := range map[int]float64{0: 100, 1: 100, 2: 85, 3: 70, 4: 55, 5: 40, 6: 20, 30: 20} {
		assert.Equal(t, want, filingRecencyScore(model.IntPtr(years)), "years=%d", years)
	}
	assert.Equal(t, 50.0, filingRecencyScore(nil))

	assert.Equal(t, 100.0, foundationTypeScore(model.FoundationPrivateNonOperating))
	assert.Equal(t, 80.0, foundationTypeScore(model.FoundationCommunity))
	assert.Equal(t, 70.0, foundationTypeScore(model.FoundationCorporate))
	assert.Equal(t, 30.0, foundationTypeScore(model.FoundationPrivateOperating))
	assert.Equal(t, 50.0, foundationTypeScore(""))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"weights off", func(c *Config) { c.Weights.Geographic = 0.5 }, true},
		{"negative weight", func(c *Config) { c.Weights.NTEE = -0.1; c.Weights.Geographic = 0.6 }, true},
		{"inverted band", func(c *Config) { c.AbstainLow = 60 }, true},
		{"bad floor", func(c *Config) { c.FilingMinWeight = 1.5 }, true},
		{"zero entropy scale", func(c *Config) { c.Coherence.EntropyScale = 0 }, true},
		{"zero decay rate", func(c *Config) { c.Decay.Filings = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
