package composite

import (
	"fmt"
	"math"
)

// sanitize maps NaN to fallback and clamps to [lo, hi]
func sanitize(v, fallback, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return math.Max(lo, math.Min(hi, v))
}

func sanitizeScore(v float64) float64 {
	return sanitize(v, neutral, 0, 100)
}

// Sanitized returns c with every dimension clamped to [0, 100] and NaN
// replaced by the neutral score
func (c Components) Sanitized() Components {
	return Components{
		NTEE:              sanitizeScore(c.NTEE),
		Geographic:        sanitizeScore(c.Geographic),
		Coherence:         sanitizeScore(c.Coherence),
		FinancialCapacity: sanitizeScore(c.FinancialCapacity),
		GrantSize:         sanitizeScore(c.GrantSize),
		ApplicationPolicy: sanitizeScore(c.ApplicationPolicy),
		FilingRecency:     sanitizeScore(c.FilingRecency),
		FoundationType:    sanitizeScore(c.FoundationType),
	}
}

func (w Weights) sanitized() Weights {
	clampW := func(v float64) float64 { return sanitize(v, 0, 0, 1) }
	return Weights{
		NTEE:              clampW(w.NTEE),
		Geographic:        clampW(w.Geographic),
		Coherence:         clampW(w.Coherence),
		FinancialCapacity: clampW(w.FinancialCapacity),
		GrantSize:         clampW(w.GrantSize),
		ApplicationPolicy: clampW(w.ApplicationPolicy),
		FilingRecency:     clampW(w.FilingRecency),
		FoundationType:    clampW(w.FoundationType),
	}
}

// WeightedSum returns Σ wᵢ·sᵢ with the NTEE contribution capped at nteeCap
func WeightedSum(c Components, w Weights, nteeCap float64) float64 {
	c = c.Sanitized()
	w = w.sanitized()
	nteeCap = sanitize(nteeCap, 100, 0, 100)

	sum := math.Min(w.NTEE*c.NTEE, nteeCap) +
		w.Geographic*c.Geographic +
		w.Coherence*c.Coherence +
		w.FinancialCapacity*c.FinancialCapacity +
		w.GrantSize*c.GrantSize +
		w.ApplicationPolicy*c.ApplicationPolicy +
		w.FilingRecency*c.FilingRecency +
		w.FoundationType*c.FoundationType
	return sanitize(sum, 0, 0, 100)
}

// Aggregate combines the weighted sum, the coherence boost (in points) and
// the time-decay penalty into a final score in [0, 100]
func Aggregate(c Components, w Weights, nteeCap, boost, maxBoost, penalty float64) float64 {
	maxBoost = sanitize(maxBoost, 0, 0, 1)
	boost = sanitize(boost, 0, 0, maxBoost)
	penalty = sanitize(penalty, 1, 0, 1)

	final := (WeightedSum(c, w, nteeCap) + boost*100) * penalty
	return sanitize(final, 0, 0, 100)
}

// Signals are the non-score inputs to the recommendation
type Signals struct {
	ProfileHasNTEE       bool
	FoundationHasNTEE    bool
	NTEEScore            float64
	GeographicScore      float64
	GeographicRestricted bool
}

// Recommend applies the abstain triggers in order, first match wins, then
// splits the rest into PASS and FAIL
func (c Config) Recommend(final float64, sig Signals) (Recommendation, AbstainCode, string) {
	switch {
	case !sig.ProfileHasNTEE:
		return RecommendAbstain, AbstainMissingNTEE, reason(AbstainMissingNTEE, "missing NTEE codes on profile")
	case !sig.FoundationHasNTEE:
		return RecommendAbstain, AbstainMissingNTEE, reason(AbstainMissingNTEE, "missing NTEE codes for foundation and none inferred from Schedule I")
	case sig.NTEEScore < c.WeakNTEEThreshold:
		return RecommendAbstain, AbstainWeakNTEE, reason(AbstainWeakNTEE,
			fmt.Sprintf("NTEE score %.1f below %.0f", sig.NTEEScore, c.WeakNTEEThreshold))
	case sig.GeographicRestricted && sig.GeographicScore == 0:
		return RecommendAbstain, AbstainGeographicMismatch, reason(AbstainGeographicMismatch,
			"applicant state outside foundation focus states")
	case final >= c.AbstainLow && final <= c.AbstainHigh:
		return RecommendAbstain, AbstainScoreInBand, reason(AbstainScoreInBand,
			fmt.Sprintf("score %.2f within [%.0f, %.0f]", final, c.AbstainLow, c.AbstainHigh))
	case final > c.AbstainHigh:
		return RecommendPass, AbstainNone, ""
	default:
		return RecommendFail, AbstainNone, ""
	}
}

func reason(code AbstainCode, detail string) string {
	return string(code) + ": " + detail
}

// ConfidenceInputs are the data-richness signals behind result confidence
type ConfidenceInputs struct {
	YearsSinceFiling   *int
	ResolvedRecipients int
	NTEEScore          float64
}

// Confidence is 0.5 plus bonuses for recent filings, rich Schedule I data
// and strong NTEE alignment, capped at 1
func Confidence(in ConfidenceInputs) float64 {
	c := 0.5
	if in.YearsSinceFiling != nil {
		switch y := *in.YearsSinceFiling; {
		case y <= 2:
			c += 0.2
		case y <= 4:
			c += 0.1
		}
	}
	if in.ResolvedRecipients >= 10 {
		c += 0.15
	}
	switch {
	case in.NTEEScore >= 70:
		c += 0.15
	case in.NTEEScore >= 50:
		c += 0.05
	}
	return math.Min(c, 1.0)
}
