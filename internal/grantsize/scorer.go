// Package grantsize scores how well a foundation's typical award fits an
// applicant's annual revenue.
package grantsize

import (
	"fmt"
	"math"
	"sort"

	"github.com/vijay-prabhu/grantmatch/internal/model"
)

// Band is a descriptive grant-size category
type Band string

const (
	BandMicro            Band = "micro"
	BandSmall            Band = "small"
	BandMedium           Band = "medium"
	BandLarge            Band = "large"
	BandMajor            Band = "major"
	BandTransformational Band = "transformational"
	BandUnknown          Band = "unknown"
)

// Capacity is a descriptive organization-size category
type Capacity string

const (
	CapacityGrassroots       Capacity = "grassroots"
	CapacitySmall            Capacity = "small"
	CapacityMedium           Capacity = "medium"
	CapacityLarge            Capacity = "large"
	CapacityMajorInstitution Capacity = "major_institution"
	CapacityUnknown          Capacity = "unknown"
)

// FitLevel classifies the grant-to-revenue ratio
type FitLevel string

const (
	FitOptimal          FitLevel = "optimal"
	FitGood             FitLevel = "good"
	FitAcceptable       FitLevel = "acceptable"
	FitStretch          FitLevel = "stretch"
	FitUnrealisticLarge FitLevel = "unrealistic_too_large"
	FitUnrealisticSmall FitLevel = "unrealistic_too_small"
	FitUnknown          FitLevel = "unknown"
)

const (
	optimalCenter     = 0.15
	optimalHalfWidth  = 0.10
	neutralFitScore   = 0.5
	neutralMultiplier = 1.0
)

// Result is the grant-size assessment for one pair
type Result struct {
	GrantAmount *float64 `json:"grant_amount,omitempty" yaml:"grant_amount,omitempty"`
	Revenue     *float64 `json:"revenue,omitempty" yaml:"revenue,omitempty"`
	Ratio       *float64 `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	Band        Band     `json:"band" yaml:"band"`
	Capacity    Capacity `json:"capacity" yaml:"capacity"`
	FitLevel    FitLevel `json:"fit_level" yaml:"fit_level"`
	FitScore    float64  `json:"fit_score" yaml:"fit_score"`
	Multiplier  float64  `json:"multiplier" yaml:"multiplier"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// Known reports whether both amounts were available
func (r Result) Known() bool {
	return r.FitLevel != FitUnknown
}

// Score assesses grant against revenue. Either missing (nil or non-positive)
// yields the neutral 0.5 fit with no multiplier effect.
func Score(grant, revenue *float64) Result {
	res := Result{
		GrantAmount: grant,
		Revenue:     revenue,
		Band:        BandUnknown,
		Capacity:    CapacityUnknown,
		FitLevel:    FitUnknown,
		FitScore:    neutralFitScore,
		Multiplier:  neutralMultiplier,
	}
	if grant != nil && *grant > 0 {
		res.Band = CategorizeGrant(*grant)
	}
	if revenue != nil && *revenue > 0 {
		res.Capacity = CategorizeRevenue(*revenue)
	}

	switch {
	case grant == nil || *grant <= 0:
		res.Explanation = "grant amount unknown; neutral fit"
		return res
	case revenue == nil || *revenue <= 0:
		res.Explanation = "applicant revenue unknown; neutral fit"
		return res
	}

	ratio := *grant / *revenue
	res.Ratio = &ratio
	res.FitLevel = Classify(ratio)
	res.FitScore, res.Multiplier = fitFor(res.FitLevel, ratio)
	res.Explanation = fmt.Sprintf("%s grant is %.1f%% of %s applicant revenue (%s)",
		res.Band, ratio*100, res.Capacity, res.FitLevel)
	return res
}

// Classify maps a grant/revenue ratio onto a fit level
func Classify(ratio float64) FitLevel {
	switch {
	case ratio > 1.0:
		return FitUnrealisticLarge
	case ratio > 0.60:
		return FitStretch
	case ratio > 0.40:
		return FitAcceptable
	case ratio > 0.25:
		return FitGood
	case ratio >= 0.05:
		return FitOptimal
	case ratio >= 0.03:
		return FitGood
	case ratio >= 0.01:
		return FitAcceptable
	default:
		return FitUnrealisticSmall
	}
}

func fitFor(level FitLevel, ratio float64) (fit, multiplier float64) {
	switch level {
	case FitOptimal:
		dist := math.Abs(ratio-optimalCenter) / optimalHalfWidth
		return clamp(1.0-0.15*dist, 0.85, 1.0), clamp(1.5-0.35*dist, 1.15, 1.5)
	case FitGood:
		return 0.85, 1.15
	case FitAcceptable:
		return 0.70, 1.0
	case FitStretch:
		return 0.50, 0.85
	case FitUnrealisticLarge:
		return 0.0, 0.5
	case FitUnrealisticSmall:
		return 0.1, 0.7
	case FitUnknown:
		return neutralFitScore, neutralMultiplier
	default:
		return neutralFitScore, neutralMultiplier
	}
}

// CategorizeGrant returns the descriptive band for an award
func CategorizeGrant(amount float64) Band {
	switch {
	case amount < 5_000:
		return BandMicro
	case amount < 25_000:
		return BandSmall
	case amount < 100_000:
		return BandMedium
	case amount < 500_000:
		return BandLarge
	case amount <= 2_000_000:
		return BandMajor
	default:
		return BandTransformational
	}
}

// CategorizeRevenue returns the descriptive capacity for annual revenue
func CategorizeRevenue(revenue float64) Capacity {
	switch {
	case revenue < 100_000:
		return CapacityGrassroots
	case revenue < 500_000:
		return CapacitySmall
	case revenue < 2_000_000:
		return CapacityMedium
	case revenue <= 10_000_000:
		return CapacityLarge
	default:
		return CapacityMajorInstitution
	}
}

// ResolveGrantAmount picks the foundation's representative award: the
// declared typical grant, else the min/max midpoint, else the median
// Schedule I amount. Returns nil when nothing is known.
func ResolveGrantAmount(f *model.FoundationOpportunityData) *float64 {
	if f == nil {
		return nil
	}
	if f.TypicalGrantAmount != nil && *f.TypicalGrantAmount > 0 {
		v := *f.TypicalGrantAmount
		return &v
	}
	if f.MinGrantAmount != nil && f.MaxGrantAmount != nil && *f.MaxGrantAmount > 0 {
		v := (*f.MinGrantAmount + *f.MaxGrantAmount) / 2
		return &v
	}

	amounts := make([]float64, 0, len(f.Grantees))
	for _, g := range f.Grantees {
		if g.Amount > 0 {
			amounts = append(amounts, g.Amount)
		}
	}
	if len(amounts) == 0 {
		return nil
	}
	sort.Float64s(amounts)
	mid := len(amounts) / 2
	v := amounts[mid]
	if len(amounts)%2 == 0 {
		v = (amounts[mid-1] + amounts[mid]) / 2
	}
	return &v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
