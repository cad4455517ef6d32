package composite

import (
	"math"
	"strings"

	"github.com/vijay-prabhu/grantmatch/internal/model"
	"github.com/vijay-prabhu/grantmatch/internal/schedulei"
)

// neutral is the score every dimension falls back to when data is missing
const neutral = 50.0

// geographicScore: no focus states is a national default; a matching state
// scores full marks; national focus scores 75.
func geographicScore(profile *model.OrganizationProfile, f *model.FoundationOpportunityData) float64 {
	if !f.HasGeographicRestrictions() {
		return neutral
	}

	state := strings.ToUpper(strings.TrimSpace(profile.State))
	national := false
	for _, s := range f.GeographicFocusStates {
		s = strings.ToUpper(strings.TrimSpace(s))
		if state != "" && s == state {
			return 100
		}
		if s == "US" || s == "NATIONAL" {
			national = true
		}
	}

	switch {
	case national:
		return 75
	case state == "":
		return neutral
	default:
		return 0
	}
}

// coherenceScore blends the Schedule I focus metrics; no votes is neutral
func coherenceScore(v schedulei.Result, blend CoherenceBlend) float64 {
	if len(v.Votes) == 0 {
		return neutral
	}
	entropyTerm := 1 - math.Min(v.Entropy/blend.EntropyScale, 1)
	return 100 * (blend.Coherence*v.Coherence +
		blend.Concentration*v.Concentration +
		blend.Entropy*entropyTerm)
}

// financialScore rates giving capacity from grants paid, else total assets,
// then scales by the grant-size multiplier
func financialScore(f *model.FoundationOpportunityData, multiplier float64) float64 {
	base := neutral
	switch {
	case f.GrantsPaid != nil && *f.GrantsPaid > 0:
		paid := *f.GrantsPaid
		switch {
		case paid >= 1_000_000:
			base = 100
		case paid >= 250_000:
			base = 85
		case paid >= 50_000:
			base = 70
		default:
			base = 50
		}
	case f.TotalAssets != nil && *f.TotalAssets > 0:
		assets := *f.TotalAssets
		switch {
		case assets >= 20_000_000:
			base = 90
		case assets >= 5_000_000:
			base = 75
		case assets >= 1_000_000:
			base = 60
		default:
			base = 40
		}
	}
	return base * multiplier
}

func applicationPolicyScore(f *model.FoundationOpportunityData) float64 {
	switch {
	case f.AcceptsApplications == nil:
		return neutral
	case *f.AcceptsApplications:
		return 100
	default:
		return 20
	}
}

// filingRecencyScore maps whole years since the last filing onto a step scale
func filingRecencyScore(years *int) float64 {
	if years == nil {
		return neutral
	}
	switch y := *years; {
	case y <= 1:
		return 100
	case y == 2:
		return 85
	case y == 3:
		return 70
	case y == 4:
		return 55
	case y == 5:
		return 40
	default:
		return 20
	}
}

func foundationTypeScore(t model.FoundationType) float64 {
	switch t {
	case model.FoundationPrivateNonOperating:
		return 100
	case model.FoundationCommunity:
		return 80
	case model.FoundationCorporate:
		return 70
	case model.FoundationPrivateOperating:
		return 30
	case model.FoundationUnknown:
		return neutral
	default:
		return neutral
	}
}
