package composite

import (
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/grantsize"
	"github.com/vijay-prabhu/grantmatch/internal/ntee"
)

// Recommendation is the scorer's decision
type Recommendation string

const (
	RecommendPass    Recommendation = "PASS"
	RecommendAbstain Recommendation = "ABSTAIN"
	RecommendFail    Recommendation = "FAIL"
)

// Valid reports whether r is a known recommendation
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendPass, RecommendAbstain, RecommendFail:
		return true
	default:
		return false
	}
}

// AbstainCode is the machine-readable reason for an ABSTAIN
type AbstainCode string

const (
	AbstainNone               AbstainCode = ""
	AbstainMissingNTEE        AbstainCode = "missing_ntee_codes"
	AbstainWeakNTEE           AbstainCode = "weak_ntee_alignment"
	AbstainGeographicMismatch AbstainCode = "geographic_restriction_mismatch"
	AbstainScoreInBand        AbstainCode = "score_in_abstain_band"
)

// Components are the eight dimension scores, each in [0, 100]
type Components struct {
	NTEE              float64 `json:"ntee" yaml:"ntee"`
	Geographic        float64 `json:"geographic" yaml:"geographic"`
	Coherence         float64 `json:"coherence" yaml:"coherence"`
	FinancialCapacity float64 `json:"financial_capacity" yaml:"financial_capacity"`
	GrantSize         float64 `json:"grant_size" yaml:"grant_size"`
	ApplicationPolicy float64 `json:"application_policy" yaml:"application_policy"`
	FilingRecency     float64 `json:"filing_recency" yaml:"filing_recency"`
	FoundationType    float64 `json:"foundation_type" yaml:"foundation_type"`
}

// VotingSummary condenses the Schedule I analysis
type VotingSummary struct {
	TotalGrantees      int      `json:"total_grantees" yaml:"total_grantees"`
	ResolvedRecipients int      `json:"resolved_recipients" yaml:"resolved_recipients"`
	Coherence          float64  `json:"coherence" yaml:"coherence"`
	Entropy            float64  `json:"entropy" yaml:"entropy"`
	Concentration      float64  `json:"concentration" yaml:"concentration"`
	IsCoherent         bool     `json:"is_coherent" yaml:"is_coherent"`
	TopCodes           []string `json:"top_codes,omitempty" yaml:"top_codes,omitempty"`
}

// Details carries the per-component breakdowns behind a score
type Details struct {
	NTEE              ntee.Result      `json:"ntee" yaml:"ntee"`
	InferredNTEECodes []string         `json:"inferred_ntee_codes,omitempty" yaml:"inferred_ntee_codes,omitempty"`
	Voting            VotingSummary    `json:"voting" yaml:"voting"`
	GrantSize         grantsize.Result `json:"grant_size" yaml:"grant_size"`
	YearsSinceFiling  *int             `json:"years_since_filing,omitempty" yaml:"years_since_filing,omitempty"`
}

// Result is one scored profile/foundation pair. It is built once and
// handed out by value.
type Result struct {
	ProfileID        string         `json:"profile_id,omitempty" yaml:"profile_id,omitempty"`
	ProfileName      string         `json:"profile_name" yaml:"profile_name"`
	FoundationEIN    string         `json:"foundation_ein" yaml:"foundation_ein"`
	FoundationName   string         `json:"foundation_name" yaml:"foundation_name"`
	FinalScore       float64        `json:"final_score" yaml:"final_score"`
	Recommendation   Recommendation `json:"recommendation" yaml:"recommendation"`
	Components       Components     `json:"components" yaml:"components"`
	CoherenceBoost   float64        `json:"coherence_boost" yaml:"coherence_boost"`
	TimeDecayPenalty float64        `json:"time_decay_penalty" yaml:"time_decay_penalty"`
	Confidence       float64        `json:"confidence" yaml:"confidence"`
	AbstainCode      AbstainCode    `json:"abstain_code,omitempty" yaml:"abstain_code,omitempty"`
	AbstainReason    string         `json:"abstain_reason,omitempty" yaml:"abstain_reason,omitempty"`
	Details          Details        `json:"details" yaml:"details"`
	ScoredAt         time.Time      `json:"scored_at" yaml:"scored_at"`
}
