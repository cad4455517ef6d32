// Package triage holds ABSTAIN results until a human reviewer decides them.
package triage

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vijay-prabhu/grantmatch/internal/composite"
)

// Status is the review state of an item
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusInReview  Status = "IN_REVIEW"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusEscalated Status = "ESCALATED"
	StatusDeferred  Status = "DEFERRED"
)

// Terminal reports whether the item has left the active queue
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusEscalated, StatusDeferred:
		return true
	default:
		return false
	}
}

// ParseStatus parses a status name, case-insensitively
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected, StatusEscalated, StatusDeferred:
		return st, true
	default:
		return "", false
	}
}

// Priority orders pending items for review
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Rank is 0 for the most urgent priority
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// AssignPriority picks the priority of a new item from its score and reason
func AssignPriority(score float64, reason string) Priority {
	switch {
	case strings.Contains(strings.ToLower(reason), "missing") && score >= 50:
		return PriorityCritical
	case score >= 55:
		return PriorityHigh
	case score >= 50:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Decision is a reviewer's verdict
type Decision string

const (
	DecisionPass      Decision = "PASS"
	DecisionFail      Decision = "FAIL"
	DecisionUncertain Decision = "UNCERTAIN"
)

// ParseDecision parses a decision name, case-insensitively
func ParseDecision(s string) (Decision, bool) {
	d := Decision(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case DecisionPass, DecisionFail, DecisionUncertain:
		return d, true
	default:
		return "", false
	}
}

func (d Decision) status() Status {
	switch d {
	case DecisionPass:
		return StatusApproved
	case DecisionFail:
		return StatusRejected
	default:
		return StatusEscalated
	}
}

// Item is one ABSTAIN result awaiting or past review
type Item struct {
	ID             string               `json:"id" yaml:"id"`
	ProfileID      string               `json:"profile_id,omitempty" yaml:"profile_id,omitempty"`
	ProfileName    string               `json:"profile_name" yaml:"profile_name"`
	FoundationEIN  string               `json:"foundation_ein" yaml:"foundation_ein"`
	FoundationName string               `json:"foundation_name" yaml:"foundation_name"`
	CompositeScore float64              `json:"composite_score" yaml:"composite_score"`
	Confidence     float64              `json:"confidence" yaml:"confidence"`
	AbstainCode    string               `json:"abstain_code" yaml:"abstain_code"`
	AbstainReason  string               `json:"abstain_reason" yaml:"abstain_reason"`
	Components     composite.Components `json:"components" yaml:"components"`
	Priority       Priority             `json:"priority" yaml:"priority"`
	Status         Status               `json:"status" yaml:"status"`
	Tags           []string             `json:"tags" yaml:"tags"`
	AssignedTo     string               `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
	Decision       Decision             `json:"decision,omitempty" yaml:"decision,omitempty"`
	Rationale      string               `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	CreatedAt      time.Time            `json:"created_at" yaml:"created_at"`
	ReviewStarted  *time.Time           `json:"review_started_at,omitempty" yaml:"review_started_at,omitempty"`
	ReviewedAt     *time.Time           `json:"reviewed_at,omitempty" yaml:"reviewed_at,omitempty"`
}

// ReviewLatency is the time from creation to decision, zero if undecided
func (i Item) ReviewLatency() time.Duration {
	if i.ReviewedAt == nil {
		return 0
	}
	return i.ReviewedAt.Sub(i.CreatedAt)
}

func (i Item) clone() Item {
	i.Tags = slices.Clone(i.Tags)
	if i.ReviewStarted != nil {
		t := *i.ReviewStarted
		i.ReviewStarted = &t
	}
	if i.ReviewedAt != nil {
		t := *i.ReviewedAt
		i.ReviewedAt = &t
	}
	return i
}

// pairKey identifies the profile and foundation an item is about
func (i Item) pairKey() string {
	profile := i.ProfileID
	if profile == "" {
		profile = strings.ToLower(strings.TrimSpace(i.ProfileName))
	}
	foundation := i.FoundationEIN
	if foundation == "" {
		foundation = strings.ToLower(strings.TrimSpace(i.FoundationName))
	}
	return profile + "|" + foundation
}

// newItem builds a pending item from an ABSTAIN result
func newItem(r composite.Result, now time.Time) Item {
	return Item{
		ID:             uuid.New().String(),
		ProfileID:      r.ProfileID,
		ProfileName:    r.ProfileName,
		FoundationEIN:  r.FoundationEIN,
		FoundationName: r.FoundationName,
		CompositeScore: r.FinalScore,
		Confidence:     r.Confidence,
		AbstainCode:    string(r.AbstainCode),
		AbstainReason:  r.AbstainReason,
		Components:     r.Components,
		Priority:       AssignPriority(r.FinalScore, r.AbstainReason),
		Status:         StatusPending,
		Tags:           tagsFor(r),
		CreatedAt:      now.UTC(),
	}
}

// tagsFor labels an item with the data gaps a reviewer should look at
func tagsFor(r composite.Result) []string {
	tags := []string{}
	if r.AbstainCode != composite.AbstainNone {
		tags = append(tags, string(r.AbstainCode))
	}
	if len(r.Details.InferredNTEECodes) > 0 {
		tags = append(tags, "inferred_ntee")
	}
	if r.Details.Voting.ResolvedRecipients == 0 {
		tags = append(tags, "no_schedule_i")
	}
	if r.Details.YearsSinceFiling == nil {
		tags = append(tags, "no_filing_year")
	} else if r.TimeDecayPenalty < 1 {
		tags = append(tags, "stale_filing")
	}
	if !r.Details.GrantSize.Known() {
		tags = append(tags, "unknown_grant_size")
	}
	return tags
}
