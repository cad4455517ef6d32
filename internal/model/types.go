package model

import (
	"fmt"
	"strings"
	"time"
)

// NTEESource records where a foundation's NTEE code came from
type NTEESource string

const (
	SourceBMF          NTEESource = "BMF"
	SourceScheduleI    NTEESource = "ScheduleI"
	SourceWebsite      NTEESource = "Website"
	SourceUserProvided NTEESource = "UserProvided"
	SourceUnknown      NTEESource = "Unknown"
)

// ParseNTEESource maps free-form input onto a known source, Unknown otherwise
func ParseNTEESource(s string) NTEESource {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "bmf":
		return SourceBMF
	case "schedulei", "schedule i":
		return SourceScheduleI
	case "website", "web":
		return SourceWebsite
	case "userprovided", "user":
		return SourceUserProvided
	default:
		return SourceUnknown
	}
}

// FoundationType classifies the grant-maker
type FoundationType string

const (
	FoundationPrivateNonOperating FoundationType = "private_nonoperating"
	FoundationPrivateOperating    FoundationType = "private_operating"
	FoundationCommunity           FoundationType = "community"
	FoundationCorporate           FoundationType = "corporate"
	FoundationUnknown             FoundationType = "unknown"
)

// Valid reports whether t is a known foundation type
func (t FoundationType) Valid() bool {
	switch t {
	case FoundationPrivateNonOperating, FoundationPrivateOperating,
		FoundationCommunity, FoundationCorporate, FoundationUnknown:
		return true
	default:
		return false
	}
}

// OrganizationProfile is the applicant being matched
type OrganizationProfile struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	EIN       string   `json:"ein,omitempty" yaml:"ein,omitempty"`
	NTEECodes []string `json:"ntee_codes" yaml:"ntee_codes"`
	State     string   `json:"state,omitempty" yaml:"state,omitempty"`
	Revenue   *float64 `json:"revenue,omitempty" yaml:"revenue,omitempty"`
}

// FoundationNTEECode is a declared NTEE code with its provenance
type FoundationNTEECode struct {
	Code       string     `json:"code" yaml:"code"`
	Source     NTEESource `json:"source,omitempty" yaml:"source,omitempty"`
	AcquiredAt *time.Time `json:"acquired_at,omitempty" yaml:"acquired_at,omitempty"`
}

// ScheduleIGrantee is one grant line from a 990-PF Schedule I
type ScheduleIGrantee struct {
	RecipientName string   `json:"recipient_name" yaml:"recipient_name"`
	RecipientEIN  string   `json:"recipient_ein,omitempty" yaml:"recipient_ein,omitempty"`
	State         string   `json:"state,omitempty" yaml:"state,omitempty"`
	ZIP           string   `json:"zip,omitempty" yaml:"zip,omitempty"`
	Amount        float64  `json:"amount" yaml:"amount"`
	Year          int      `json:"year,omitempty" yaml:"year,omitempty"`
	NTEECodes     []string `json:"ntee_codes,omitempty" yaml:"ntee_codes,omitempty"`
}

// FoundationOpportunityData is everything known about a grant-maker
type FoundationOpportunityData struct {
	EIN                   string               `json:"ein" yaml:"ein"`
	Name                  string               `json:"name" yaml:"name"`
	NTEECodes             []FoundationNTEECode `json:"ntee_codes,omitempty" yaml:"ntee_codes,omitempty"`
	Grantees              []ScheduleIGrantee   `json:"schedule_i_grantees,omitempty" yaml:"schedule_i_grantees,omitempty"`
	TypicalGrantAmount    *float64             `json:"typical_grant_amount,omitempty" yaml:"typical_grant_amount,omitempty"`
	MinGrantAmount        *float64             `json:"min_grant_amount,omitempty" yaml:"min_grant_amount,omitempty"`
	MaxGrantAmount        *float64             `json:"max_grant_amount,omitempty" yaml:"max_grant_amount,omitempty"`
	GeographicFocusStates []string             `json:"geographic_focus_states,omitempty" yaml:"geographic_focus_states,omitempty"`
	TotalAssets           *float64             `json:"total_assets,omitempty" yaml:"total_assets,omitempty"`
	GrantsPaid            *float64             `json:"grants_paid,omitempty" yaml:"grants_paid,omitempty"`
	AcceptsApplications   *bool                `json:"accepts_applications,omitempty" yaml:"accepts_applications,omitempty"`
	MostRecentFilingYear  *int                 `json:"most_recent_filing_year,omitempty" yaml:"most_recent_filing_year,omitempty"`
	FoundationType        FoundationType       `json:"foundation_type,omitempty" yaml:"foundation_type,omitempty"`
}

// HasGeographicRestrictions reports whether the foundation declared focus states
func (f *FoundationOpportunityData) HasGeographicRestrictions() bool {
	for _, s := range f.GeographicFocusStates {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// Label returns a display name for the foundation
func (f *FoundationOpportunityData) Label() string {
	if f.Name != "" {
		return f.Name
	}
	if f.EIN != "" {
		return "EIN " + f.EIN
	}
	return "unnamed foundation"
}

// Validate checks structural problems that make a record unusable.
// Missing optional data is not an error.
func (p *OrganizationProfile) Validate() error {
	if p.Revenue != nil && *p.Revenue < 0 {
		return fmt.Errorf("profile %q: revenue must not be negative", p.Name)
	}
	return nil
}

// Validate checks structural problems that make a record unusable
func (f *FoundationOpportunityData) Validate() error {
	if f.FoundationType != "" && !f.FoundationType.Valid() {
		return fmt.Errorf("foundation %q: unknown foundation_type %q", f.Label(), f.FoundationType)
	}
	for i, g := range f.Grantees {
		if g.Amount < 0 {
			return fmt.Errorf("foundation %q: grantee %d has negative amount", f.Label(), i)
		}
	}
	return nil
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// BoolPtr returns a pointer to v
func BoolPtr(v bool) *bool {
	return &v
}
