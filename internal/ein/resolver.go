// Package ein resolves Schedule I recipients to known organizations.
//
// Resolution runs three tiers in order and stops at the first that matches:
// exact EIN lookup, fuzzy name constrained by geography, and name only.
// Name-only matches are reported with LOW confidence and zero weight so they
// can be inspected but never count as evidence.
package ein

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/logging"
	"github.com/vijay-prabhu/grantmatch/internal/metrics"
)

// Confidence is the resolver's confidence tier
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Weight returns the vote weight for a tier. LOW is always zero.
func (c Confidence) Weight() float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.5
	case ConfidenceLow:
		return 0.0
	default:
		return 0.0
	}
}

// MatchedBy names the tier that produced a resolution
type MatchedBy string

const (
	MatchedByEIN      MatchedBy = "ein"
	MatchedByNameGeo  MatchedBy = "name_geo"
	MatchedByNameOnly MatchedBy = "name_only"
)

// IdentityMatch is a reference record returned by an IdentityLookup
type IdentityMatch struct {
	EIN      string `json:"ein" yaml:"ein"`
	Name     string `json:"name" yaml:"name"`
	City     string `json:"city,omitempty" yaml:"city,omitempty"`
	State    string `json:"state,omitempty" yaml:"state,omitempty"`
	ZIP      string `json:"zip,omitempty" yaml:"zip,omitempty"`
	NTEECode string `json:"ntee_code,omitempty" yaml:"ntee_code,omitempty"`
}

// IdentityLookup is the reference dataset the resolver searches.
// Implementations may block; they receive the caller's context.
type IdentityLookup interface {
	// LookupEIN returns the record for a normalized EIN, or nil
	LookupEIN(ctx context.Context, ein string) (*IdentityMatch, error)
	// SearchName returns candidates for a name, optionally narrowed by state or ZIP
	SearchName(ctx context.Context, name, state, zip string) ([]IdentityMatch, error)
}

// Query describes the organization to resolve
type Query struct {
	EIN   string
	Name  string
	State string
	ZIP   string
}

// Resolution is the outcome of resolving one organization
type Resolution struct {
	EIN              string     `json:"ein" yaml:"ein"`
	OrganizationName string     `json:"organization_name" yaml:"organization_name"`
	State            string     `json:"state,omitempty" yaml:"state,omitempty"`
	ZIPCode          string     `json:"zip_code,omitempty" yaml:"zip_code,omitempty"`
	NTEECode         string     `json:"ntee_code,omitempty" yaml:"ntee_code,omitempty"`
	Confidence       Confidence `json:"confidence" yaml:"confidence"`
	ConfidenceWeight float64    `json:"confidence_weight" yaml:"confidence_weight"`
	NameSimilarity   float64    `json:"name_similarity" yaml:"name_similarity"`
	MatchedBy        MatchedBy  `json:"matched_by" yaml:"matched_by"`
}

// Config holds resolver thresholds
type Config struct {
	HighSimilarity   float64
	MediumSimilarity float64
	LookupTimeout    time.Duration
	CacheEnabled     bool
}

// DefaultConfig returns the standard 0.90 / 0.80 thresholds
func DefaultConfig() Config {
	return Config{
		HighSimilarity:   0.90,
		MediumSimilarity: 0.80,
		CacheEnabled:     true,
	}
}

// Resolver resolves organizations against an IdentityLookup
type Resolver struct {
	lookup  IdentityLookup
	config  Config
	cache   *Cache
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewResolver creates a Resolver. A nil lookup resolves nothing.
func NewResolver(lookup IdentityLookup, cfg Config, logger *slog.Logger, rec *metrics.Recorder) *Resolver {
	r := &Resolver{
		lookup:  lookup,
		config:  cfg,
		logger:  logging.OrDefault(logger).WithGroup("ein"),
		metrics: rec,
	}
	if cfg.CacheEnabled {
		r.cache = NewCache()
	}
	return r
}

// Cache returns the resolver cache, or nil when caching is disabled
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve runs the three tiers. It returns nil when nothing matched.
// Lookup failures are logged and treated as no match, but a miss caused by a
// failed lookup is not cached.
func (r *Resolver) Resolve(ctx context.Context, q Query) *Resolution {
	normEIN := NormalizeEIN(q.EIN)
	normName := NormalizeName(q.Name)
	state := NormalizeState(q.State)

	key := cacheKey(normEIN, normName, state)
	if r.cache != nil {
		if res, ok := r.cache.Get(key); ok {
			r.metrics.CacheHit()
			return res
		}
	}

	res, failed := r.resolve(ctx, q, normEIN, normName, state)

	if r.cache != nil && (res != nil || !failed) {
		r.cache.Put(key, res)
	}
	if res != nil {
		r.metrics.ObserveResolution(string(res.Confidence))
	} else {
		r.metrics.ObserveResolution("")
	}
	return copyResolution(res)
}

// resolve reports failed when any lookup errored or the context ended
func (r *Resolver) resolve(ctx context.Context, q Query, normEIN, normName, state string) (res *Resolution, failed bool) {
	if r.lookup == nil {
		return nil, false
	}
	defer func() {
		if ctx.Err() != nil {
			failed = true
		}
	}()

	zip3 := ZIP3(q.ZIP)

	// Tier 1: exact EIN
	if q.EIN != "" && normEIN == "" {
		r.logger.Warn("malformed EIN, skipping exact lookup", "ein", q.EIN, "name", q.Name)
	}
	if normEIN != "" {
		match, err := r.lookupEIN(ctx, normEIN)
		if err != nil {
			failed = true
			r.metrics.LookupFailed()
			r.logger.Warn("EIN lookup failed, treating as no match", "ein", normEIN, "error", err)
		} else if match != nil {
			return r.classifyExact(normName, state, zip3, match), failed
		}
	}

	if normName == "" {
		return nil, failed
	}

	// Tier 2: fuzzy name with geographic corroboration
	if state != "" || zip3 != "" {
		cands, err := r.searchName(ctx, q.Name, state, q.ZIP)
		if err != nil {
			failed = true
			r.metrics.LookupFailed()
			r.logger.Warn("name search failed", "name", q.Name, "error", err)
		} else if best, sim := r.best(normName, cands, func(m IdentityMatch) bool {
			return geoCorroborates(state, zip3, m)
		}); best != nil {
			return newResolution(best, ConfidenceMedium, sim, MatchedByNameGeo), failed
		}
	}

	// Tier 3: name only, diagnostics
	cands, err := r.searchName(ctx, q.Name, "", "")
	if err != nil {
		r.metrics.LookupFailed()
		r.logger.Warn("name search failed", "name", q.Name, "error", err)
		return nil, true
	}
	if best, sim := r.best(normName, cands, nil); best != nil {
		r.logger.Debug("name-only match kept for diagnostics", "name", q.Name, "candidate", best.Name, "similarity", sim)
		return newResolution(best, ConfidenceLow, sim, MatchedByNameOnly), failed
	}

	return nil, failed
}

func (r *Resolver) classifyExact(normName, state, zip3 string, m *IdentityMatch) *Resolution {
	sim := Similarity(normName, NormalizeName(m.Name))
	stateMatch := state != "" && state == NormalizeState(m.State)
	zipMatch := zip3 != "" && zip3 == ZIP3(m.ZIP)

	conf := ConfidenceLow
	switch {
	case sim >= r.config.HighSimilarity && stateMatch:
		conf = ConfidenceHigh
	case sim >= r.config.MediumSimilarity || zipMatch:
		conf = ConfidenceMedium
	}
	return newResolution(m, conf, sim, MatchedByEIN)
}

// best returns the most similar candidate at or above the medium threshold
func (r *Resolver) best(normName string, cands []IdentityMatch, accept func(IdentityMatch) bool) (*IdentityMatch, float64) {
	var best *IdentityMatch
	bestSim := -1.0
	for i := range cands {
		if accept != nil && !accept(cands[i]) {
			continue
		}
		sim := Similarity(normName, NormalizeName(cands[i].Name))
		if sim > bestSim {
			best, bestSim = &cands[i], sim
		}
	}
	if best == nil || bestSim < r.config.MediumSimilarity {
		return nil, 0
	}
	return best, bestSim
}

func geoCorroborates(state, zip3 string, m IdentityMatch) bool {
	if state != "" && state == NormalizeState(m.State) {
		return true
	}
	return zip3 != "" && zip3 == ZIP3(m.ZIP)
}

func (r *Resolver) lookupEIN(ctx context.Context, ein string) (match *IdentityMatch, err error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	defer recoverLookup(&err)
	return r.lookup.LookupEIN(ctx, ein)
}

func (r *Resolver) searchName(ctx context.Context, name, state, zip string) (cands []IdentityMatch, err error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	defer recoverLookup(&err)
	return r.lookup.SearchName(ctx, name, state, zip)
}

func (r *Resolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.LookupTimeout > 0 {
		return context.WithTimeout(ctx, r.config.LookupTimeout)
	}
	return ctx, func() {}
}

// recoverLookup turns a panicking lookup into an error
func recoverLookup(err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("identity lookup panicked: %v", p)
	}
}

func newResolution(m *IdentityMatch, conf Confidence, sim float64, by MatchedBy) *Resolution {
	return &Resolution{
		EIN:              NormalizeEIN(m.EIN),
		OrganizationName: m.Name,
		State:            NormalizeState(m.State),
		ZIPCode:          m.ZIP,
		NTEECode:         m.NTEECode,
		Confidence:       conf,
		ConfidenceWeight: conf.Weight(),
		NameSimilarity:   sim,
		MatchedBy:        by,
	}
}

func copyResolution(r *Resolution) *Resolution {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
