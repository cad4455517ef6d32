package ntee

import (
	"fmt"
	"math"
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/decay"
)

// MatchType describes how one profile code relates to one foundation code
type MatchType string

const (
	MatchNone            MatchType = "none"
	MatchRelatedMajor    MatchType = "related_major"
	MatchExact           MatchType = "exact"
	MatchMajorOnly       MatchType = "major_only"
	MatchMajorIncomplete MatchType = "major_incomplete"
)

// ScorerConfig configures the pair blend
type ScorerConfig struct {
	MajorWeight float64 // Weight of the major-category component
	LeafWeight  float64 // Weight of the leaf component
}

// DefaultScorerConfig returns the 0.4 / 0.6 blend
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{MajorWeight: 0.4, LeafWeight: 0.6}
}

// PairMatch is the scored comparison of one profile and one foundation code
type PairMatch struct {
	ProfileCode    string    `json:"profile_code" yaml:"profile_code"`
	FoundationCode string    `json:"foundation_code" yaml:"foundation_code"`
	MajorScore     float64   `json:"major_score" yaml:"major_score"`
	LeafScore      float64   `json:"leaf_score" yaml:"leaf_score"`
	Score          float64   `json:"score" yaml:"score"`
	MatchType      MatchType `json:"match_type" yaml:"match_type"`
}

// Result is an NTEE alignment score in [0,1] with its breakdown
type Result struct {
	Score             float64    `json:"score" yaml:"score"`
	RawScore          float64    `json:"raw_score" yaml:"raw_score"`
	OverallConfidence float64    `json:"overall_confidence" yaml:"overall_confidence"`
	DecayFactor       float64    `json:"decay_factor" yaml:"decay_factor"`
	BestMatch         *PairMatch `json:"best_match,omitempty" yaml:"best_match,omitempty"`
	Explanation       string     `json:"explanation" yaml:"explanation"`
}

// Scorer scores NTEE alignment
type Scorer struct {
	config ScorerConfig
	decay  *decay.Calculator
	now    func() time.Time
}

// NewScorer creates a Scorer. Dated codes decay with calc; a nil calc
// uses the mission preset. A nil clock uses time.Now.
func NewScorer(config ScorerConfig, calc *decay.Calculator, clock func() time.Time) *Scorer {
	if calc == nil {
		calc = decay.MustPreset(decay.PresetMission)
	}
	if clock == nil {
		clock = time.Now
	}
	return &Scorer{config: config, decay: calc, now: clock}
}

// ComparePair compares one profile code against one foundation code
func ComparePair(p, f Code) (major, leaf float64, mt MatchType) {
	if p.Major != f.Major {
		if IsRelated(p.Major, f.Major) {
			return 0.5, 0, MatchRelatedMajor
		}
		return 0, 0, MatchNone
	}

	switch {
	case p.Leaf == "" || f.Leaf == "":
		return 1.0, 0.5, MatchMajorIncomplete
	case p.Leaf == f.Leaf:
		return 1.0, 1.0, MatchExact
	default:
		return 1.0, 0, MatchMajorOnly
	}
}

// Score returns the best pair over the Cartesian product, scaled by the mean
// completeness confidence and the mean decay of all participating codes.
func (s *Scorer) Score(profile, foundation []Code) Result {
	switch {
	case len(profile) == 0 && len(foundation) == 0:
		return Result{Explanation: "no NTEE codes on profile or foundation"}
	case len(profile) == 0:
		return Result{Explanation: "no NTEE codes on profile"}
	case len(foundation) == 0:
		return Result{Explanation: "no NTEE codes for foundation"}
	}

	var best *PairMatch
	for _, p := range profile {
		for _, f := range foundation {
			major, leaf, mt := ComparePair(p, f)
			score := s.config.MajorWeight*major + s.config.LeafWeight*leaf
			if best == nil || score > best.Score {
				best = &PairMatch{
					ProfileCode:    p.Full,
					FoundationCode: f.Full,
					MajorScore:     major,
					LeafScore:      leaf,
					Score:          score,
					MatchType:      mt,
				}
			}
		}
	}

	all := make([]Code, 0, len(profile)+len(foundation))
	all = append(all, profile...)
	all = append(all, foundation...)
	conf := meanConfidence(all)
	decayFactor := s.meanDecay(all)

	score := clamp01(best.Score * conf * decayFactor)
	return Result{
		Score:             score,
		RawScore:          best.Score,
		OverallConfidence: conf,
		DecayFactor:       decayFactor,
		BestMatch:         best,
		Explanation:       explain(best, conf, decayFactor),
	}
}

func meanConfidence(codes []Code) float64 {
	sum := 0.0
	for _, c := range codes {
		sum += c.Confidence
	}
	return sum / float64(len(codes))
}

// meanDecay averages decay over all codes; undated and future-dated codes count as 1.0
func (s *Scorer) meanDecay(codes []Code) float64 {
	now := s.now()
	sum := 0.0
	for _, c := range codes {
		if c.SourceDate == nil {
			sum += 1.0
			continue
		}
		months := decay.MonthsBetween(*c.SourceDate, now)
		if months < 0 {
			months = 0
		}
		d, err := s.decay.Decay(months)
		if err != nil {
			d = 1.0
		}
		sum += d
	}
	return sum / float64(len(codes))
}

func explain(best *PairMatch, conf, decayFactor float64) string {
	var what string
	switch best.MatchType {
	case MatchExact:
		what = fmt.Sprintf("exact match %s", best.ProfileCode)
	case MatchMajorOnly:
		what = fmt.Sprintf("same major category %c, different subcategory (%s vs %s)", best.ProfileCode[0], best.ProfileCode, best.FoundationCode)
	case MatchMajorIncomplete:
		what = fmt.Sprintf("same major category %c, subcategory incomplete (%s vs %s)", best.ProfileCode[0], best.ProfileCode, best.FoundationCode)
	case MatchRelatedMajor:
		what = fmt.Sprintf("related major categories (%s vs %s)", best.ProfileCode, best.FoundationCode)
	case MatchNone:
		what = "no related NTEE categories"
	}
	return fmt.Sprintf("%s; confidence %.2f, decay %.2f", what, conf, decayFactor)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
