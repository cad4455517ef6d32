// Package ntee parses National Taxonomy of Exempt Entities codes and scores
// how well an applicant's codes align with a foundation's.
package ntee

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/model"
)

// ErrInvalidCode is returned for codes without a leading A-Z major letter
var ErrInvalidCode = errors.New("invalid NTEE code")

const (
	completeConfidence   = 1.0
	incompleteConfidence = 0.7
)

// Code is a parsed NTEE code. Leaf is empty when the code is incomplete.
type Code struct {
	Full       string           `json:"full" yaml:"full"`
	Major      byte             `json:"-" yaml:"-"`
	Leaf       string           `json:"leaf,omitempty" yaml:"leaf,omitempty"`
	Source     model.NTEESource `json:"source,omitempty" yaml:"source,omitempty"`
	SourceDate *time.Time       `json:"source_date,omitempty" yaml:"source_date,omitempty"`
	Confidence float64          `json:"confidence" yaml:"confidence"`
}

// Complete reports whether the code carries a numeric leaf
func (c Code) Complete() bool {
	return c.Leaf != ""
}

// Parse parses raw into a Code. The major letter is required; a leaf is kept
// only when the remainder is 2 or 3 digits.
func Parse(raw string, source model.NTEESource, date *time.Time) (Code, error) {
	full := strings.ToUpper(strings.TrimSpace(raw))
	if full == "" {
		return Code{}, fmt.Errorf("%w: empty", ErrInvalidCode)
	}

	major := full[0]
	if major < 'A' || major > 'Z' {
		return Code{}, fmt.Errorf("%w: %q has no major category", ErrInvalidCode, raw)
	}

	rest := full[1:]
	leaf := ""
	if (len(rest) == 2 || len(rest) == 3) && allDigits(rest) {
		leaf = rest
	}

	conf := incompleteConfidence
	if leaf != "" {
		conf = completeConfidence
	}

	return Code{
		Full:       full,
		Major:      major,
		Leaf:       leaf,
		Source:     source,
		SourceDate: date,
		Confidence: conf,
	}, nil
}

// ParseStrings parses undated codes, skipping invalid ones and duplicates
func ParseStrings(raw []string, source model.NTEESource) []Code {
	seen := make(map[string]bool, len(raw))
	out := make([]Code, 0, len(raw))
	for _, r := range raw {
		c, err := Parse(r, source, nil)
		if err != nil || seen[c.Full] {
			continue
		}
		seen[c.Full] = true
		out = append(out, c)
	}
	return out
}

// FromFoundation parses a foundation's declared codes with their provenance
func FromFoundation(codes []model.FoundationNTEECode) []Code {
	seen := make(map[string]bool, len(codes))
	out := make([]Code, 0, len(codes))
	for _, fc := range codes {
		c, err := Parse(fc.Code, fc.Source, fc.AcquiredAt)
		if err != nil || seen[c.Full] {
			continue
		}
		seen[c.Full] = true
		out = append(out, c)
	}
	return out
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
