package ein

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes are dropped from names before comparison
var legalSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"llc":          true,
	"ltd":          true,
	"limited":      true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"foundation":   true,
	"fdn":          true,
	"fund":         true,
	"trust":        true,
	"charity":      true,
	"charities":    true,
	"charitable":   true,
	"pllc":         true,
	"lp":           true,
	"the":          true,
}

// NormalizeEIN strips formatting and returns the 9-digit EIN, or "" when
// the input does not hold exactly nine digits.
func NormalizeEIN(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != 9 {
		return ""
	}
	return b.String()
}

// NormalizeName lowercases, strips accents, punctuation and legal suffixes,
// and collapses whitespace.
func NormalizeName(name string) string {
	folded := foldAccents(name)
	folded = strings.ToLower(folded)

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)

	tokens := strings.Fields(cleaned)
	kept := tokens[:0]
	for _, tok := range tokens {
		if legalSuffixes[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NameSimilarity compares two raw names after normalization.
// See Similarity for the metric.
func NameSimilarity(a, b string) float64 {
	return Similarity(NormalizeName(a), NormalizeName(b))
}

// Similarity is the normalized Levenshtein ratio 1 - d/max(len) over runes.
// Either side empty yields 0: an empty name is never evidence of a match.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	if a == b {
		return 1
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	d := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(d)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}

// ZIP3 returns the first three digits of a ZIP code, or ""
func ZIP3(zip string) string {
	var b strings.Builder
	for _, r := range zip {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == 3 {
				return b.String()
			}
		}
	}
	return ""
}

// NormalizeState upper-cases and trims a state code
func NormalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}
