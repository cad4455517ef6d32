package schedulei

import (
	"math"
	"sort"
)

// coherence is the mean pairwise Jaccard similarity of the votes' code sets.
// Fewer than two votes is trivially coherent.
func coherence(votes []Vote) float64 {
	if len(votes) < 2 {
		return 1.0
	}

	sets := make([]map[string]bool, len(votes))
	for i, v := range votes {
		sets[i] = make(map[string]bool, len(v.Codes))
		for _, c := range v.Codes {
			sets[i][c] = true
		}
	}

	sum := 0.0
	pairs := 0
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			sum += jaccard(sets[i], sets[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func jaccard(a, b map[string]bool) float64 {
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// voteShares returns each code's share of the total vote, largest first.
// Zero total yields no shares.
func voteShares(tallies []CodeTally) []float64 {
	total := 0.0
	for _, t := range tallies {
		total += t.TotalVotes
	}
	if total <= 0 {
		return nil
	}

	shares := make([]float64, 0, len(tallies))
	for _, t := range tallies {
		shares = append(shares, t.TotalVotes/total)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(shares)))
	return shares
}

// entropy is the base-2 Shannon entropy of the shares
func entropy(shares []float64) float64 {
	h := 0.0
	for _, p := range shares {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// concentration is the share held by the top n codes, over the codes available
func concentration(shares []float64, n int) float64 {
	if n < 0 {
		n = 0
	}
	if n > len(shares) {
		n = len(shares)
	}
	sum := 0.0
	for _, p := range shares[:n] {
		sum += p
	}
	return clamp(sum, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
