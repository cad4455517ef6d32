package triage

import "time"

// AgreementMidpoint is the center of the abstain band. A reviewer "agrees"
// with the scorer when PASS lands at or above it and FAIL lands below it.
const AgreementMidpoint = 52.5

// calibrationEdges split scores into the buckets reported by Stats
var calibrationEdges = []float64{0, 45, 50, 55, 58, 100}

// CalibrationBucket summarizes reviewer verdicts for one score range
type CalibrationBucket struct {
	Low      float64 `json:"low" yaml:"low"`
	High     float64 `json:"high" yaml:"high"`
	Reviewed int     `json:"reviewed" yaml:"reviewed"` // PASS or FAIL verdicts
	Passed   int     `json:"passed" yaml:"passed"`
	PassRate float64 `json:"pass_rate" yaml:"pass_rate"`
}

// Stats summarizes the queue and its review history
type Stats struct {
	Total             int                 `json:"total" yaml:"total"`
	Open              int                 `json:"open" yaml:"open"`
	ByStatus          map[Status]int      `json:"by_status" yaml:"by_status"`
	ByPriority        map[Priority]int    `json:"by_priority" yaml:"by_priority"` // open items only
	Decided           int                 `json:"decided" yaml:"decided"`
	ApprovalRate      float64             `json:"approval_rate" yaml:"approval_rate"`
	MeanReviewLatency time.Duration       `json:"mean_review_latency" yaml:"mean_review_latency"`
	AgreementSamples  int                 `json:"agreement_samples" yaml:"agreement_samples"`
	AgreementRate     float64             `json:"agreement_rate" yaml:"agreement_rate"`
	Calibration       []CalibrationBucket `json:"calibration" yaml:"calibration"`
}

// Stats computes queue statistics. Deferred items count toward totals but
// not toward decisions or latency.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	open := make([]Item, 0, len(q.active))
	for _, it := range q.active {
		open = append(open, *it)
	}
	closed := make([]Item, len(q.history))
	copy(closed, q.history)
	q.mu.Unlock()

	return computeStats(open, closed)
}

func computeStats(open, closed []Item) Stats {
	s := Stats{
		Total:      len(open) + len(closed),
		Open:       len(open),
		ByStatus:   make(map[Status]int),
		ByPriority: make(map[Priority]int),
	}

	for _, it := range open {
		s.ByStatus[it.Status]++
		s.ByPriority[it.Priority]++
	}

	buckets := make([]CalibrationBucket, len(calibrationEdges)-1)
	for i := range buckets {
		buckets[i].Low = calibrationEdges[i]
		buckets[i].High = calibrationEdges[i+1]
	}

	var approved, agreed int
	var latency time.Duration
	for _, it := range closed {
		s.ByStatus[it.Status]++
		if it.Status == StatusDeferred {
			continue
		}

		s.Decided++
		latency += it.ReviewLatency()
		if it.Status == StatusApproved {
			approved++
		}

		if it.Decision != DecisionPass && it.Decision != DecisionFail {
			continue
		}
		s.AgreementSamples++
		passed := it.Decision == DecisionPass
		if passed == (it.CompositeScore >= AgreementMidpoint) {
			agreed++
		}
		if b := bucketFor(buckets, it.CompositeScore); b != nil {
			b.Reviewed++
			if passed {
				b.Passed++
			}
		}
	}

	if s.Decided > 0 {
		s.ApprovalRate = float64(approved) / float64(s.Decided)
		s.MeanReviewLatency = latency / time.Duration(s.Decided)
	}
	if s.AgreementSamples > 0 {
		s.AgreementRate = float64(agreed) / float64(s.AgreementSamples)
	}
	for i := range buckets {
		if buckets[i].Reviewed > 0 {
			buckets[i].PassRate = float64(buckets[i].Passed) / float64(buckets[i].Reviewed)
		}
	}
	s.Calibration = buckets
	return s
}

// bucketFor finds the bucket with Low <= score < High; the last bucket
// includes its upper edge
func bucketFor(buckets []CalibrationBucket, score float64) *CalibrationBucket {
	for i := range buckets {
		b := &buckets[i]
		last := i == len(buckets)-1
		if score >= b.Low && (score < b.High || (last && score <= b.High)) {
			return b
		}
	}
	return nil
}
