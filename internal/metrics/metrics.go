// Package metrics records scoring and triage counters on a private
// prometheus registry. A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grantmatch"

// Recorder owns the collectors for one process
type Recorder struct {
	registry *prometheus.Registry

	scores          *prometheus.CounterVec
	finalScore      prometheus.Histogram
	resolutions     *prometheus.CounterVec
	lookupErrors    prometheus.Counter
	cacheHits       prometheus.Counter
	triageEnqueued  *prometheus.CounterVec
	triageReviews   *prometheus.CounterVec
	triageOpenItems prometheus.Gauge
}

// New creates a Recorder with all collectors registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_total",
			Help:      "Composite scores computed, by recommendation.",
		}, []string{"recommendation"}),
		finalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_score",
			Help:      "Distribution of composite final scores.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ein_resolutions_total",
			Help:      "Recipient identity resolutions, by confidence tier.",
		}, []string{"confidence"}),
		lookupErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ein_lookup_errors_total",
			Help:      "Identity lookups that failed and were treated as no match.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ein_cache_hits_total",
			Help:      "Identity resolutions served from the resolver cache.",
		}),
		triageEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triage_enqueued_total",
			Help:      "Abstain results queued for review, by priority.",
		}, []string{"priority"}),
		triageReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triage_reviews_total",
			Help:      "Completed reviews, by final status.",
		}, []string{"status"}),
		triageOpenItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "triage_open_items",
			Help:      "Items pending or in review.",
		}),
	}

	r.registry.MustRegister(
		r.scores,
		r.finalScore,
		r.resolutions,
		r.lookupErrors,
		r.cacheHits,
		r.triageEnqueued,
		r.triageReviews,
		r.triageOpenItems,
	)
	return r
}

// Registry exposes the underlying registry as a Gatherer
func (r *Recorder) Registry() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// ObserveScore records one composite result
func (r *Recorder) ObserveScore(recommendation string, finalScore float64) {
	if r == nil {
		return
	}
	r.scores.WithLabelValues(recommendation).Inc()
	r.finalScore.Observe(finalScore)
}

// ObserveResolution records one resolver outcome; an empty tier means no match
func (r *Recorder) ObserveResolution(confidence string) {
	if r == nil {
		return
	}
	if confidence == "" {
		confidence = "NONE"
	}
	r.resolutions.WithLabelValues(confidence).Inc()
}

// LookupFailed records a swallowed identity lookup error
func (r *Recorder) LookupFailed() {
	if r == nil {
		return
	}
	r.lookupErrors.Inc()
}

// CacheHit records a resolver cache hit
func (r *Recorder) CacheHit() {
	if r == nil {
		return
	}
	r.cacheHits.Inc()
}

// TriageEnqueued records a new triage item
func (r *Recorder) TriageEnqueued(priority string) {
	if r == nil {
		return
	}
	r.triageEnqueued.WithLabelValues(priority).Inc()
}

// TriageReviewed records a terminal transition
func (r *Recorder) TriageReviewed(status string) {
	if r == nil {
		return
	}
	r.triageReviews.WithLabelValues(status).Inc()
}

// SetTriageOpen sets the number of open triage items
func (r *Recorder) SetTriageOpen(n int) {
	if r == nil {
		return
	}
	r.triageOpenItems.Set(float64(n))
}

// WriteTextfile writes all metrics in the node-exporter textfile format
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
