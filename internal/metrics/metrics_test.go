package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.ObserveScore("PASS", 71)
	r.ObserveScore("PASS", 64)
	r.ObserveScore("ABSTAIN", 50)
	r.ObserveResolution("HIGH")
	r.ObserveResolution("")
	r.LookupFailed()
	r.CacheHit()
	r.TriageEnqueued("CRITICAL")
	r.TriageReviewed("APPROVED")
	r.SetTriageOpen(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.scores.WithLabelValues("PASS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.scores.WithLabelValues("ABSTAIN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues("NONE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lookupErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheHits))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.triageOpenItems))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ObserveScore("FAIL", 10)
		r.ObserveResolution("LOW")
		r.LookupFailed()
		r.CacheHit()
		r.TriageEnqueued("LOW")
		r.TriageReviewed("REJECTED")
		r.SetTriageOpen(0)
	})
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.NotNil(t, r.Registry())
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveScore("FAIL", 12)

	path := filepath.Join(t.TempDir(), "grantmatch.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `grantmatch_scores_total{recommendation="FAIL"} 1`))
}
