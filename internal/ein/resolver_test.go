package ein

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijay-prabhu/grantmatch/internal/metrics"
)

type fakeLookup struct {
	mu       sync.Mutex
	records  []IdentityMatch
	err      error
	panicMsg string
	calls    int
}

func (f *fakeLookup) LookupEIN(_ context.Context, ein string) (*IdentityMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.records {
		if f.records[i].EIN == ein {
			m := f.records[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (f *fakeLookup) SearchName(_ context.Context, name, state, zip string) ([]IdentityMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []IdentityMatch
	for _, r := range f.records {
		if state != "" && r.State != state && (zip == "" || ZIP3(zip) != ZIP3(r.ZIP)) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func newTestResolver(lookup IdentityLookup) *Resolver {
	return NewResolver(lookup, DefaultConfig(), nil, nil)
}

var testRecords = []IdentityMatch{
	{EIN: "123456789", Name: "Riverbend Literacy Project Inc", State: "OR", ZIP: "97201", NTEECode: "B92"},
	{EIN: "987654321", Name: "Cascade Food Bank", State: "WA", ZIP: "98101", NTEECode: "K31"},
	{EIN: "555555555", Name: "Harbor Youth Choir", State: "OR", ZIP: "97401", NTEECode: "A6B"},
}

func TestResolve_ExactEIN(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		wantConf Confidence
	}{
		{
			name:     "name and state match",
			query:    Query{EIN: "12-3456789", Name: "Riverbend Literacy Project", State: "or"},
			wantConf: ConfidenceHigh,
		},
		{
			name:     "name matches, state differs",
			query:    Query{EIN: "123456789", Name: "Riverbend Literacy Project", State: "WA"},
			wantConf: ConfidenceMedium,
		},
		{
			name:     "name differs, zip3 matches",
			query:    Query{EIN: "123456789", Name: "Mountain Ski Patrol", State: "OR", ZIP: "97209"},
			wantConf: ConfidenceMedium,
		},
		{
			name:     "name differs, no geography",
			query:    Query{EIN: "123456789", Name: "Mountain Ski Patrol"},
			wantConf: ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(&fakeLookup{records: testRecords})

			res := r.Resolve(context.Background(), tt.query)
			require.NotNil(t, res)
			assert.Equal(t, tt.wantConf, res.Confidence)
			assert.Equal(t, MatchedByEIN, res.MatchedBy)
			assert.Equal(t, "123456789", res.EIN)
			assert.Equal(t, tt.wantConf.Weight(), res.ConfidenceWeight)
		})
	}
}

func TestResolve_HighRequiresSimilarityAndState(t *testing.T) {
	lookup := &fakeLookup{records: testRecords}
	queries := []Query{
		{EIN: "123456789", Name: "Riverbend Literacy Project", State: "OR"},
		{EIN: "123456789", Name: "Riverbend Literacy Projects", State: "OR"},
		{EIN: "123456789", Name: "Riverbend Literacy", State: "OR"},
		{EIN: "123456789", Name: "Riverbend Literacy Project", State: ""},
		{EIN: "987654321", Name: "Cascade Food Bank", State: "OR"},
		{EIN: "987654321", Name: "Cascade Foods", State: "WA"},
		{Name: "Harbor Youth Choir", State: "OR"},
		{Name: "Harbor Youth Choir"},
	}

	r := newTestResolver(lookup)
	for _, q := range queries {
		res := r.Resolve(context.Background(), q)
		if res == nil {
			continue
		}
		if res.Confidence == ConfidenceHigh {
			stateMatch := NormalizeState(q.State) != "" && NormalizeState(q.State) == res.State
			assert.True(t, res.NameSimilarity >= 0.90 && stateMatch, "HIGH without corroboration for %+v", q)
		}
		if res.Confidence == ConfidenceLow {
			assert.Equal(t, 0.0, res.ConfidenceWeight)
		}
	}
}

func TestResolve_NameGeo(t *testing.T) {
	r := newTestResolver(&fakeLookup{records: testRecords})

	res := r.Resolve(context.Background(), Query{Name: "Cascade Food Bank", State: "WA"})
	require.NotNil(t, res)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
	assert.Equal(t, MatchedByNameGeo, res.MatchedBy)
	assert.Equal(t, "K31", res.NTEECode)
}

func TestResolve_NameOnlyIsLowWeightZero(t *testing.T) {
	r := newTestResolver(&fakeLookup{records: testRecords})

	res := r.Resolve(context.Background(), Query{Name: "Harbor Youth Choir", State: "WA"})
	require.NotNil(t, res)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Equal(t, MatchedByNameOnly, res.MatchedBy)
	assert.Equal(t, 0.0, res.ConfidenceWeight)
}

func TestResolve_MalformedEINFallsBackToName(t *testing.T) {
	r := newTestResolver(&fakeLookup{records: testRecords})

	res := r.Resolve(context.Background(), Query{EIN: "12-345", Name: "Cascade Food Bank", State: "WA"})
	require.NotNil(t, res)
	assert.Equal(t, MatchedByNameGeo, res.MatchedBy)
}

func TestResolve_NoMatch(t *testing.T) {
	r := newTestResolver(&fakeLookup{records: testRecords})

	assert.Nil(t, r.Resolve(context.Background(), Query{Name: "Completely Unrelated Org", State: "TX"}))
	assert.Nil(t, r.Resolve(context.Background(), Query{}))
	assert.Nil(t, NewResolver(nil, DefaultConfig(), nil, nil).Resolve(context.Background(), Query{EIN: "123456789"}))
}

func TestResolve_LookupFailureIsNoMatch(t *testing.T) {
	rec := metrics.New()
	lookup := &fakeLookup{records: testRecords, err: errors.New("connection refused")}
	r := NewResolver(lookup, DefaultConfig(), nil, rec)

	res := r.Resolve(context.Background(), Query{EIN: "123456789", Name: "Riverbend Literacy Project", State: "OR"})
	assert.Nil(t, res)

	// tier 1 plus both name searches
	assert.Equal(t, 3.0, counterValue(t, rec, "grantmatch_ein_lookup_errors_total"))
}

func TestResolve_LookupPanicIsNoMatch(t *testing.T) {
	r := newTestResolver(&fakeLookup{records: testRecords, panicMsg: "boom"})

	assert.NotPanics(t, func() {
		res := r.Resolve(context.Background(), Query{EIN: "123456789"})
		assert.Nil(t, res)
	})
}

func TestResolve_CachesHitsAndMisses(t *testing.T) {
	lookup := &fakeLookup{records: testRecords}
	r := newTestResolver(lookup)
	ctx := context.Background()

	q := Query{EIN: "123456789", Name: "Riverbend Literacy Project", State: "OR"}
	first := r.Resolve(ctx, q)
	calls := lookup.calls
	second := r.Resolve(ctx, q)
	assert.Equal(t, calls, lookup.calls)
	assert.Equal(t, first, second)

	miss := Query{Name: "Nobody Here", State: "TX"}
	assert.Nil(t, r.Resolve(ctx, miss))
	calls = lookup.calls
	assert.Nil(t, r.Resolve(ctx, miss))
	assert.Equal(t, calls, lookup.calls)

	// Returned values are copies
	first.Confidence = ConfidenceLow
	third := r.Resolve(ctx, q)
	assert.Equal(t, ConfidenceHigh, third.Confidence)
}

func TestResolve_DoesNotCacheFailedLookups(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		expected string
	}{
		{"EIN lookup", Query{EIN: "123456789", Name: "Riverbend Literacy Project", State: "OR"}, "123456789"},
		{"name search", Query{Name: "Cascade Food Bank", State: "WA"}, "987654321"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{records: testRecords, err: errors.New("timeout")}
			r := newTestResolver(lookup)
			ctx := context.Background()

			assert.Nil(t, r.Resolve(ctx, tt.query))
			assert.Equal(t, 0, r.Cache().Len())

			lookup.mu.Lock()
			lookup.err = nil
			lookup.mu.Unlock()

			got := r.Resolve(ctx, tt.query)
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got.EIN)
			assert.Equal(t, 1, r.Cache().Len())
		})
	}
}

func TestResolve_DoesNotCacheCanceledLookups(t *testing.T) {
	r := newTestResolver(&fakeLookup{records: testRecords})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Resolve(ctx, Query{Name: "Nobody Here", State: "TX"})
	assert.Equal(t, 0, r.Cache().Len())
}

type memCacheStore struct {
	entries []CacheEntry
}

func (m *memCacheStore) SaveCache(_ context.Context, entries []CacheEntry) error {
	m.entries = entries
	return nil
}

func (m *memCacheStore) LoadCache(_ context.Context) ([]CacheEntry, error) {
	return m.entries, nil
}

func TestResolver_SaveLoadCache(t *testing.T) {
	ctx := context.Background()
	store := &memCacheStore{}

	r1 := newTestResolver(&fakeLookup{records: testRecords})
	r1.Resolve(ctx, Query{EIN: "987654321", Name: "Cascade Food Bank", State: "WA"})
	r1.Resolve(ctx, Query{Name: "Nobody Here", State: "TX"})
	require.NoError(t, r1.SaveCache(ctx, store))
	require.Len(t, store.entries, 2)

	lookup := &fakeLookup{records: testRecords}
	r2 := newTestResolver(lookup)
	require.NoError(t, r2.LoadCache(ctx, store))
	assert.Equal(t, 2, r2.Cache().Len())

	res := r2.Resolve(ctx, Query{EIN: "987654321", Name: "Cascade Food Bank", State: "WA"})
	require.NotNil(t, res)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	assert.Equal(t, 0, lookup.calls)
}

func TestConfidenceWeight(t *testing.T) {
	tests := []struct {
		conf     Confidence
		expected float64
	}{
		{ConfidenceHigh, 1.0},
		{ConfidenceMedium, 0.5},
		{ConfidenceLow, 0.0},
		{Confidence("bogus"), 0.0},
	}

	for _, tt := range tests {
		if got := tt.conf.Weight(); got != tt.expected {
			t.Errorf("Confidence(%q).Weight() = %v, want %v", tt.conf, got, tt.expected)
		}
	}
}

func counterValue(t *testing.T, rec *metrics.Recorder, name string) float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
