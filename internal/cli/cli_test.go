package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijay-prabhu/grantmatch/internal/composite"
	"github.com/vijay-prabhu/grantmatch/internal/database"
	"github.com/vijay-prabhu/grantmatch/internal/triage"
)

// testEnv is a config file pointing at a temp database
type testEnv struct {
	dir    string
	config string
	dbPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		config: filepath.Join(dir, "config.toml"),
		dbPath: filepath.Join(dir, "data", "grantmatch.db"),
	}
	cfg := "[database]\npath = \"" + env.dbPath + "\"\n\n[logging]\nlevel = \"error\"\ncolor = false\n"
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0644))
	return env
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes the root command. Flag variables outlive a run, so the
// optional ones are reset first.
func (e *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	logLevel, noColor = "", false
	scoreWorkers, scoreNoTriage, scoreSort, scoreMinScore = 0, false, false, 0
	scoreRecommendation, scoreMetricsFile = "", ""
	triageStatus, triagePriority, triageLimit, triageFile, triageReviewer = "", "", 0, "", ""
	rootCmd.SetArgs(append([]string{"--config", e.config, "--output", "json"}, args...))
	return rootCmd.Execute()
}

func (e *testEnv) queue(t *testing.T) *triage.Queue {
	t.Helper()
	db, err := database.Open(e.dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	q := triage.New(database.NewTriageStore(db), nil, nil, nil)
	require.NoError(t, q.Load(context.Background()))
	return q
}

const testProfile = `id: riverbend
name: Riverbend Literacy Project
state: OR
`

const testFoundations = `- ein: "111111111"
  name: Acorn Fund
  ntee_codes:
    - code: B90
  geographic_focus_states: [OR]
  most_recent_filing_year: 2025
- ein: "222222222"
  name: Birch Trust
  ntee_codes:
    - code: B92
`

func TestScoreAndTriageWorkflow(t *testing.T) {
	env := newTestEnv(t)
	profile := env.write(t, "profile.yaml", testProfile)
	foundations := env.write(t, "foundations.yaml", testFoundations)
	metricsFile := filepath.Join(env.dir, "grantmatch.prom")

	err := env.run(t, "score", "--profile", profile, "--foundations", foundations,
		"--metrics-file", metricsFile, "--quiet")
	require.NoError(t, err)

	// a profile without NTEE codes abstains on every foundation
	q := env.queue(t)
	items := q.List(triage.ListOptions{})
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, triage.StatusPending, it.Status)
		assert.Equal(t, string(composite.AbstainMissingNTEE), it.AbstainCode)
	}

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "grantmatch_scores_total")

	require.NoError(t, env.run(t, "triage", "next", "--reviewer", "dana"))
	claimed := env.queue(t).List(triage.ListOptions{Status: triage.StatusInReview})
	require.Len(t, claimed, 1)
	assert.Equal(t, "dana", claimed[0].AssignedTo)

	require.NoError(t, env.run(t, "triage", "review", claimed[0].ID[:8],
		"--decision", "pass", "--rationale", "literacy programs match"))

	q = env.queue(t)
	assert.Equal(t, 1, q.Len())
	history := q.History()
	require.Len(t, history, 1)
	assert.Equal(t, triage.StatusApproved, history[0].Status)
	assert.Equal(t, "literacy programs match", history[0].Rationale)

	exportFile := filepath.Join(env.dir, "review.json")
	require.NoError(t, env.run(t, "triage", "export", "--file", exportFile))
	export, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	assert.Contains(t, string(export), `"foundation_name"`)
}

func TestBMFImportAndLookup(t *testing.T) {
	env := newTestEnv(t)
	csv := env.write(t, "eo.csv", "EIN,NAME,CITY,STATE,ZIP,NTEE_CD\n123456789,RIVERBEND LITERACY PROJECT,PORTLAND,OR,97201,B92\n")

	require.NoError(t, env.run(t, "bmf", "import", csv))
	require.NoError(t, env.run(t, "bmf", "lookup", "12-3456789"))
	assert.Error(t, env.run(t, "bmf", "lookup", "987654321"))
	assert.Error(t, env.run(t, "bmf", "lookup", "12345"))

	db, err := database.Open(env.dbPath)
	require.NoError(t, err)
	defer db.Close()
	stats, err := db.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Organizations)
}

func TestRunErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown output format", []string{"stats", "--output", "xml"}},
		{"unknown log level", []string{"stats", "--log-level", "loud"}},
		{"unknown recommendation", []string{"score", "-p", "x.yaml", "-f", "y.yaml", "-r", "maybe"}},
		{"missing profile file", []string{"score", "-p", filepath.Join(env.dir, "nope.yaml"), "-f", "y.yaml"}},
		{"bad decision", []string{"triage", "review", "abc", "-d", "perhaps", "-m", "x"}},
		{"empty queue", []string{"triage", "next"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, env.run(t, tt.args...))
		})
	}
}

func TestFilterResults(t *testing.T) {
	results := []composite.Result{
		{FoundationEIN: "1", FinalScore: 70, Recommendation: composite.RecommendPass},
		{FoundationEIN: "2", FinalScore: 50, Recommendation: composite.RecommendAbstain},
		{FoundationEIN: "3", FinalScore: 30, Recommendation: composite.RecommendFail},
	}

	tests := []struct {
		name     string
		minScore float64
		only     composite.Recommendation
		expected []string
	}{
		{"no filter", 0, "", []string{"1", "2", "3"}},
		{"min score", 45, "", []string{"1", "2"}},
		{"recommendation", 0, composite.RecommendFail, []string{"3"}},
		{"both", 60, composite.RecommendAbstain, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]composite.Result(nil), results...)
			var got []string
			for _, r := range filterResults(in, tt.minScore, tt.only) {
				got = append(got, r.FoundationEIN)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSortResults(t *testing.T) {
	results := []composite.Result{
		{FoundationEIN: "a", FinalScore: 40},
		{FoundationEIN: "b", FinalScore: 80},
		{FoundationEIN: "c", FinalScore: 40},
		{FoundationEIN: "d", FinalScore: 60},
	}
	sortResults(results)

	var got []string
	for _, r := range results {
		got = append(got, r.FoundationEIN)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{0, ""},
		{-time.Second, ""},
		{45 * time.Second, "45s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m5s"},
		{90 * time.Minute, "1h30m"},
	}

	for _, tt := range tests {
		if got := FormatETA(tt.d); got != tt.expected {
			t.Errorf("FormatETA(%v) = %q, want %q", tt.d, got, tt.expected)
		}
	}
}

func TestRecommendationColor(t *testing.T) {
	assert.Equal(t, ColorGreen, RecommendationColor(composite.RecommendPass))
	assert.Equal(t, ColorYellow, RecommendationColor(composite.RecommendAbstain))
	assert.Equal(t, ColorRed, RecommendationColor(composite.RecommendFail))
}
