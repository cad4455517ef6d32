package composite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijay-prabhu/grantmatch/internal/model"
)

func TestScoreBatch_KeepsInputOrder(t *testing.T) {
	s := newTestScorer(t, nil, nil)

	var foundations []*model.FoundationOpportunityData
	for _, name := range []string{"Alder Trust", "Birch Fund", "Cedar Foundation"} {
		f := strongFoundation()
		f.Name = name
		foundations = append(foundations, f)
	}

	var calls []Progress
	results, err := s.ScoreBatch(context.Background(), testProfile(), foundations, BatchOptions{
		Workers:  2,
		Progress: func(p Progress) { calls = append(calls, p) },
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, f := range foundations {
		assert.Equal(t, f.Name, results[i].FoundationName)
	}

	require.Len(t, calls, 3)
	assert.Equal(t, 3, calls[2].Current)
	assert.Equal(t, 3, calls[2].Total)
}

func TestScoreBatch_NilFoundation(t *testing.T) {
	s := newTestScorer(t, nil, nil)

	_, err := s.ScoreBatch(context.Background(), testProfile(), []*model.FoundationOpportunityData{strongFoundation(), nil}, BatchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNilInput))
}

func TestScoreBatch_NilProfile(t *testing.T) {
	s := newTestScorer(t, nil, nil)

	_, err := s.ScoreBatch(context.Background(), nil, nil, BatchOptions{})
	assert.True(t, errors.Is(err, ErrNilInput))
}

func TestScoreBatch_CanceledContext(t *testing.T) {
	s := newTestScorer(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ScoreBatch(ctx, testProfile(), []*model.FoundationOpportunityData{strongFoundation()}, BatchOptions{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name    string
		p       Progress
		percent int
		hasETA  bool
	}{
		{"not started", Progress{Total: 10}, 0, false},
		{"halfway", Progress{Current: 5, Total: 10, StartedAt: time.Now().Add(-10 * time.Second)}, 50, true},
		{"done", Progress{Current: 10, Total: 10, StartedAt: time.Now().Add(-time.Second)}, 100, false},
		{"empty batch", Progress{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Percentage(); got != tt.percent {
				t.Errorf("Percentage() = %v, want %v", got, tt.percent)
			}
			if got := tt.p.ETA() > 0; got != tt.hasETA {
				t.Errorf("ETA() > 0 = %v, want %v", got, tt.hasETA)
			}
		})
	}
}
