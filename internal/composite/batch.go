package composite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vijay-prabhu/grantmatch/internal/model"
)

// BatchOptions configures ScoreBatch
type BatchOptions struct {
	Workers  int              // Concurrent pairs (<= 0 means 1)
	Progress ProgressCallback // Optional progress callback
}

// ScoreBatch scores one profile against many foundations concurrently.
// Results keep the order of foundations. The first error cancels the rest.
func (s *Scorer) ScoreBatch(ctx context.Context, profile *model.OrganizationProfile, foundations []*model.FoundationOpportunityData, opts BatchOptions) ([]Result, error) {
	if profile == nil {
		return nil, ErrNilInput
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]Result, len(foundations))
	started := time.Now()

	var mu sync.Mutex
	done := 0
	report := func(label string) {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		opts.Progress(Progress{
			Current:     done,
			Total:       len(foundations),
			Description: label,
			StartedAt:   started,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, f := range foundations {
		g.Go(func() error {
			if f == nil {
				return fmt.Errorf("foundation %d: %w", i, ErrNilInput)
			}
			res, err := s.ScoreFoundationMatch(gctx, profile, f)
			if err != nil {
				return fmt.Errorf("failed to score %s: %w", f.Label(), err)
			}
			results[i] = res
			report(f.Label())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
