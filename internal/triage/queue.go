package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/composite"
	"github.com/vijay-prabhu/grantmatch/internal/logging"
	"github.com/vijay-prabhu/grantmatch/internal/metrics"
)

var (
	ErrNotAbstain        = errors.New("only ABSTAIN results can be queued for review")
	ErrQueueEmpty        = errors.New("no pending items to review")
	ErrNotFound          = errors.New("triage item not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidDecision   = errors.New("decision must be PASS, FAIL or UNCERTAIN")
	ErrRationaleRequired = errors.New("a rationale is required")
	ErrReviewerRequired  = errors.New("a reviewer is required")
	ErrAmbiguousID       = errors.New("item ID prefix matches more than one item")
	errNoStoreConfigured = errors.New("no store configured")
)

// Store persists triage items. SaveItem is an upsert keyed by item ID.
type Store interface {
	SaveItem(ctx context.Context, item Item) error
	LoadItems(ctx context.Context) ([]Item, error)
}

// Queue is the review queue. Every mutation happens under one mutex and is
// written to the store before it becomes visible.
type Queue struct {
	mu      sync.Mutex
	active  map[string]*Item
	byPair  map[string]string
	history []Item

	store   Store
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// New creates an empty queue. store and rec may be nil.
func New(store Store, logger *slog.Logger, rec *metrics.Recorder, clock func() time.Time) *Queue {
	if clock == nil {
		clock = time.Now
	}
	return &Queue{
		active:  make(map[string]*Item),
		byPair:  make(map[string]string),
		store:   store,
		logger:  logging.OrDefault(logger).WithGroup("triage"),
		metrics: rec,
		now:     clock,
	}
}

// Load replaces the queue contents with the items in the store
func (q *Queue) Load(ctx context.Context) error {
	if q.store == nil {
		return errNoStoreConfigured
	}
	items, err := q.store.LoadItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to load triage items: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.active = make(map[string]*Item)
	q.byPair = make(map[string]string)
	q.history = nil
	for _, it := range items {
		if it.Status.Terminal() {
			q.history = append(q.history, it)
			continue
		}
		q.active[it.ID] = &it
		q.byPair[it.pairKey()] = it.ID
	}
	sort.SliceStable(q.history, func(i, j int) bool {
		return reviewedAt(q.history[i]).Before(reviewedAt(q.history[j]))
	})

	q.metrics.SetTriageOpen(len(q.active))
	q.logger.Debug("loaded triage queue", "open", len(q.active), "history", len(q.history))
	return nil
}

// Enqueue adds an ABSTAIN result as a new pending item. A pair that already
// has an open item keeps it: a pending item is refreshed with the new scores,
// an item under review is left alone.
func (q *Queue) Enqueue(ctx context.Context, r composite.Result) (Item, error) {
	if r.Recommendation != composite.RecommendAbstain {
		return Item{}, ErrNotAbstain
	}

	item := newItem(r, q.now())

	q.mu.Lock()
	defer q.mu.Unlock()

	if id, ok := q.byPair[item.pairKey()]; ok {
		if existing, ok := q.active[id]; ok {
			return q.refresh(ctx, existing, item)
		}
	}

	if err := q.save(ctx, item); err != nil {
		return Item{}, err
	}
	q.active[item.ID] = &item
	q.byPair[item.pairKey()] = item.ID

	q.metrics.TriageEnqueued(string(item.Priority))
	q.metrics.SetTriageOpen(len(q.active))
	q.logger.Info("queued for review",
		"id", item.ID,
		"foundation", item.FoundationName,
		"priority", item.Priority,
		"score", fmt.Sprintf("%.2f", item.CompositeScore),
	)
	return item.clone(), nil
}

// refresh updates a pending item from a newer result; callers hold q.mu
func (q *Queue) refresh(ctx context.Context, it *Item, fresh Item) (Item, error) {
	if it.Status != StatusPending {
		q.logger.Debug("pair already under review", "id", it.ID, "foundation", it.FoundationName)
		return it.clone(), nil
	}

	updated := it.clone()
	updated.FoundationName = fresh.FoundationName
	updated.CompositeScore = fresh.CompositeScore
	updated.Confidence = fresh.Confidence
	updated.AbstainCode = fresh.AbstainCode
	updated.AbstainReason = fresh.AbstainReason
	updated.Components = fresh.Components
	updated.Priority = fresh.Priority
	updated.Tags = fresh.Tags

	if err := q.save(ctx, updated); err != nil {
		return Item{}, err
	}
	*it = updated
	q.logger.Debug("refreshed pending item", "id", it.ID, "foundation", it.FoundationName)
	return updated.clone(), nil
}

// Accept queues an ABSTAIN result; it lets the scorer feed the queue directly
func (q *Queue) Accept(ctx context.Context, r composite.Result) error {
	_, err := q.Enqueue(ctx, r)
	return err
}

// GetNextForReview claims the most urgent pending item, oldest first within
// a priority, and moves it to IN_REVIEW. reviewer may be empty.
func (q *Queue) GetNextForReview(ctx context.Context, reviewer string) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var next *Item
	for _, it := range q.active {
		if it.Status != StatusPending {
			continue
		}
		if next == nil || before(it, next) {
			next = it
		}
	}
	if next == nil {
		return Item{}, ErrQueueEmpty
	}

	updated := next.clone()
	now := q.now().UTC()
	updated.Status = StatusInReview
	updated.ReviewStarted = &now
	if reviewer = strings.TrimSpace(reviewer); reviewer != "" {
		updated.AssignedTo = reviewer
	}

	if err := q.save(ctx, updated); err != nil {
		return Item{}, err
	}
	*next = updated
	return updated.clone(), nil
}

// Assign sets the reviewer of an open item
func (q *Queue) Assign(ctx context.Context, id, reviewer string) (Item, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return Item{}, ErrReviewerRequired
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	it, err := q.open(id)
	if err != nil {
		return Item{}, err
	}

	updated := it.clone()
	updated.AssignedTo = reviewer
	if err := q.save(ctx, updated); err != nil {
		return Item{}, err
	}
	*it = updated
	return updated.clone(), nil
}

// SubmitReview records a decision on an IN_REVIEW item and archives it
func (q *Queue) SubmitReview(ctx context.Context, id string, decision Decision, rationale string) (Item, error) {
	if _, ok := ParseDecision(string(decision)); !ok {
		return Item{}, ErrInvalidDecision
	}
	rationale = strings.TrimSpace(rationale)
	if rationale == "" {
		return Item{}, ErrRationaleRequired
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	it, err := q.open(id)
	if err != nil {
		return Item{}, err
	}
	if it.Status != StatusInReview {
		return Item{}, fmt.Errorf("%w: %s is %s, want %s", ErrInvalidTransition, id, it.Status, StatusInReview)
	}

	return q.archive(ctx, it, decision.status(), decision, rationale)
}

// Defer archives an IN_REVIEW item without a verdict
func (q *Queue) Defer(ctx context.Context, id, rationale string) (Item, error) {
	rationale = strings.TrimSpace(rationale)
	if rationale == "" {
		return Item{}, ErrRationaleRequired
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	it, err := q.open(id)
	if err != nil {
		return Item{}, err
	}
	if it.Status != StatusInReview {
		return Item{}, fmt.Errorf("%w: %s is %s, want %s", ErrInvalidTransition, id, it.Status, StatusInReview)
	}
	return q.archive(ctx, it, StatusDeferred, "", rationale)
}

// Get returns an item from the queue or its history
func (q *Queue) Get(id string) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if it, ok := q.active[id]; ok {
		return it.clone(), nil
	}
	for _, it := range q.history {
		if it.ID == id {
			return it.clone(), nil
		}
	}
	return Item{}, ErrNotFound
}

// Find returns the item whose ID is id or starts with id
func (q *Queue) Find(id string) (Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, ErrNotFound
	}
	if it, err := q.Get(id); err == nil {
		return it, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var found *Item
	check := func(it *Item) error {
		if !strings.HasPrefix(it.ID, id) {
			return nil
		}
		if found != nil {
			return fmt.Errorf("%w: %s", ErrAmbiguousID, id)
		}
		found = it
		return nil
	}
	for _, it := range q.active {
		if err := check(it); err != nil {
			return Item{}, err
		}
	}
	for i := range q.history {
		if err := check(&q.history[i]); err != nil {
			return Item{}, err
		}
	}
	if found == nil {
		return Item{}, ErrNotFound
	}
	return found.clone(), nil
}

// ListOptions filters List
type ListOptions struct {
	Status   Status   // Empty means all open items
	Priority Priority // Empty means any
	Limit    int      // <= 0 means no limit
}

// List returns items in review order: priority, then age
func (q *Queue) List(opts ListOptions) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var src []Item
	if opts.Status.Terminal() {
		src = q.history
	} else {
		for _, it := range q.active {
			src = append(src, *it)
		}
	}

	var out []Item
	for _, it := range src {
		if opts.Status != "" && it.Status != opts.Status {
			continue
		}
		if opts.Priority != "" && it.Priority != opts.Priority {
			continue
		}
		out = append(out, it.clone())
	}
	sort.Slice(out, func(i, j int) bool { return before(&out[i], &out[j]) })

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// History returns archived items in the order they were closed
func (q *Queue) History() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, len(q.history))
	for i, it := range q.history {
		out[i] = it.clone()
	}
	return out
}

// Len returns the number of open items
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// open returns the live pointer of an open item; callers hold q.mu
func (q *Queue) open(id string) (*Item, error) {
	if it, ok := q.active[id]; ok {
		return it, nil
	}
	for _, it := range q.history {
		if it.ID == id {
			return nil, fmt.Errorf("%w: %s is already %s", ErrInvalidTransition, id, it.Status)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// archive moves an open item to history; callers hold q.mu
func (q *Queue) archive(ctx context.Context, it *Item, status Status, decision Decision, rationale string) (Item, error) {
	updated := it.clone()
	now := q.now().UTC()
	updated.Status = status
	updated.Decision = decision
	updated.Rationale = rationale
	updated.ReviewedAt = &now

	if err := q.save(ctx, updated); err != nil {
		return Item{}, err
	}
	delete(q.active, updated.ID)
	delete(q.byPair, updated.pairKey())
	q.history = append(q.history, updated)

	q.metrics.TriageReviewed(string(status))
	q.metrics.SetTriageOpen(len(q.active))
	q.logger.Info("review closed",
		"id", updated.ID,
		"foundation", updated.FoundationName,
		"status", status,
		"reviewer", updated.AssignedTo,
	)
	return updated.clone(), nil
}

func (q *Queue) save(ctx context.Context, item Item) error {
	if q.store == nil {
		return nil
	}
	if err := q.store.SaveItem(ctx, item); err != nil {
		return fmt.Errorf("failed to save triage item: %w", err)
	}
	return nil
}

// before orders items by priority, then creation time, then ID
func before(a, b *Item) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func reviewedAt(it Item) time.Time {
	if it.ReviewedAt == nil {
		return it.CreatedAt
	}
	return *it.ReviewedAt
}
