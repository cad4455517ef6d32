package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/triage"
)

// TriageStore persists triage items. It implements triage.Store.
type TriageStore struct {
	db *DB
}

// NewTriageStore creates a TriageStore
func NewTriageStore(db *DB) *TriageStore {
	return &TriageStore{db: db}
}

// SaveItem inserts or updates an item
func (s *TriageStore) SaveItem(ctx context.Context, item triage.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode triage item: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO triage_items (
			id, status, priority, foundation_ein, composite_score, created_at, updated_at, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			priority = excluded.priority,
			updated_at = excluded.updated_at,
			data = excluded.data
	`,
		item.ID, item.Status, item.Priority, item.FoundationEIN, item.CompositeScore,
		item.CreatedAt, time.Now(), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save triage item %s: %w", item.ID, err)
	}
	return nil
}

// LoadItems returns every stored item, oldest first
func (s *TriageStore) LoadItems(ctx context.Context) ([]triage.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM triage_items ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load triage items: %w", err)
	}
	defer rows.Close()

	var items []triage.Item
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var item triage.Item
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, fmt.Errorf("failed to decode triage item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
