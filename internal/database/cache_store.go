package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vijay-prabhu/grantmatch/internal/ein"
)

// CacheStore persists EIN resolver cache snapshots. It implements ein.CacheStore.
type CacheStore struct {
	db *DB
}

// NewCacheStore creates a CacheStore
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

// SaveCache replaces the stored snapshot with entries
func (s *CacheStore) SaveCache(ctx context.Context, entries []ein.CacheEntry) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ein_cache`); err != nil {
			return fmt.Errorf("failed to clear EIN cache: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO ein_cache (cache_key, result, cached_at) VALUES (?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			var result sql.NullString
			if e.Result != nil {
				data, err := json.Marshal(e.Result)
				if err != nil {
					return fmt.Errorf("failed to encode cache entry: %w", err)
				}
				result = sql.NullString{String: string(data), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, e.Key, result, e.CachedAt); err != nil {
				return fmt.Errorf("failed to save cache entry: %w", err)
			}
		}
		return nil
	})
}

// LoadCache returns the stored snapshot
func (s *CacheStore) LoadCache(ctx context.Context) ([]ein.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, result, cached_at FROM ein_cache ORDER BY cache_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load EIN cache: %w", err)
	}
	defer rows.Close()

	var entries []ein.CacheEntry
	for rows.Next() {
		var e ein.CacheEntry
		var result sql.NullString
		if err := rows.Scan(&e.Key, &result, &e.CachedAt); err != nil {
			return nil, err
		}
		if result.Valid {
			var res ein.Resolution
			if err := json.Unmarshal([]byte(result.String), &res); err != nil {
				return nil, fmt.Errorf("failed to decode cache entry %s: %w", e.Key, err)
			}
			e.Result = &res
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
