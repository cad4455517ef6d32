package database

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/ein"
	"github.com/vijay-prabhu/grantmatch/internal/model"
	"github.com/vijay-prabhu/grantmatch/internal/ntee"
)

// bmfColumns maps the IRS extract headers onto record fields
var bmfColumns = map[string]string{
	"ein":     "ein",
	"name":    "name",
	"city":    "city",
	"state":   "state",
	"zip":     "zip",
	"ntee_cd": "ntee",
	"ntee":    "ntee",
}

// ErrMissingColumns is returned when a BMF extract lacks the EIN or NAME column
var ErrMissingColumns = errors.New("BMF extract must have EIN and NAME columns")

// ImportBMF reads an IRS Business Master File CSV extract and upserts every
// row with a valid EIN and a name. Invalid NTEE codes are dropped, not fatal.
// The import runs in one transaction.
func (db *DB) ImportBMF(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read BMF header: %w", err)
	}
	index := make(map[string]int)
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if field, ok := bmfColumns[key]; ok {
			if _, seen := index[field]; !seen {
				index[field] = i
			}
		}
	}
	if _, ok := index["ein"]; !ok {
		return nil, ErrMissingColumns
	}
	if _, ok := index["name"]; !ok {
		return nil, ErrMissingColumns
	}

	result := &ImportResult{}
	now := time.Now()

	err = db.Transaction(ctx, func(tx *sql.Tx) error {
		for {
			row, err := reader.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read BMF row %d: %w", result.Rows+1, err)
			}
			result.Rows++

			field := func(name string) string {
				i, ok := index[name]
				if !ok || i >= len(row) {
					return ""
				}
				return strings.TrimSpace(row[i])
			}

			id := ein.NormalizeEIN(field("ein"))
			name := field("name")
			if id == "" || name == "" {
				result.Skipped++
				continue
			}

			o := &Organization{
				EIN:        id,
				Name:       name,
				City:       ptr(field("city")),
				State:      ptr(field("state")),
				ZIP:        ptr(field("zip")),
				ImportedAt: now,
			}
			if code, err := ntee.Parse(field("ntee"), model.SourceBMF, nil); err == nil {
				o.NTEECode = ptr(code.Full)
			}

			if err := upsertOrganization(ctx, tx, o); err != nil {
				return fmt.Errorf("failed to import EIN %s: %w", id, err)
			}
			result.Imported++
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
