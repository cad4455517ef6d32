package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vijay-prabhu/grantmatch/internal/ein"
)

// maxCandidates caps the rows a name search returns
const maxCandidates = 200

// UpsertOrganization inserts or replaces a BMF record
func (db *DB) UpsertOrganization(ctx context.Context, o *Organization) error {
	return upsertOrganization(ctx, db.DB, o)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertOrganization(ctx context.Context, ex execer, o *Organization) error {
	if o.ImportedAt.IsZero() {
		o.ImportedAt = time.Now()
	}
	state := ptr(ein.NormalizeState(deref(o.State)))

	_, err := ex.ExecContext(ctx, `
		INSERT INTO bmf_organizations (
			ein, name, normalized_name, city, state, zip, zip3, ntee_code, imported_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ein) DO UPDATE SET
			name = excluded.name,
			normalized_name = excluded.normalized_name,
			city = excluded.city,
			state = excluded.state,
			zip = excluded.zip,
			zip3 = excluded.zip3,
			ntee_code = excluded.ntee_code,
			imported_at = excluded.imported_at
	`,
		o.EIN, o.Name, ein.NormalizeName(o.Name), NullString(o.City), NullString(state),
		NullString(o.ZIP), NullString(ptr(ein.ZIP3(deref(o.ZIP)))), NullString(o.NTEECode),
		o.ImportedAt,
	)
	return err
}

// GetOrganization retrieves a BMF record by normalized EIN
func (db *DB) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	o := &Organization{}
	var city, state, zip, ntee sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT ein, name, city, state, zip, ntee_code, imported_at
		FROM bmf_organizations WHERE ein = ?
	`, id).Scan(&o.EIN, &o.Name, &city, &state, &zip, &ntee, &o.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	o.City = StringPtr(city)
	o.State = StringPtr(state)
	o.ZIP = StringPtr(zip)
	o.NTEECode = StringPtr(ntee)
	return o, nil
}

// GetStats returns row counts for every table
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM bmf_organizations),
			(SELECT COUNT(*) FROM triage_items),
			(SELECT COUNT(*) FROM ein_cache)
	`).Scan(&stats.Organizations, &stats.TriageItems, &stats.CacheEntries)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// LookupEIN implements ein.IdentityLookup
func (db *DB) LookupEIN(ctx context.Context, id string) (*ein.IdentityMatch, error) {
	o, err := db.GetOrganization(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up EIN %s: %w", id, err)
	}
	if o == nil {
		return nil, nil
	}
	m := o.match()
	return &m, nil
}

// SearchName implements ein.IdentityLookup. Candidates share at least one
// significant token with the normalized name; state and ZIP narrow the set
// when given. Ranking is left to the resolver.
func (db *DB) SearchName(ctx context.Context, name, state, zip string) ([]ein.IdentityMatch, error) {
	tokens := searchTokens(ein.NormalizeName(name))
	if len(tokens) == 0 {
		return nil, nil
	}

	var where []string
	var args []any

	likes := make([]string, len(tokens))
	for i, tok := range tokens {
		likes[i] = "normalized_name LIKE ?"
		args = append(args, "%"+tok+"%")
	}
	where = append(where, "("+strings.Join(likes, " OR ")+")")

	var geo []string
	if st := ein.NormalizeState(state); st != "" {
		geo = append(geo, "state = ?")
		args = append(args, st)
	}
	if z := ein.ZIP3(zip); z != "" {
		geo = append(geo, "zip3 = ?")
		args = append(args, z)
	}
	if len(geo) > 0 {
		where = append(where, "("+strings.Join(geo, " OR ")+")")
	}
	args = append(args, maxCandidates)

	query := fmt.Sprintf(`
		SELECT ein, name, city, state, zip, ntee_code, imported_at
		FROM bmf_organizations
		WHERE %s
		ORDER BY ein
		LIMIT ?
	`, strings.Join(where, " AND "))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search names: %w", err)
	}
	defer rows.Close()

	var matches []ein.IdentityMatch
	for rows.Next() {
		var o Organization
		var city, st, z, ntee sql.NullString
		if err := rows.Scan(&o.EIN, &o.Name, &city, &st, &z, &ntee, &o.ImportedAt); err != nil {
			return nil, err
		}
		o.City = StringPtr(city)
		o.State = StringPtr(st)
		o.ZIP = StringPtr(z)
		o.NTEECode = StringPtr(ntee)
		matches = append(matches, o.match())
	}
	return matches, rows.Err()
}

func (o *Organization) match() ein.IdentityMatch {
	return ein.IdentityMatch{
		EIN:      o.EIN,
		Name:     o.Name,
		City:     deref(o.City),
		State:    deref(o.State),
		ZIP:      deref(o.ZIP),
		NTEECode: deref(o.NTEECode),
	}
}

// searchTokens keeps tokens of three or more characters; short names fall
// back to the whole string
func searchTokens(normalized string) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if len(tok) >= 3 {
			out = append(out, tok)
		}
	}
	if len(out) == 0 && normalized != "" {
		out = append(out, normalized)
	}
	return out
}
