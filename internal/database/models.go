package database

import (
	"database/sql"
	"time"
)

// Organization is one Business Master File record
type Organization struct {
	EIN        string    `json:"ein" yaml:"ein"`
	Name       string    `json:"name" yaml:"name"`
	City       *string   `json:"city,omitempty" yaml:"city,omitempty"`
	State      *string   `json:"state,omitempty" yaml:"state,omitempty"`
	ZIP        *string   `json:"zip,omitempty" yaml:"zip,omitempty"`
	NTEECode   *string   `json:"ntee_code,omitempty" yaml:"ntee_code,omitempty"`
	ImportedAt time.Time `json:"imported_at" yaml:"imported_at"`
}

// Stats contains row counts per table
type Stats struct {
	Organizations int `json:"organizations" yaml:"organizations"`
	TriageItems   int `json:"triage_items" yaml:"triage_items"`
	CacheEntries  int `json:"cache_entries" yaml:"cache_entries"`
}

// ImportResult summarizes a BMF import
type ImportResult struct {
	Rows     int `json:"rows" yaml:"rows"`
	Imported int `json:"imported" yaml:"imported"`
	Skipped  int `json:"skipped" yaml:"skipped"`
}

// NullString converts a *string to sql.NullString
func NullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr converts sql.NullString to *string
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
