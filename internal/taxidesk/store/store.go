// Package store provides read-only SQLite access for the compiled queries.
//
// The store is the execution boundary: it receives SQL that has already
// passed the safety validator, and it independently refuses anything that
// is not a SELECT/WITH statement as a defense-in-depth redundancy.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// Result is one tabular query result.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Store wraps the database connection.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path. Use ":memory:" for
// an ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite is single-writer by design. A single shared connection lets
	// database/sql serialize callers instead of them fighting for locks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: set pragma: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query executes a read-only statement and materializes the full result.
// Statements that do not begin with SELECT or WITH are refused regardless
// of what upstream validation claims.
func (s *Store) Query(ctx context.Context, query string) (*Result, error) {
	low := strings.ToLower(strings.TrimSpace(query))
	if !strings.HasPrefix(low, "select") && !strings.HasPrefix(low, "with") {
		return nil, fmt.Errorf("store: refusing non-SELECT statement")
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("store: read columns: %w", err)
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate rows: %w", err)
	}
	return result, nil
}
