package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmoraru/taxidesk/internal/taxidesk/dataset"
)

// InitSchema creates the trips table described by the profile when it does
// not exist yet.
func (s *Store) InitSchema(ctx context.Context, p dataset.Profile) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT NOT NULL,
	dropoff_datetime TEXT,
	%s INTEGER NOT NULL,
	%s REAL NOT NULL,
	%s REAL NOT NULL,
	%s REAL NOT NULL
)`, p.Table, p.PickupColumn, p.VendorColumn, p.FareColumn, p.TipColumn, p.TotalColumn)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Seed inserts count deterministic trips spread evenly across the profile's
// supported year, cycling through three vendors. Intended for local
// bootstrap and tests; it is not a realistic data generator.
func (s *Store) Seed(ctx context.Context, p dataset.Profile, count int) error {
	if count <= 0 {
		return nil
	}
	start := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearHours := time.Date(p.Year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Sub(start).Hours()
	step := yearHours / float64(count)

	cols := strings.Join([]string{
		p.PickupColumn, "dropoff_datetime", p.VendorColumn,
		p.FareColumn, p.TipColumn, p.TotalColumn,
	}, ", ")
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?)", p.Table, cols)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin seed: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < count; i++ {
		pickup := start.Add(time.Duration(float64(i)*step) * time.Hour)
		dropoff := pickup.Add(25 * time.Minute)
		vendor := i%3 + 1
		fare := 8.0 + float64(i%20)
		tip := float64(i%5) * 1.25
		_, err := tx.ExecContext(ctx, stmt,
			pickup.Format("2006-01-02 15:04:05"),
			dropoff.Format("2006-01-02 15:04:05"),
			vendor, fare, tip, fare+tip)
		if err != nil {
			return fmt.Errorf("store: seed row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit seed: %w", err)
	}
	return nil
}
