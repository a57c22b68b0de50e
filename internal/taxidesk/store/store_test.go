package store_test

import (
	"context"
	"testing"

	"github.com/dmoraru/taxidesk/internal/taxidesk/dataset"
	"github.com/dmoraru/taxidesk/internal/taxidesk/store"
)

func openSeeded(t *testing.T, count int) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	p := dataset.Default()
	ctx := context.Background()
	if err := s.InitSchema(ctx, p); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	if err := s.Seed(ctx, p, count); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return s
}

func TestQuery_ReturnsColumnsAndRows(t *testing.T) {
	s := openSeeded(t, 50)

	res, err := s.Query(context.Background(),
		"SELECT vendor_id, COUNT(*) AS trips FROM taxi_trips GROUP BY vendor_id ORDER BY trips ASC")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "vendor_id" || res.Columns[1] != "trips" {
		t.Errorf("columns = %v", res.Columns)
	}
	if res.RowCount() != 3 {
		t.Errorf("expected 3 vendors, got %d", res.RowCount())
	}
	for _, row := range res.Rows {
		if _, ok := row["trips"]; !ok {
			t.Errorf("row missing trips key: %v", row)
		}
	}
}

func TestQuery_DateBoundsAreHalfOpen(t *testing.T) {
	s := openSeeded(t, 365*24/6) // one row every 6 hours

	res, err := s.Query(context.Background(),
		`SELECT COUNT(*) AS n FROM taxi_trips
		 WHERE pickup_datetime >= '2022-01-01' AND pickup_datetime < '2022-01-02'`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.RowCount() != 1 {
		t.Fatalf("expected one aggregate row, got %d", res.RowCount())
	}
	n, ok := res.Rows[0]["n"].(int64)
	if !ok || n != 4 {
		t.Errorf("expected 4 trips on Jan 1, got %v", res.Rows[0]["n"])
	}
}

// TestQuery_RefusesMutations verifies the executor's own defense-in-depth
// check, independent of the upstream safety validator.
func TestQuery_RefusesMutations(t *testing.T) {
	s := openSeeded(t, 1)

	for _, q := range []string{
		"DROP TABLE taxi_trips",
		"DELETE FROM taxi_trips",
		"PRAGMA journal_mode = DELETE",
	} {
		if _, err := s.Query(context.Background(), q); err == nil {
			t.Errorf("mutation accepted: %q", q)
		}
	}
}

func TestQuery_AcceptsWith(t *testing.T) {
	s := openSeeded(t, 10)

	res, err := s.Query(context.Background(),
		"WITH t AS (SELECT fare_amount FROM taxi_trips) SELECT COUNT(*) AS n FROM t")
	if err != nil {
		t.Fatalf("WITH query refused: %v", err)
	}
	if res.RowCount() != 1 {
		t.Errorf("rows = %d", res.RowCount())
	}
}
