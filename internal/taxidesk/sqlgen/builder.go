// Package sqlgen compiles a fully-resolved conversation state into one of a
// small set of canonical, read-only SQL templates, and validates that the
// result (and the raw user text that produced it) is safe to hand to an
// executor.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/dmoraru/taxidesk/internal/taxidesk/dataset"
	"github.com/dmoraru/taxidesk/internal/taxidesk/slots"
)

// Builder renders query templates against a dataset profile. Building is a
// pure function of the state: identical states produce byte-identical SQL.
type Builder struct {
	profile dataset.Profile
}

// NewBuilder returns a Builder for the given dataset profile.
func NewBuilder(profile dataset.Profile) *Builder {
	return &Builder{profile: profile}
}

// bucket returns the time-bucket expression and its alias for a granularity.
// Bucketing is intent-independent.
func (b *Builder) bucket(g slots.Granularity) (expr, label string) {
	col := b.profile.PickupColumn
	switch g {
	case slots.Daily:
		return fmt.Sprintf("DATE(%s)", col), "day"
	case slots.Weekly:
		return fmt.Sprintf("STRFTIME('%%Y-%%W', %s)", col), "week"
	default:
		return fmt.Sprintf("STRFTIME('%%Y-%%m', %s)", col), "month"
	}
}

// Build compiles the state into SQL for the given intent.
//
// Date bounds are always >= start (inclusive) and < end (exclusive); the
// exclusivity is part of the user-facing contract, not an implementation
// detail.
func (b *Builder) Build(s *slots.State, intent slots.Intent) (string, error) {
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return "", fmt.Errorf("sqlgen: date range not resolved")
	}
	sd := s.StartDate.Format("2006-01-02")
	ed := s.EndDate.Format("2006-01-02")
	p := b.profile

	switch intent {
	case slots.IntentTripFrequency:
		expr, label := b.bucket(s.Granularity)
		return fmt.Sprintf(`SELECT %s AS %s, COUNT(*) AS trips
FROM %s
WHERE %s >= '%s'
  AND %s < '%s'
GROUP BY 1
ORDER BY 1;`, expr, label, p.Table, p.PickupColumn, sd, p.PickupColumn, ed), nil

	case slots.IntentSampleRows:
		return fmt.Sprintf(`SELECT %s
FROM %s
WHERE %s >= '%s'
  AND %s < '%s'
ORDER BY %s
LIMIT %d;`, strings.Join(p.SampleColumns, ", "), p.Table,
			p.PickupColumn, sd, p.PickupColumn, ed, p.PickupColumn, s.ClampLimit()), nil

	case slots.IntentVendorInactivity:
		return fmt.Sprintf(`SELECT %s, COUNT(*) AS trips
FROM %s
WHERE %s >= '%s'
  AND %s < '%s'
GROUP BY %s
ORDER BY trips ASC;`, p.VendorColumn, p.Table,
			p.PickupColumn, sd, p.PickupColumn, ed, p.VendorColumn), nil

	case slots.IntentFareTrend, slots.IntentTipTrend:
		col := p.FareColumn
		if intent == slots.IntentTipTrend {
			col = p.TipColumn
		}
		agg := "AVG"
		if s.Metric == slots.Total {
			agg = "SUM"
		}
		expr, label := b.bucket(s.Granularity)
		return fmt.Sprintf(`SELECT %s AS %s, %s(%s) AS value
FROM %s
WHERE %s >= '%s'
  AND %s < '%s'
GROUP BY 1
ORDER BY 1;`, expr, label, agg, col, p.Table, p.PickupColumn, sd, p.PickupColumn, ed), nil
	}

	return "", fmt.Errorf("sqlgen: no template for intent %q", intent)
}

// BuildBestDay compiles the fare-trend template against the trip-total
// column instead of the base fare, used by the best-day follow-up feature
// to find the cheapest bucket.
func (b *Builder) BuildBestDay(s *slots.State) (string, error) {
	sd := s.StartDate
	ed := s.EndDate
	if sd.IsZero() || ed.IsZero() {
		return "", fmt.Errorf("sqlgen: date range not resolved")
	}
	expr, label := b.bucket(s.Granularity)
	agg := "AVG"
	if s.Metric == slots.Total {
		agg = "SUM"
	}
	return fmt.Sprintf(`SELECT %s AS %s, %s(%s) AS value
FROM %s
WHERE %s >= '%s'
  AND %s < '%s'
GROUP BY 1
ORDER BY 1;`, expr, label, agg, b.profile.TotalColumn, b.profile.Table,
		b.profile.PickupColumn, sd.Format("2006-01-02"),
		b.profile.PickupColumn, ed.Format("2006-01-02")), nil
}
