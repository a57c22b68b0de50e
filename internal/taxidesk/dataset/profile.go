// Package dataset describes the fixed tabular dataset the engine compiles
// queries against: table name, supported calendar year, and the column
// names the query templates reference.
//
// The stock profile covers the NYC yellow-taxi trips table. Deployments
// pointing at a differently-named table can supply a YAML profile instead.
package dataset

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// identRE restricts table and column names to plain SQL identifiers so a
// profile can never smuggle SQL fragments into the query templates.
var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Profile describes one queryable dataset.
type Profile struct {
	// Name is a human-readable dataset label shown in the intro banner.
	Name string `yaml:"name"`

	// Table is the SQL table holding the trip rows.
	Table string `yaml:"table"`

	// Year is the single supported calendar year. Every date the engine
	// accepts falls in [Year-01-01, Year+1-01-01).
	Year int `yaml:"year"`

	// PickupColumn is the timestamp column used for time bucketing and
	// range bounds.
	PickupColumn string `yaml:"pickup_column"`

	// VendorColumn groups the vendor-inactivity ranking.
	VendorColumn string `yaml:"vendor_column"`

	// FareColumn, TipColumn and TotalColumn are the money-valued columns
	// behind the fare/tip trend intents.
	FareColumn  string `yaml:"fare_column"`
	TipColumn   string `yaml:"tip_column"`
	TotalColumn string `yaml:"total_column"`

	// SampleColumns is the fixed projection used by sample_rows.
	SampleColumns []string `yaml:"sample_columns"`
}

// Default returns the stock NYC yellow-taxi profile.
func Default() Profile {
	return Profile{
		Name:         "NYC Yellow Taxi",
		Table:        "taxi_trips",
		Year:         2022,
		PickupColumn: "pickup_datetime",
		VendorColumn: "vendor_id",
		FareColumn:   "fare_amount",
		TipColumn:    "tip_amount",
		TotalColumn:  "total_amount",
		SampleColumns: []string{
			"pickup_datetime", "dropoff_datetime", "vendor_id",
			"fare_amount", "tip_amount", "total_amount",
		},
	}
}

// Parse decodes a YAML profile document and validates it. Fields left empty
// in the document inherit the stock defaults, so a profile may override just
// the table name or year.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("dataset: parse profile: %w", err)
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks a profile for structural correctness.
func Validate(p *Profile) error {
	if p == nil {
		return fmt.Errorf("dataset: profile must not be nil")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("dataset: name must not be empty")
	}
	if p.Year < 2000 || p.Year > 2100 {
		return fmt.Errorf("dataset: year %d out of range", p.Year)
	}
	for field, ident := range map[string]string{
		"table":         p.Table,
		"pickup_column": p.PickupColumn,
		"vendor_column": p.VendorColumn,
		"fare_column":   p.FareColumn,
		"tip_column":    p.TipColumn,
		"total_column":  p.TotalColumn,
	} {
		if !identRE.MatchString(ident) {
			return fmt.Errorf("dataset: %s %q is not a valid SQL identifier", field, ident)
		}
	}
	if len(p.SampleColumns) == 0 {
		return fmt.Errorf("dataset: sample_columns must not be empty")
	}
	for i, c := range p.SampleColumns {
		if !identRE.MatchString(c) {
			return fmt.Errorf("dataset: sample_columns[%d] %q is not a valid SQL identifier", i, c)
		}
	}
	return nil
}
