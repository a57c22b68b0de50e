package dataset_test

import (
	"strings"
	"testing"

	"github.com/dmoraru/taxidesk/internal/taxidesk/dataset"
)

func TestDefaultProfileIsValid(t *testing.T) {
	p := dataset.Default()
	if err := dataset.Validate(&p); err != nil {
		t.Fatalf("stock profile invalid: %v", err)
	}
}

func TestParse_OverridesDefaults(t *testing.T) {
	doc := []byte("table: green_trips\nyear: 2021\n")
	p, err := dataset.Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Table != "green_trips" || p.Year != 2021 {
		t.Errorf("overrides not applied: table=%q year=%d", p.Table, p.Year)
	}
	// Untouched fields keep the stock values.
	if p.PickupColumn != "pickup_datetime" {
		t.Errorf("pickup column lost its default: %q", p.PickupColumn)
	}
}

func TestParse_RejectsBadIdentifiers(t *testing.T) {
	tests := []string{
		"table: \"taxi; DROP TABLE x\"\n",
		"pickup_column: \"a b\"\n",
		"sample_columns: [\"ok\", \"no;pe\"]\n",
	}
	for _, doc := range tests {
		if _, err := dataset.Parse([]byte(doc)); err == nil {
			t.Errorf("Parse(%q): expected error", strings.TrimSpace(doc))
		}
	}
}

func TestParse_RejectsMalformedYAML(t *testing.T) {
	if _, err := dataset.Parse([]byte(":- not yaml")); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestParse_RejectsOutOfRangeYear(t *testing.T) {
	if _, err := dataset.Parse([]byte("year: 1850\n")); err == nil {
		t.Error("out-of-range year accepted")
	}
}
