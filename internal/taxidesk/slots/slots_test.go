package slots_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dmoraru/taxidesk/internal/taxidesk/calendar"
	"github.com/dmoraru/taxidesk/internal/taxidesk/slots"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

var ex = calendar.New(2022)

func TestNormalizeGranularity(t *testing.T) {
	tests := []struct {
		in   string
		want slots.Granularity
	}{
		{"daily", slots.Daily},
		{"d", slots.Daily},
		{"day", slots.Daily},
		{"days please", slots.Daily},
		{"dialy", slots.Daily},
		{"dailly", slots.Daily},
		{"WEEKLY", slots.Weekly},
		{"w", slots.Weekly},
		{"wk", slots.Weekly},
		{"wekly", slots.Weekly},
		{"weekley", slots.Weekly},
		{"monthly", slots.Monthly},
		{"m", slots.Monthly},
		{"mth", slots.Monthly},
		{"montly", slots.Monthly},
		{"monthyl", slots.Monthly},
	}
	for _, tc := range tests {
		got, err := slots.NormalizeGranularity(tc.in)
		if err != nil {
			t.Errorf("NormalizeGranularity(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeGranularity(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestNormalizeGranularity_Idempotent feeds each canonical form back through
// the normalizer.
func TestNormalizeGranularity_Idempotent(t *testing.T) {
	for _, g := range []slots.Granularity{slots.Daily, slots.Weekly, slots.Monthly} {
		got, err := slots.NormalizeGranularity(string(g))
		if err != nil {
			t.Fatalf("canonical form %q rejected: %v", g, err)
		}
		if got != g {
			t.Errorf("NormalizeGranularity(%q) = %q, not idempotent", g, got)
		}
	}
}

func TestNormalizeGranularity_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "yearly", "hourly", "x"} {
		_, err := slots.NormalizeGranularity(in)
		if err == nil {
			t.Errorf("NormalizeGranularity(%q): expected error", in)
			continue
		}
		if !errors.Is(err, slots.ErrInvalidValue) {
			t.Errorf("NormalizeGranularity(%q): error does not wrap ErrInvalidValue: %v", in, err)
		}
	}
}

func TestNormalizeMetric(t *testing.T) {
	tests := []struct {
		in   string
		want slots.Metric
	}{
		{"avg", slots.Avg},
		{"average", slots.Avg},
		{"mean", slots.Avg},
		{"a", slots.Avg},
		{"total", slots.Total},
		{"sum", slots.Total},
		{"t", slots.Total},
		{"s", slots.Total},
		{"Total fares", slots.Total},
	}
	for _, tc := range tests {
		got, err := slots.NormalizeMetric(tc.in)
		if err != nil {
			t.Errorf("NormalizeMetric(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeMetric(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := slots.NormalizeMetric("median"); !errors.Is(err, slots.ErrInvalidValue) {
		t.Errorf("NormalizeMetric(median): want ErrInvalidValue, got %v", err)
	}
}

func TestExtractInto_FillsEmptySlotsOnly(t *testing.T) {
	s := slots.NewState()
	s.Granularity = slots.Daily

	slots.ExtractInto(ex, s, "show trips in January 2022 by week")
	if s.Granularity != slots.Daily {
		t.Errorf("granularity overwritten to %q", s.Granularity)
	}
	if !s.StartDate.Equal(date(2022, 1, 1)) || !s.EndDate.Equal(date(2022, 2, 1)) {
		t.Errorf("dates: %v .. %v", s.StartDate, s.EndDate)
	}
}

func TestExtractInto_GranularityAndMetricCues(t *testing.T) {
	tests := []struct {
		text string
		gran slots.Granularity
		met  slots.Metric
	}{
		{"trips per month", slots.Monthly, ""},
		{"fares by week, average", slots.Weekly, slots.Avg},
		{"daily totals", slots.Daily, slots.Total},
		{"typical tips by day", slots.Daily, slots.Avg},
		{"overall fares", "", slots.Total},
	}
	for _, tc := range tests {
		s := slots.NewState()
		slots.ExtractInto(ex, s, tc.text)
		if s.Granularity != tc.gran {
			t.Errorf("%q: granularity = %q, want %q", tc.text, s.Granularity, tc.gran)
		}
		if s.Metric != tc.met {
			t.Errorf("%q: metric = %q, want %q", tc.text, s.Metric, tc.met)
		}
	}
}

// TestExtractInto_SwapNotice verifies scenario: a reversed ISO pair is used
// sorted, and the notice references the original literals.
func TestExtractInto_SwapNotice(t *testing.T) {
	s := slots.NewState()
	slots.ExtractInto(ex, s, "trips from 2022-05-10 to 2022-05-01")

	if !s.StartDate.Equal(date(2022, 5, 1)) || !s.EndDate.Equal(date(2022, 5, 10)) {
		t.Errorf("dates not sorted: %v .. %v", s.StartDate, s.EndDate)
	}
	if !s.DatesSwapped {
		t.Fatal("DatesSwapped not set")
	}
	if s.SwappedFrom != "2022-05-10" || s.SwappedTo != "2022-05-01" {
		t.Errorf("swap literals: from=%q to=%q", s.SwappedFrom, s.SwappedTo)
	}
}

func TestExtractInto_NoSwapNoticeForOrderedPair(t *testing.T) {
	s := slots.NewState()
	slots.ExtractInto(ex, s, "trips from 2022-05-01 to 2022-05-10")
	if s.DatesSwapped {
		t.Error("DatesSwapped set for an ordered pair")
	}
}

func TestExtractInto_InvalidDateDiagnostics(t *testing.T) {
	s := slots.NewState()
	slots.ExtractInto(ex, s, "trips on 2022-13-45")

	if !s.SawInvalidDate {
		t.Fatal("SawInvalidDate not set")
	}
	if len(s.InvalidDates) != 1 || s.InvalidDates[0] != "2022-13-45" {
		t.Errorf("InvalidDates = %v", s.InvalidDates)
	}
	if !s.StartDate.IsZero() {
		t.Errorf("start date filled from invalid literal: %v", s.StartDate)
	}
}

func TestMissing(t *testing.T) {
	s := slots.NewState()
	got := slots.Missing(s, slots.IntentFareTrend)
	want := []slots.Slot{slots.SlotStartDate, slots.SlotEndDate, slots.SlotGranularity, slots.SlotMetric}
	if len(got) != len(want) {
		t.Fatalf("Missing = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Missing = %v, want %v", got, want)
		}
	}

	s.StartDate = date(2022, 1, 1)
	s.EndDate = date(2022, 2, 1)
	s.Metric = slots.Avg
	got = slots.Missing(s, slots.IntentFareTrend)
	if len(got) != 1 || got[0] != slots.SlotGranularity {
		t.Errorf("Missing = %v, want [granularity]", got)
	}

	if m := slots.Missing(s, slots.IntentVendorInactivity); len(m) != 0 {
		t.Errorf("vendor_inactivity should be satisfied, missing %v", m)
	}
}

func TestValidateAll(t *testing.T) {
	s := slots.NewState()
	s.Intent = slots.IntentTripFrequency
	s.StartDate = date(2022, 1, 1)
	s.EndDate = date(2022, 2, 1)

	if err := slots.ValidateAll(ex, s); err == nil {
		t.Error("missing granularity accepted")
	}

	s.Granularity = slots.Weekly
	if err := slots.ValidateAll(ex, s); err != nil {
		t.Errorf("complete state rejected: %v", err)
	}

	s.EndDate = date(2022, 1, 1)
	if err := slots.ValidateAll(ex, s); err == nil {
		t.Error("empty range accepted")
	}
}

func TestResetPreservesFollowUpMemory(t *testing.T) {
	s := slots.NewState()
	s.Intent = slots.IntentTripFrequency
	s.StartDate = date(2022, 1, 1)
	s.EndDate = date(2022, 2, 1)
	s.Granularity = slots.Weekly
	s.Freeze([]string{"Compare this to another period"})

	s.Reset()
	if s.Intent != "" || !s.StartDate.IsZero() {
		t.Error("Reset did not clear slot fields")
	}
	if s.Previous == nil || s.Previous.Intent != slots.IntentTripFrequency {
		t.Error("Reset dropped follow-up context")
	}
	if len(s.Suggestions) != 1 || s.TurnCount != 1 {
		t.Errorf("Reset dropped suggestions/turn counter: %v %d", s.Suggestions, s.TurnCount)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 100},
		{1, 1},
		{500, 500},
		{1000, 1000},
		{5000, 1000},
		{-3, 1},
	}
	for _, tc := range tests {
		s := slots.NewState()
		s.Limit = tc.in
		if got := s.ClampLimit(); got != tc.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestRecommendGranularity(t *testing.T) {
	tests := []struct {
		start, end time.Time
		want       slots.Granularity
	}{
		{date(2022, 1, 1), date(2022, 1, 8), slots.Daily},
		{date(2022, 1, 1), date(2022, 1, 15), slots.Daily},
		{date(2022, 1, 1), date(2022, 3, 1), slots.Weekly},
		{date(2022, 1, 1), date(2022, 7, 1), slots.Monthly},
		{date(2022, 1, 1), date(2023, 1, 1), slots.Monthly},
	}
	for _, tc := range tests {
		if got := slots.RecommendGranularity(tc.start, tc.end); got != tc.want {
			t.Errorf("RecommendGranularity(%v, %v) = %q, want %q", tc.start, tc.end, got, tc.want)
		}
	}
}
