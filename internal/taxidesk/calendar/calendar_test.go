package calendar_test

import (
	"testing"
	"time"

	"github.com/dmoraru/taxidesk/internal/taxidesk/calendar"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func newExtractor() calendar.Extractor {
	return calendar.New(2022)
}

// TestExtract_ISOPair verifies that two valid ISO dates come back sorted and
// unmodified.
func TestExtract_ISOPair(t *testing.T) {
	ex := newExtractor()

	dates, invalid := ex.Extract("trips from 2022-01-05 to 2022-03-01")
	if len(invalid) != 0 {
		t.Fatalf("unexpected invalid literals: %v", invalid)
	}
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(dates))
	}
	if !dates[0].Equal(date(2022, 1, 5)) || !dates[1].Equal(date(2022, 3, 1)) {
		t.Errorf("wrong dates: %v", dates)
	}
}

// TestExtract_ReversedISOPair verifies the pair is returned sorted even when
// the text lists them in reverse chronological order.
func TestExtract_ReversedISOPair(t *testing.T) {
	ex := newExtractor()

	dates, _ := ex.Extract("trips from 2022-05-10 to 2022-05-01")
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(dates))
	}
	if !dates[0].Equal(date(2022, 5, 1)) || !dates[1].Equal(date(2022, 5, 10)) {
		t.Errorf("expected sorted pair, got %v", dates)
	}
}

// TestExtract_InvalidISODate verifies that a calendar-invalid literal is
// collected rather than aborting the pass (scenario: month 13, day 45).
func TestExtract_InvalidISODate(t *testing.T) {
	ex := newExtractor()

	dates, invalid := ex.Extract("2022-13-45")
	if len(dates) != 0 {
		t.Errorf("expected no valid dates, got %v", dates)
	}
	if len(invalid) != 1 || invalid[0] != "2022-13-45" {
		t.Errorf("expected invalid literal [2022-13-45], got %v", invalid)
	}
}

func TestExtract_MixedValidAndInvalid(t *testing.T) {
	ex := newExtractor()

	dates, invalid := ex.Extract("from 2022-06-01 to 2022-02-30")
	if len(dates) != 1 || !dates[0].Equal(date(2022, 6, 1)) {
		t.Errorf("expected the one valid date, got %v", dates)
	}
	if len(invalid) != 1 || invalid[0] != "2022-02-30" {
		t.Errorf("expected invalid literal [2022-02-30], got %v", invalid)
	}
}

func TestExtract_ExclusiveYearEndAllowed(t *testing.T) {
	ex := newExtractor()

	dates, invalid := ex.Extract("from 2022-12-01 to 2023-01-01")
	if len(invalid) != 0 {
		t.Fatalf("unexpected invalid literals: %v", invalid)
	}
	if len(dates) != 2 || !dates[1].Equal(date(2023, 1, 1)) {
		t.Errorf("expected 2023-01-01 accepted as exclusive end, got %v", dates)
	}
}

func TestExtract_SlashSeparatedDates(t *testing.T) {
	ex := newExtractor()

	dates, _ := ex.Extract("2022/04/01 to 2022/05/01")
	if len(dates) != 2 || !dates[0].Equal(date(2022, 4, 1)) || !dates[1].Equal(date(2022, 5, 1)) {
		t.Errorf("slash-separated dates not parsed: %v", dates)
	}
}

func TestExtract_WholeYearPhrases(t *testing.T) {
	ex := newExtractor()

	for _, text := range []string{
		"show me the whole year",
		"all of 2022 please",
		"full year trends",
		"monthly breakdown for the year",
	} {
		dates, _ := ex.Extract(text)
		if len(dates) != 2 || !dates[0].Equal(date(2022, 1, 1)) || !dates[1].Equal(date(2023, 1, 1)) {
			t.Errorf("%q: expected full-year interval, got %v", text, dates)
		}
	}
}

func TestExtract_Quarters(t *testing.T) {
	ex := newExtractor()

	tests := []struct {
		text       string
		start, end time.Time
	}{
		{"average fares in Q1", date(2022, 1, 1), date(2022, 4, 1)},
		{"average fares in Q2 2022", date(2022, 4, 1), date(2022, 7, 1)},
		{"tips in q3", date(2022, 7, 1), date(2022, 10, 1)},
		{"trips in Q4 2022", date(2022, 10, 1), date(2023, 1, 1)},
	}
	for _, tc := range tests {
		dates, _ := ex.Extract(tc.text)
		if len(dates) != 2 || !dates[0].Equal(tc.start) || !dates[1].Equal(tc.end) {
			t.Errorf("%q: got %v, want [%v %v]", tc.text, dates, tc.start, tc.end)
		}
	}
}

// TestExtract_QuarterOtherYear verifies a quarter in a different year does
// not resolve against the supported year.
func TestExtract_QuarterOtherYear(t *testing.T) {
	ex := newExtractor()

	dates, _ := ex.Extract("fares in Q2 2021")
	if len(dates) != 0 {
		t.Errorf("expected no dates for a foreign year, got %v", dates)
	}
}

func TestExtract_Seasons(t *testing.T) {
	ex := newExtractor()

	tests := []struct {
		text       string
		start, end time.Time
	}{
		{"trips in spring", date(2022, 3, 1), date(2022, 6, 1)},
		{"summer 2022 fares", date(2022, 6, 1), date(2022, 9, 1)},
		{"fall tips", date(2022, 9, 1), date(2022, 12, 1)},
		{"autumn tips", date(2022, 9, 1), date(2022, 12, 1)},
		{"winter trips", date(2022, 1, 1), date(2022, 3, 1)},
	}
	for _, tc := range tests {
		dates, _ := ex.Extract(tc.text)
		if len(dates) != 2 || !dates[0].Equal(tc.start) || !dates[1].Equal(tc.end) {
			t.Errorf("%q: got %v, want [%v %v]", tc.text, dates, tc.start, tc.end)
		}
	}
}

// TestExtract_SeasonOtherYear verifies a season tied to another explicit
// year yields nothing rather than a guess.
func TestExtract_SeasonOtherYear(t *testing.T) {
	ex := newExtractor()

	dates, invalid := ex.Extract("summer 2021 trips")
	if len(dates) != 0 || len(invalid) != 0 {
		t.Errorf("expected empty extraction, got dates=%v invalid=%v", dates, invalid)
	}
}

func TestExtract_SingleMonth(t *testing.T) {
	ex := newExtractor()

	dates, _ := ex.Extract("show trips in January 2022 by week")
	if len(dates) != 2 || !dates[0].Equal(date(2022, 1, 1)) || !dates[1].Equal(date(2022, 2, 1)) {
		t.Errorf("January: got %v", dates)
	}
}

func TestExtract_MonthTypos(t *testing.T) {
	ex := newExtractor()

	tests := []struct {
		text  string
		start time.Time
	}{
		{"trips in janurary", date(2022, 1, 1)},
		{"trips in febuary", date(2022, 2, 1)},
		{"trips in apirl", date(2022, 4, 1)},
		{"trips in agust", date(2022, 8, 1)},
		{"trips in septmber", date(2022, 9, 1)},
		{"trips in ocotber", date(2022, 10, 1)},
		{"trips in novemeber", date(2022, 11, 1)},
		{"trips in dicember", date(2022, 12, 1)},
	}
	for _, tc := range tests {
		dates, _ := ex.Extract(tc.text)
		if len(dates) != 2 || !dates[0].Equal(tc.start) {
			t.Errorf("%q: got %v, want start %v", tc.text, dates, tc.start)
		}
	}
}

func TestExtract_MonthRange(t *testing.T) {
	ex := newExtractor()

	dates, _ := ex.Extract("compare January and March 2022")
	if len(dates) != 2 || !dates[0].Equal(date(2022, 1, 1)) || !dates[1].Equal(date(2022, 4, 1)) {
		t.Errorf("multi-month range: got %v", dates)
	}
}

func TestExtract_DecemberRollsToNextYear(t *testing.T) {
	ex := newExtractor()

	dates, _ := ex.Extract("trips in December")
	if len(dates) != 2 || !dates[1].Equal(date(2023, 1, 1)) {
		t.Errorf("December end should be next Jan 1, got %v", dates)
	}
}

// TestExtract_MonthOtherYear verifies a month tied to a different explicit
// year silently disqualifies the match.
func TestExtract_MonthOtherYear(t *testing.T) {
	ex := newExtractor()

	dates, _ := ex.Extract("trips in January 2021")
	if len(dates) != 0 {
		t.Errorf("expected no dates, got %v", dates)
	}
}

func TestExtract_NoDates(t *testing.T) {
	ex := newExtractor()

	dates, invalid := ex.Extract("how busy were we")
	if len(dates) != 0 || len(invalid) != 0 {
		t.Errorf("expected empty extraction, got dates=%v invalid=%v", dates, invalid)
	}
}

func TestValidateRange(t *testing.T) {
	ex := newExtractor()

	if err := ex.ValidateRange(date(2022, 1, 1), date(2022, 2, 1)); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}
	if err := ex.ValidateRange(date(2022, 1, 1), date(2023, 1, 1)); err != nil {
		t.Errorf("exclusive year end rejected: %v", err)
	}
	if err := ex.ValidateRange(date(2022, 2, 1), date(2022, 1, 1)); err == nil {
		t.Error("reversed range accepted")
	}
	if err := ex.ValidateRange(date(2022, 2, 1), date(2022, 2, 1)); err == nil {
		t.Error("empty range accepted")
	}
	if err := ex.ValidateRange(date(2021, 12, 1), date(2022, 2, 1)); err == nil {
		t.Error("out-of-year start accepted")
	}
}

func TestValidateDate(t *testing.T) {
	ex := newExtractor()

	if err := ex.ValidateDate("2022-06-15"); err != nil {
		t.Errorf("valid date rejected: %v", err)
	}
	if err := ex.ValidateDate("2021-06-15"); err == nil {
		t.Error("foreign-year date accepted")
	}
	if err := ex.ValidateDate("june 15"); err == nil {
		t.Error("malformed date accepted")
	}
}

func TestParseDate_SlashSeparator(t *testing.T) {
	got, err := calendar.ParseDate("2022/06/01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !got.Equal(date(2022, 6, 1)) {
		t.Errorf("got %v", got)
	}
}
