// Package calendar extracts date ranges from free-form analyst questions.
//
// The extractor understands explicit ISO dates, whole-year phrases, quarter
// references (Q1–Q4), season names, and month names with typo tolerance.
// All rules are gated on the single supported dataset year: a question that
// names a different year yields nothing rather than a guess.
//
// Ranges are half-open: the end date is always exclusive.
package calendar

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRE   = regexp.MustCompile(`\b(\d{4})[-/](\d{2})[-/](\d{2})\b`)
	quarterRE   = regexp.MustCompile(`\bq([1-4])\b`)
	yearRE      = regexp.MustCompile(`\b20\d{2}\b`)
	monthWordRE = regexp.MustCompile(`\b[a-zA-Z]{3,12}\b`)
)

// seasonRange maps a season name to its [start month, end month) pair.
type seasonRange struct {
	name       string
	from, upto int
}

// seasons is ordered so overlapping mentions resolve deterministically.
var seasons = []seasonRange{
	{"spring", 3, 6},
	{"summer", 6, 9},
	{"fall", 9, 12},
	{"autumn", 9, 12},
	{"winter", 1, 3},
}

// monthLexicon maps month spellings — including the misspellings users
// actually type — to month numbers. This is intentional domain data;
// the prefix fallbacks in monthNumber depend on it.
var monthLexicon = map[string]int{
	"jan": 1, "january": 1, "janurary": 1, "janury": 1, "januarry": 1, "janaury": 1,
	"feb": 2, "february": 2, "febuary": 2, "feburary": 2, "februrary": 2, "febrary": 2,
	"mar": 3, "march": 3, "mach": 3, "mrch": 3,
	"apr": 4, "april": 4, "apirl": 4, "apil": 4,
	"may": 5,
	"jun": 6, "june": 6, "juen": 6,
	"jul": 7, "july": 7, "jully": 7,
	"aug": 8, "august": 8, "agust": 8, "augst": 8,
	"sep": 9, "sept": 9, "september": 9, "septmber": 9, "setember": 9,
	"oct": 10, "october": 10, "octobor": 10, "ocotber": 10,
	"nov": 11, "november": 11, "novemeber": 11, "novmber": 11,
	"dec": 12, "december": 12, "decmber": 12, "dicember": 12,
}

// lexiconKeys holds the lexicon entries in a fixed order so the prefix
// fallback scan in monthNumber is deterministic.
var lexiconKeys = func() []string {
	keys := make([]string, 0, len(monthLexicon))
	for k := range monthLexicon {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// Extractor resolves natural-language date expressions against a single
// supported calendar year. The zero value is not usable; construct with New.
type Extractor struct {
	year int
}

// New returns an Extractor bound to the given dataset year.
func New(year int) Extractor {
	return Extractor{year: year}
}

// Year returns the supported dataset year.
func (e Extractor) Year() int { return e.year }

// Min returns the first instant of the supported year (inclusive bound).
func (e Extractor) Min() time.Time {
	return time.Date(e.year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Max returns the first instant of the following year (exclusive bound).
func (e Extractor) Max() time.Time {
	return time.Date(e.year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD (or YYYY/MM/DD) string into a date.
func ParseDate(s string) (time.Time, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid date format, use YYYY-MM-DD (example: 2022-06-01)")
	}
	return t, nil
}

// LooksLikeDate reports whether s resembles an ISO date, used to catch
// dates typed into prompts that expect something else.
func LooksLikeDate(s string) bool {
	return isoLooseRE.MatchString(strings.TrimSpace(s))
}

var isoLooseRE = regexp.MustCompile(`^\d{4}[-/]\d{1,2}[-/]\d{1,2}$`)

// ValidateDate checks that s parses and falls inside the supported year.
func (e Extractor) ValidateDate(s string) error {
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	if t.Before(e.Min()) || !t.Before(e.Max()) {
		return fmt.Errorf("calendar: date must be in %d", e.year)
	}
	return nil
}

// ValidateRange checks the half-open range invariant: both dates inside the
// supported year (the exclusive end may be the first day of the next year)
// and start strictly before end.
func (e Extractor) ValidateRange(start, end time.Time) error {
	if start.Before(e.Min()) || !start.Before(e.Max()) {
		return fmt.Errorf("calendar: dates must be in %d", e.year)
	}
	if end.Before(e.Min()) || end.After(e.Max()) {
		return fmt.Errorf("calendar: dates must be in %d", e.year)
	}
	if !start.Before(end) {
		return fmt.Errorf("calendar: end_date must be AFTER start_date (end_date is exclusive)")
	}
	return nil
}

// Extract pulls an ordered date range out of text.
//
// Resolution order, first successful rule wins:
//  1. explicit ISO dates (calendar-invalid ones collected in invalid)
//  2. whole-year phrases
//  3. quarter references
//  4. season names
//  5. month names, with typo tolerance
//
// Returned dates are sorted ascending. When ISO parsing produced only
// invalid literals, the date list is empty and invalid holds the offending
// tokens — a signal to re-prompt, not a fatal condition.
func (e Extractor) Extract(text string) (dates []time.Time, invalid []string) {
	foundISO := false
	for _, m := range isoDateRE.FindAllStringSubmatch(text, -1) {
		foundISO = true
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		t, ok := makeDate(y, mo, d)
		switch {
		case !ok:
			invalid = append(invalid, fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
		case y == e.year:
			dates = append(dates, t)
		case y == e.year+1 && mo == 1 && d == 1:
			// The exclusive end of the year is a legal bound.
			dates = append(dates, t)
		}
	}
	if foundISO && (len(dates) > 0 || len(invalid) > 0) {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		return dates, invalid
	}

	t := strings.ToLower(text)

	wholeYear := []string{
		"whole year",
		fmt.Sprintf("all of %d", e.year),
		"entire year", "full year", "all year", "the year",
		fmt.Sprintf("year %d", e.year),
	}
	for _, p := range wholeYear {
		if strings.Contains(t, p) {
			return []time.Time{e.Min(), e.Max()}, nil
		}
	}
	if strings.Contains(t, "year") && containsAny(t, "monthly", "month", "breakdown", "trends", "by") {
		if e.yearAllowed(t) {
			return []time.Time{e.Min(), e.Max()}, nil
		}
	}

	if qm := quarterRE.FindStringSubmatch(t); qm != nil && e.yearAllowed(t) {
		q, _ := strconv.Atoi(qm[1])
		startMonth := (q-1)*3 + 1
		start := time.Date(e.year, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
		return []time.Time{start, e.monthStart(startMonth + 3)}, nil
	}

	for _, s := range seasons {
		if strings.Contains(t, s.name) {
			if e.namesOtherYear(t) {
				// A season in another year is ambiguous; refuse to guess.
				return nil, nil
			}
			return []time.Time{e.monthStart(s.from), e.monthStart(s.upto)}, nil
		}
	}

	months := findMonths(t)
	if len(months) > 0 && e.yearAllowed(t) {
		lo, hi := months[0], months[0]
		for _, m := range months {
			if m < lo {
				lo = m
			}
			if m > hi {
				hi = m
			}
		}
		return []time.Time{e.monthStart(lo), e.monthStart(hi + 1)}, nil
	}

	return nil, nil
}

// makeDate builds a date and reports whether the month/day combination is
// calendar-valid (time.Date silently normalizes overflow, so compare back).
func makeDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != time.Month(m) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// monthStart returns the first day of the given month in the supported year,
// rolling over to January 1 of the next year for month 13.
func (e Extractor) monthStart(m int) time.Time {
	if m > 12 {
		return e.Max()
	}
	return time.Date(e.year, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
}

// yearAllowed reports whether t either names the supported year or names no
// year at all. A different explicit year disqualifies relative expressions.
func (e Extractor) yearAllowed(t string) bool {
	return strings.Contains(t, strconv.Itoa(e.year)) || !yearRE.MatchString(t)
}

// namesOtherYear reports whether t explicitly names a 20xx year that is not
// the supported one.
func (e Extractor) namesOtherYear(t string) bool {
	for _, y := range yearRE.FindAllString(t, -1) {
		if y != strconv.Itoa(e.year) {
			return true
		}
	}
	return false
}

// monthNumber resolves a single word to a month number, or 0.
//
// Lookup stages: exact lexicon match, then the word's first three letters as
// a lexicon key, then prefix equality between the word and each lexicon
// entry's first three letters. The staged order is load-bearing: it is what
// makes "janurary", "agust" and friends resolve correctly.
func monthNumber(word string) int {
	w := strings.ToLower(strings.TrimSpace(word))
	if m, ok := monthLexicon[w]; ok {
		return m
	}
	if len(w) >= 3 {
		if m, ok := monthLexicon[w[:3]]; ok {
			return m
		}
		for _, key := range lexiconKeys {
			if len(key) >= 3 && key[:3] == w[:3] {
				return monthLexicon[key]
			}
		}
	}
	return 0
}

// findMonths returns the distinct month numbers mentioned in t, in order of
// first appearance.
func findMonths(t string) []int {
	var found []int
	for _, word := range monthWordRE.FindAllString(strings.ToLower(t), -1) {
		m := monthNumber(word)
		if m == 0 {
			continue
		}
		seen := false
		for _, f := range found {
			if f == m {
				seen = true
				break
			}
		}
		if !seen {
			found = append(found, m)
		}
	}
	return found
}

func containsAny(t string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}
