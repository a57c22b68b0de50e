package slots

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmoraru/taxidesk/internal/taxidesk/calendar"
)

// dashedDateRE matches dash-separated ISO literals in their original text
// order, used for the swapped-dates notice. Slash-separated dates are still
// extracted, but the swap notice only quotes the canonical form.
var dashedDateRE = regexp.MustCompile(`\b(\d{4})-\d{2}-\d{2}\b`)

// ExtractInto runs the free-text extraction passes over text and fills any
// still-empty slots in s. Already-resolved slots are never overwritten.
//
// Dates come from the calendar extractor; invalid literals set the
// diagnostic flags for the caller to surface. When the text lists an
// explicit ISO pair in reverse chronological order, the swapped-dates
// notice is recorded with the original literals.
func ExtractInto(ex calendar.Extractor, s *State, text string) {
	dates, invalid := ex.Extract(text)
	if len(invalid) > 0 {
		s.SawInvalidDate = true
		s.InvalidDates = invalid
	}

	recordSwapNotice(ex, s, text)

	if len(dates) >= 1 && s.StartDate.IsZero() {
		s.StartDate = dates[0]
	}
	if len(dates) >= 2 && s.EndDate.IsZero() {
		s.EndDate = dates[1]
	}

	t := strings.ToLower(text)
	if s.Granularity == "" {
		switch {
		case containsAny(t, "monthly", "by month", "per month"):
			s.Granularity = Monthly
		case containsAny(t, "weekly", "by week", "per week"):
			s.Granularity = Weekly
		case containsAny(t, "daily", "by day", "per day"):
			s.Granularity = Daily
		}
	}
	if s.Metric == "" {
		switch {
		case containsAny(t, "total", "sum", "overall"):
			s.Metric = Total
		case containsAny(t, "avg", "average", "mean", "typical"):
			s.Metric = Avg
		}
	}
}

// recordSwapNotice checks whether the first two in-year ISO literals appear
// in reverse chronological order and records the notice with the original
// token text.
func recordSwapNotice(ex calendar.Extractor, s *State, text string) {
	var literals []string
	var parsed []time.Time
	for _, m := range dashedDateRE.FindAllStringSubmatch(text, -1) {
		if m[1] != strconv.Itoa(ex.Year()) {
			continue
		}
		t, err := calendar.ParseDate(m[0])
		if err != nil {
			continue
		}
		literals = append(literals, m[0])
		parsed = append(parsed, t)
		if len(parsed) == 2 {
			break
		}
	}
	if len(parsed) == 2 && parsed[0].After(parsed[1]) {
		s.DatesSwapped = true
		s.SwappedFrom = literals[0]
		s.SwappedTo = literals[1]
	}
}

// ValidateDates re-checks the calendar-range invariant on the current state.
func ValidateDates(ex calendar.Extractor, s *State) error {
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return fmt.Errorf("slots: start_date and end_date are required")
	}
	return ex.ValidateRange(s.StartDate, s.EndDate)
}

// ValidateAll is the stricter final pass before compilation: the range
// invariant must hold and every slot required by the intent's schema must
// be non-empty. This guards against states assembled from hints rather
// than explicit prompts.
func ValidateAll(ex calendar.Extractor, s *State) error {
	if err := ValidateDates(ex, s); err != nil {
		return err
	}
	if missing := Missing(s, s.Intent); len(missing) > 0 {
		return fmt.Errorf("slots: intent %s still missing %v", s.Intent, missing)
	}
	return nil
}

func containsAny(t string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}
