package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dmoraru/taxidesk/internal/taxidesk/dataset"
	"github.com/dmoraru/taxidesk/internal/taxidesk/slots"
)

// Intro returns the banner describing what the assistant can do against the
// given dataset profile.
func Intro(p dataset.Profile) string {
	return strings.TrimSpace(fmt.Sprintf(`%s Analyst (%d)
What I can do:
- Turn your question into SAFE, SELECT-only SQL over %s
- Ask 1-2 quick clarifying questions if needed
- Show a short plan + the SQL, then run only after you approve
Data constraints:
- Dates must be in %d
- end_date is EXCLUSIVE (end_date=%d-02-01 includes up to Jan 31)
Examples:
- "show trips from %d-01-01 to %d-02-01 by day"
- "how did fares change in summer %d by week (avg)"
- "show total tips in Q2 %d by month"
- "which vendors were inactive in November %d?"
Commands:
- help  -> examples + what to ask
- reset -> clear state
- exit  -> quit`,
		p.Name, p.Year, p.Table, p.Year, p.Year, p.Year, p.Year, p.Year, p.Year, p.Year))
}

// ContextualHelp returns help text focused on whatever the user seems to be
// asking about (dates, granularity, metric), or the full banner.
func ContextualHelp(p dataset.Profile, userInput string) string {
	t := strings.ToLower(userInput)
	switch {
	case strings.Contains(t, "date") || strings.Contains(t, "when"):
		return fmt.Sprintf("Date format: YYYY-MM-DD (example: %d-06-15)\nShortcuts: 'summer %d', 'Q2 %d', 'November %d'",
			p.Year, p.Year, p.Year, p.Year)
	case strings.Contains(t, "granularity"):
		return "Granularity options: daily, weekly, monthly"
	case strings.Contains(t, "metric"):
		return "Metric options: avg (average per trip), total (sum)"
	default:
		return Intro(p)
	}
}

// taskName is the one-line plan headline per intent.
func taskName(intent slots.Intent, metric slots.Metric) string {
	agg := "Average"
	if metric == slots.Total {
		agg = "Sum"
	}
	switch intent {
	case slots.IntentTripFrequency:
		return "Count trips over time"
	case slots.IntentVendorInactivity:
		return "Rank vendors by trip count (lowest = most inactive)"
	case slots.IntentFareTrend:
		return agg + " fares over time"
	case slots.IntentTipTrend:
		return agg + " tips over time"
	case slots.IntentSampleRows:
		return "Show a safe sample of raw trip rows"
	}
	return "Run analysis query"
}

// explainQuery is the plain-language description of what the compiled query
// does, shown before the SQL itself.
func explainQuery(intent slots.Intent, metric slots.Metric) string {
	agg := "average"
	if metric == slots.Total {
		agg = "total sum"
	}
	switch intent {
	case slots.IntentTripFrequency:
		return "Count how many taxi trips occurred in each time bucket"
	case slots.IntentVendorInactivity:
		return "Rank taxi vendors by total trips (fewest first = most inactive)"
	case slots.IntentFareTrend:
		return fmt.Sprintf("Calculate %s of fare amounts per time bucket", agg)
	case slots.IntentTipTrend:
		return fmt.Sprintf("Calculate %s of tip amounts per time bucket", agg)
	case slots.IntentSampleRows:
		return "Show raw trip rows (limited) for quick inspection"
	}
	return "Run analysis query"
}

// estimateRows gives a rough expected output size for the plan display.
func estimateRows(s *slots.State, intent slots.Intent) string {
	switch intent {
	case slots.IntentVendorInactivity:
		return "~3-5"
	case slots.IntentSampleRows:
		return fmt.Sprintf("~%d", s.ClampLimit())
	}
	if s.Granularity == "" {
		return "unknown"
	}
	days := int(s.EndDate.Sub(s.StartDate).Hours() / 24)
	switch s.Granularity {
	case slots.Daily:
		return fmt.Sprintf("~%d", days)
	case slots.Weekly:
		return fmt.Sprintf("~%d", max(1, days/7))
	default:
		return fmt.Sprintf("~%d", max(1, days/30))
	}
}

// followUpSuggestions are the canned next questions offered after each
// successful query.
func followUpSuggestions(intent slots.Intent) []string {
	switch intent {
	case slots.IntentTripFrequency:
		return []string{
			"Compare this to another period",
			"See which vendors drove these trips",
			"Check fare trends for the same period",
		}
	case slots.IntentVendorInactivity:
		return []string{
			"See trip trends for the most inactive vendor",
			"Compare vendor activity across quarters",
		}
	case slots.IntentFareTrend:
		return []string{
			"Compare to trip frequency (correlation?)",
			"See tip trends for the same period",
		}
	case slots.IntentTipTrend:
		return []string{
			"Compare to fare trends (tip percentage)",
			"See which vendors have highest tips",
		}
	}
	return nil
}

// unsupportedPattern pairs a dimension the dataset cannot answer with the
// message explaining the nearest in-scope alternative. These dimensions are
// rejected by design, not silently ignored.
type unsupportedPattern struct {
	re      *regexp.Regexp
	message string
}

var unsupportedPatterns = []unsupportedPattern{
	{regexp.MustCompile(`\b(weekend|weekday|saturday|sunday|weekends|weekdays)\s.*(busy|busier|more|less|compar|vs|than)`),
		"Weekend vs weekday breakdown isn't supported yet.\nI can show daily data or weekly/monthly aggregation."},
	{regexp.MustCompile(`\b(hour|hourly|morning|evening|afternoon|night|midnight|noon)\b`),
		"Hourly breakdown isn't supported yet.\nTry: daily, weekly, or monthly granularity instead."},
	{regexp.MustCompile(`\b(location|borough|zone|pickup.?location|dropoff.?location|manhattan|brooklyn|queens|bronx|staten)\b`),
		"Location-based analysis isn't supported yet.\nI can analyze trips, fares, tips, and vendors over time."},
	{regexp.MustCompile(`\b(driver|drivers|driver.?id)\b`),
		"Driver-level analysis isn't available.\nI can show vendor (company) level data instead."},
	{regexp.MustCompile(`\b(passenger|passengers|rider|riders)\b`),
		"Passenger-level analysis isn't available.\nI can analyze trip counts, fares, and tips over time."},
	{regexp.MustCompile(`\b(distance|mile|miles|km|kilometer)\b`),
		"Distance-based analysis isn't supported yet.\nTry: fare trends or trip counts instead."},
	{regexp.MustCompile(`\b(payment|cash|card|credit|debit)\b`),
		"Payment type breakdown isn't supported yet.\nI can analyze total fares, tips, and trip counts."},
}

// detectUnsupported returns the rejection message for a question about a
// dimension outside the fixed analysis set, or "".
func detectUnsupported(userInput string) string {
	t := strings.ToLower(userInput)
	for _, p := range unsupportedPatterns {
		if p.re.MatchString(t) {
			return p.message
		}
	}
	return ""
}

// detectMultiTopic returns the distinct analysis topics mentioned together
// when the question joins two or more with "and" or a comma; nil otherwise.
func detectMultiTopic(userInput string) []string {
	t := strings.ToLower(userInput)
	if !strings.Contains(t, " and ") && !strings.Contains(t, ", ") {
		return nil
	}
	var topics []string
	if containsAny(t, "trip", "trips", "ride", "rides") {
		topics = append(topics, "trips")
	}
	if containsAny(t, "fare", "fares", "revenue", "money", "price") {
		topics = append(topics, "fares")
	}
	if containsAny(t, "tip", "tips", "tipping") {
		topics = append(topics, "tips")
	}
	if containsAny(t, "vendor", "vendors", "company", "companies") {
		topics = append(topics, "vendors")
	}
	if len(topics) < 2 {
		return nil
	}
	return topics
}

// needsBusierClarification reports whether the question uses comparative
// "busier" phrasing that is ambiguous between trip counts and revenue.
func needsBusierClarification(userInput string) bool {
	t := strings.ToLower(userInput)
	busy := []string{"busier", "busy", "more active", "less active", "quieter", "slower"}
	comparison := []string{"vs", "versus", "compared", "than", "or"}
	return containsAny(t, busy...) && containsAny(t, comparison...)
}

// wantsBestDay reports whether the question asks for the cheapest/best
// single bucket rather than a plain trend.
func wantsBestDay(userInput string) bool {
	t := strings.ToLower(userInput)
	return containsAny(t, "cheapest day", "best day", "cheapest week", "cheapest month")
}

// rephraseForTopic narrows a multi-topic question to the chosen topic while
// keeping any date phrasing from the original.
func rephraseForTopic(userInput, topic string) string {
	var verb string
	switch topic {
	case "trips":
		verb = "show trips"
	case "fares":
		verb = "show fare trends"
	case "tips":
		verb = "show tip trends"
	case "vendors":
		verb = "show vendor activity"
	default:
		verb = "show " + topic
	}
	return verb + " " + userInput
}

func containsAny(t string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}
