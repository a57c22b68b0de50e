package slots

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidValue is wrapped by every normalization failure so callers can
// distinguish "user typed something unrecognizable" from other errors.
var ErrInvalidValue = errors.New("slots: value not recognized")

// granularityTypos maps known misspellings to the canonical word. This is
// intentional domain data collected from real sessions; do not "clean up".
var granularityTypos = map[string]string{
	"dialy": "daily", "daliy": "daily", "dailly": "daily",
	"wekly": "weekly", "weekely": "weekly", "weekley": "weekly",
	"montly": "monthly", "monthy": "monthly", "monthyl": "monthly",
}

// NormalizeGranularity canonicalizes a user-supplied granularity answer.
//
// Only the first whitespace-delimited token is considered. Known
// misspellings are corrected first, then exact forms and single-letter
// shorthands, then prefix fallbacks. The returned error names the valid
// choices and wraps ErrInvalidValue.
func NormalizeGranularity(value string) (Granularity, error) {
	token := firstToken(value)
	if token == "" {
		return "", fmt.Errorf("%w: choose one: daily, weekly, monthly", ErrInvalidValue)
	}
	if fixed, ok := granularityTypos[token]; ok {
		token = fixed
	}
	switch token {
	case "d", "day", "days", "daily":
		return Daily, nil
	case "w", "week", "weeks", "weekly":
		return Weekly, nil
	case "m", "month", "months", "monthly":
		return Monthly, nil
	}
	switch {
	case strings.HasPrefix(token, "dai"), strings.HasPrefix(token, "day"):
		return Daily, nil
	case strings.HasPrefix(token, "wee"), strings.HasPrefix(token, "wk"):
		return Weekly, nil
	case strings.HasPrefix(token, "mon"), strings.HasPrefix(token, "mth"):
		return Monthly, nil
	}
	return "", fmt.Errorf("%w: choose one: daily, weekly, monthly", ErrInvalidValue)
}

// NormalizeMetric canonicalizes a user-supplied metric answer from the first
// whitespace-delimited token.
func NormalizeMetric(value string) (Metric, error) {
	token := firstToken(value)
	switch token {
	case "total", "sum", "t", "s":
		return Total, nil
	case "avg", "average", "mean", "a":
		return Avg, nil
	}
	return "", fmt.Errorf("%w: choose one: avg, total", ErrInvalidValue)
}

// firstToken lower-cases value and returns its first whitespace-delimited
// token, or "" when value is blank.
func firstToken(value string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(value)))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
