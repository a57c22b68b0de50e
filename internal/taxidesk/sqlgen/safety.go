package sqlgen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafeQuery is wrapped by every safety rejection. Detection is terminal:
// callers must abort compilation and execution, never downgrade.
var ErrUnsafeQuery = errors.New("sqlgen: unsafe SQL detected")

// injectionPatterns are scanned against RAW USER TEXT before any extraction
// happens, short-circuiting adversarial input early. The list is
// intentionally conservative: false positives are acceptable, false
// negatives are not.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`;\s*drop\s+`),
	regexp.MustCompile(`;\s*delete\s+`),
	regexp.MustCompile(`;\s*insert\s+`),
	regexp.MustCompile(`;\s*update\s+`),
	regexp.MustCompile(`;\s*alter\s+`),
	regexp.MustCompile(`;\s*create\s+`),
	regexp.MustCompile(`;\s*truncate\s+`),
	regexp.MustCompile(`--\s*$`),
	regexp.MustCompile(`'\s*;\s*`),
	regexp.MustCompile(`'\s*or\s+['"1]`),
	regexp.MustCompile(`'\s*and\s+`),
	regexp.MustCompile(`union\s+select`),
	regexp.MustCompile(`exec\s*\(`),
	regexp.MustCompile(`execute\s*\(`),
	regexp.MustCompile(`xp_\w+`),
	regexp.MustCompile(`sp_\w+`),
	regexp.MustCompile(`0x[0-9a-f]+`),
	regexp.MustCompile(`char\s*\(`),
	regexp.MustCompile(`concat\s*\(`),
}

// mutatingKeywords are rejected anywhere inside a statement, even inside a
// syntactically valid SELECT. Defense in depth against constructed strings,
// not just the top-level verb.
var mutatingKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "create",
	"truncate", "grant", "revoke", "exec", "execute",
}

// keywordREs holds a word-boundary matcher per mutating keyword, compiled
// once at package init.
var keywordREs = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(mutatingKeywords))
	for i, kw := range mutatingKeywords {
		res[i] = regexp.MustCompile(`\b` + kw + `\b`)
	}
	return res
}()

// DetectInjection reports whether raw user input matches a known
// injection-style token sequence. It runs before extraction, independent of
// and stricter than the generated-SQL validator.
func DetectInjection(userInput string) bool {
	t := strings.ToLower(userInput)
	for _, re := range injectionPatterns {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// SafeSelectOnly returns sql unchanged when it is a read-only statement:
// the trimmed, lower-cased text must begin with select or with, and no
// mutating keyword may appear anywhere in it.
func SafeSelectOnly(sql string) (string, error) {
	low := strings.ToLower(strings.TrimSpace(sql))
	if !strings.HasPrefix(low, "select") && !strings.HasPrefix(low, "with") {
		return "", fmt.Errorf("%w: only SELECT queries are allowed", ErrUnsafeQuery)
	}
	for i, re := range keywordREs {
		if re.MatchString(low) {
			return "", fmt.Errorf("%w: statement contains %q", ErrUnsafeQuery, mutatingKeywords[i])
		}
	}
	return sql, nil
}
