package router

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dmoraru/taxidesk/internal/taxidesk/slots"
)

var yearTokenRE = regexp.MustCompile(`\b20\d{2}\b`)

// Keyword groups for the deterministic route, most specific first. Several
// keywords can co-occur in one question, so the check order below is a
// fixed priority: vendor > tip > fare > trip.
var (
	outOfScopeWords = []string{"churn", "customer", "cohort", "retention", "subscription"}
	helpPhrases     = []string{"help", "what can i ask", "what can i do", "who are you"}
	sampleWords     = []string{"sample", "show me a sample", "limit"}
	rowWords        = []string{"row", "rows", "records"}
	fareWords       = []string{"fare", "price", "expensive", "money", "revenue", "cost"}
	tripWords       = []string{"trip", "trips", "ride", "rides", "busy", "busier", "frequency", "activity", "volume"}
)

// HeuristicRoute is the deterministic keyword classifier, used whenever no
// model is configured or the model path fails for any reason.
func HeuristicRoute(text string, year int) RouteResult {
	t := strings.ToLower(text)

	if containsAny(t, outOfScopeWords...) {
		return RouteResult{Intent: slots.IntentUnknown, DatasetMatch: false}
	}
	if namesForeignYear(t, year) {
		return RouteResult{Intent: slots.IntentUnknown, DatasetMatch: false}
	}

	if containsAny(t, helpPhrases...) {
		return RouteResult{Intent: slots.IntentUnknown, DatasetMatch: true}
	}
	if containsAny(t, sampleWords...) && containsAny(t, rowWords...) {
		return RouteResult{Intent: slots.IntentSampleRows, DatasetMatch: true}
	}

	if strings.Contains(t, "vendor") {
		return RouteResult{Intent: slots.IntentVendorInactivity, DatasetMatch: true}
	}
	if strings.Contains(t, "tip") && !strings.Contains(t, "strip") {
		return RouteResult{Intent: slots.IntentTipTrend, DatasetMatch: true}
	}
	if containsAny(t, fareWords...) {
		return RouteResult{Intent: slots.IntentFareTrend, DatasetMatch: true}
	}
	if containsAny(t, tripWords...) {
		return RouteResult{Intent: slots.IntentTripFrequency, DatasetMatch: true}
	}

	return RouteResult{Intent: slots.IntentUnknown, DatasetMatch: true}
}

// heuristicRewrite is the no-model rewrite: the original text unchanged,
// with hints derived from the heuristic route.
func heuristicRewrite(text string, year int) RewriteResult {
	r := HeuristicRoute(text, year)
	return RewriteResult{
		Rewritten:  strings.TrimSpace(text),
		IntentHint: string(r.Intent),
	}
}

// namesForeignYear reports whether t names an explicit 20xx year other than
// the supported one without also naming the supported year.
func namesForeignYear(t string, year int) bool {
	if strings.Contains(t, strconv.Itoa(year)) {
		return false
	}
	for _, y := range yearTokenRE.FindAllString(t, -1) {
		if y != strconv.Itoa(year) {
			return true
		}
	}
	return false
}

func containsAny(t string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}
