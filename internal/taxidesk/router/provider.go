// Package router maps rewritten user text to one of a closed set of
// analysis intents.
//
// The deterministic heuristic path is always available and is the fallback
// for every model failure: the router never propagates a model error to the
// caller, it only degrades. The optional model-assisted path speaks a
// strict JSON contract that is schema-validated before it is trusted.
package router

import (
	"context"
	"errors"

	"github.com/dmoraru/taxidesk/internal/taxidesk/slots"
)

// ErrMalformedOutput is returned by the model path when the response text
// cannot be interpreted under the JSON contract. Callers inside this
// package treat it as "model unavailable" and fall back to heuristics.
var ErrMalformedOutput = errors.New("router: malformed response from model")

// Generator is the narrow capability interface over an external language
// model: one prompt in, free text out. Implementations must be safe for
// concurrent use. The router tolerates a nil Generator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RouteResult is the routing verdict for one question.
type RouteResult struct {
	// Intent is the detected analysis intent, IntentUnknown when the text
	// is in scope but unresolvable without more information.
	Intent slots.Intent `json:"intent"`

	// DatasetMatch is false when the question cannot be answered by this
	// dataset at all (wrong domain or wrong year). That is terminal for
	// the turn: no query is built.
	DatasetMatch bool `json:"dataset_match"`
}

// RewriteResult is the outcome of the semantic-rewrite pass. Hints are only
// ever used to pre-fill slots that are still empty.
type RewriteResult struct {
	Rewritten       string `json:"rewritten"`
	IntentHint      string `json:"intent_hint"`
	GranularityHint string `json:"granularity_hint"`
	MetricHint      string `json:"metric_hint"`
}
