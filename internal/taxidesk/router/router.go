package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dmoraru/taxidesk/internal/taxidesk/slots"
)

// fenceRE strips a leading/trailing Markdown code fence from model output,
// with or without a "json" language tag.
var fenceRE = regexp.MustCompile("(?i)^```(?:json)?\\s*|\\s*```$")

// routeSchema is the contract for the routing call: exactly an intent from
// the closed enumeration and a boolean dataset match.
var routeSchema = jsonschema.MustCompileString("route.schema.json", `{
	"type": "object",
	"required": ["intent", "dataset_match"],
	"properties": {
		"intent": {
			"type": "string",
			"enum": ["trip_frequency", "vendor_inactivity", "fare_trend", "tip_trend", "sample_rows", "unknown"]
		},
		"dataset_match": {"type": "boolean"}
	}
}`)

// rewriteSchema is the contract for the semantic-rewrite call. Hints are
// optional; the rewritten text is not.
var rewriteSchema = jsonschema.MustCompileString("rewrite.schema.json", `{
	"type": "object",
	"required": ["rewritten"],
	"properties": {
		"rewritten": {"type": "string"},
		"intent_hint": {"type": ["string", "null"]},
		"granularity_hint": {"type": ["string", "null"]},
		"metric_hint": {"type": ["string", "null"]}
	}
}`)

const routePromptTmpl = `You are a routing assistant for a %s dataset (YEAR %d only).
Output JSON ONLY:
- intent: one of ["trip_frequency","vendor_inactivity","fare_trend","tip_trend","sample_rows","unknown"]
- dataset_match: true/false
Return JSON only.

User request:
%s`

const rewritePromptTmpl = `You rewrite user messages into a clear, analyst-friendly question about %s data for YEAR %d.
Output JSON ONLY:
{"rewritten": "string", "intent_hint": "...", "granularity_hint": "...", "metric_hint": "..."}
Return JSON only.

User message:
%s`

// Router classifies questions, optionally assisted by a language model.
type Router struct {
	gen     Generator // nil means heuristics only
	dataset string
	year    int
	log     *slog.Logger
}

// New returns a Router for the named dataset and supported year. gen may be
// nil, in which case every call takes the heuristic path.
func New(gen Generator, datasetName string, year int, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{gen: gen, dataset: datasetName, year: year, log: log}
}

// Route classifies text into an intent and a dataset-match verdict.
//
// When a Generator is configured, the model is asked for the two-field JSON
// contract; the response is stripped of code fences, parsed, and validated
// against the contract schema. Any failure at any step falls back to the
// heuristic route — a model error is never surfaced to the caller.
func (r *Router) Route(ctx context.Context, text string) RouteResult {
	if r.gen == nil {
		return HeuristicRoute(text, r.year)
	}

	prompt := fmt.Sprintf(routePromptTmpl, r.dataset, r.year, text)
	var result RouteResult
	if err := r.generateJSON(ctx, prompt, routeSchema, &result); err != nil {
		r.log.Debug("router: model route failed, using heuristics", "err", err)
		return HeuristicRoute(text, r.year)
	}
	return result
}

// Rewrite asks the model to rephrase text into an explicit analyst-style
// question with hint fields. Absence of a model, or any failure, returns the
// original text together with heuristic-derived hints.
func (r *Router) Rewrite(ctx context.Context, text string) RewriteResult {
	if r.gen == nil {
		return heuristicRewrite(text, r.year)
	}

	prompt := fmt.Sprintf(rewritePromptTmpl, r.dataset, r.year, text)
	var result RewriteResult
	if err := r.generateJSON(ctx, prompt, rewriteSchema, &result); err != nil {
		r.log.Debug("router: model rewrite failed, using heuristics", "err", err)
		return heuristicRewrite(text, r.year)
	}
	if strings.TrimSpace(result.Rewritten) == "" {
		result.Rewritten = strings.TrimSpace(text)
	}
	return result
}

// HintedState pre-fills still-empty slots in s from rewrite hints. Hints
// never overwrite a resolved value.
func HintedState(s *slots.State, rw RewriteResult) {
	if s.Granularity == "" {
		switch slots.Granularity(rw.GranularityHint) {
		case slots.Daily, slots.Weekly, slots.Monthly:
			s.Granularity = slots.Granularity(rw.GranularityHint)
		}
	}
	if s.Metric == "" {
		switch slots.Metric(rw.MetricHint) {
		case slots.Avg, slots.Total:
			s.Metric = slots.Metric(rw.MetricHint)
		}
	}
}

// generateJSON runs one model call and decodes the response under the given
// contract schema into out.
func (r *Router) generateJSON(ctx context.Context, prompt string, schema *jsonschema.Schema, out any) error {
	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("router: generate: %w", err)
	}
	cleaned := fenceRE.ReplaceAllString(strings.TrimSpace(text), "")

	var raw any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
