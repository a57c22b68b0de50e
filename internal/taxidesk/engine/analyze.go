package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmoraru/taxidesk/internal/taxidesk/router"
	"github.com/dmoraru/taxidesk/internal/taxidesk/slots"
	"github.com/dmoraru/taxidesk/internal/taxidesk/sqlgen"
	"github.com/dmoraru/taxidesk/internal/taxidesk/store"
)

// Analyze errors, distinguishable by errors.Is.
var (
	ErrOutOfScope    = errors.New("engine: question is outside the dataset")
	ErrNotUnderstood = errors.New("engine: question did not map to a supported analysis")
	ErrUnsafeInput   = errors.New("engine: input contains injection patterns")
	ErrIncomplete    = errors.New("engine: question leaves required parameters unresolved")
)

// Analysis is the result of a single non-interactive question.
type Analysis struct {
	Intent slots.Intent
	SQL    string
	Result *store.Result
}

// Analyze answers one question end to end without prompting: everything the
// question leaves unresolved is either defaulted (granularity from the window
// length, metric avg, sample limit) or rejected with ErrIncomplete. Intended
// for scripted and one-shot use where the approval gates are the caller's
// responsibility.
func (e *Engine) Analyze(ctx context.Context, question string) (*Analysis, error) {
	if sqlgen.DetectInjection(question) {
		return nil, ErrUnsafeInput
	}
	if msg := detectUnsupported(question); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrNotUnderstood, msg)
	}

	s := slots.NewState()
	rw := e.router.Rewrite(ctx, question)
	router.HintedState(s, rw)
	slots.ExtractInto(e.extract, s, rw.Rewritten)
	if s.SawInvalidDate {
		return nil, fmt.Errorf("%w: invalid dates %v", ErrIncomplete, s.InvalidDates)
	}

	route := e.router.Route(ctx, rw.Rewritten)
	if !route.DatasetMatch {
		return nil, ErrOutOfScope
	}
	intent := route.Intent
	if intent == slots.IntentSampleRows && !e.opts.EnableSampleRows {
		return nil, ErrNotUnderstood
	}
	if !intent.Supported() {
		return nil, ErrNotUnderstood
	}
	s.Intent = intent

	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: no date range in question", ErrIncomplete)
	}
	if s.Granularity == "" {
		s.Granularity = slots.RecommendGranularity(s.StartDate, s.EndDate)
	}
	if s.Metric == "" {
		s.Metric = slots.Avg
	}
	if err := slots.ValidateAll(e.extract, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}

	var (
		query string
		err   error
	)
	if e.opts.EnableBestDay && wantsBestDay(question) &&
		(intent == slots.IntentFareTrend || intent == slots.IntentTipTrend) {
		query, err = e.builder.BuildBestDay(s)
	} else {
		query, err = e.builder.Build(s, intent)
	}
	if err != nil {
		return nil, err
	}
	query, err = sqlgen.SafeSelectOnly(query)
	if err != nil {
		return nil, err
	}

	res, err := e.executor.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	e.log.Info("analyze executed", "intent", intent, "rows", res.RowCount())
	return &Analysis{Intent: intent, SQL: query, Result: res}, nil
}
