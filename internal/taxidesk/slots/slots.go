// Package slots defines the conversation state for a single analysis turn
// and the vocabulary of analysis intents, time granularities, and metrics.
//
// The state is single-owner: only the active turn's pipeline mutates it.
// Once a query has been compiled and executed the state is either reset for
// the next turn or frozen into follow-up memory.
package slots

import (
	"time"
)

// Intent is the closed category of analysis the user is asking for.
type Intent string

const (
	IntentTripFrequency    Intent = "trip_frequency"
	IntentVendorInactivity Intent = "vendor_inactivity"
	IntentFareTrend        Intent = "fare_trend"
	IntentTipTrend         Intent = "tip_trend"
	IntentSampleRows       Intent = "sample_rows"
	IntentUnknown          Intent = "unknown"
)

// Supported reports whether i is one of the compilable analysis intents.
func (i Intent) Supported() bool {
	_, ok := requiredSlots[i]
	return ok
}

// Granularity is the time-bucket size used to aggregate results.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// Metric selects how money-valued columns are aggregated.
type Metric string

const (
	Avg   Metric = "avg"
	Total Metric = "total"
)

// Slot names a parameter required to compile a query for a given intent.
type Slot string

const (
	SlotStartDate   Slot = "start_date"
	SlotEndDate     Slot = "end_date"
	SlotGranularity Slot = "granularity"
	SlotMetric      Slot = "metric"
)

// MaxLimit bounds the sample_rows row cap.
const (
	MaxLimit     = 1000
	DefaultLimit = 100
)

// requiredSlots is the static intent → required-slots table. Slot order is
// the order in which missing values are requested from the user.
var requiredSlots = map[Intent][]Slot{
	IntentTripFrequency:    {SlotStartDate, SlotEndDate, SlotGranularity},
	IntentVendorInactivity: {SlotStartDate, SlotEndDate},
	IntentFareTrend:        {SlotStartDate, SlotEndDate, SlotGranularity, SlotMetric},
	IntentTipTrend:         {SlotStartDate, SlotEndDate, SlotGranularity, SlotMetric},
	IntentSampleRows:       {SlotStartDate, SlotEndDate},
}

// TurnContext is the previous turn's resolved parameters, kept so follow-up
// questions ("sample those rows") can reuse them.
type TurnContext struct {
	Intent      Intent
	StartDate   time.Time
	EndDate     time.Time
	Granularity Granularity
	Metric      Metric
	Turn        int
}

// State is the mutable per-turn record of resolved and unresolved slots.
//
// Date fields use the zero time.Time as "unset". A Granularity or Metric of
// "" is unset; a Limit of 0 is unset.
type State struct {
	Intent      Intent
	StartDate   time.Time
	EndDate     time.Time
	Granularity Granularity
	Metric      Metric
	Limit       int

	// Diagnostic flags for the current turn.
	SawInvalidDate bool
	InvalidDates   []string
	DatesSwapped   bool
	SwappedFrom    string
	SwappedTo      string

	// Follow-up memory, carried across turns.
	Previous    *TurnContext
	Suggestions []string
	TurnCount   int
}

// NewState returns an empty state for a fresh session.
func NewState() *State {
	return &State{}
}

// Reset clears the per-turn slot and diagnostic fields while preserving the
// follow-up memory (Previous, Suggestions, TurnCount).
func (s *State) Reset() {
	prev, sugg, turns := s.Previous, s.Suggestions, s.TurnCount
	*s = State{Previous: prev, Suggestions: sugg, TurnCount: turns}
}

// Freeze records the resolved parameters as follow-up context for the next
// turn and bumps the turn counter. Suggestions become stale one turn after
// they are presented; the counter lets callers detect that.
func (s *State) Freeze(suggestions []string) {
	s.TurnCount++
	s.Previous = &TurnContext{
		Intent:      s.Intent,
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		Granularity: s.Granularity,
		Metric:      s.Metric,
		Turn:        s.TurnCount,
	}
	s.Suggestions = suggestions
}

// ClearDates drops both date slots and the invalid-date diagnostics, used
// when malformed literals force re-entry.
func (s *State) ClearDates() {
	s.StartDate = time.Time{}
	s.EndDate = time.Time{}
	s.SawInvalidDate = false
	s.InvalidDates = nil
}

// ClampLimit normalizes the sample_rows limit into [1, MaxLimit], applying
// the default when unset.
func (s *State) ClampLimit() int {
	n := s.Limit
	if n == 0 {
		n = DefaultLimit
	}
	if n < 1 {
		n = 1
	}
	if n > MaxLimit {
		n = MaxLimit
	}
	return n
}

// Missing returns the slots required by intent that are still unset, in
// acquisition order.
func Missing(s *State, intent Intent) []Slot {
	var out []Slot
	for _, slot := range requiredSlots[intent] {
		switch slot {
		case SlotStartDate:
			if s.StartDate.IsZero() {
				out = append(out, slot)
			}
		case SlotEndDate:
			if s.EndDate.IsZero() {
				out = append(out, slot)
			}
		case SlotGranularity:
			if s.Granularity == "" {
				out = append(out, slot)
			}
		case SlotMetric:
			if s.Metric == "" {
				out = append(out, slot)
			}
		}
	}
	return out
}

// RecommendGranularity suggests a bucket size for the resolved range:
// daily for spans of two weeks or less, weekly up to ninety days, monthly
// beyond that.
func RecommendGranularity(start, end time.Time) Granularity {
	days := int(end.Sub(start).Hours() / 24)
	switch {
	case days <= 14:
		return Daily
	case days <= 90:
		return Weekly
	default:
		return Monthly
	}
}
