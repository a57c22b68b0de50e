package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmoraru/taxidesk/common/trace"
	"github.com/dmoraru/taxidesk/internal/taxidesk/calendar"
	"github.com/dmoraru/taxidesk/internal/taxidesk/dataset"
	"github.com/dmoraru/taxidesk/internal/taxidesk/router"
	"github.com/dmoraru/taxidesk/internal/taxidesk/slots"
	"github.com/dmoraru/taxidesk/internal/taxidesk/sqlgen"
	"github.com/dmoraru/taxidesk/internal/taxidesk/store"
)

// Prompter is how the engine talks to whoever drives the conversation. The
// engine never touches a terminal directly; the CLI, tests, and any future
// front end supply their own implementation.
type Prompter interface {
	// Ask displays a prompt and blocks for one line of input.
	Ask(prompt string) (string, error)
	// Say displays a message without expecting a reply.
	Say(msg string)
}

// Executor runs an already-validated query and returns its rows.
// *store.Store satisfies this.
type Executor interface {
	Query(ctx context.Context, query string) (*store.Result, error)
}

// Options are the engine feature toggles.
type Options struct {
	// EnableSampleRows allows the sample_rows intent; when off the engine
	// answers such questions with the generic help text.
	EnableSampleRows bool
	// EnableBestDay allows "cheapest day" style questions to collapse a
	// trend into its minimum bucket.
	EnableBestDay bool
}

// Config wires an Engine.
type Config struct {
	Generator router.Generator // optional; nil runs heuristics only
	Profile   dataset.Profile
	Executor  Executor
	Prompter  Prompter
	Logger    *slog.Logger
	Options   Options
}

// Engine drives the question -> slots -> approved SQL -> rows pipeline.
type Engine struct {
	router   *router.Router
	extract  calendar.Extractor
	builder  *sqlgen.Builder
	profile  dataset.Profile
	executor Executor
	prompter Prompter
	log      *slog.Logger
	opts     Options
}

// Session is one conversation. All cross-turn memory lives here; the engine
// itself is stateless and safe to share.
type Session struct {
	ID    string
	State *slots.State

	// turn sequencing for stale follow-up detection
	seq      int
	frozenAt int

	lastQuestion string
	lastSQL      string
	lastResult   *store.Result
	lastIntent   slots.Intent
}

// NewSession returns a fresh session with a random ID.
func NewSession() *Session {
	return &Session{
		ID:       uuid.NewString(),
		State:    slots.NewState(),
		frozenAt: -1,
	}
}

// New builds an Engine from cfg. Logger defaults to slog.Default().
func New(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		router:   router.New(cfg.Generator, cfg.Profile.Name, cfg.Profile.Year, log),
		extract:  calendar.New(cfg.Profile.Year),
		builder:  sqlgen.NewBuilder(cfg.Profile),
		profile:  cfg.Profile,
		executor: cfg.Executor,
		prompter: cfg.Prompter,
		log:      log,
		opts:     cfg.Options,
	}
}

// Profile returns the dataset profile the engine was built with.
func (e *Engine) Profile() dataset.Profile { return e.profile }

// Turn runs one full conversational turn: screen the input, resolve slots
// (prompting for whatever is missing), show the plan and SQL behind two
// approval gates, execute, and summarize. It returns an error only when the
// Prompter or Executor fails; every in-band problem is reported through Say.
func (e *Engine) Turn(ctx context.Context, sess *Session, userInput string) error {
	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	log := e.log.With("trace_id", trace.FromContext(ctx), "session_id", sess.ID)

	sess.seq++
	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		return nil
	}

	// Raw-text screen runs before anything else sees the input.
	if sqlgen.DetectInjection(userInput) {
		log.Warn("injection patterns in input")
		e.prompter.Say("That input contains SQL-injection patterns and was refused.\nAsk a plain-language question about the taxi data instead.")
		return nil
	}

	switch strings.ToLower(userInput) {
	case "help":
		e.prompter.Say(ContextualHelp(e.profile, sess.lastQuestion))
		return nil
	case "explain", "explain last":
		e.prompter.Say(sess.explainLast())
		return nil
	}

	// A bare number is a follow-up pick, valid only on the turn right
	// after the suggestions were shown.
	if n, err := strconv.Atoi(userInput); err == nil {
		picked, msg := sess.pickSuggestion(n)
		if picked == "" {
			e.prompter.Say(msg)
			return nil
		}
		e.prompter.Say("Following up: " + picked)
		userInput = picked
	}

	if msg := detectUnsupported(userInput); msg != "" {
		e.prompter.Say(msg)
		return nil
	}

	if topics := detectMultiTopic(userInput); topics != nil {
		choice, err := e.askMultiTopic(topics)
		if err != nil {
			return err
		}
		if choice == "" {
			e.prompter.Say("Okay, ask again with a single topic when ready.")
			return nil
		}
		userInput = rephraseForTopic(userInput, choice)
	}

	// Fresh slots for this question; Reset preserves the previous turn
	// context so date reuse and follow-ups still work.
	sess.State.Reset()
	s := sess.State

	askBusier := needsBusierClarification(userInput)
	bestDay := e.opts.EnableBestDay && wantsBestDay(userInput)

	rw := e.router.Rewrite(ctx, userInput)
	question := rw.Rewritten
	router.HintedState(s, rw)
	sess.lastQuestion = question

	slots.ExtractInto(e.extract, s, question)
	e.reportDateDiagnostics(s)

	route := e.router.Route(ctx, question)
	log.Info("routed", "intent", route.Intent, "dataset_match", route.DatasetMatch)

	if !route.DatasetMatch {
		e.prompter.Say(fmt.Sprintf("That looks outside this dataset (%s, year %d).\nI can analyze trips, fares, tips, and vendors for %d.",
			e.profile.Name, e.profile.Year, e.profile.Year))
		return nil
	}

	intent := route.Intent
	if askBusier {
		clarified, err := e.clarifyBusier()
		if err != nil {
			return err
		}
		intent = clarified
	}

	if intent == slots.IntentSampleRows && !e.opts.EnableSampleRows {
		intent = slots.IntentUnknown
	}
	if !intent.Supported() {
		e.prompter.Say("I couldn't map that to a supported analysis.\n" + ContextualHelp(e.profile, userInput))
		return nil
	}
	s.Intent = intent

	// Sampling right after an analysis reuses that analysis' window.
	if intent == slots.IntentSampleRows && s.StartDate.IsZero() && s.Previous != nil && !s.Previous.StartDate.IsZero() {
		s.StartDate = s.Previous.StartDate
		s.EndDate = s.Previous.EndDate
		e.prompter.Say(fmt.Sprintf("Reusing the %s to %s window from your last question.",
			s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02")))
	}

	if err := e.fillMissing(s, intent); err != nil {
		return err
	}
	if err := e.confirmDates(s); err != nil {
		return err
	}
	if err := slots.ValidateAll(e.extract, s); err != nil {
		e.prompter.Say("Cannot proceed: " + err.Error())
		return nil
	}
	if err := e.nudgeGranularity(s, intent); err != nil {
		return err
	}

	approved, err := e.approvePlan(s, intent)
	if err != nil {
		return err
	}
	if !approved {
		e.prompter.Say("Cancelled. Ask another question when ready.")
		return nil
	}

	var query string
	if bestDay && (intent == slots.IntentFareTrend || intent == slots.IntentTipTrend) {
		query, err = e.builder.BuildBestDay(s)
	} else {
		query, err = e.builder.Build(s, intent)
	}
	if err != nil {
		e.prompter.Say("Could not build the query: " + err.Error())
		return nil
	}
	query, err = sqlgen.SafeSelectOnly(query)
	if err != nil {
		log.Error("generated query failed safety validation", "error", err)
		e.prompter.Say("Internal error: the generated query failed safety validation and was not run.")
		return nil
	}

	e.prompter.Say("About to run:\n" + explainQuery(intent, s.Metric) + "\n\nSQL:\n" + query)
	run, err := e.askYesNo("Run this query? (yes/no): ")
	if err != nil {
		return err
	}
	if !run {
		e.prompter.Say("Cancelled. The query was not executed.")
		return nil
	}

	res, err := e.executor.Query(ctx, query)
	if err != nil {
		log.Error("query execution failed", "error", err)
		e.prompter.Say("Query failed: " + err.Error())
		return nil
	}
	log.Info("query executed", "rows", res.RowCount())

	e.reportResult(sess, s, intent, query, res, bestDay)
	return nil
}

// explainLast describes the most recent executed query in plain language.
func (s *Session) explainLast() string {
	if s.lastResult == nil {
		return "Nothing to explain yet; run a query first."
	}
	var metric slots.Metric
	if s.State.Previous != nil {
		metric = s.State.Previous.Metric
	}
	return fmt.Sprintf("Last query: %s\nIt returned %d row(s).\nSQL:\n%s",
		explainQuery(s.lastIntent, metric), s.lastResult.RowCount(), s.lastSQL)
}

// pickSuggestion resolves a numbered follow-up reference. Returns the
// suggestion text, or "" plus a message explaining why the pick is invalid.
func (s *Session) pickSuggestion(n int) (string, string) {
	if len(s.State.Suggestions) == 0 {
		return "", "There are no follow-up suggestions to pick from. Ask a full question instead."
	}
	if s.seq != s.frozenAt+1 {
		return "", "Those suggestions are from an earlier turn and may be stale. Ask a full question instead."
	}
	if n < 1 || n > len(s.State.Suggestions) {
		return "", fmt.Sprintf("Pick a number between 1 and %d, or ask a full question.", len(s.State.Suggestions))
	}
	return s.State.Suggestions[n-1], ""
}

// reportDateDiagnostics surfaces swapped or invalid dates found during
// extraction. Invalid dates clear both slots so they get re-prompted.
func (e *Engine) reportDateDiagnostics(s *slots.State) {
	if s.DatesSwapped {
		e.prompter.Say(fmt.Sprintf("Note: your dates appeared reversed (%s before %s); I swapped them so start comes first.",
			s.SwappedTo, s.SwappedFrom))
		s.DatesSwapped = false
	}
	if s.SawInvalidDate {
		e.prompter.Say(fmt.Sprintf("I couldn't parse these as real dates: %s.\nUse YYYY-MM-DD (example: %d-06-15).",
			strings.Join(s.InvalidDates, ", "), e.profile.Year))
		s.ClearDates()
	}
}

// fillMissing prompts for every unresolved slot in canonical order.
func (e *Engine) fillMissing(s *slots.State, intent slots.Intent) error {
	for _, slot := range slots.Missing(s, intent) {
		switch slot {
		case slots.SlotStartDate:
			d, err := e.askDate(fmt.Sprintf("Start date (YYYY-MM-DD, e.g. %d-01-01): ", e.profile.Year), false)
			if err != nil {
				return err
			}
			s.StartDate = d
		case slots.SlotEndDate:
			d, err := e.askDate(fmt.Sprintf("End date, EXCLUSIVE (YYYY-MM-DD, e.g. %d-02-01 for all of January): ", e.profile.Year), true)
			if err != nil {
				return err
			}
			s.EndDate = d
		case slots.SlotGranularity:
			g, err := e.askGranularity(s)
			if err != nil {
				return err
			}
			s.Granularity = g
		case slots.SlotMetric:
			m, err := e.askMetric()
			if err != nil {
				return err
			}
			s.Metric = m
		}
	}
	if intent == slots.IntentSampleRows {
		n, err := e.askLimit()
		if err != nil {
			return err
		}
		s.Limit = n
	}
	return nil
}

// confirmDates validates the date pair, re-prompting once on failure.
func (e *Engine) confirmDates(s *slots.State) error {
	for attempt := 0; attempt < 2; attempt++ {
		verr := slots.ValidateDates(e.extract, s)
		if verr == nil {
			return nil
		}
		e.prompter.Say("Date problem: " + verr.Error())
		if attempt == 1 {
			break
		}
		sd, err := e.askDate("Start date (YYYY-MM-DD): ", false)
		if err != nil {
			return err
		}
		ed, err := e.askDate("End date, EXCLUSIVE (YYYY-MM-DD): ", true)
		if err != nil {
			return err
		}
		s.StartDate, s.EndDate = sd, ed
	}
	return nil
}

// nudgeGranularity offers a better bucket size for very short or very long
// windows; the user's choice always wins.
func (e *Engine) nudgeGranularity(s *slots.State, intent slots.Intent) error {
	if intent == slots.IntentVendorInactivity || intent == slots.IntentSampleRows {
		return nil
	}
	days := int(s.EndDate.Sub(s.StartDate).Hours() / 24)
	switch {
	case days <= 7 && s.Granularity != slots.Daily:
		yes, err := e.askYesNo(fmt.Sprintf("That window is only %d day(s); %s buckets may hide detail. Switch to daily? (yes/no): ", days, s.Granularity))
		if err != nil {
			return err
		}
		if yes {
			s.Granularity = slots.Daily
		}
	case days > 90 && s.Granularity == slots.Daily:
		yes, err := e.askYesNo(fmt.Sprintf("Daily buckets over %d days will produce a lot of rows. Switch to weekly? (yes/no): ", days))
		if err != nil {
			return err
		}
		if yes {
			s.Granularity = slots.Weekly
		}
	}
	return nil
}

// approvePlan shows the pre-SQL plan artifact and asks for the first gate.
func (e *Engine) approvePlan(s *slots.State, intent slots.Intent) (bool, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan:\n- Task: %s\n", taskName(intent, s.Metric))
	fmt.Fprintf(&b, "- Window: %s to %s (end exclusive)\n",
		s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"))
	if s.Granularity != "" {
		fmt.Fprintf(&b, "- Granularity: %s\n", s.Granularity)
	}
	if s.Metric != "" {
		fmt.Fprintf(&b, "- Metric: %s\n", s.Metric)
	}
	if intent == slots.IntentSampleRows {
		fmt.Fprintf(&b, "- Row limit: %d\n", s.ClampLimit())
	}
	fmt.Fprintf(&b, "- Expected rows: %s", estimateRows(s, intent))
	e.prompter.Say(b.String())
	return e.askYesNo("Proceed with this plan? (yes/no): ")
}

// reportResult prints the rows, freezes the turn, and offers follow-ups.
func (e *Engine) reportResult(sess *Session, s *slots.State, intent slots.Intent, query string, res *store.Result, bestDay bool) {
	if res.RowCount() == 0 {
		e.prompter.Say("No rows matched. The window may be empty, or the data may not cover it.")
	} else if bestDay {
		e.prompter.Say(renderBestDay(res))
	} else {
		e.prompter.Say(renderResult(res, 20))
	}

	sess.lastSQL = query
	sess.lastResult = res
	sess.lastIntent = intent

	sugg := followUpSuggestions(intent)
	s.Freeze(sugg)
	sess.frozenAt = sess.seq

	if len(sugg) > 0 {
		var b strings.Builder
		b.WriteString("You might ask next (reply with a number or a new question):")
		for i, sg := range sugg {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, sg)
		}
		e.prompter.Say(b.String())
	}
}

// askMultiTopic lets the user pick one topic out of several mentioned.
func (e *Engine) askMultiTopic(topics []string) (string, error) {
	var b strings.Builder
	b.WriteString("Your question touches several topics; I can answer one at a time:")
	for i, t := range topics {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, t)
	}
	e.prompter.Say(b.String())
	for {
		raw, err := e.prompter.Ask(fmt.Sprintf("Which one? (1-%d, or blank to cancel): ", len(topics)))
		if err != nil {
			return "", err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return "", nil
		}
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= len(topics) {
			return topics[n-1], nil
		}
		e.prompter.Say(fmt.Sprintf("Enter a number between 1 and %d.", len(topics)))
	}
}

// clarifyBusier resolves the ambiguous "busier" phrasing into a concrete
// intent.
func (e *Engine) clarifyBusier() (slots.Intent, error) {
	e.prompter.Say("\"Busier\" can mean different things:\n  1. More trips (trip counts)\n  2. More revenue (fare totals)\n  3. Higher tips")
	for {
		raw, err := e.prompter.Ask("Which do you mean? (1-3): ")
		if err != nil {
			return slots.IntentUnknown, err
		}
		switch strings.TrimSpace(raw) {
		case "1":
			return slots.IntentTripFrequency, nil
		case "2":
			return slots.IntentFareTrend, nil
		case "3":
			return slots.IntentTipTrend, nil
		}
		e.prompter.Say("Enter 1, 2, or 3.")
	}
}

// askDate loops until a parseable in-range date arrives. An exclusive end
// date may be the first day of the following year.
func (e *Engine) askDate(prompt string, exclusiveEnd bool) (time.Time, error) {
	for {
		raw, err := e.prompter.Ask(prompt)
		if err != nil {
			return time.Time{}, err
		}
		d, perr := calendar.ParseDate(strings.TrimSpace(raw))
		if perr != nil {
			e.prompter.Say(perr.Error())
			continue
		}
		inRange := !d.Before(e.extract.Min()) && d.Before(e.extract.Max())
		if exclusiveEnd {
			inRange = !d.Before(e.extract.Min()) && !d.After(e.extract.Max())
		}
		if !inRange {
			e.prompter.Say(fmt.Sprintf("Dates must be in %d.", e.profile.Year))
			continue
		}
		return d, nil
	}
}

func (e *Engine) askGranularity(s *slots.State) (slots.Granularity, error) {
	def := slots.RecommendGranularity(s.StartDate, s.EndDate)
	for {
		raw, err := e.prompter.Ask(fmt.Sprintf("Granularity? (daily/weekly/monthly) [%s]: ", def))
		if err != nil {
			return "", err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return def, nil
		}
		if calendar.LooksLikeDate(raw) {
			e.prompter.Say("That looks like a date; I need daily, weekly, or monthly here.")
			continue
		}
		g, nerr := slots.NormalizeGranularity(raw)
		if nerr != nil {
			e.prompter.Say(nerr.Error())
			continue
		}
		return g, nil
	}
}

func (e *Engine) askMetric() (slots.Metric, error) {
	for {
		raw, err := e.prompter.Ask("Metric? (avg/total) [avg]: ")
		if err != nil {
			return "", err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return slots.Avg, nil
		}
		m, nerr := slots.NormalizeMetric(raw)
		if nerr != nil {
			e.prompter.Say(nerr.Error())
			continue
		}
		return m, nil
	}
}

func (e *Engine) askLimit() (int, error) {
	for {
		raw, err := e.prompter.Ask(fmt.Sprintf("How many rows? (1-%d) [%d]: ", slots.MaxLimit, slots.DefaultLimit))
		if err != nil {
			return 0, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return slots.DefaultLimit, nil
		}
		n, aerr := strconv.Atoi(raw)
		if aerr != nil || n < 1 || n > slots.MaxLimit {
			e.prompter.Say(fmt.Sprintf("Enter a number between 1 and %d.", slots.MaxLimit))
			continue
		}
		return n, nil
	}
}

func (e *Engine) askYesNo(prompt string) (bool, error) {
	for {
		raw, err := e.prompter.Ask(prompt)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "yes", "y", "ok", "okay", "approve", "run", "sure":
			return true, nil
		case "no", "n", "cancel", "stop", "abort", "deny", "nope":
			return false, nil
		}
		e.prompter.Say("Please answer yes or no.")
	}
}

// renderResult formats up to maxRows rows as an aligned text table.
func renderResult(res *store.Result, maxRows int) string {
	rows := res.Rows
	truncated := false
	if len(rows) > maxRows {
		rows = rows[:maxRows]
		truncated = true
	}

	widths := make([]int, len(res.Columns))
	cells := make([][]string, len(rows))
	for i, col := range res.Columns {
		widths[i] = len(col)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(res.Columns))
		for i, col := range res.Columns {
			v := fmt.Sprintf("%v", row[col])
			cells[r][i] = v
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var b strings.Builder
	for i, col := range res.Columns {
		if i > 0 {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "%-*s", widths[i], col)
	}
	for _, row := range cells {
		b.WriteByte('\n')
		for i, v := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], v)
		}
	}
	fmt.Fprintf(&b, "\n(%d row(s)", res.RowCount())
	if truncated {
		fmt.Fprintf(&b, ", showing first %d", maxRows)
	}
	b.WriteString(")")
	return b.String()
}

// renderBestDay scans a per-bucket total series for its minimum and reports
// that bucket as the cheapest.
func renderBestDay(res *store.Result) string {
	if res.RowCount() == 0 || len(res.Columns) < 2 {
		return "No rows matched."
	}
	labelCol, valueCol := res.Columns[0], res.Columns[1]
	best := res.Rows[0]
	for _, row := range res.Rows[1:] {
		if asFloat(row[valueCol]) < asFloat(best[valueCol]) {
			best = row
		}
	}
	return fmt.Sprintf("Cheapest %s: %v (%v)\n%s",
		labelCol, best[labelCol], best[valueCol], renderResult(res, 20))
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
