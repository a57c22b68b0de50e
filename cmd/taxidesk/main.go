// Taxidesk is the conversational taxi-data analyst binary.
//
// It answers plain-language questions about a fixed NYC yellow-taxi dataset
// by compiling them into read-only SQL, which runs against a local SQLite
// database only after the user approves both the plan and the query text.
//
// Configuration is loaded from environment variables (a .env file in the
// working directory is honored):
//
//	TAXIDESK_DB_PATH            - path to the SQLite database (default "taxidesk.db")
//	TAXIDESK_DATASET_FILE       - optional dataset profile YAML overriding the built-in one
//	TAXIDESK_SEED_ROWS          - seed this many synthetic rows into an empty database
//	TAXIDESK_ENABLE_SAMPLE_ROWS - allow raw-row sampling questions (default true)
//	TAXIDESK_ENABLE_BEST_DAY    - allow "cheapest day" questions (default false)
//	OPENAI_API_KEY              - optional; enables model-assisted routing
//	TAXIDESK_MODEL              - model name (default "gpt-4o-mini")
//	TAXIDESK_BASE_URL           - override the model API base URL
//	TAXIDESK_LLM_TIMEOUT        - model request timeout (default "30s")
//	LOG_LEVEL                   - "debug", "info", "warn", "error" (default "info")
//	LOG_FORMAT                  - "text" or "json" (default "text")
//
// Without an API key every question is routed by deterministic keyword
// heuristics; the two approval gates apply either way.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dmoraru/taxidesk/common/environment"
	"github.com/dmoraru/taxidesk/common/version"
	"github.com/dmoraru/taxidesk/internal/taxidesk/dataset"
	"github.com/dmoraru/taxidesk/internal/taxidesk/engine"
	"github.com/dmoraru/taxidesk/internal/taxidesk/observability"
	"github.com/dmoraru/taxidesk/internal/taxidesk/router"
	"github.com/dmoraru/taxidesk/internal/taxidesk/store"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	question := flag.String("q", "", "answer one question non-interactively and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("taxidesk", version.Info())
		return
	}

	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	observability.Setup(
		environment.StringOr("LOG_LEVEL", "info"),
		environment.StringOr("LOG_FORMAT", "text"),
	)

	if err := run(context.Background(), *question); err != nil {
		slog.Error("taxidesk exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, question string) error {
	profile, err := loadProfile()
	if err != nil {
		return err
	}

	db, err := store.Open(environment.StringOr("TAXIDESK_DB_PATH", "taxidesk.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(ctx, profile); err != nil {
		return err
	}
	if n := environment.IntOr("TAXIDESK_SEED_ROWS", 0); n > 0 {
		if err := db.Seed(ctx, profile, n); err != nil {
			return err
		}
		slog.Info("seeded synthetic rows", "count", n)
	}

	prompter := &consolePrompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	eng := engine.New(engine.Config{
		Generator: buildGenerator(),
		Profile:   profile,
		Executor:  db,
		Prompter:  prompter,
		Logger:    slog.Default(),
		Options: engine.Options{
			EnableSampleRows: environment.BoolOr("TAXIDESK_ENABLE_SAMPLE_ROWS", true),
			EnableBestDay:    environment.BoolOr("TAXIDESK_ENABLE_BEST_DAY", false),
		},
	})

	if question != "" {
		return oneShot(ctx, eng, question)
	}
	return repl(ctx, eng, prompter)
}

func loadProfile() (dataset.Profile, error) {
	path := environment.StringOr("TAXIDESK_DATASET_FILE", "")
	if path == "" {
		return dataset.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return dataset.Profile{}, fmt.Errorf("read dataset profile: %w", err)
	}
	p, err := dataset.Parse(data)
	if err != nil {
		return dataset.Profile{}, err
	}
	return *p, nil
}

// buildGenerator returns a model client when an API key is configured, nil
// otherwise. A nil generator keeps the engine on heuristic routing.
func buildGenerator() router.Generator {
	key, ok := environment.String("OPENAI_API_KEY")
	if !ok || key == "" {
		slog.Info("no API key configured, using heuristic routing only")
		return nil
	}
	return router.NewModelClient(router.ModelConfig{
		APIKey:  key,
		BaseURL: environment.StringOr("TAXIDESK_BASE_URL", ""),
		Model:   environment.StringOr("TAXIDESK_MODEL", ""),
		Timeout: environment.DurationOr("TAXIDESK_LLM_TIMEOUT", 0),
	})
}

// oneShot answers a single question with defaults instead of prompts and
// prints the rows; used for scripting.
func oneShot(ctx context.Context, eng *engine.Engine, question string) error {
	a, err := eng.Analyze(ctx, question)
	if err != nil {
		return err
	}
	fmt.Println(a.SQL)
	fmt.Println()
	for _, row := range a.Result.Rows {
		parts := make([]string, 0, len(a.Result.Columns))
		for _, col := range a.Result.Columns {
			parts = append(parts, fmt.Sprintf("%s=%v", col, row[col]))
		}
		fmt.Println(strings.Join(parts, "  "))
	}
	fmt.Printf("(%d row(s))\n", a.Result.RowCount())
	return nil
}

func repl(ctx context.Context, eng *engine.Engine, prompter *consolePrompter) error {
	prompter.Say(engine.Intro(eng.Profile()))
	sess := engine.NewSession()
	slog.Info("session started", "session_id", sess.ID)

	for {
		line, err := prompter.Ask("\nyou> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				prompter.Say("Bye!")
				return nil
			}
			return err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "exit", "quit":
			prompter.Say("Bye!")
			return nil
		case "reset":
			sess = engine.NewSession()
			prompter.Say("State cleared. Ask a new question.")
			continue
		case "":
			continue
		}
		if err := eng.Turn(ctx, sess, line); err != nil {
			if errors.Is(err, io.EOF) {
				prompter.Say("Bye!")
				return nil
			}
			return err
		}
	}
}

// consolePrompter is the terminal implementation of engine.Prompter.
type consolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *consolePrompter) Ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *consolePrompter) Say(msg string) {
	fmt.Fprintln(p.out, msg)
}
