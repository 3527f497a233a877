package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"parley/internal/stats"
	"parley/pkg/chat/chaterrors"
	"parley/pkg/chat/middleware"
	"parley/pkg/config"
	"parley/pkg/engine"
	"parley/pkg/logx"
	"parley/pkg/store"
)

// runStats prints the per-model usage summary from the ledger.
func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	limit := fs.Int("n", 0, "limit to the most recent N events")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	dir, err := config.Dir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	ledger, err := stats.Open(filepath.Join(dir, "usage.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = ledger.Close() }()

	summaries, err := ledger.Summarize(*limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(summaries) == 0 {
		fmt.Println("No usage recorded.")
		return 0
	}

	fmt.Printf("%-28s %9s %7s %12s %12s %12s\n",
		"MODEL", "REQUESTS", "ERRORS", "PROMPT", "COMPLETION", "DURATION")
	for _, s := range summaries {
		fmt.Printf("%-28s %9d %7d %12d %12d %12s\n",
			s.Model, s.Requests, s.Errors, s.PromptTokens, s.CompletionTokens,
			s.TotalDuration.Round(time.Millisecond))
	}
	return 0
}

// runList prints stored conversation names, one per line.
func runList() int {
	dir, err := store.DefaultDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	st, err := store.Open(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	names, err := st.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return 0
}

// runModels prints the usable model names, one per line. "default" is
// the alias new conversations fall back to.
func runModels() int {
	fmt.Println("default")
	for _, name := range engine.Names() {
		fmt.Println(name)
	}
	return 0
}

// ledgerRecorder feeds usage middleware events into the SQLite ledger.
// Recording problems are logged at debug level and swallowed: usage
// accounting never changes a chat's outcome.
type ledgerRecorder struct {
	ledger       *stats.Ledger
	conversation string
	provider     string
	log          *logx.Logger
}

func (r *ledgerRecorder) Record(ev middleware.Event) {
	event := stats.Event{
		Conversation:     r.conversation,
		Model:            ev.Model,
		Provider:         r.provider,
		PromptTokens:     ev.PromptTokens,
		CompletionTokens: ev.CompletionTokens,
		Duration:         ev.Duration,
		Status:           stats.StatusOK,
	}
	if ev.Err != nil {
		event.Status = stats.StatusError
		event.ErrorType = chaterrors.TypeOf(ev.Err).String()
	}
	if err := r.ledger.Record(event); err != nil {
		r.log.Debug("usage event dropped: %v", err)
	}
}
