package stats

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() {
		if err := ledger.Close(); err != nil {
			t.Errorf("failed to close ledger: %v", err)
		}
	})
	return ledger
}

func TestRecordAndRecent(t *testing.T) {
	ledger := newTestLedger(t)

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	ev := Event{
		CreatedAt:        created,
		Conversation:     "abc123",
		Model:            "claude-sonnet-4-5",
		Provider:         "anthropic",
		PromptTokens:     120,
		CompletionTokens: 40,
		Duration:         1500 * time.Millisecond,
		Status:           StatusOK,
	}
	if err := ledger.Record(ev); err != nil {
		t.Fatalf("failed to record event: %v", err)
	}

	events, err := ledger.Recent(0)
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	got := events[0]
	if got.ID == "" {
		t.Error("expected a generated id")
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at: expected %v, got %v", created, got.CreatedAt)
	}
	if got.Conversation != "abc123" || got.Model != "claude-sonnet-4-5" || got.Provider != "anthropic" {
		t.Errorf("identity fields did not round-trip: %+v", got)
	}
	if got.PromptTokens != 120 || got.CompletionTokens != 40 {
		t.Errorf("token counts did not round-trip: %+v", got)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("duration: expected 1.5s, got %v", got.Duration)
	}
	if got.Status != StatusOK || got.ErrorType != "" {
		t.Errorf("status fields did not round-trip: %+v", got)
	}
}

func TestRecordDefaults(t *testing.T) {
	ledger := newTestLedger(t)

	before := time.Now().UTC().Add(-time.Second)
	if err := ledger.Record(Event{Model: "gpt-4o", Provider: "openai"}); err != nil {
		t.Fatalf("failed to record event: %v", err)
	}

	events, err := ledger.Recent(0)
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Error("expected a generated id")
	}
	if events[0].CreatedAt.Before(before) {
		t.Errorf("expected a fresh timestamp, got %v", events[0].CreatedAt)
	}
	if events[0].Status != StatusOK {
		t.Errorf("expected default status %q, got %q", StatusOK, events[0].Status)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	ledger := newTestLedger(t)

	for i, model := range []string{"first", "second", "third"} {
		err := ledger.Record(Event{
			CreatedAt: time.Date(2026, 3, 14, 9, 0, i, 0, time.UTC),
			Model:     model,
			Provider:  "test",
		})
		if err != nil {
			t.Fatalf("failed to record event %d: %v", i, err)
		}
	}

	events, err := ledger.Recent(2)
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Model != "third" || events[1].Model != "second" {
		t.Errorf("expected newest first, got %q then %q", events[0].Model, events[1].Model)
	}
}

func TestSummarize(t *testing.T) {
	ledger := newTestLedger(t)

	seed := []Event{
		{Model: "gpt-4o", Provider: "openai", PromptTokens: 100, CompletionTokens: 50, Duration: time.Second, Status: StatusOK},
		{Model: "gpt-4o", Provider: "openai", PromptTokens: 200, CompletionTokens: 70, Duration: 2 * time.Second, Status: StatusError, ErrorType: "rate_limit"},
		{Model: "claude-sonnet-4-5", Provider: "anthropic", PromptTokens: 10, CompletionTokens: 5, Duration: time.Second, Status: StatusOK},
	}
	for i := range seed {
		if err := ledger.Record(seed[i]); err != nil {
			t.Fatalf("failed to record event %d: %v", i, err)
		}
	}

	summaries, err := ledger.Summarize(0)
	if err != nil {
		t.Fatalf("failed to summarize: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	// Sorted by model name.
	claude, gpt := summaries[0], summaries[1]
	if claude.Model != "claude-sonnet-4-5" || gpt.Model != "gpt-4o" {
		t.Fatalf("unexpected order: %q, %q", claude.Model, gpt.Model)
	}
	if claude.Requests != 1 || claude.Errors != 0 {
		t.Errorf("claude counts: %+v", claude)
	}
	if gpt.Requests != 2 || gpt.Errors != 1 {
		t.Errorf("gpt counts: %+v", gpt)
	}
	if gpt.PromptTokens != 300 || gpt.CompletionTokens != 120 {
		t.Errorf("gpt token totals: %+v", gpt)
	}
	if gpt.TotalDuration != 3*time.Second {
		t.Errorf("gpt duration total: %v", gpt.TotalDuration)
	}
}

func TestSummarizeLimit(t *testing.T) {
	ledger := newTestLedger(t)

	for i := 0; i < 5; i++ {
		model := "old-model"
		if i >= 3 {
			model = "new-model"
		}
		if err := ledger.Record(Event{Model: model, Provider: "test", PromptTokens: 1}); err != nil {
			t.Fatalf("failed to record event %d: %v", i, err)
		}
	}

	// Only the 2 most recent events land in the summary.
	summaries, err := ledger.Summarize(2)
	if err != nil {
		t.Fatalf("failed to summarize: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].Model != "new-model" || summaries[0].Requests != 2 {
		t.Errorf("unexpected summary: %+v", summaries[0])
	}
}

func TestOpenExistingLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	if err := first.Record(Event{Model: "gpt-4o", Provider: "openai"}); err != nil {
		t.Fatalf("failed to record event: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("failed to close ledger: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	defer second.Close()

	events, err := second.Recent(0)
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected the event to survive reopen, got %d", len(events))
	}
}
