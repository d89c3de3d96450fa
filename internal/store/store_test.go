package store

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.Client() == nil {
		t.Fatal("expected non-nil ent client")
	}
	if s.EventRepo() == nil {
		t.Fatal("expected non-nil event repo")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here. It is tested with file-based DBs.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()
	ctx := context.Background()

	sc, err := newSequenceCounter(db)
	if err != nil {
		t.Fatalf("new sequence counter: %v", err)
	}

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	// Should be monotonically increasing starting from 1.
	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestSessionSummaries(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	// A started-but-unfinished session must not appear in history.
	err := repo.AppendSessionEvent(ctx, SessionEventData{
		SessionID: "s1", Action: "start", Mode: "live", QuestionsTotal: 3,
	})
	if err != nil {
		t.Fatalf("append start: %v", err)
	}

	summaries, err := repo.QuerySessionSummaries(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("got %d summaries before any session ended, want 0", len(summaries))
	}

	err = repo.AppendSessionEvent(ctx, SessionEventData{
		SessionID: "s1", Action: "end", Mode: "live",
		QuestionsTotal: 3, Score: 2, DurationSecs: 180,
	})
	if err != nil {
		t.Fatalf("append end: %v", err)
	}
	err = repo.AppendSessionEvent(ctx, SessionEventData{
		SessionID: "s2", Action: "end", Mode: "coach",
		QuestionsTotal: 5, Score: 0, DurationSecs: 400,
	})
	if err != nil {
		t.Fatalf("append end 2: %v", err)
	}

	summaries, err = repo.QuerySessionSummaries(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	// Newest first.
	if summaries[0].SessionID != "s2" || summaries[1].SessionID != "s1" {
		t.Errorf("order = %s, %s, want s2, s1", summaries[0].SessionID, summaries[1].SessionID)
	}
	if summaries[0].Mode != "coach" {
		t.Errorf("mode = %q, want coach", summaries[0].Mode)
	}
	if summaries[1].Score != 2 || summaries[1].QuestionsTotal != 3 {
		t.Errorf("s1 summary = %+v", summaries[1])
	}

	limited, err := repo.QuerySessionSummaries(ctx, QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("query limited: %v", err)
	}
	if len(limited) != 1 || limited[0].SessionID != "s2" {
		t.Errorf("limited = %+v, want just s2", limited)
	}
}

func TestTurnEventsReplayInOrder(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	turns := []TurnEventData{
		{SessionID: "s1", QuestionID: "q1", Speaker: "agent", Text: "What is ATP?"},
		{SessionID: "s1", QuestionID: "q1", Speaker: "user", Text: "energy currency", HasVerdict: true, Verdict: true},
		{SessionID: "s1", QuestionID: "q1", Speaker: "agent", Text: "Correct."},
		{SessionID: "s1", QuestionID: "q2", Speaker: "user", Text: "Not answered", HasVerdict: true, Verdict: false},
		{SessionID: "other", QuestionID: "q1", Speaker: "agent", Text: "unrelated"},
	}
	for i, turn := range turns {
		if err := repo.AppendTurnEvent(ctx, turn); err != nil {
			t.Fatalf("append turn %d: %v", i, err)
		}
	}

	got, err := repo.QueryTurns(ctx, "s1")
	if err != nil {
		t.Fatalf("query turns: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d turns, want 4", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Sequence <= got[i-1].Sequence {
			t.Errorf("turns out of order at %d: %d then %d", i, got[i-1].Sequence, got[i].Sequence)
		}
	}
	if got[0].Text != "What is ATP?" || got[3].Text != "Not answered" {
		t.Errorf("turn texts = %q ... %q", got[0].Text, got[3].Text)
	}

	// Replaying verdicts recovers the score.
	score := 0
	for _, turn := range got {
		if turn.Speaker == "user" && turn.HasVerdict && turn.Verdict {
			score++
		}
	}
	if score != 1 {
		t.Errorf("replayed score = %d, want 1", score)
	}
}

func TestLLMEventsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	data := LLMRequestEventData{
		Provider:     "gemini",
		Model:        "gemini-2.0-flash",
		Purpose:      "answer-eval",
		InputTokens:  120,
		OutputTokens: 40,
		LatencyMs:    900,
		Success:      true,
		RequestBody:  "[user]\nQuestion: What is ATP?",
		ResponseBody: `{"is_correct": true}`,
	}
	if err := repo.AppendLLMRequest(ctx, data); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "coach-eval",
		InputTokens: 300, OutputTokens: 80, LatencyMs: 2100, Success: false,
		ErrorMessage: "rate limited",
	}); err != nil {
		t.Fatalf("append 2: %v", err)
	}

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	// Newest first.
	if events[0].Purpose != "coach-eval" {
		t.Errorf("first event purpose = %q, want coach-eval", events[0].Purpose)
	}

	e, err := repo.GetLLMEvent(ctx, events[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil {
		t.Fatal("event not found by id")
	}
	if e.RequestBody != data.RequestBody || e.ResponseBody != data.ResponseBody {
		t.Errorf("bodies not persisted: %+v", e)
	}

	missing, err := repo.GetLLMEvent(ctx, 99999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("got %+v for missing id, want nil", missing)
	}
}

func TestLLMUsageAggregation(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	appends := []LLMRequestEventData{
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "answer-eval", InputTokens: 100, OutputTokens: 20, LatencyMs: 1000, Success: true},
		{Provider: "gemini", Model: "gemini-2.0-flash", Purpose: "answer-eval", InputTokens: 50, OutputTokens: 10, LatencyMs: 3000, Success: true},
		{Provider: "gemini", Model: "gemini-2.0-pro", Purpose: "question-extract", InputTokens: 800, OutputTokens: 200, LatencyMs: 5000, Success: true},
	}
	for i, a := range appends {
		if err := repo.AppendLLMRequest(ctx, a); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage by purpose: %v", err)
	}
	if len(byPurpose) != 2 {
		t.Fatalf("got %d purposes, want 2", len(byPurpose))
	}
	// Sorted by purpose name.
	eval := byPurpose[0]
	if eval.Purpose != "answer-eval" || eval.Calls != 2 || eval.InputTokens != 150 || eval.OutputTokens != 30 {
		t.Errorf("answer-eval usage = %+v", eval)
	}
	if eval.AvgLatencyMs != 2000 {
		t.Errorf("avg latency = %d, want 2000", eval.AvgLatencyMs)
	}

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage by model: %v", err)
	}
	if len(byModel) != 2 {
		t.Fatalf("got %d models, want 2", len(byModel))
	}
	if byModel[0].Model != "gemini-2.0-flash" || byModel[0].Calls != 2 || byModel[0].InputTokens != 150 {
		t.Errorf("flash usage = %+v", byModel[0])
	}
}

func TestSessionSummariesTimeFilter(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	if err := repo.AppendSessionEvent(ctx, SessionEventData{
		SessionID: "s1", Action: "end", Mode: "live", QuestionsTotal: 1,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	future := time.Now().Add(time.Hour)
	summaries, err := repo.QuerySessionSummaries(ctx, QueryOpts{From: future})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("got %d summaries after From filter, want 0", len(summaries))
	}
}
