package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/search"
	"github.com/mnemo-ai/mnemo/internal/store"
	"github.com/mnemo-ai/mnemo/internal/summarize"
)

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func loadSession(t *testing.T, st *store.SQLiteStore, llm summarize.LLMClient, cfg Config) *Session {
	t.Helper()
	s, err := Load(context.Background(), st, embedding.NewTiered(nil, nil), summarize.New(llm), cfg)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return s
}

func completeTurns(t *testing.T, s *Session, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		done, err := s.CompleteTurn(ctx, fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if done != nil {
			<-done
		}
	}
}

func TestLoad_GeneratesConversationID(t *testing.T) {
	s := loadSession(t, newTestStore(t), nil, Config{})
	if s.ConversationID() == "" {
		t.Error("expected generated conversation id")
	}
	if s.Depth() != DefaultDepth {
		t.Errorf("expected default depth %d, got %d", DefaultDepth, s.Depth())
	}
}

func TestCompleteTurn_PersistsAndReloads(t *testing.T) {
	st := newTestStore(t)
	s := loadSession(t, st, nil, Config{ConversationID: "conv-1"})
	completeTurns(t, s, 2)

	if got := s.CompletedTurns(); got != 2 {
		t.Fatalf("expected 2 completed turns, got %d", got)
	}

	// A fresh session over the same store sees the same history, in order.
	reloaded := loadSession(t, st, nil, Config{ConversationID: "conv-1"})
	msgs := reloaded.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages after reload, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.Position != i {
			t.Errorf("message %d out of order: position %d", i, m.Position)
		}
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("roles not alternating: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if reloaded.CompletedTurns() != 2 {
		t.Errorf("expected 2 turns after reload, got %d", reloaded.CompletedTurns())
	}
}

func TestCompleteTurn_TriggersSummarizationAtDepth(t *testing.T) {
	llm := &stubLLM{reply: "summary of the first window"}
	s := loadSession(t, newTestStore(t), llm, Config{ConversationID: "c", Depth: 2})
	ctx := context.Background()

	done, err := s.CompleteTurn(ctx, "q0", "a0")
	if err != nil {
		t.Fatalf("turn 0: %v", err)
	}
	if done != nil {
		t.Fatal("summarization triggered before depth reached")
	}

	done, err = s.CompleteTurn(ctx, "q1", "a1")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if done == nil {
		t.Fatal("summarization not triggered at depth")
	}
	if err := <-done; err != nil {
		t.Fatalf("summarization failed: %v", err)
	}
	if s.Watermark() != 2 {
		t.Errorf("expected watermark 2, got %d", s.Watermark())
	}
	if s.Summary() != "summary of the first window" {
		t.Errorf("unexpected summary: %q", s.Summary())
	}
	if llm.calls != 1 {
		t.Errorf("expected 1 llm call, got %d", llm.calls)
	}
}

func TestCompleteTurn_WatermarkUnchangedOnFailure(t *testing.T) {
	llm := &stubLLM{err: errors.New("connection refused")}
	s := loadSession(t, newTestStore(t), llm, Config{ConversationID: "c", Depth: 2})

	completeTurnsNoWait := func() <-chan error {
		done, err := s.CompleteTurn(context.Background(), "q", "a")
		if err != nil {
			t.Fatalf("turn: %v", err)
		}
		return done
	}
	completeTurnsNoWait()
	done := completeTurnsNoWait()
	if done == nil {
		t.Fatal("summarization not triggered")
	}
	if err := <-done; !errors.Is(err, summarize.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if s.Watermark() != 0 {
		t.Errorf("watermark advanced on failure: %d", s.Watermark())
	}
	if s.Summary() != "" {
		t.Errorf("summary set on failure: %q", s.Summary())
	}
}

func TestCompleteTurn_WindowNeverReSummarized(t *testing.T) {
	llm := &stubLLM{reply: "s"}
	s := loadSession(t, newTestStore(t), llm, Config{ConversationID: "c", Depth: 2})

	completeTurns(t, s, 2) // fires, watermark -> 2
	completeTurns(t, s, 1) // t=3, t-watermark=1 < depth: no trigger
	if llm.calls != 1 {
		t.Errorf("expected 1 llm call, got %d", llm.calls)
	}
	completeTurns(t, s, 1) // t=4, t-watermark=2: fires for turns 3..4
	if llm.calls != 2 {
		t.Errorf("expected 2 llm calls, got %d", llm.calls)
	}
	if s.Watermark() != 4 {
		t.Errorf("expected watermark 4, got %d", s.Watermark())
	}
}

func TestLoad_SummarizesBacklog(t *testing.T) {
	st := newTestStore(t)
	first := loadSession(t, st, nil, Config{ConversationID: "c", Depth: 2})
	// With no language model the trigger fires but never advances the
	// watermark, so the stored history outgrows the depth.
	completeTurns(t, first, 3)

	llm := &stubLLM{reply: "backlog summary"}
	reloaded := loadSession(t, st, llm, Config{ConversationID: "c", Depth: 2})
	if llm.calls != 1 {
		t.Fatalf("expected backlog summarization on load, got %d calls", llm.calls)
	}
	if reloaded.Watermark() != 3 {
		t.Errorf("expected watermark 3, got %d", reloaded.Watermark())
	}
	if reloaded.Summary() != "backlog summary" {
		t.Errorf("unexpected summary: %q", reloaded.Summary())
	}
}

func TestBuildPrompt_RecentTurnsVerbatim(t *testing.T) {
	s := loadSession(t, newTestStore(t), nil, Config{ConversationID: "c", SystemPrompt: "Be brief.", Depth: 10})
	completeTurns(t, s, 2)

	prompt := s.BuildPrompt(nil, "next question")
	if !strings.HasPrefix(prompt, "Be brief.") {
		t.Error("system prompt missing from head")
	}
	for _, want := range []string{"User: question 0", "Assistant: answer 0", "User: question 1"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(prompt, "User: next question\nAssistant:") {
		t.Errorf("prompt does not end with the new turn marker: %q", prompt[len(prompt)-40:])
	}
	if strings.Contains(prompt, "## Relevant context") {
		t.Error("context block present without search results")
	}
	if strings.Contains(prompt, "summarized") {
		t.Error("summary block present without a summary")
	}
}

func TestBuildPrompt_IncludesSearchResults(t *testing.T) {
	s := loadSession(t, newTestStore(t), nil, Config{ConversationID: "c"})
	results := &search.Results{
		Documents:     []search.Snippet{{Text: "the sky is blue"}},
		Conversations: []search.Snippet{{Text: "we talked about clouds"}},
	}
	prompt := s.BuildPrompt(results, "why?")
	if !strings.Contains(prompt, "## Relevant context") {
		t.Error("context heading missing")
	}
	if !strings.Contains(prompt, "[document] the sky is blue") {
		t.Error("document snippet missing")
	}
	if !strings.Contains(prompt, "[conversation] we talked about clouds") {
		t.Error("conversation snippet missing")
	}
}

func TestBuildPrompt_SummaryReplacesOlderTurns(t *testing.T) {
	llm := &stubLLM{reply: "earlier they discussed questions 0 and 1"}
	s := loadSession(t, newTestStore(t), llm, Config{ConversationID: "c", Depth: 2})
	completeTurns(t, s, 3) // summarized after turn 2; turn 3 pushes t past depth

	prompt := s.BuildPrompt(nil, "next")
	if !strings.Contains(prompt, "## Earlier conversation (summarized)") {
		t.Fatal("summary heading missing")
	}
	if !strings.Contains(prompt, "earlier they discussed questions 0 and 1") {
		t.Error("summary text missing")
	}
	// Only the most recent depth turns appear verbatim.
	if !strings.Contains(prompt, "User: question 2") {
		t.Error("recent turn missing")
	}
	if strings.Contains(prompt, "User: question 0\n") {
		t.Error("summarized turn still verbatim in prompt")
	}
}

func TestBuildPrompt_NoSummaryAtExactDepth(t *testing.T) {
	llm := &stubLLM{reply: "too early"}
	s := loadSession(t, newTestStore(t), llm, Config{ConversationID: "c", Depth: 2})
	completeTurns(t, s, 2) // summary exists, but t == depth

	prompt := s.BuildPrompt(nil, "next")
	if strings.Contains(prompt, "summarized") {
		t.Error("summary injected while all turns still fit the depth window")
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := loadSession(t, newTestStore(t), nil, Config{ConversationID: "c"})
	completeTurns(t, s, 1)

	msgs := s.Messages()
	msgs[0].Text = "mutated"
	if s.Messages()[0].Text == "mutated" {
		t.Error("Messages leaked internal state")
	}
}
