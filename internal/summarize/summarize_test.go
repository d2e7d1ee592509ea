package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mnemo-ai/mnemo/internal/model"
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

func TestSummarize_NoClient(t *testing.T) {
	s := New(nil)
	_, err := s.Summarize(context.Background(), []model.Message{{Role: "user", Text: "hi"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestSummarize_EmptyWindow(t *testing.T) {
	llm := &stubLLM{reply: "should not be called"}
	s := New(llm)
	if _, err := s.Summarize(context.Background(), nil); err == nil {
		t.Error("expected error for empty window")
	}
	if llm.calls != 0 {
		t.Errorf("llm called %d times for empty window", llm.calls)
	}
}

func TestSummarize_WrapsFailures(t *testing.T) {
	s := New(&stubLLM{err: errors.New("rate limited")})
	_, err := s.Summarize(context.Background(), []model.Message{{Role: "user", Text: "hi"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("llm failure must map to ErrUnavailable, got %v", err)
	}
}

func TestSummarize_ReturnsModelText(t *testing.T) {
	llm := &stubLLM{reply: "  They discussed the weather.  "}
	s := New(llm)
	got, err := s.Summarize(context.Background(), []model.Message{
		{Role: "user", Text: "nice day"},
		{Role: "assistant", Text: "indeed"},
	})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "They discussed the weather." {
		t.Errorf("unexpected summary: %q", got)
	}
}

func TestTranscript(t *testing.T) {
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	got := Transcript([]model.Message{
		{Role: "user", Text: "hello", Timestamp: ts},
		{Role: "assistant", Text: "hi there", Timestamp: ts},
	})
	if !strings.Contains(got, "User: hello") {
		t.Errorf("missing user line: %q", got)
	}
	if !strings.Contains(got, "Assistant: hi there") {
		t.Errorf("missing assistant line: %q", got)
	}
}
