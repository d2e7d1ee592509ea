// Package summarize compresses older conversation turns via the external
// language model.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/model"
)

// ErrUnavailable is the recoverable condition surfaced when the language
// model cannot be reached or the call fails. Callers leave their state
// untouched when they see it.
var ErrUnavailable = errors.New("language model unavailable")

// LLMClient is the external language-model collaborator. It either returns
// generated text or reports failure; no timeout is enforced here.
type LLMClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const instruction = "Summarize the following conversation excerpt into a short paragraph. " +
	"Preserve names, facts, decisions, and open questions. Respond with the summary only."

// Summarizer invokes the language model over a window of messages.
type Summarizer struct {
	llm LLMClient
}

// New creates a Summarizer. llm may be nil, in which case every call
// reports ErrUnavailable.
func New(llm LLMClient) *Summarizer {
	return &Summarizer{llm: llm}
}

// Summarize compresses the given message window into summary text. On any
// failure it returns a recoverable error and no partial result.
func (s *Summarizer) Summarize(ctx context.Context, msgs []model.Message) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("summarize: %w", ErrUnavailable)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("summarize: empty window")
	}

	text, err := s.llm.Complete(ctx, instruction, Transcript(msgs))
	if err != nil {
		return "", fmt.Errorf("summarize: %w: %v", ErrUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("summarize: %w: empty response", ErrUnavailable)
	}
	return text, nil
}

// Transcript renders messages as a plain-text conversation transcript.
func Transcript(msgs []model.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		label := "Assistant"
		if m.Role == "user" {
			label = "User"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String()
}
