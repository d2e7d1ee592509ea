// Package session tracks one conversation: its messages, completed-turn
// count, auto-summarization watermark, and outgoing prompt assembly.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/model"
	"github.com/mnemo-ai/mnemo/internal/search"
	"github.com/mnemo-ai/mnemo/internal/store"
	"github.com/mnemo-ai/mnemo/internal/summarize"
)

// DefaultDepth is the number of most-recent turns kept verbatim in the
// prompt when no depth is configured.
const DefaultDepth = 10

// Config configures a conversation session.
type Config struct {
	ConversationID string // generated when empty
	SystemPrompt   string
	Depth          int
}

// Session is the per-conversation state machine. All exported methods are
// safe for use from one goroutine plus the summarization worker; shared
// state is only mutated under the mutex.
type Session struct {
	mu sync.Mutex

	store      *store.SQLiteStore
	embedder   embedding.Embedder
	summarizer *summarize.Summarizer

	conversationID string
	systemPrompt   string
	depth          int

	messages          []model.Message
	lastSummarized    int // watermark: turn index up to which summarization ran
	pendingAutoInject bool
	injectedSummary   string
}

// Load reconstructs a session from the content store. When the reconstructed
// completed-turn count already exceeds the depth and no summarization has
// ever run, the full backlog is summarized immediately; a summarization
// failure is recoverable and leaves the session usable.
func Load(ctx context.Context, st *store.SQLiteStore, emb embedding.Embedder, sum *summarize.Summarizer, cfg Config) (*Session, error) {
	if cfg.ConversationID == "" {
		cfg.ConversationID = uuid.NewString()
	}
	if cfg.Depth <= 0 {
		cfg.Depth = DefaultDepth
	}

	s := &Session{
		store:          st,
		embedder:       emb,
		summarizer:     sum,
		conversationID: cfg.ConversationID,
		systemPrompt:   cfg.SystemPrompt,
		depth:          cfg.Depth,
	}

	units, err := st.FetchOrdered(ctx, model.KindConversation, cfg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	for _, u := range units {
		s.messages = append(s.messages, model.Message{
			Role:      model.RoleFor(u.IsUser),
			Text:      u.Text,
			Position:  u.Position,
			Timestamp: u.Timestamp,
		})
	}

	if t := s.completedTurnsLocked(); t > s.depth && s.lastSummarized == 0 {
		if err := s.summarizeWindow(ctx, 1, t); err != nil {
			slog.Warn("backlog summarization failed", "conversation", s.conversationID, "err", err)
		}
	}
	return s, nil
}

// ConversationID returns the conversation's id.
func (s *Session) ConversationID() string { return s.conversationID }

// Depth returns the configured memory depth.
func (s *Session) Depth() int { return s.depth }

// Messages returns a copy of the reconstructed message list.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.messages...)
}

// Watermark returns the last-summarized turn index.
func (s *Session) Watermark() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSummarized
}

// Summary returns the currently injected summary text, if any.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.injectedSummary
}

// CompletedTurns counts user messages that have a following assistant reply.
func (s *Session) CompletedTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedTurnsLocked()
}

func (s *Session) completedTurnsLocked() int {
	turns := 0
	sawUser := false
	for _, m := range s.messages {
		if m.Role == "user" {
			sawUser = true
		} else if sawUser {
			turns++
			sawUser = false
		}
	}
	return turns
}

// CompleteTurn durably stores a finished exchange, the user message and the
// assistant reply, then evaluates the auto-summarization trigger. When the
// trigger fires, summarization runs in the background and the returned
// channel reports its outcome; callers that do not care may discard it. The
// channel is nil when no summarization was triggered.
func (s *Session) CompleteTurn(ctx context.Context, userText, assistantText string) (<-chan error, error) {
	s.mu.Lock()
	base := len(s.messages)
	s.mu.Unlock()

	now := time.Now().UTC()
	if err := s.storeMessage(ctx, userText, base, true, now); err != nil {
		return nil, err
	}
	if err := s.storeMessage(ctx, assistantText, base+1, false, now.Add(time.Millisecond)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.messages = append(s.messages,
		model.Message{Role: "user", Text: userText, Position: base, Timestamp: now},
		model.Message{Role: "assistant", Text: assistantText, Position: base + 1, Timestamp: now.Add(time.Millisecond)},
	)
	t := s.completedTurnsLocked()
	watermark := s.lastSummarized
	depth := s.depth
	s.mu.Unlock()

	if err := s.touchSource(ctx); err != nil {
		slog.Debug("conversation source update failed", "err", err)
	}

	if t-watermark >= depth && t >= depth {
		done := make(chan error, 1)
		from, to := watermark+1, watermark+depth
		go func() {
			done <- s.summarizeWindow(ctx, from, to)
		}()
		return done, nil
	}
	return nil, nil
}

func (s *Session) storeMessage(ctx context.Context, text string, position int, isUser bool, ts time.Time) error {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		// The tiered embedder degrades internally; store without an
		// embedding rather than losing the message.
		slog.Warn("message embedding failed", "err", err)
		vec = embedding.Vector{}
	}
	return s.store.Upsert(ctx, &model.ContentUnit{
		Text:       text,
		Embedding:  vec,
		Timestamp:  ts,
		SourceKind: model.KindConversation,
		SourceID:   s.conversationID,
		Position:   position,
		IsUser:     isUser,
	})
}

// touchSource keeps the conversation's source row current.
func (s *Session) touchSource(ctx context.Context) error {
	s.mu.Lock()
	count := len(s.messages)
	s.mu.Unlock()
	return s.store.UpsertSource(ctx, &model.Source{
		ID:          s.conversationID,
		Kind:        model.KindConversation,
		DisplayName: "conversation " + s.conversationID,
		ChunkCount:  count,
	})
}

// summarizeWindow summarizes the turns in [fromTurn, toTurn] and applies the
// result atomically. On failure all state is left untouched; the watermark
// never advances on failure.
func (s *Session) summarizeWindow(ctx context.Context, fromTurn, toTurn int) error {
	s.mu.Lock()
	window := s.turnMessagesLocked(fromTurn, toTurn)
	s.mu.Unlock()
	if len(window) == 0 {
		return nil
	}

	text, err := s.summarizer.Summarize(ctx, window)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.injectedSummary = text
	s.lastSummarized = toTurn
	s.pendingAutoInject = true
	s.mu.Unlock()
	return nil
}

// turnMessagesLocked collects the messages belonging to turns in
// [fromTurn, toTurn], 1-based.
func (s *Session) turnMessagesLocked(fromTurn, toTurn int) []model.Message {
	var window []model.Message
	turn := 0
	sawUser := false
	for _, m := range s.messages {
		current := turn + 1 // turn this message belongs to
		if m.Role == "user" {
			sawUser = true
		} else if sawUser {
			turn++
			sawUser = false
		}
		if current >= fromTurn && current <= toTurn {
			window = append(window, m)
		}
		if turn >= toTurn {
			break
		}
	}
	return window
}

// BuildPrompt assembles the outgoing prompt: system prompt, the relevant
// context block when the search returned qualifying snippets, the injected
// summary plus the most recent depth turns when a summary exists and more
// turns than depth have completed, the recent turns verbatim otherwise, and
// a trailing marker for the new user turn.
func (s *Session) BuildPrompt(results *search.Results, userInput string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	if s.systemPrompt != "" {
		b.WriteString(s.systemPrompt)
		b.WriteString("\n\n")
	}

	if results != nil && !results.Empty() {
		b.WriteString("## Relevant context\n")
		for _, sn := range results.Documents {
			fmt.Fprintf(&b, "- [document] %s\n", sn.Text)
		}
		for _, sn := range results.Conversations {
			fmt.Fprintf(&b, "- [conversation] %s\n", sn.Text)
		}
		b.WriteString("\n")
	}

	t := s.completedTurnsLocked()
	if s.injectedSummary != "" && t > s.depth {
		b.WriteString("## Earlier conversation (summarized)\n")
		b.WriteString(s.injectedSummary)
		b.WriteString("\n\n")
		s.pendingAutoInject = false
	}
	for _, m := range s.recentMessagesLocked() {
		label := "Assistant"
		if m.Role == "user" {
			label = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Text)
	}

	fmt.Fprintf(&b, "User: %s\nAssistant:", userInput)
	return b.String()
}

// recentMessagesLocked walks backward until depth user-authored messages
// have been collected, then restores chronological order.
func (s *Session) recentMessagesLocked() []model.Message {
	var recent []model.Message
	users := 0
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		recent = append(recent, m)
		if m.Role == "user" {
			users++
			if users >= s.depth {
				break
			}
		}
	}
	// reverse back to chronological order
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent
}
