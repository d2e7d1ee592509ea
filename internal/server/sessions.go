package server

import (
	"context"
	"sync"

	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/session"
	"github.com/mnemo-ai/mnemo/internal/store"
	"github.com/mnemo-ai/mnemo/internal/summarize"
)

// SessionRegistry lazily loads one Session per conversation and reuses it
// across tool calls for the lifetime of the server process.
type SessionRegistry struct {
	mu       sync.Mutex
	store    *store.SQLiteStore
	embedder embedding.Embedder
	summ     *summarize.Summarizer
	cfg      config.Config
	sessions map[string]*session.Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(st *store.SQLiteStore, emb embedding.Embedder, sum *summarize.Summarizer, cfg config.Config) *SessionRegistry {
	return &SessionRegistry{
		store:    st,
		embedder: emb,
		summ:     sum,
		cfg:      cfg,
		sessions: make(map[string]*session.Session),
	}
}

// Get returns the session for the conversation, loading it from the store on
// first use. An empty id starts a fresh conversation with a generated id.
func (r *SessionRegistry) Get(ctx context.Context, conversationID string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conversationID != "" {
		if s, ok := r.sessions[conversationID]; ok {
			return s, nil
		}
	}
	s, err := session.Load(ctx, r.store, r.embedder, r.summ, session.Config{
		ConversationID: conversationID,
		SystemPrompt:   r.cfg.SystemPrompt,
		Depth:          r.cfg.MemoryDepth,
	})
	if err != nil {
		return nil, err
	}
	r.sessions[s.ConversationID()] = s
	return s, nil
}

// Drop forgets all cached sessions. Used after a destructive reset so stale
// in-memory state cannot outlive the database it came from.
func (r *SessionRegistry) Drop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*session.Session)
}
