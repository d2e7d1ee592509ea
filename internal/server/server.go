// Package server wires the memory engine into an MCP server instance.
//
// This is the composition root: it builds the store, the tiered embedder,
// the searcher, and the summarizer, and injects them into the tool
// handlers. No retrieval or storage logic lives here.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/search"
	"github.com/mnemo-ai/mnemo/internal/store"
	"github.com/mnemo-ai/mnemo/internal/summarize"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the engine components shared by every tool handler.
type Deps struct {
	Config     config.Config
	Store      *store.SQLiteStore
	Embedder   embedding.Embedder
	Searcher   *search.Searcher
	Summarizer *summarize.Summarizer
	Sessions   *SessionRegistry
}

// New creates the MCP server with all memory tools registered. The returned
// cleanup function closes the content store and must be called on shutdown.
func New(cfg config.Config, st *store.SQLiteStore, emb embedding.Embedder, sum *summarize.Summarizer) (*server.MCPServer, func(), error) {
	if st == nil {
		return nil, func() {}, fmt.Errorf("server: nil store")
	}

	deps := &Deps{
		Config:     cfg,
		Store:      st,
		Embedder:   emb,
		Searcher:   search.New(st, emb),
		Summarizer: sum,
		Sessions:   NewSessionRegistry(st, emb, sum, cfg),
	}

	s := server.NewMCPServer(
		"mnemo",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	searchTool := NewSearchTool(deps)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	storeTurn := NewStoreTurnTool(deps)
	s.AddTool(storeTurn.Definition(), storeTurn.Handle)

	storeContent := NewStoreContentTool(deps)
	s.AddTool(storeContent.Definition(), storeContent.Handle)

	getMessages := NewGetMessagesTool(deps)
	s.AddTool(getMessages.Definition(), getMessages.Handle)

	statusTool := NewStatusTool(deps)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	resetTool := NewResetTool(deps)
	s.AddTool(resetTool.Definition(), resetTool.Handle)

	cleanup := func() {
		if err := st.Close(); err != nil {
			slog.Warn("content store close", "err", err)
		}
	}
	return s, cleanup, nil
}

const instructions = `You have access to mnemo, a local long-term memory engine.

- Call memory_search before answering questions that may relate to past
  conversations or imported documents; weave returned snippets into your reply.
- Call memory_store_turn after each completed exchange so the turn becomes
  searchable in future sessions.
- Call memory_store_content to import reference material the user shares
  (documents, webpages, emails).
- memory_reset permanently erases everything; only call it when the user
  explicitly asks to wipe memory.`
