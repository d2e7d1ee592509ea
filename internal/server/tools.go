package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mnemo-ai/mnemo/internal/chunker"
	"github.com/mnemo-ai/mnemo/internal/importer"
	"github.com/mnemo-ai/mnemo/internal/model"
	"github.com/mnemo-ai/mnemo/internal/search"
)

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatArg extracts a float argument from a tool request.
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// SearchTool handles the memory_search MCP tool.
type SearchTool struct {
	deps *Deps
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(deps *Deps) *SearchTool {
	return &SearchTool{deps: deps}
}

// Definition returns the MCP tool definition for memory_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription(
			"Search long-term memory for content semantically relevant to a query. "+
				"Covers past conversation turns and imported documents.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language query to match against stored content"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Current conversation id; its own turns are excluded from results"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Total result cap, split evenly across source kinds (default from config)"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum cosine similarity, 0..1 (default from config)"),
		),
	)
}

// Handle processes the memory_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	results, err := t.deps.Searcher.Search(ctx, search.Params{
		Query:          query,
		ConversationID: req.GetString("conversation_id", ""),
		MaxResults:     intArg(req, "max_results", t.deps.Config.MaxResults),
		Threshold:      floatArg(req, "threshold", t.deps.Config.RelevanceThreshold),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if results.Empty() {
		return mcp.NewToolResultText("No stored content matched the query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant snippets (~%d tokens):\n\n",
		len(results.Documents)+len(results.Conversations), results.TokenEstimate)
	for _, sn := range results.Documents {
		fmt.Fprintf(&b, "[%s %.2f] %s\n", sn.Kind, sn.Score, sn.Text)
	}
	for _, sn := range results.Conversations {
		fmt.Fprintf(&b, "[%s %.2f] %s\n", sn.Kind, sn.Score, sn.Text)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// StoreTurnTool handles the memory_store_turn MCP tool.
type StoreTurnTool struct {
	deps *Deps
}

// NewStoreTurnTool creates a StoreTurnTool.
func NewStoreTurnTool(deps *Deps) *StoreTurnTool {
	return &StoreTurnTool{deps: deps}
}

// Definition returns the MCP tool definition for memory_store_turn.
func (t *StoreTurnTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_store_turn",
		mcp.WithDescription(
			"Durably store one completed exchange (user message plus assistant reply) "+
				"so it becomes searchable in future sessions. May trigger background "+
				"summarization of older turns.",
		),
		mcp.WithString("user_text",
			mcp.Required(),
			mcp.Description("The user's message"),
		),
		mcp.WithString("assistant_text",
			mcp.Required(),
			mcp.Description("The assistant's reply"),
		),
		mcp.WithString("conversation_id",
			mcp.Description("Conversation to append to; omit to start a new one"),
		),
	)
}

// Handle processes the memory_store_turn tool call.
func (t *StoreTurnTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userText := req.GetString("user_text", "")
	assistantText := req.GetString("assistant_text", "")
	if userText == "" || assistantText == "" {
		return mcp.NewToolResultError("'user_text' and 'assistant_text' are required"), nil
	}

	sess, err := t.deps.Sessions.Get(ctx, req.GetString("conversation_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load session: %v", err)), nil
	}
	done, err := sess.CompleteTurn(ctx, userText, assistantText)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("store turn: %v", err)), nil
	}

	msg := fmt.Sprintf("Stored turn %d in conversation %s.", sess.CompletedTurns(), sess.ConversationID())
	if done != nil {
		if err := <-done; err != nil {
			msg += " Summarization of older turns was skipped (language model unavailable)."
		} else {
			msg += " Older turns were summarized."
		}
	}
	return mcp.NewToolResultText(msg), nil
}

// StoreContentTool handles the memory_store_content MCP tool.
type StoreContentTool struct {
	deps *Deps
}

// NewStoreContentTool creates a StoreContentTool.
func NewStoreContentTool(deps *Deps) *StoreContentTool {
	return &StoreContentTool{deps: deps}
}

// Definition returns the MCP tool definition for memory_store_content.
func (t *StoreContentTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_store_content",
		mcp.WithDescription(
			"Import reference text into memory: it is chunked, embedded, and stored "+
				"under a named source. Re-importing the same source replaces its chunks.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The full text to import"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Display name for the source, e.g. a file name or page title"),
		),
		mcp.WithString("kind",
			mcp.Description("Source kind: document (default), webpage, or email"),
		),
		mcp.WithString("url",
			mcp.Description("Origin path or URL, used to keep re-imports stable"),
		),
	)
}

// Handle processes the memory_store_content tool call.
func (t *StoreContentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	name := req.GetString("name", "")
	if text == "" || name == "" {
		return mcp.NewToolResultError("'text' and 'name' are required"), nil
	}
	kind := model.SourceKind(req.GetString("kind", string(model.KindDocument)))

	imp := importer.New(t.deps.Store, t.deps.Embedder, chunker.Options{
		TargetSize: t.deps.Config.ChunkTarget,
		Overlap:    t.deps.Config.ChunkOverlap,
	})
	src, err := imp.ImportText(ctx, kind, name, req.GetString("url", ""), text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Imported %q as %s %s: %d chunks, %d bytes.",
		src.DisplayName, src.Kind, src.ID, src.ChunkCount, src.Size)), nil
}

// GetMessagesTool handles the memory_get_messages MCP tool.
type GetMessagesTool struct {
	deps *Deps
}

// NewGetMessagesTool creates a GetMessagesTool.
func NewGetMessagesTool(deps *Deps) *GetMessagesTool {
	return &GetMessagesTool{deps: deps}
}

// Definition returns the MCP tool definition for memory_get_messages.
func (t *GetMessagesTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_get_messages",
		mcp.WithDescription(
			"Return the stored messages of a conversation in order, with the "+
				"completed-turn count and the summarization watermark.",
		),
		mcp.WithString("conversation_id",
			mcp.Required(),
			mcp.Description("Conversation to read"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Return only the last N messages"),
		),
	)
}

// Handle processes the memory_get_messages tool call.
func (t *GetMessagesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("conversation_id", "")
	if id == "" {
		return mcp.NewToolResultError("'conversation_id' is required"), nil
	}

	sess, err := t.deps.Sessions.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load session: %v", err)), nil
	}
	msgs := sess.Messages()
	if limit := intArg(req, "limit", 0); limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}
	if len(msgs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Conversation %s has no stored messages.", id)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation %s: %d messages, %d completed turns, watermark %d\n\n",
		sess.ConversationID(), len(msgs), sess.CompletedTurns(), sess.Watermark())
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%d] %s (%s): %s\n", m.Position, m.Role, m.Timestamp.Format("2006-01-02 15:04"), m.Text)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// StatusTool handles the memory_status MCP tool.
type StatusTool struct {
	deps *Deps
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(deps *Deps) *StatusTool {
	return &StatusTool{deps: deps}
}

// Definition returns the MCP tool definition for memory_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_status",
		mcp.WithDescription("Report memory health and aggregate content statistics."),
	)
}

// Handle processes the memory_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.deps.Store.AggregateStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}
	healthy := t.deps.Store.Healthy(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "Database: %s (healthy: %t)\n", t.deps.Config.DBPath, healthy)
	fmt.Fprintf(&b, "Conversations: %d (%d user messages)\n", stats.ConversationCount, stats.UserMessageCount)
	fmt.Fprintf(&b, "Documents: %d (%d chunks)\n", stats.DocumentCount, stats.DocumentChunkCount)
	return mcp.NewToolResultText(b.String()), nil
}

// ResetTool handles the memory_reset MCP tool.
type ResetTool struct {
	deps *Deps
}

// NewResetTool creates a ResetTool.
func NewResetTool(deps *Deps) *ResetTool {
	return &ResetTool{deps: deps}
}

// Definition returns the MCP tool definition for memory_reset.
func (t *ResetTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_reset",
		mcp.WithDescription(
			"Permanently erase ALL stored memory by deleting the database files "+
				"and reinitializing an empty store. Irreversible. Requires confirm=true.",
		),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true to perform the reset"),
		),
	)
}

// Handle processes the memory_reset tool call.
func (t *ResetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !boolArg(req, "confirm", false) {
		return mcp.NewToolResultError("refusing to reset without confirm=true"), nil
	}

	deleted, err := t.deps.Store.Reset(ctx)
	t.deps.Sessions.Drop()
	if err != nil {
		var b strings.Builder
		fmt.Fprintf(&b, "reset incomplete: %v\n", err)
		for _, d := range deleted {
			if d.Err != nil {
				fmt.Fprintf(&b, "  %s: %v\n", d.Path, d.Err)
			}
		}
		return mcp.NewToolResultError(b.String()), nil
	}
	return mcp.NewToolResultText("Memory erased; a fresh empty store is ready."), nil
}
