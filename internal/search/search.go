// Package search runs linear-scan semantic search over the content store.
package search

import (
	"context"
	"log/slog"

	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/model"
	"github.com/mnemo-ai/mnemo/internal/store"
)

const (
	// DefaultThreshold is the minimum cosine similarity for a candidate to
	// qualify as context.
	DefaultThreshold = 0.3

	// DefaultMaxResults bounds the combined result count.
	DefaultMaxResults = 6
)

// Params holds a similarity query.
type Params struct {
	Query          string
	ConversationID string // excluded from conversation-kind results
	MaxResults     int
	Threshold      float64
}

// Snippet is one accepted candidate with its relevance score.
type Snippet struct {
	Text     string           `json:"text"`
	Kind     model.SourceKind `json:"kind"`
	SourceID string           `json:"source_id"`
	Position int              `json:"position"`
	Score    float64          `json:"score"`
}

// Results partitions accepted candidates by source kind. Entities is always
// empty while entity extraction is disabled.
type Results struct {
	Conversations []Snippet `json:"conversations"`
	Documents     []Snippet `json:"documents"`
	Entities      []Snippet `json:"entities"`
	TokenEstimate int       `json:"token_estimate"`
}

// Empty reports whether no snippet qualified.
func (r *Results) Empty() bool {
	return len(r.Conversations) == 0 && len(r.Documents) == 0 && len(r.Entities) == 0
}

// Searcher scans the store and scores candidates against a query embedding.
type Searcher struct {
	store    *store.SQLiteStore
	embedder embedding.Embedder
}

// New creates a Searcher over the given store and embedder.
func New(s *store.SQLiteStore, e embedding.Embedder) *Searcher {
	return &Searcher{store: s, embedder: e}
}

// Search embeds the query and scans the most recent document and
// conversation units independently, accepting candidates at or above the
// threshold. Each half stops once it has MaxResults/2 hits. Accepted
// candidates keep their recency order.
func (s *Searcher) Search(ctx context.Context, p Params) (*Results, error) {
	if p.MaxResults <= 0 {
		p.MaxResults = DefaultMaxResults
	}
	if p.Threshold <= 0 {
		p.Threshold = DefaultThreshold
	}
	perKind := p.MaxResults / 2
	if perKind < 1 {
		perKind = 1
	}

	results := &Results{Entities: []Snippet{}}

	queryVec, err := s.embedder.Embed(ctx, p.Query)
	if err != nil {
		// The tiered embedder degrades internally; a hard failure here
		// still yields an empty, usable result.
		slog.Error("query embedding failed", "err", err)
		return results, nil
	}
	if len(queryVec) == 0 {
		return results, nil
	}

	docs, _ := s.store.ScanRecent(ctx, store.ScanParams{
		Kind:  model.KindDocument,
		Limit: store.PageSize,
	})
	results.Documents = s.scoreCandidates(queryVec, docs, p.Threshold, perKind)

	convos, _ := s.store.ScanRecent(ctx, store.ScanParams{
		Kind:            model.KindConversation,
		ExcludeSourceID: p.ConversationID,
		Limit:           store.PageSize,
	})
	results.Conversations = s.scoreCandidates(queryVec, convos, p.Threshold, perKind)

	total := 0
	for _, sn := range results.Documents {
		total += len(sn.Text)
	}
	for _, sn := range results.Conversations {
		total += len(sn.Text)
	}
	results.TokenEstimate = total / 4 // rough: 1 token ≈ 4 chars

	return results, nil
}

// scoreCandidates walks candidates in recency order, accepting those at or
// above the threshold until the per-kind cap is reached. Candidates whose
// embedding dimensionality differs from the query's come from a different
// embedding tier and are skipped rather than compared across vector spaces.
func (s *Searcher) scoreCandidates(queryVec embedding.Vector, candidates []model.ContentUnit, threshold float64, limit int) []Snippet {
	var accepted []Snippet
	for _, c := range candidates {
		if len(accepted) >= limit {
			break
		}
		if len(c.Embedding) == 0 {
			continue
		}
		if len(c.Embedding) != len(queryVec) {
			slog.Debug("skipping cross-tier candidate", "id", c.ID,
				"query_dims", len(queryVec), "candidate_dims", len(c.Embedding))
			continue
		}
		score := embedding.CosineSimilarity(queryVec, c.Embedding)
		if score < threshold {
			continue
		}
		accepted = append(accepted, Snippet{
			Text:     c.Text,
			Kind:     c.SourceKind,
			SourceID: c.SourceID,
			Position: c.Position,
			Score:    score,
		})
	}
	return accepted
}
