package store

import (
	"context"
	"log/slog"

	"github.com/mnemo-ai/mnemo/internal/model"
)

// AggregateStats recomputes the counters with full rescans; nothing is
// maintained incrementally. The result is mirrored in memory until the next
// rescan or reset. Query failures degrade to zeroed stats with diagnostics.
func (s *SQLiteStore) AggregateStats(ctx context.Context) (*AggregateStats, error) {
	stats := &AggregateStats{}
	err := s.withHealthy(ctx, "aggregate_stats", func() error {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT source_id) FROM content WHERE source_kind = ?`,
			string(model.KindConversation)).Scan(&stats.ConversationCount); err != nil {
			return err
		}
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM content WHERE source_kind = ? AND is_user = 1`,
			string(model.KindConversation)).Scan(&stats.UserMessageCount); err != nil {
			return err
		}
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sources WHERE kind = ?`,
			string(model.KindDocument)).Scan(&stats.DocumentCount); err != nil {
			return err
		}
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM content WHERE source_kind = ?`,
			string(model.KindDocument)).Scan(&stats.DocumentChunkCount)
	})
	if err != nil {
		slog.Error("aggregate stats failed, returning zeroed result", "err", err)
		return &AggregateStats{}, nil
	}

	s.mu.Lock()
	s.statsMirror = stats
	s.mu.Unlock()
	return stats, nil
}
