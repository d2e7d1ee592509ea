package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Reset destroys the store: the aggregate mirror is cleared, the connection
// closed, every on-disk artifact removed (primary file plus WAL/SHM
// journals), and a fresh empty store opened. Reset reports failure if any
// deletion failed or the fresh connection is unhealthy, but reconnection is
// attempted regardless so the store stays usable.
func (s *SQLiteStore) Reset(ctx context.Context) ([]DeleteResult, error) {
	s.mu.Lock()
	s.statsMirror = nil
	if s.db != nil {
		s.db.Close()
	}
	s.mu.Unlock()

	paths := []string{s.path, s.path + "-wal", s.path + "-shm"}
	var results []DeleteResult
	var failed bool
	for _, p := range paths {
		err := os.Remove(p)
		if err != nil && os.IsNotExist(err) {
			err = nil
		}
		if err != nil {
			failed = true
			slog.Error("reset: delete failed", "path", p, "err", err)
		}
		results = append(results, DeleteResult{Path: p, Err: err})
	}

	s.mu.Lock()
	openErr := s.open()
	s.mu.Unlock()
	if openErr != nil {
		return results, wrapError("reset", fmt.Errorf("reopen: %w", openErr))
	}
	if err := s.ping(ctx); err != nil {
		return results, wrapError("reset", fmt.Errorf("health check after reopen: %w", err))
	}

	if failed {
		return results, wrapError("reset", errors.New("one or more files could not be deleted"))
	}
	return results, nil
}
