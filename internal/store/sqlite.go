package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/mnemo-ai/mnemo/internal/model"
)

// SQLiteStore implements ContentStore using SQLite. Writes come from one
// serialized execution context at a time; the mutex guards reconnection and
// the aggregate mirror, not row-level access.
type SQLiteStore struct {
	mu      sync.Mutex
	db      *sql.DB
	path    string
	entropy *rand.Rand
	closed  bool

	// statsMirror caches the last full rescan; cleared on reset.
	statsMirror *AggregateStats
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	s := &SQLiteStore{
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) open() error {
	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	s.db = db
	if err := s.migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// migrate creates the schema. Every statement is idempotent so it reruns
// safely after a reconnect or reset.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		display_name TEXT NOT NULL,
		path_or_url  TEXT,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		chunk_count  INTEGER NOT NULL DEFAULT 0,
		entity_count INTEGER NOT NULL DEFAULT 0,
		metadata     TEXT,
		content_hash TEXT,
		size         INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sources_kind ON sources(kind);

	CREATE TABLE IF NOT EXISTS content (
		id              TEXT PRIMARY KEY,
		text            TEXT NOT NULL,
		embedding_bytes BLOB,
		timestamp       TEXT NOT NULL,
		source_kind     TEXT NOT NULL,
		source_id       TEXT NOT NULL,
		position        INTEGER NOT NULL,
		is_user         INTEGER NOT NULL DEFAULT 0,
		entity_count    INTEGER NOT NULL DEFAULT 0,
		content_hash    TEXT,
		metadata        TEXT,
		created_at      TEXT NOT NULL,
		UNIQUE (source_kind, source_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_content_source ON content(source_kind, source_id);
	CREATE INDEX IF NOT EXISTS idx_content_timestamp ON content(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_content_is_user ON content(is_user);

	CREATE TABLE IF NOT EXISTS entities (
		id          TEXT PRIMARY KEY,
		text        TEXT NOT NULL,
		type        TEXT,
		content_id  TEXT REFERENCES content(id),
		source_kind TEXT,
		source_id   TEXT,
		position    INTEGER,
		"range"     TEXT,
		confidence  REAL
	);
	CREATE INDEX IF NOT EXISTS idx_entities_content ON entities(content_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ping is the trivial round-trip used by the health discipline.
func (s *SQLiteStore) ping(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

// Healthy reports whether the connection answers a trivial round-trip.
func (s *SQLiteStore) Healthy(ctx context.Context) bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false
	}
	return s.ping(ctx) == nil
}

// reconnect closes the current connection and reopens a fresh one,
// recreating the schema.
func (s *SQLiteStore) reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		s.db.Close()
	}
	return s.open()
}

// withHealthy verifies the connection before fn and transparently
// reconnects and retries once when either the ping or fn fails.
func (s *SQLiteStore) withHealthy(ctx context.Context, op string, fn func() error) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return wrapError(op, ErrStoreClosed)
	}

	if err := s.ping(ctx); err != nil {
		slog.Warn("store connection unhealthy, reconnecting", "op", op, "err", err)
		if err := s.reconnect(); err != nil {
			return wrapError(op, err)
		}
	}

	if err := fn(); err != nil {
		slog.Warn("store operation failed, reconnecting and retrying once", "op", op, "err", err)
		if rerr := s.reconnect(); rerr != nil {
			return wrapError(op, rerr)
		}
		if err := fn(); err != nil {
			return wrapError(op, err)
		}
	}
	return nil
}

// Upsert inserts or replaces a content unit by its natural key.
func (s *SQLiteStore) Upsert(ctx context.Context, unit *model.ContentUnit) error {
	if !model.ValidKinds[unit.SourceKind] {
		return wrapError("upsert", fmt.Errorf("unknown source kind %q", unit.SourceKind))
	}

	blob, err := encodeVector(unit.Embedding)
	if err != nil {
		return wrapError("upsert", err)
	}

	id := unit.ID
	if id == "" {
		id = s.newID()
	}
	ts := unit.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return s.withHealthy(ctx, "upsert", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO content (id, text, embedding_bytes, timestamp, source_kind, source_id,
			                     position, is_user, entity_count, content_hash, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_kind, source_id, position) DO UPDATE SET
				text = excluded.text,
				embedding_bytes = excluded.embedding_bytes,
				timestamp = excluded.timestamp,
				is_user = excluded.is_user,
				entity_count = excluded.entity_count,
				content_hash = excluded.content_hash,
				metadata = excluded.metadata`,
			id, unit.Text, blob, ts.Format(time.RFC3339Nano),
			string(unit.SourceKind), unit.SourceID, unit.Position,
			boolToInt(unit.IsUser), unit.EntityCount, nullable(unit.ContentHash),
			nullable(unit.Metadata), time.Now().UTC().Format(time.RFC3339Nano))
		return err
	})
}

const unitColumns = `id, text, embedding_bytes, timestamp, source_kind, source_id,
                     position, is_user, entity_count, content_hash, metadata, created_at`

// FetchOrdered returns all units for a source, strictly ordered by position.
// Query failures degrade to an empty result with diagnostics.
func (s *SQLiteStore) FetchOrdered(ctx context.Context, kind model.SourceKind, sourceID string) ([]model.ContentUnit, error) {
	var units []model.ContentUnit
	err := s.withHealthy(ctx, "fetch_ordered", func() error {
		units = units[:0]
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+unitColumns+` FROM content
			WHERE source_kind = ? AND source_id = ?
			ORDER BY position ASC`,
			string(kind), sourceID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			u, err := scanUnit(rows)
			if err != nil {
				return err
			}
			units = append(units, u)
		}
		return rows.Err()
	})
	if err != nil {
		slog.Error("fetch failed, returning empty result", "kind", kind, "source", sourceID, "err", err)
		return nil, nil
	}
	return units, nil
}

// ScanRecent returns the most recent units of a kind, newest first, bounded
// by PageSize. Query failures degrade to an empty result with diagnostics.
func (s *SQLiteStore) ScanRecent(ctx context.Context, p ScanParams) ([]model.ContentUnit, error) {
	limit := p.Limit
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}

	query := `SELECT ` + unitColumns + ` FROM content WHERE source_kind = ?`
	args := []interface{}{string(p.Kind)}
	if p.ExcludeSourceID != "" {
		query += ` AND source_id != ?`
		args = append(args, p.ExcludeSourceID)
	}
	query += ` ORDER BY timestamp DESC, position DESC LIMIT ?`
	args = append(args, limit)

	var units []model.ContentUnit
	err := s.withHealthy(ctx, "scan_recent", func() error {
		units = units[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			u, err := scanUnit(rows)
			if err != nil {
				return err
			}
			units = append(units, u)
		}
		return rows.Err()
	})
	if err != nil {
		slog.Error("scan failed, returning empty result", "kind", p.Kind, "err", err)
		return nil, nil
	}
	return units, nil
}

// DeleteFrom removes a source's units at or past the given position. Used
// when a re-imported document shrank so stale tail chunks do not linger.
func (s *SQLiteStore) DeleteFrom(ctx context.Context, kind model.SourceKind, sourceID string, fromPosition int) error {
	return s.withHealthy(ctx, "delete_from", func() error {
		_, err := s.db.ExecContext(ctx, `
			DELETE FROM content
			WHERE source_kind = ? AND source_id = ? AND position >= ?`,
			string(kind), sourceID, fromPosition)
		return err
	})
}

// UpsertSource inserts or replaces a source row by id.
func (s *SQLiteStore) UpsertSource(ctx context.Context, src *model.Source) error {
	if src.ID == "" {
		src.ID = s.newID()
	}
	now := time.Now().UTC()
	if src.CreatedAt.IsZero() {
		src.CreatedAt = now
	}
	src.UpdatedAt = now

	return s.withHealthy(ctx, "upsert_source", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO sources (id, kind, display_name, path_or_url, created_at, updated_at,
			                     chunk_count, entity_count, metadata, content_hash, size)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				display_name = excluded.display_name,
				path_or_url = excluded.path_or_url,
				updated_at = excluded.updated_at,
				chunk_count = excluded.chunk_count,
				entity_count = excluded.entity_count,
				metadata = excluded.metadata,
				content_hash = excluded.content_hash,
				size = excluded.size`,
			src.ID, string(src.Kind), src.DisplayName, nullable(src.PathOrURL),
			src.CreatedAt.Format(time.RFC3339Nano), src.UpdatedAt.Format(time.RFC3339Nano),
			src.ChunkCount, src.EntityCount, nullable(src.Metadata),
			nullable(src.ContentHash), src.Size)
		return err
	})
}

// GetSource returns a source row by id.
func (s *SQLiteStore) GetSource(ctx context.Context, id string) (*model.Source, error) {
	var src model.Source
	err := s.withHealthy(ctx, "get_source", func() error {
		var kind, createdAt, updatedAt string
		var pathOrURL, metadata, contentHash sql.NullString
		err := s.db.QueryRowContext(ctx, `
			SELECT id, kind, display_name, path_or_url, created_at, updated_at,
			       chunk_count, entity_count, metadata, content_hash, size
			FROM sources WHERE id = ?`, id).Scan(
			&src.ID, &kind, &src.DisplayName, &pathOrURL, &createdAt, &updatedAt,
			&src.ChunkCount, &src.EntityCount, &metadata, &contentHash, &src.Size)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		src.Kind = model.SourceKind(kind)
		src.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		src.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		src.PathOrURL = pathOrURL.String
		src.Metadata = metadata.String
		src.ContentHash = contentHash.String
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// ListSources returns all source rows of a kind, newest first. Query
// failures degrade to an empty result with diagnostics.
func (s *SQLiteStore) ListSources(ctx context.Context, kind model.SourceKind) ([]model.Source, error) {
	var sources []model.Source
	err := s.withHealthy(ctx, "list_sources", func() error {
		sources = sources[:0]
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, kind, display_name, path_or_url, created_at, updated_at,
			       chunk_count, entity_count, metadata, content_hash, size
			FROM sources WHERE kind = ? ORDER BY updated_at DESC`, string(kind))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var src model.Source
			var k, createdAt, updatedAt string
			var pathOrURL, metadata, contentHash sql.NullString
			if err := rows.Scan(&src.ID, &k, &src.DisplayName, &pathOrURL, &createdAt, &updatedAt,
				&src.ChunkCount, &src.EntityCount, &metadata, &contentHash, &src.Size); err != nil {
				return err
			}
			src.Kind = model.SourceKind(k)
			src.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
			src.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
			src.PathOrURL = pathOrURL.String
			src.Metadata = metadata.String
			src.ContentHash = contentHash.String
			sources = append(sources, src)
		}
		return rows.Err()
	})
	if err != nil {
		slog.Error("list sources failed, returning empty result", "kind", kind, "err", err)
		return nil, nil
	}
	return sources, nil
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(row scanner) (model.ContentUnit, error) {
	var u model.ContentUnit
	var blob []byte
	var kind, timestamp, createdAt string
	var isUser int
	var contentHash, metadata sql.NullString

	err := row.Scan(&u.ID, &u.Text, &blob, &timestamp, &kind, &u.SourceID,
		&u.Position, &isUser, &u.EntityCount, &contentHash, &metadata, &createdAt)
	if err != nil {
		return u, err
	}

	u.SourceKind = model.SourceKind(kind)
	u.IsUser = isUser != 0
	u.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	u.ContentHash = contentHash.String
	u.Metadata = metadata.String

	vec, err := decodeVector(blob)
	if err != nil {
		// A malformed stored vector degrades the unit to "no embedding"
		// rather than failing the read.
		slog.Warn("malformed stored embedding", "id", u.ID, "err", err)
		vec = []float32{}
	}
	u.Embedding = vec
	return u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
