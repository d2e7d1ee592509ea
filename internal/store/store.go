// Package store provides the durable content store and its SQLite
// implementation.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mnemo-ai/mnemo/internal/model"
)

// PageSize bounds recency scans.
const PageSize = 50

// Common errors.
var (
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrInvalidVector is returned when a stored embedding blob is malformed.
	ErrInvalidVector = errors.New("invalid vector data")

	// ErrNotFound is returned when a requested source does not exist.
	ErrNotFound = errors.New("not found")
)

// StoreError wraps errors with operation context.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("store: %v", e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return errors.Is(e.Err, target) }

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// ScanParams holds parameters for a recency scan.
type ScanParams struct {
	Kind            model.SourceKind
	ExcludeSourceID string // optional
	Limit           int    // capped at PageSize
}

// AggregateStats holds full-rescan counters over the store.
type AggregateStats struct {
	ConversationCount  int `json:"conversation_count"`
	UserMessageCount   int `json:"user_message_count"`
	DocumentCount      int `json:"document_count"`
	DocumentChunkCount int `json:"document_chunk_count"`
}

// DeleteResult reports the outcome of removing one on-disk artifact during
// a destructive reset.
type DeleteResult struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// ContentStore is the durable table of content units keyed by
// (source kind, source id, position).
type ContentStore interface {
	// Upsert inserts or replaces a unit by its natural key. Idempotent
	// under retry.
	Upsert(ctx context.Context, unit *model.ContentUnit) error

	// FetchOrdered returns all units for a source, strictly ordered by
	// position.
	FetchOrdered(ctx context.Context, kind model.SourceKind, sourceID string) ([]model.ContentUnit, error)

	// ScanRecent returns the most recent units of a kind, newest first,
	// optionally excluding one source.
	ScanRecent(ctx context.Context, p ScanParams) ([]model.ContentUnit, error)

	// UpsertSource inserts or replaces a source row by id.
	UpsertSource(ctx context.Context, src *model.Source) error

	// GetSource returns a source row by id, or ErrNotFound.
	GetSource(ctx context.Context, id string) (*model.Source, error)

	// AggregateStats recomputes counters with full rescans.
	AggregateStats(ctx context.Context) (*AggregateStats, error)

	// Reset clears mirrors, closes the connection, removes every on-disk
	// artifact, and reopens a fresh store. The error is non-nil if any
	// deletion failed or the fresh connection is unhealthy.
	Reset(ctx context.Context) ([]DeleteResult, error)

	// Healthy reports whether the connection answers a trivial round-trip.
	Healthy(ctx context.Context) bool

	// Close closes the store.
	Close() error
}
