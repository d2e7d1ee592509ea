// Package importer turns extracted document text into stored, embedded
// content units.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/chunker"
	"github.com/mnemo-ai/mnemo/internal/embedding"
	"github.com/mnemo-ai/mnemo/internal/model"
	"github.com/mnemo-ai/mnemo/internal/store"
)

// Extractor is the document-text collaborator: it takes a file handle and a
// format tag and returns plain text. Format conversion itself (PDF, Office,
// HTML) lives outside this module; only plain-text output is consumed here.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, format string) (string, error)
}

// PlainText extracts text-format files verbatim and rejects formats that
// need a converter.
type PlainText struct{}

func (PlainText) Extract(ctx context.Context, r io.Reader, format string) (string, error) {
	switch format {
	case "", "txt", "text", "md", "markdown":
	default:
		return "", fmt.Errorf("extract: unsupported format %q", format)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	return string(b), nil
}

// Importer chunks, embeds, and upserts document text. Every chunk write is
// individually atomic and keyed by (kind, source id, position), so a crash
// mid-import leaves previously written chunks intact and the import safely
// retryable.
type Importer struct {
	store    *store.SQLiteStore
	embedder embedding.Embedder
	opts     chunker.Options
}

// New creates an Importer. Zero opts take the chunker defaults.
func New(st *store.SQLiteStore, emb embedding.Embedder, opts chunker.Options) *Importer {
	if opts.TargetSize <= 0 {
		opts = chunker.DefaultOptions()
	}
	return &Importer{store: st, embedder: emb, opts: opts}
}

// ImportText stores one document: the text is chunked, each chunk embedded
// and upserted at its position, and the source row written with the final
// chunk count, content hash, and size.
func (i *Importer) ImportText(ctx context.Context, kind model.SourceKind, displayName, pathOrURL, text string) (*model.Source, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("import %q: empty text", displayName)
	}
	if !model.ValidKinds[kind] || kind == model.KindConversation {
		return nil, fmt.Errorf("import %q: invalid source kind %q", displayName, kind)
	}

	sourceID := deriveSourceID(kind, displayName, pathOrURL)
	contentHash := hashText(text)
	chunks := chunker.Chunk(text, i.opts)

	for pos, chunk := range chunks {
		vec, err := i.embedder.Embed(ctx, chunk)
		if err != nil {
			slog.Warn("chunk embedding failed", "source", displayName, "position", pos, "err", err)
			vec = embedding.Vector{}
		}
		unit := &model.ContentUnit{
			Text:        chunk,
			Embedding:   vec,
			SourceKind:  kind,
			SourceID:    sourceID,
			Position:    pos,
			ContentHash: contentHash,
		}
		if err := i.store.Upsert(ctx, unit); err != nil {
			return nil, fmt.Errorf("import %q: chunk %d: %w", displayName, pos, err)
		}
	}

	// Drop tail chunks left over from a longer previous import.
	if err := i.store.DeleteFrom(ctx, kind, sourceID, len(chunks)); err != nil {
		slog.Warn("stale chunk cleanup failed", "source", displayName, "err", err)
	}

	src := &model.Source{
		ID:          sourceID,
		Kind:        kind,
		DisplayName: displayName,
		PathOrURL:   pathOrURL,
		ChunkCount:  len(chunks),
		ContentHash: contentHash,
		Size:        int64(len(text)),
	}
	if err := i.store.UpsertSource(ctx, src); err != nil {
		return nil, fmt.Errorf("import %q: source: %w", displayName, err)
	}
	return src, nil
}

// deriveSourceID yields a stable id for the same logical document so retried
// imports replace rather than duplicate.
func deriveSourceID(kind model.SourceKind, displayName, pathOrURL string) string {
	key := pathOrURL
	if key == "" {
		key = displayName
	}
	sum := sha256.Sum256([]byte(string(kind) + "\x00" + key))
	return hex.EncodeToString(sum[:])[:32]
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
