package embedding

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/entity"
)

// Tiered tries a sentence-level model first and degrades to the hash
// fallback when the model is unavailable or the call fails. Embed never
// returns an error.
type Tiered struct {
	model    Embedder // tier 1, may be nil
	fallback *HashEmbedder
	entities entity.Extractor
}

// NewTiered creates a tiered embedder. model may be nil, in which case every
// call takes the hash tier. extractor may be nil (no-op).
func NewTiered(model Embedder, extractor entity.Extractor) *Tiered {
	if extractor == nil {
		extractor = entity.Noop{}
	}
	return &Tiered{
		model:    model,
		fallback: NewHashEmbedder(),
		entities: extractor,
	}
}

// Dims reports the tier-1 dimensionality when a model is configured, the
// hash tier's otherwise.
func (t *Tiered) Dims() int {
	if t.model != nil {
		return t.model.Dims()
	}
	return t.fallback.Dims()
}

// Embed converts text to a vector. Empty or whitespace-only input yields an
// empty vector with no error.
func (t *Tiered) Embed(ctx context.Context, text string) (Vector, error) {
	if strings.TrimSpace(text) == "" {
		return Vector{}, nil
	}

	// Entity augmentation is an extension point; the default extractor is a
	// no-op and the raw text is embedded as-is.
	_ = t.entities

	if t.model != nil {
		vec, err := t.model.Embed(ctx, text)
		if err == nil && len(vec) > 0 {
			return vec, nil
		}
		if err != nil {
			slog.Debug("model embedding failed, using hash fallback", "err", err)
		}
	}

	vec, _ := t.fallback.Embed(ctx, text) // never fails
	return vec, nil
}
