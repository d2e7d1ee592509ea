package embedding

import (
	"context"

	"github.com/dgraph-io/ristretto"
)

// Cached wraps an embedder with an in-process ristretto cache so repeated
// text (re-imports, repeated queries) does not re-call the model.
type Cached struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCached wraps inner with a cache sized for roughly 10k vectors.
func NewCached(inner Embedder) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Dims() int { return c.inner.Dims() }

func (c *Cached) Embed(ctx context.Context, text string) (Vector, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.(Vector); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, 1)
	return vec, nil
}

// Close releases the cache's internal goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}
