package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashDims is the fixed output dimensionality of the hash fallback tier.
const HashDims = 64

// hashSeeds are XORed into the text hash, one block of components per seed.
var hashSeeds = [8]uint64{
	0x9e3779b97f4a7c15,
	0xc2b2ae3d27d4eb4f,
	0x165667b19e3779f9,
	0x27d4eb2f165667c5,
	0x85ebca77c2b2ae63,
	0xff51afd7ed558ccd,
	0xc4ceb9fe1a85ec53,
	0x2545f4914f6cdd1d,
}

// HashEmbedder is the deterministic fallback tier. It derives a 64-dimension
// vector from a string hash and is guaranteed never to fail.
type HashEmbedder struct{}

// NewHashEmbedder creates the hash fallback embedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

func (h *HashEmbedder) Dims() int { return HashDims }

// Embed hashes the lowercased, trimmed text and expands it into a unit
// vector. Empty or whitespace-only input yields an empty vector, the valid
// "no embedding" signal.
func (h *HashEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Vector{}, nil
	}

	hasher := fnv.New64a()
	hasher.Write([]byte(text))
	base := hasher.Sum64()

	vec := make(Vector, 0, HashDims)
	for _, seed := range hashSeeds {
		combined := base ^ seed
		// Eight byte-scale components per seed, scaled to [0,1].
		for shift := 0; shift < 64; shift += 8 {
			vec = append(vec, float32(combined>>shift&0xff)/255.0)
		}
	}

	vec = normalize(vec)

	// Output width is fixed at HashDims regardless of the seed set size.
	if len(vec) > HashDims {
		vec = vec[:HashDims]
	}
	for len(vec) < HashDims {
		vec = append(vec, 0)
	}
	return vec, nil
}

// normalize scales vec to unit length. Zero vectors pass through unchanged.
func normalize(vec Vector) Vector {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := 1 / math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) * inv)
	}
	return vec
}
