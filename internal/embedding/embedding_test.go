package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
		delta    float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}, 0.0, 0.001},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}, -1.0, 0.001},
		{"similar", Vector{1, 1, 0}, Vector{1, 0, 0}, 0.707, 0.01},
		{"empty", Vector{}, Vector{}, 0.0, 0.001},
		{"different lengths", Vector{1, 0}, Vector{1, 0, 0}, 0.0, 0.001},
		{"zero vector", Vector{0, 0, 0}, Vector{1, 0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f (±%f)", tt.a, tt.b, got, tt.expected, tt.delta)
			}
		})
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := Vector{0.3, -0.2, 0.9, 0.1}
	b := Vector{-0.5, 0.4, 0.2, 0.8}
	if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
		t.Error("cosine similarity is not symmetric")
	}
}

func TestModelFromEnv_Disabled(t *testing.T) {
	t.Setenv("MNEMO_EMBED_PROVIDER", "")
	t.Setenv("OPENAI_API_KEY", "")
	if e := ModelFromEnv(); e != nil {
		t.Error("expected nil embedder when no provider configured")
	}
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder()
	ctx := context.Background()

	a, err := h.Embed(ctx, "the same text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := h.Embed(ctx, "the same text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(a) != HashDims {
		t.Fatalf("expected %d dims, got %d", HashDims, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs across calls: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestHashEmbedder_CaseAndSpaceInsensitive(t *testing.T) {
	h := NewHashEmbedder()
	ctx := context.Background()

	a, _ := h.Embed(ctx, "Hello World")
	b, _ := h.Embed(ctx, "  hello world\n")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs after normalization: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestHashEmbedder_UnitNorm(t *testing.T) {
	h := NewHashEmbedder()
	vec, err := h.Embed(context.Background(), "some text to embed")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 0.001 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(sum))
	}
}

func TestHashEmbedder_EmptyInput(t *testing.T) {
	h := NewHashEmbedder()
	vec, err := h.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 0 {
		t.Errorf("expected empty vector for blank input, got %d dims", len(vec))
	}
}

func TestHashEmbedder_DistinctTexts(t *testing.T) {
	h := NewHashEmbedder()
	ctx := context.Background()
	a, _ := h.Embed(ctx, "completely different content")
	b, _ := h.Embed(ctx, "another unrelated sentence")
	if CosineSimilarity(a, b) > 0.9999 {
		t.Error("distinct texts produced identical embeddings")
	}
}

// failingEmbedder simulates an unreachable sentence-level model.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	return nil, errors.New("connection refused")
}

func (failingEmbedder) Dims() int { return 768 }

// fixedEmbedder always returns the same vector.
type fixedEmbedder struct{ vec Vector }

func (f fixedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	return f.vec, nil
}

func (f fixedEmbedder) Dims() int { return len(f.vec) }

func TestTiered_FallsBackOnModelFailure(t *testing.T) {
	tiered := NewTiered(failingEmbedder{}, nil)
	vec, err := tiered.Embed(context.Background(), "fallback please")
	if err != nil {
		t.Fatalf("tiered embed should not fail: %v", err)
	}
	if len(vec) != HashDims {
		t.Errorf("expected hash fallback with %d dims, got %d", HashDims, len(vec))
	}
}

func TestTiered_PrefersModel(t *testing.T) {
	want := Vector{0.6, 0.8}
	tiered := NewTiered(fixedEmbedder{vec: want}, nil)
	vec, err := tiered.Embed(context.Background(), "use the model")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != len(want) || vec[0] != want[0] || vec[1] != want[1] {
		t.Errorf("expected model vector %v, got %v", want, vec)
	}
}

func TestTiered_NoModelUsesHash(t *testing.T) {
	tiered := NewTiered(nil, nil)
	vec, err := tiered.Embed(context.Background(), "hash tier only")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != HashDims {
		t.Errorf("expected %d dims, got %d", HashDims, len(vec))
	}
}

func TestTiered_EmptyInput(t *testing.T) {
	tiered := NewTiered(fixedEmbedder{vec: Vector{1}}, nil)
	vec, err := tiered.Embed(context.Background(), " \t ")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 0 {
		t.Errorf("expected empty vector for blank input, got %d dims", len(vec))
	}
}
