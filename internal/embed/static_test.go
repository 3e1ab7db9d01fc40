package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider_Deterministic(t *testing.T) {
	p := NewStaticProvider(DefaultDimensions)

	a, err := p.Embed(context.Background(), "reverses a linked list in place")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "reverses a linked list in place")
	require.NoError(t, err)

	assert.Equal(t, a, b, "same text must produce the same vector")
	assert.Len(t, a, DefaultDimensions)
}

func TestStaticProvider_EmptyTextIsZeroVector(t *testing.T) {
	p := NewStaticProvider(64)

	vec, err := p.Embed(context.Background(), "   \n\t ")
	require.NoError(t, err)

	for i, v := range vec {
		if v != 0 {
			t.Fatalf("component %d = %f, want 0 for empty input", i, v)
		}
	}
}

func TestStaticProvider_UnitLength(t *testing.T) {
	p := NewStaticProvider(DefaultDimensions)

	vec, err := p.Embed(context.Background(), "quicksort implementation with random pivot")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4, "non-empty embeddings are normalized")
}

func TestStaticProvider_SimilarTextCloserThanUnrelated(t *testing.T) {
	p := NewStaticProvider(DefaultDimensions)
	ctx := context.Background()

	query, _ := p.Embed(ctx, "binary search over a sorted array")
	near, _ := p.Embed(ctx, "searches a sorted array with binary search")
	far, _ := p.Embed(ctx, "parses YAML configuration files")

	if cosine(query, near) <= cosine(query, far) {
		t.Errorf("expected related text to score higher: near=%f far=%f",
			cosine(query, near), cosine(query, far))
	}
}

func TestTokenize_SplitsIdentifiers(t *testing.T) {
	tokens := tokenize("BinarySearchTree insert_node HTTPServer")

	assert.Contains(t, tokens, "binary")
	assert.Contains(t, tokens, "search")
	assert.Contains(t, tokens, "tree")
	assert.Contains(t, tokens, "insert")
	assert.Contains(t, tokens, "node")
	assert.Contains(t, tokens, "http")
	assert.Contains(t, tokens, "server")
}

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot // both inputs are unit length
}
