package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestHash(t *testing.T) {
	embed := Hash(DefaultDimensions)
	ctx := context.Background()

	a, err := embed(ctx, "likes SUVs")
	require.NoError(t, err)
	require.Len(t, a, DefaultDimensions)

	again, err := embed(ctx, "Likes SUVs!")
	require.NoError(t, err)
	assert.Equal(t, a, again, "case and punctuation are ignored")

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 0.0001)

	related, err := embed(ctx, "which SUVs are good")
	require.NoError(t, err)
	unrelated, err := embed(ctx, "lives in Oslo")
	require.NoError(t, err)
	assert.Greater(t, dot(a, related), dot(a, unrelated))
}

func TestHash_Empty(t *testing.T) {
	vec, err := Hash(0)(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, vec, DefaultDimensions)
	assert.Equal(t, float32(1), vec[0])
}
