package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	embedder := NewMockEmbedder()

	first, err := embedder.EmbedText(ctx, "owns a vehicle")
	require.NoError(t, err)
	second, err := embedder.EmbedText(ctx, "owns a vehicle")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := embedder.EmbedText(ctx, "household income")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	assert.Equal(t, 3, embedder.CallCount())
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	embedder := NewMockEmbedder()

	vec, err := embedder.EmbedText(context.Background(), "regular gym exercise")
	require.NoError(t, err)
	require.Len(t, vec, 384)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-4)
}

func TestMockEmbedderInjection(t *testing.T) {
	ctx := context.Background()
	embedder := NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	vec, err := embedder.EmbedText(ctx, "anything")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)

	embedder.Reset()
	assert.Equal(t, 0, embedder.CallCount())
	vec, err = embedder.EmbedText(ctx, "anything")
	require.NoError(t, err)
	assert.Len(t, vec, 384)
}

func TestMockProvider(t *testing.T) {
	provider := NewMockProvider()
	require.NotNil(t, provider.Embedder())
	assert.NoError(t, provider.Close())

	custom := NewMockEmbedder()
	wrapped := NewMockProviderWithEmbedder(custom)
	concrete, ok := wrapped.(*MockProvider)
	require.True(t, ok)
	assert.Same(t, custom, concrete.GetMockEmbedder())
}
