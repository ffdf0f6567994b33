package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	s := 0.0
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestEmbedder_Dimension(t *testing.T) {
	assert.Equal(t, DefaultDimension, NewEmbedder(0).Dimension())
	assert.Equal(t, 64, NewEmbedder(64).Dimension())
}

func TestEmbedder_Normalized(t *testing.T) {
	e := NewEmbedder(128)
	vecs, err := e.EmbedBatch(context.Background(), []string{"Saliva contains amylase enzymes."})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Len(t, vecs[0], 128)
	assert.InDelta(t, 1.0, math.Sqrt(dot(vecs[0], vecs[0])), 1e-5)
}

func TestEmbedder_StopwordsOnlyIsZero(t *testing.T) {
	e := NewEmbedder(16)
	vecs, err := e.EmbedBatch(context.Background(), []string{"the and of"})
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vecs[0])
}

func TestEmbedder_Deterministic(t *testing.T) {
	texts := []string{"pellagra symptoms", "niacin deficiency"}
	a, err := NewEmbedder(256).EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	b, err := NewEmbedder(256).EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewEmbedder(1024)
	vecs, err := e.EmbedBatch(context.Background(), []string{
		"infants should be breastfed often",
		"how often should infants be breastfed",
		"vitamin c dissolves in water",
	})
	require.NoError(t, err)
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbedder(8).EmbedBatch(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}
