package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	dims int
}

func (s *stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	res := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, s.dims)
		for j := range vec {
			vec[j] = float32(j + 1)
		}
		res[i] = vec
	}
	return res, nil
}

func (s *stubProvider) Model() string         { return "stub-model" }
func (s *stubProvider) Name() string          { return "stub" }
func (s *stubProvider) NativeDimensions() int { return s.dims }

func TestFixedDimensionsIdentity(t *testing.T) {
	p := FixedDimensions(&stubProvider{dims: 3072}, 3072)

	vecs, err := p.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, vecs[0], 3072)
	require.Equal(t, float32(1), vecs[0][0])
}

func TestFixedDimensionsZeroPad(t *testing.T) {
	// 本地模型 384 维补零到全局 3072 维
	p := FixedDimensions(&stubProvider{dims: 384}, 3072)

	vecs, err := p.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, vecs[0], 3072)
	require.Equal(t, float32(384), vecs[0][383])
	for i := 384; i < 3072; i++ {
		require.Equal(t, float32(0), vecs[0][i])
	}
}

func TestFixedDimensionsTruncate(t *testing.T) {
	p := FixedDimensions(&stubProvider{dims: 4096}, 3072)

	vecs, err := p.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, vecs[0], 3072)
	require.Equal(t, float32(3072), vecs[0][3071])
}

func TestFixedDimensionsReportsTarget(t *testing.T) {
	p := FixedDimensions(&stubProvider{dims: 384}, 3072)
	require.Equal(t, 3072, p.NativeDimensions())
}
