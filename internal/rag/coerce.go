package rag

import "context"

// dimensionAdapter 把任意后端的输出统一到固定维度
// 修正逻辑只存在这一处，套在哪个后端外面行为都一致:
// 原生维度超出目标则截断，不足则补零
type dimensionAdapter struct {
	inner EmbeddingProvider
	dims  int
}

// FixedDimensions 包装后端，保证每个输出向量长度恒为 dims
func FixedDimensions(inner EmbeddingProvider, dims int) EmbeddingProvider {
	if dims <= 0 {
		return inner
	}
	return &dimensionAdapter{inner: inner, dims: dims}
}

func (a *dimensionAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := a.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	for i, vec := range vectors {
		vectors[i] = coerceDimensions(vec, a.dims)
	}
	return vectors, nil
}

func (a *dimensionAdapter) Model() string { return a.inner.Model() }
func (a *dimensionAdapter) Name() string  { return a.inner.Name() }

// NativeDimensions 对外表现为固定的目标维度
func (a *dimensionAdapter) NativeDimensions() int { return a.dims }

// coerceDimensions 截断或补零到目标维度
func coerceDimensions(vec []float32, dims int) []float32 {
	switch {
	case len(vec) == dims:
		return vec
	case len(vec) > dims:
		return vec[:dims]
	default:
		padded := make([]float32, dims)
		copy(padded, vec)
		return padded
	}
}
