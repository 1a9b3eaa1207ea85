package rag

import (
	"context"
	"fmt"

	"backend/internal/config"
)

// EmbeddingProvider 抽象不同向量化后端的统一接口
// EmbedBatch 对调用方是原子的: 要么每个输入都有向量，要么整体失败，不产生部分结果
type EmbeddingProvider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Name() string

	// NativeDimensions 后端原生输出维度; 0 表示由请求参数决定
	NativeDimensions() int
}

// NewProviderFromConfig 按配置选择向量化后端
// 无论哪个后端，输出都经过统一的维度修正，长度恒等于 cfg.Dimensions
func NewProviderFromConfig(cfg *config.EmbeddingConfig) (EmbeddingProvider, error) {
	var inner EmbeddingProvider

	switch cfg.Provider {
	case "", "openai":
		inner = NewOpenAIEmbeddingProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Dimensions)
	case "ollama":
		inner = NewOllamaEmbeddingProvider(cfg.BaseURL, cfg.Model, cfg.Timeout())
	default:
		return nil, fmt.Errorf("不支持的向量化后端: %s (可选: openai, ollama)", cfg.Provider)
	}

	return FixedDimensions(inner, cfg.Dimensions), nil
}
