package rag

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbeddingProvider 远程 API 向量化服务提供者
// 请求时直接向服务端声明目标维度，返回向量已做单位归一化（服务端行为）,
// 因此点积与余弦相似度一致
type OpenAIEmbeddingProvider struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbeddingProvider 创建远程 API 向量化提供者
// model 为空时默认 text-embedding-3-large
func NewOpenAIEmbeddingProvider(apiKey, baseURL, model string, dims int) *OpenAIEmbeddingProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if model == "" {
		model = string(openai.LargeEmbedding3)
	}

	return &OpenAIEmbeddingProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dims:   dims,
	}
}

// EmbedBatch 批量向量化文本
// API 限制单次请求最多 2048 个输入，超出时分批; 任何一批失败整体失败
func (p *OpenAIEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const batchSize = 2048
	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := p.embedBatchInternal(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("%w: 批量向量化失败(batch %d-%d): %v", ErrProvider, i, end, err)
		}

		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

// embedBatchInternal 单次 API 调用
func (p *OpenAIEmbeddingProvider) embedBatchInternal(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	}
	// 向服务端声明目标维度，省掉本地截断
	if p.dims > 0 {
		req.Dimensions = p.dims
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("调用 Embeddings API 失败: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("API 返回向量数量不匹配: 期望%d, 实际%d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = data.Embedding
	}

	return embeddings, nil
}

// Model 获取当前使用的模型
func (p *OpenAIEmbeddingProvider) Model() string {
	return p.model
}

// Name 获取提供商名称
func (p *OpenAIEmbeddingProvider) Name() string {
	return "openai"
}

// NativeDimensions 输出维度由请求参数决定
func (p *OpenAIEmbeddingProvider) NativeDimensions() int {
	return 0
}
