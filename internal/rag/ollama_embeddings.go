package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaEmbeddingProvider 本地模型向量化提供者
// 本地模型输出固定的原生维度（如 all-minilm 为 384），与全局配置无关,
// 由外层的维度修正统一到目标长度; 输出未做单位归一化
type OllamaEmbeddingProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaEmbeddingProvider 创建本地向量化提供者
func NewOllamaEmbeddingProvider(baseURL, model string, timeout time.Duration) *OllamaEmbeddingProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "all-minilm"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second // 本地推理可能较慢
	}

	return &OllamaEmbeddingProvider{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// EmbedBatch 批量向量化文本
// 本地 API 按单条处理，循环调用; 任何一条失败整体失败，不保留部分结果
func (p *OllamaEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vec, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: 本地向量化失败(第%d条): %v", ErrProvider, i, err)
		}
		embeddings = append(embeddings, vec)
	}

	return embeddings, nil
}

// embedOne 调用本地模型向量化单条文本
func (p *OllamaEmbeddingProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model":  p.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求本地模型失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("本地模型返回错误: status=%d body=%s", resp.StatusCode, string(data))
	}

	var embedResp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("本地模型返回空向量")
	}

	vec := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Model 获取当前使用的模型
func (p *OllamaEmbeddingProvider) Model() string {
	return p.model
}

// Name 获取提供商名称
func (p *OllamaEmbeddingProvider) Name() string {
	return "ollama"
}

// NativeDimensions 原生维度，默认模型 all-minilm 为 384
func (p *OllamaEmbeddingProvider) NativeDimensions() int {
	return 384
}
