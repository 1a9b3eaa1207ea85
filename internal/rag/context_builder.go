package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/metrics"
)

// DefaultTopK 检索默认返回的片段数
const DefaultTopK = 6

// Snippet 提供给上层提示词拼装的单条知识片段
type Snippet struct {
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
	DocumentKey string  `json:"document_key"`
	Subject     string  `json:"subject"`
	Level       string  `json:"level"`
	ChunkIndex  int     `json:"chunk_index"`
}

// BuiltContext 一次检索的汇总结果
// Degraded 为 true 表示检索链路不可用，内容是占位回显而非真实语料
type BuiltContext struct {
	Snippets []Snippet `json:"snippets"`
	Degraded bool      `json:"degraded"`
}

// ContextBuilder 读路径: 查询向量化 → 相似度检索 → 片段汇总
// 开发环境检索失败时回退到占位结果，生产环境直接报错
type ContextBuilder struct {
	provider   EmbeddingProvider
	store      VectorStore
	topK       int
	production bool
}

// NewContextBuilder 创建检索器，topK<=0 使用默认值
func NewContextBuilder(provider EmbeddingProvider, store VectorStore, topK int, production bool) *ContextBuilder {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ContextBuilder{
		provider:   provider,
		store:      store,
		topK:       topK,
		production: production,
	}
}

// Build 为查询构建知识上下文
// topK<=0 使用构建时的默认值; 零命中返回空片段列表，不是错误
func (b *ContextBuilder) Build(ctx context.Context, query string, filters SearchFilters, topK int) (*BuiltContext, error) {
	start := time.Now()

	if topK <= 0 {
		topK = b.topK
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("查询内容不能为空")
	}

	vectors, err := b.provider.EmbedBatch(ctx, []string{query})
	if err != nil {
		return b.degrade(query, fmt.Errorf("查询向量化失败: %w", err))
	}
	if len(vectors) != 1 {
		return b.degrade(query, fmt.Errorf("%w: 查询向量化返回%d个结果", ErrProvider, len(vectors)))
	}

	results, err := b.store.Search(ctx, vectors[0], filters, topK)
	if err != nil {
		return b.degrade(query, err)
	}

	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		snippets = append(snippets, Snippet{
			Content:     r.Content,
			Score:       r.Score,
			DocumentKey: r.DocumentKey,
			Subject:     r.Subject,
			Level:       r.Level,
			ChunkIndex:  r.ChunkIndex,
		})
	}

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchResults.Observe(float64(len(snippets)))

	return &BuiltContext{Snippets: snippets}, nil
}

// degrade 开发环境返回占位片段，生产环境把错误抛给调用方
// 占位结果绝不混入真实语料，Degraded 标记让上层可识别
func (b *ContextBuilder) degrade(query string, cause error) (*BuiltContext, error) {
	if b.production {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSearch, cause)
	}

	metrics.SearchesTotal.WithLabelValues("degraded").Inc()
	logger.Get().Warn("检索链路不可用，返回降级结果", zap.Error(cause))

	return &BuiltContext{
		Degraded: true,
		Snippets: []Snippet{
			{
				Content: fmt.Sprintf("[检索暂不可用] 查询: %s", query),
				Score:   0,
			},
		},
	}, nil
}
