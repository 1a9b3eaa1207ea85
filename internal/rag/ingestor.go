package rag

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/storage"
)

// IngestRequest 一次文档摄取的全部输入
type IngestRequest struct {
	JobID      string
	SourcePath string // 本地临时文件路径
	DestKey    string // 持久化存储键，每文档唯一
	Subject    string
	Level      string
}

// IngestResult 摄取成功后的统计信息
type IngestResult struct {
	DocumentKey string
	SourceURL   string
	ChunkCount  int
	TokenCount  int
}

// Ingestor 文档摄取流水线
// 存储归档 → 文本提取 → 切片 → 向量化 → 入库，全程单文档原子:
// 任何一步失败都不会留下该文档的任何片段
type Ingestor struct {
	storage  storage.ObjectStorage
	parsers  parsersRegistry
	chunker  *Chunker
	provider EmbeddingProvider
	store    VectorStore
}

// parsersRegistry 避免 ingestor 直接依赖具体解析器集合，测试可替换
type parsersRegistry interface {
	Parse(fileName string, reader io.Reader) (string, error)
}

// NewIngestor 组装摄取流水线
func NewIngestor(objStore storage.ObjectStorage, registry parsersRegistry, chunker *Chunker, provider EmbeddingProvider, store VectorStore) *Ingestor {
	return &Ingestor{
		storage:  objStore,
		parsers:  registry,
		chunker:  chunker,
		provider: provider,
		store:    store,
	}
}

// Ingest 执行一次完整的文档摄取
// 返回的错误用 errors.Is 可判定失败阶段（ErrStorage/ErrExtraction/ErrProvider）
func (ing *Ingestor) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	start := time.Now()
	ctx = logger.WithJobID(ctx, req.JobID)
	log := logger.WithContext(ctx).With(zap.String("dest_key", req.DestKey))

	// 1. 归档原始文件; Put 按 destKey 幂等，重试覆盖同一个键
	sourceURL, err := ing.storage.Put(ctx, req.SourcePath, req.DestKey)
	if err != nil {
		return nil, fmt.Errorf("%w: 归档文档失败: %v", ErrStorage, err)
	}

	// 2. 提取文本
	text, err := ing.extractText(req.SourcePath, req.DestKey)
	if err != nil {
		return nil, err
	}

	// 3. 切片
	chunks := ing.chunker.Chunk(text)
	log.Info("文档切片完成", zap.Int("chunks", len(chunks)))

	// 4. 向量化; EmbedBatch 整体成功或整体失败
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := ing.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("向量化失败: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: 向量数量不匹配: 期望%d, 实际%d", ErrProvider, len(chunks), len(embeddings))
	}

	// 5. 入库; 整文档一个事务
	vectors := make([]*Vector, len(chunks))
	totalTokens := 0
	for i, c := range chunks {
		totalTokens += c.TokenCount
		vectors[i] = &Vector{
			ChunkID:           uuid.NewString(),
			DocumentKey:       req.DestKey,
			Subject:           req.Subject,
			Level:             req.Level,
			Content:           c.Content,
			ChunkIndex:        c.Index,
			From:              c.From,
			To:                c.To,
			TokenCount:        c.TokenCount,
			Embedding:         embeddings[i],
			EmbeddingModel:    ing.provider.Model(),
			EmbeddingProvider: ing.provider.Name(),
			Metadata: map[string]any{
				"chunk_index":  c.Index,
				"from":         c.From,
				"to":           c.To,
				"source_url":   sourceURL,
				"content_hash": c.ContentHash,
			},
		}
	}

	if err := ing.store.Insert(ctx, vectors); err != nil {
		return nil, fmt.Errorf("%w: 写入向量存储失败: %v", ErrStorage, err)
	}

	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	metrics.ChunksIndexedTotal.Add(float64(len(vectors)))
	log.Info("文档摄取完成",
		zap.Int("chunks", len(vectors)),
		zap.Int("tokens", totalTokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &IngestResult{
		DocumentKey: req.DestKey,
		SourceURL:   sourceURL,
		ChunkCount:  len(vectors),
		TokenCount:  totalTokens,
	}, nil
}

// extractText 打开本地文件并按扩展名提取文本
// destKey 携带原始文件名，扩展名以它为准
func (ing *Ingestor) extractText(sourcePath, destKey string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("%w: 打开源文件失败: %v", ErrExtraction, err)
	}
	defer f.Close()

	name := filepath.Base(destKey)
	text, err := ing.parsers.Parse(name, f)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return text, nil
}
