package rag

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PGVectorStore 基于 PostgreSQL pgvector 扩展的向量存储实现
// 追加写 + 余弦距离检索; ivfflat 索引随语料增长保持检索效率
type PGVectorStore struct {
	db   *gorm.DB
	dims int
}

// NewPGVectorStore 创建 pgvector 存储实例并初始化表结构
func NewPGVectorStore(db *gorm.DB, dims int) (*PGVectorStore, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("向量维度必须大于 0")
	}

	store := &PGVectorStore{db: db, dims: dims}
	if err := store.ensureSchema(); err != nil {
		return nil, fmt.Errorf("初始化向量存储表结构失败: %w", err)
	}

	return store, nil
}

// ensureSchema 启用扩展并建表建索引
// seq 列记录插入顺序，相似度并列时作为稳定的次级排序键
func (s *PGVectorStore) ensureSchema() error {
	if err := s.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS knowledge_chunks (
			id uuid PRIMARY KEY,
			seq bigserial,
			document_key varchar(500) NOT NULL,
			subject varchar(100),
			level varchar(100),
			content text NOT NULL,
			token_count int DEFAULT 0,
			embedding vector(%d),
			embedding_model varchar(100),
			embedding_provider varchar(50),
			metadata jsonb,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, s.dims)
	if err := s.db.Exec(ddl).Error; err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_document_key ON knowledge_chunks (document_key)",
		"CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_subject ON knowledge_chunks (subject)",
		"CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_level ON knowledge_chunks (level)",
		"CREATE INDEX IF NOT EXISTS idx_knowledge_chunks_embedding ON knowledge_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)",
	}
	for _, idx := range indexes {
		if err := s.db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}

// Insert 批量写入向量
// 事务内逐条插入，任何一条失败整体回滚，不留下半个文档
func (s *PGVectorStore) Insert(ctx context.Context, vectors []*Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, vec := range vectors {
			if len(vec.Embedding) != s.dims {
				return fmt.Errorf("向量维度不匹配: 期望%d, 实际%d", s.dims, len(vec.Embedding))
			}

			chunk := &KnowledgeChunk{
				ID:                vec.ChunkID,
				DocumentKey:       vec.DocumentKey,
				Subject:           vec.Subject,
				Level:             vec.Level,
				Content:           vec.Content,
				TokenCount:        vec.TokenCount,
				Embedding:         pgvector.NewVector(vec.Embedding).String(),
				EmbeddingModel:    vec.EmbeddingModel,
				EmbeddingProvider: vec.EmbeddingProvider,
				Metadata:          datatypes.JSONMap(vec.Metadata),
			}

			if err := tx.Create(chunk).Error; err != nil {
				return fmt.Errorf("创建知识片段失败: %w", err)
			}
		}
		return nil
	})
}

// Search 余弦相似度检索
// <=> 是 pgvector 的余弦距离操作符; 过滤条件先于排序生效
func (s *PGVectorStore) Search(ctx context.Context, queryVector []float32, filters SearchFilters, topK int) ([]*SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: 查询向量不能为空", ErrSearch)
	}
	if topK <= 0 {
		topK = 6
	}

	vectorStr := pgvector.NewVector(queryVector).String()

	query := `
		SELECT
			id,
			document_key,
			subject,
			level,
			content,
			token_count,
			metadata,
			1 - (embedding <=> ?::vector) AS similarity
		FROM knowledge_chunks
		WHERE (? = '' OR subject = ?)
			AND (? = '' OR level = ?)
		ORDER BY embedding <=> ?::vector, seq
		LIMIT ?
	`

	var rows []struct {
		ID          string            `gorm:"column:id"`
		DocumentKey string            `gorm:"column:document_key"`
		Subject     string            `gorm:"column:subject"`
		Level       string            `gorm:"column:level"`
		Content     string            `gorm:"column:content"`
		TokenCount  int               `gorm:"column:token_count"`
		Metadata    datatypes.JSONMap `gorm:"column:metadata"`
		Similarity  float64           `gorm:"column:similarity"`
	}

	err := s.db.WithContext(ctx).
		Raw(query,
			vectorStr,
			filters.Subject, filters.Subject,
			filters.Level, filters.Level,
			vectorStr,
			topK,
		).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: 向量检索失败: %v", ErrSearch, err)
	}

	results := make([]*SearchResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, &SearchResult{
			ChunkID:     r.ID,
			DocumentKey: r.DocumentKey,
			Subject:     r.Subject,
			Level:       r.Level,
			Content:     r.Content,
			ChunkIndex:  chunkIndexFromMetadata(r.Metadata),
			TokenCount:  r.TokenCount,
			Score:       clampScore(r.Similarity),
			Metadata:    map[string]any(r.Metadata),
		})
	}

	return results, nil
}

// chunkIndexFromMetadata 从 jsonb 元数据恢复片段序号
// jsonb 反序列化后数值是 float64
func chunkIndexFromMetadata(meta map[string]any) int {
	switch v := meta["chunk_index"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
