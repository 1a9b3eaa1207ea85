package rag

import "context"

// Vector 描述一条待写入向量存储的知识片段
type Vector struct {
	ChunkID           string
	DocumentKey       string
	Subject           string
	Level             string
	Content           string
	ChunkIndex        int
	From              int
	To                int
	TokenCount        int
	Embedding         []float32
	EmbeddingModel    string
	EmbeddingProvider string
	Metadata          map[string]any
}

// SearchFilters 检索过滤条件，空字段表示不过滤
type SearchFilters struct {
	Subject string
	Level   string
}

// SearchResult 描述一次相似度检索的单条结果
// Score 是余弦相似度（1 - 余弦距离）截断到 [0,1]
type SearchResult struct {
	ChunkID     string         `json:"chunk_id"`
	DocumentKey string         `json:"document_key"`
	Subject     string         `json:"subject"`
	Level       string         `json:"level"`
	Content     string         `json:"content"`
	ChunkIndex  int            `json:"chunk_index"`
	TokenCount  int            `json:"token_count"`
	Score       float64        `json:"score"`
	Metadata    map[string]any `json:"metadata"`
}

// VectorStore 抽象向量写入与检索，可由不同后端实现（pgvector、内存线性扫描）
// 写路径只追加; Insert 对一个文档的全部片段是原子的
// 读路径按余弦相似度降序排序，过滤在排序前生效，同分按插入顺序稳定排列
type VectorStore interface {
	Insert(ctx context.Context, vectors []*Vector) error
	Search(ctx context.Context, queryVector []float32, filters SearchFilters, topK int) ([]*SearchResult, error)
}

// clampScore 把相似度截断到 [0,1]
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
