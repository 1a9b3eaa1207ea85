package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryVectorStore 内存向量存储，线性扫描 + 余弦相似度
// 用于开发环境和测试，不依赖 PostgreSQL; 进程退出数据即丢失
type MemoryVectorStore struct {
	mu      sync.RWMutex
	vectors []*Vector
}

// NewMemoryVectorStore 创建内存向量存储
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{}
}

// Insert 追加写入，保持插入顺序
func (s *MemoryVectorStore) Insert(ctx context.Context, vectors []*Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	copied := make([]*Vector, 0, len(vectors))
	for _, vec := range vectors {
		if len(vec.Embedding) == 0 {
			return fmt.Errorf("向量不能为空: chunk=%s", vec.ChunkID)
		}
		c := *vec
		copied = append(copied, &c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = append(s.vectors, copied...)
	return nil
}

// Search 线性扫描全部向量，过滤后按相似度降序取前 topK
// 同分片段按插入顺序稳定排列
func (s *MemoryVectorStore) Search(ctx context.Context, queryVector []float32, filters SearchFilters, topK int) ([]*SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: 查询向量不能为空", ErrSearch)
	}
	if topK <= 0 {
		topK = 6
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		vec   *Vector
		score float64
		order int
	}

	candidates := make([]scored, 0, len(s.vectors))
	for i, vec := range s.vectors {
		if filters.Subject != "" && vec.Subject != filters.Subject {
			continue
		}
		if filters.Level != "" && vec.Level != filters.Level {
			continue
		}
		candidates = append(candidates, scored{
			vec:   vec,
			score: cosineSimilarity(queryVector, vec.Embedding),
			order: i,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]*SearchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, &SearchResult{
			ChunkID:     c.vec.ChunkID,
			DocumentKey: c.vec.DocumentKey,
			Subject:     c.vec.Subject,
			Level:       c.vec.Level,
			Content:     c.vec.Content,
			ChunkIndex:  c.vec.ChunkIndex,
			TokenCount:  c.vec.TokenCount,
			Score:       clampScore(c.score),
			Metadata:    c.vec.Metadata,
		})
	}

	return results, nil
}

// Count 返回已存储的向量数量，测试用
func (s *MemoryVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// cosineSimilarity 计算余弦相似度，维度不一致按较短的算
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
