package rag

import (
	"time"

	"gorm.io/datatypes"
)

// KnowledgeChunk 知识片段，检索的最小单元
// 由 worker 在一次成功摄取中批量创建，此后不可变; 只有文档级清除（外部流程）会删除
type KnowledgeChunk struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	DocumentKey string `json:"documentKey" gorm:"size:500;not null;index"`

	// 分类标签，检索时做等值过滤
	Subject string `json:"subject" gorm:"size:100;index"`
	Level   string `json:"level" gorm:"size:100;index"`

	Content    string `json:"content" gorm:"type:text;not null"`
	TokenCount int    `json:"tokenCount" gorm:"default:0"`

	// 向量（PostgreSQL pgvector 类型）
	// 长度恒等于配置的全局维度，与产生它的后端无关
	Embedding         string            `json:"-" gorm:"type:vector(3072)"`
	EmbeddingModel    string            `json:"embeddingModel" gorm:"size:100"`
	EmbeddingProvider string            `json:"embeddingProvider" gorm:"size:50"`
	Metadata          datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
}

// 摄取任务状态机: queued -> active -> completed | failed
// 失败重试时回到 queued，attempts 只增不减
const (
	JobStatusQueued    = "queued"
	JobStatusActive    = "active"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// IngestJob 摄取任务记录
// 上传入口入队时创建; 状态只通过 JobStore 的操作迁移，worker 是唯一的写方
type IngestJob struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	SourcePath string `json:"sourcePath" gorm:"size:1000;not null"` // 本地临时文件
	DestKey    string `json:"destKey" gorm:"size:500;not null"`     // 持久化存储键，每文档唯一

	Subject string `json:"subject" gorm:"size:100"`
	Level   string `json:"level" gorm:"size:100"`

	Attempts int    `json:"attempts" gorm:"default:0"`
	Status   string `json:"status" gorm:"size:20;not null;default:queued;index"`
	Error    string `json:"error,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}
