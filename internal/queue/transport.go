package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"backend/internal/rag"
)

// TypeIngestDocument 文档摄取任务类型
const TypeIngestDocument = "rag:ingest_document"

// QueueName 摄取任务所在队列
const QueueName = "rag"

// IngestPayload 摄取任务载荷，入队时序列化为 JSON
type IngestPayload struct {
	JobID      string `json:"job_id"`
	SourcePath string `json:"source_path"`
	DestKey    string `json:"dest_key"`
	Subject    string `json:"subject"`
	Level      string `json:"level"`
}

// Transport 摄取任务的投递通道
// 生产环境走 Redis 持久化队列; 开发/测试环境可用进程内同步执行
// 两种实现共享同一套任务状态机和重试语义，投递前都先落任务记录,
// 任务绝不会无声丢失
type Transport interface {
	// EnqueueIngest 登记并投递一个摄取任务，返回任务 ID
	// 持久化队列落盘即返回; 进程内实现同步执行完（含重试）才返回
	EnqueueIngest(ctx context.Context, payload *IngestPayload) (string, error)

	Close() error
}

// ProcessFunc 单次摄取尝试的执行函数
// lastAttempt 为 true 表示这是最后一次尝试，失败即终态
type ProcessFunc func(ctx context.Context, payload *IngestPayload, lastAttempt bool) error

// registerJob 投递前先落任务记录（queued，attempts 0）
// 载荷未带 JobID 时在此生成
func registerJob(ctx context.Context, jobs *rag.JobStore, payload *IngestPayload) error {
	if payload.JobID == "" {
		payload.JobID = uuid.NewString()
	}

	job := &rag.IngestJob{
		ID:         payload.JobID,
		SourcePath: payload.SourcePath,
		DestKey:    payload.DestKey,
		Subject:    payload.Subject,
		Level:      payload.Level,
	}
	if err := jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("登记摄取任务失败: %w", err)
	}
	return nil
}
