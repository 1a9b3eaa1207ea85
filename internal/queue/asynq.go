package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"backend/internal/config"
	"backend/internal/rag"
)

// AsynqTransport 基于 Redis 的持久化队列
// 任务落盘后 Enqueue 即返回，进程重启不丢任务
type AsynqTransport struct {
	client      *asynq.Client
	jobs        *rag.JobStore
	maxAttempts int
}

// NewAsynqTransport 创建持久化队列客户端
func NewAsynqTransport(redisCfg *config.RedisConfig, queueCfg *config.QueueConfig, jobs *rag.JobStore) *AsynqTransport {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	maxAttempts := queueCfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &AsynqTransport{client: client, jobs: jobs, maxAttempts: maxAttempts}
}

// EnqueueIngest 先落任务记录再投递
// TaskID 用 JobID，同一任务重复投递会被队列去重
func (t *AsynqTransport) EnqueueIngest(ctx context.Context, payload *IngestPayload) (string, error) {
	if err := registerJob(ctx, t.jobs, payload); err != nil {
		return "", err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化任务载荷失败: %w", err)
	}

	task := asynq.NewTask(TypeIngestDocument, data)

	// asynq 的 MaxRetry 不含首次执行，总尝试次数 = MaxRetry + 1
	_, err = t.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(t.maxAttempts-1),
		asynq.Timeout(10*time.Minute),
		asynq.TaskID(payload.JobID),
	)
	if err != nil {
		return "", fmt.Errorf("投递摄取任务失败: %w", err)
	}

	return payload.JobID, nil
}

// Close 关闭队列连接
func (t *AsynqTransport) Close() error {
	return t.client.Close()
}
