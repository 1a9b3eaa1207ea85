package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/rag"
)

// InlineTransport 进程内同步执行的队列实现
// 开发环境没有 Redis 时使用; 任务在 EnqueueIngest 内部执行完再返回
// 重试语义与持久化队列一致: 同样的尝试上限和指数退避
type InlineTransport struct {
	process     ProcessFunc
	jobs        *rag.JobStore
	maxAttempts int
	baseDelay   time.Duration
}

// NewInlineTransport 创建进程内队列
func NewInlineTransport(process ProcessFunc, maxAttempts int, baseDelay time.Duration, jobs *rag.JobStore) *InlineTransport {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &InlineTransport{
		process:     process,
		jobs:        jobs,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// EnqueueIngest 先落任务记录，再同步执行，失败按指数退避重试
func (t *InlineTransport) EnqueueIngest(ctx context.Context, payload *IngestPayload) (string, error) {
	if err := registerJob(ctx, t.jobs, payload); err != nil {
		return "", err
	}

	var lastErr error

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		lastAttempt := attempt == t.maxAttempts

		lastErr = t.process(ctx, payload, lastAttempt)
		if lastErr == nil {
			return payload.JobID, nil
		}

		if lastAttempt {
			break
		}

		// 与持久化队列同样的退避曲线: base * 2^(attempt-1)
		delay := t.baseDelay << (attempt - 1)
		logger.Get().Warn("摄取任务失败，等待重试",
			zap.String("job_id", payload.JobID),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return payload.JobID, ctx.Err()
		}
	}

	return payload.JobID, lastErr
}

// Close 无资源需要释放
func (t *InlineTransport) Close() error {
	return nil
}
