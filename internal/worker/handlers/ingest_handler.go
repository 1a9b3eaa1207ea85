package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/queue"
	"backend/internal/rag"
)

// IngestHandler 消费摄取任务，驱动任务状态机
// 状态迁移只发生在这里: queued → active → completed/failed
type IngestHandler struct {
	ingestor *rag.Ingestor
	jobs     *rag.JobStore
	logger   *zap.Logger
}

// NewIngestHandler 创建摄取任务处理器
func NewIngestHandler(ingestor *rag.Ingestor, jobs *rag.JobStore, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		ingestor: ingestor,
		jobs:     jobs,
		logger:   logger,
	}
}

// HandleIngestDocument asynq 入口，解包载荷并判断是否最后一次尝试
func (h *IngestHandler) HandleIngestDocument(ctx context.Context, t *asynq.Task) error {
	var p queue.IngestPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("解析任务载荷失败: %w: %v", asynq.SkipRetry, err)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	lastAttempt := retried >= maxRetry

	return h.Process(ctx, &p, lastAttempt)
}

// Process 执行一次摄取尝试
// 进程内队列也走这条路径，两种投递通道共享同一个状态机
func (h *IngestHandler) Process(ctx context.Context, p *queue.IngestPayload, lastAttempt bool) error {
	ctx = logger.WithJobID(ctx, p.JobID)
	log := h.logger.With(
		zap.String("job_id", p.JobID),
		zap.String("dest_key", p.DestKey),
	)
	log.Info("开始处理摄取任务")

	if err := h.jobs.MarkActive(ctx, p.JobID); err != nil {
		return fmt.Errorf("标记任务进行中失败: %w", err)
	}

	_, err := h.ingestor.Ingest(ctx, &rag.IngestRequest{
		JobID:      p.JobID,
		SourcePath: p.SourcePath,
		DestKey:    p.DestKey,
		Subject:    p.Subject,
		Level:      p.Level,
	})

	if err == nil {
		if markErr := h.jobs.MarkCompleted(ctx, p.JobID); markErr != nil {
			log.Error("标记任务完成失败", zap.Error(markErr))
		}
		metrics.IngestJobsTotal.WithLabelValues(rag.JobStatusCompleted).Inc()
		h.removeTemp(p.SourcePath, log)
		log.Info("摄取任务完成")
		return nil
	}

	log.Error("摄取任务失败", zap.Bool("last_attempt", lastAttempt), zap.Error(err))

	if lastAttempt {
		// 终态失败才清理临时文件，保留中间重试的输入
		if markErr := h.jobs.MarkFailed(ctx, p.JobID, err); markErr != nil {
			log.Error("标记任务失败状态失败", zap.Error(markErr))
		}
		metrics.IngestJobsTotal.WithLabelValues(rag.JobStatusFailed).Inc()
		h.removeTemp(p.SourcePath, log)
	} else {
		if markErr := h.jobs.Requeue(ctx, p.JobID, err); markErr != nil {
			log.Error("标记任务重新排队失败", zap.Error(markErr))
		}
	}

	return err
}

// removeTemp 摄取结束后删除本地临时文件，删除失败只告警
func (h *IngestHandler) removeTemp(path string, log *zap.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("删除临时文件失败", zap.String("path", path), zap.Error(err))
	}
}
