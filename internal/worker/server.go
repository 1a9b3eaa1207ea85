package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"backend/internal/config"
	"backend/internal/queue"
	"backend/internal/worker/handlers"
)

// Server 摄取任务消费端
// 生命周期由调用方显式控制: Start/Run 启动，Shutdown 等待在途任务完成
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewServer 创建 worker 服务器
func NewServer(
	redisCfg *config.RedisConfig,
	queueCfg *config.QueueConfig,
	ingestHandler *handlers.IngestHandler,
	logger *zap.Logger,
) *Server {
	concurrency := queueCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	baseDelay := queueCfg.RetryBaseDelay()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queue.QueueName: 1,
			},
			// 指数退避: base * 2^n
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return baseDelay << n
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("任务执行失败",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeIngestDocument, ingestHandler.HandleIngestDocument)

	return &Server{
		server: srv,
		mux:    mux,
		logger: logger,
	}
}

// Run 阻塞启动，收到信号后返回
func (s *Server) Run() error {
	s.logger.Info("Worker 服务器启动中...")
	return s.server.Run(s.mux)
}

// Start 非阻塞启动，与 API 服务器同进程部署时使用
func (s *Server) Start() error {
	s.logger.Info("Worker 服务器启动中 (后台)...")
	return s.server.Start(s.mux)
}

// Shutdown 停止消费并等待在途任务完成
func (s *Server) Shutdown() {
	s.logger.Info("Worker 服务器停止中...")
	s.server.Shutdown()
}
