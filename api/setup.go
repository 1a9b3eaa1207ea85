package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/queue"
	"backend/internal/rag"
	"backend/internal/rag/parsers"
	"backend/internal/storage"
	"backend/internal/worker"
	"backend/internal/worker/handlers"
)

// AppContainer 聚合应用的全部依赖
// WorkerServer 仅在持久化队列模式下存在，进程内模式为 nil
type AppContainer struct {
	DB     *gorm.DB
	Config *config.Config

	VectorStore rag.VectorStore
	Provider    rag.EmbeddingProvider
	Ingestor    *rag.Ingestor
	JobStore    *rag.JobStore
	Builder     *rag.ContextBuilder

	Transport    queue.Transport
	WorkerServer *worker.Server
}

// NewAppContainer 按配置组装摄取流水线与检索链路
func NewAppContainer(db *gorm.DB, cfg *config.Config) (*AppContainer, error) {
	// 向量存储: 生产用 pgvector，开发/测试用内存实现
	var store rag.VectorStore
	switch cfg.RAG.VectorStore {
	case "", "pgvector":
		pgStore, err := rag.NewPGVectorStore(db, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("初始化 pgvector 存储失败: %w", err)
		}
		store = pgStore
	case "memory":
		store = rag.NewMemoryVectorStore()
	default:
		return nil, fmt.Errorf("不支持的向量存储: %s (可选: pgvector, memory)", cfg.RAG.VectorStore)
	}

	provider, err := rag.NewProviderFromConfig(&cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("初始化向量化后端失败: %w", err)
	}

	objStore, err := storage.NewFromConfig(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("初始化对象存储失败: %w", err)
	}

	jobStore, err := rag.NewJobStore(db, cfg.Queue.RetentionCompleted, cfg.Queue.RetentionFailed)
	if err != nil {
		return nil, fmt.Errorf("初始化任务存储失败: %w", err)
	}

	chunker := rag.NewChunker(cfg.RAG.ChunkTargetTokens, cfg.RAG.ChunkOverlapTokens)
	ingestor := rag.NewIngestor(objStore, parsers.NewRegistry(), chunker, provider, store)
	builder := rag.NewContextBuilder(provider, store, cfg.RAG.SearchTopK, cfg.Server.IsProduction())

	container := &AppContainer{
		DB:          db,
		Config:      cfg,
		VectorStore: store,
		Provider:    provider,
		Ingestor:    ingestor,
		JobStore:    jobStore,
		Builder:     builder,
	}

	ingestHandler := handlers.NewIngestHandler(ingestor, jobStore, logger.Get())

	// 队列通道: auto 模式探测 Redis，可达用持久化队列，否则进程内执行
	transport := cfg.Queue.Transport
	if transport == "" || transport == "auto" {
		if infra.ProbeRedis(&cfg.Redis) {
			transport = "asynq"
		} else {
			transport = "inline"
		}
		logger.Info("队列通道自动选择", zap.String("transport", transport))
	}

	switch transport {
	case "asynq":
		// 持久化队列模式下保持一个 Redis 连接供健康检查使用
		if _, err := infra.InitRedis(&cfg.Redis); err != nil {
			return nil, fmt.Errorf("连接队列 broker 失败: %w", err)
		}
		container.Transport = queue.NewAsynqTransport(&cfg.Redis, &cfg.Queue, jobStore)
		container.WorkerServer = worker.NewServer(&cfg.Redis, &cfg.Queue, ingestHandler, logger.Get())
	case "inline":
		container.Transport = queue.NewInlineTransport(
			ingestHandler.Process,
			cfg.Queue.MaxAttempts,
			cfg.Queue.RetryBaseDelay(),
			jobStore,
		)
	default:
		return nil, fmt.Errorf("不支持的队列通道: %s (可选: asynq, inline, auto)", transport)
	}

	return container, nil
}

// SetupRouter 创建 Gin 路由并挂载全部接口
func SetupRouter(container *AppContainer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())

	RegisterRoutes(router, NewHandlers(container.Builder, container.JobStore))

	return router
}

// Close 释放容器持有的资源
func (c *AppContainer) Close() {
	if c.Transport != nil {
		if err := c.Transport.Close(); err != nil {
			logger.Warn("关闭队列通道失败", zap.Error(err))
		}
	}
}
