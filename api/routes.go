package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backend/api/handlers/knowledge"
	"backend/internal/infra"
	"backend/internal/rag"
)

// Handlers 聚合全部 API 处理器
type Handlers struct {
	Search *knowledge.SearchHandler
	Jobs   *knowledge.JobHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(builder *rag.ContextBuilder, jobs *rag.JobStore) *Handlers {
	return &Handlers{
		Search: knowledge.NewSearchHandler(builder),
		Jobs:   knowledge.NewJobHandler(jobs),
	}
}

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ragGroup := router.Group("/api/rag")
	{
		ragGroup.POST("/search", h.Search.Search)
		ragGroup.GET("/jobs", h.Jobs.ListJobs)
		ragGroup.GET("/jobs/:id", h.Jobs.GetJob)
	}
}

// healthHandler 聚合数据库与队列 broker 的健康状态
func healthHandler(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}

	if err := infra.HealthCheck(); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	// 进程内队列模式没有 Redis 连接，跳过
	if infra.RedisEnabled() {
		if err := infra.HealthCheckRedis(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
