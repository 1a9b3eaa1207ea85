package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"backend/api"
	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
)

// 独立的摄取 worker 进程，只消费队列不对外提供 HTTP
// 需要 Redis; 进程内队列模式没有独立 worker 的概念
func main() {
	_ = godotenv.Load()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	cfg, err := config.Load(env, "")
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("摄取 Worker 启动中...", zap.String("env", env))

	db, err := infra.InitDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer infra.CloseDatabase()

	// 独立 worker 必须走持久化队列
	cfg.Queue.Transport = "asynq"

	container, err := api.NewAppContainer(db, cfg)
	if err != nil {
		logger.Fatal("初始化应用失败", zap.Error(err))
	}
	defer container.Close()
	defer infra.CloseRedis()

	// Run 阻塞直到收到 SIGINT/SIGTERM，内部完成优雅关闭
	if err := container.WorkerServer.Run(); err != nil {
		logger.Fatal("Worker 服务器退出", zap.Error(err))
	}
}
