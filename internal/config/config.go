package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	RAG       RagConfig       `mapstructure:"rag"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// IsProduction release 模式视为生产部署
// 检索降级兜底只允许在非生产环境启用
func (c *ServerConfig) IsProduction() bool {
	return c.Mode == "release"
}

// DatabaseConfig 数据库配置
// driver=postgres 时使用 pgvector 向量存储; driver=sqlite 用于本地/离线模式
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	Path            string `mapstructure:"path"` // sqlite 文件路径
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
}

// RedisConfig Redis 配置（队列 broker）
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// Addr 返回 host:port 形式的地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// EmbeddingConfig 向量化服务配置
// Provider 是唯一的后端开关: openai(远程 API) 或 ollama(本地模型)
// Dimensions 是全局向量维度，所有后端的输出统一到该长度
type EmbeddingConfig struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	Dimensions     int    `mapstructure:"dimensions"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout 请求超时
func (c *EmbeddingConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RagConfig RAG 相关配置
type RagConfig struct {
	ChunkTargetTokens  int    `mapstructure:"chunk_target_tokens"`
	ChunkOverlapTokens int    `mapstructure:"chunk_overlap_tokens"`
	SearchTopK         int    `mapstructure:"search_top_k"`
	VectorStore        string `mapstructure:"vector_store"` // pgvector, memory
}

// QueueConfig 摄取任务队列配置
// Transport: asynq(Redis broker), inline(进程内同步), auto(探测 Redis 后选择)
type QueueConfig struct {
	Transport            string `mapstructure:"transport"`
	Concurrency          int    `mapstructure:"concurrency"`
	MaxAttempts          int    `mapstructure:"max_attempts"`
	RetryBaseDelayMs     int    `mapstructure:"retry_base_delay_ms"`
	RetentionCompleted   int    `mapstructure:"retention_completed"`
	RetentionFailed      int    `mapstructure:"retention_failed"`
	TaskTimeoutMinutes   int    `mapstructure:"task_timeout_minutes"`
	CompletedRetentionHr int    `mapstructure:"completed_retention_hours"`
}

// RetryBaseDelay 指数退避基础延迟
func (c *QueueConfig) RetryBaseDelay() time.Duration {
	if c.RetryBaseDelayMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// StorageConfig 对象存储配置（外部契约，本地实现仅用于开发）
type StorageConfig struct {
	Type     string `mapstructure:"type"` // local
	BasePath string `mapstructure:"base_path"`
	BaseURL  string `mapstructure:"base_url"`
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 环境变量优先于配置文件: APP_EMBEDDING_DIMENSIONS 等
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// setDefaults 注册缺省值，保证裸环境下管线参数齐全
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.dimensions", 3072)
	v.SetDefault("rag.chunk_target_tokens", 900)
	v.SetDefault("rag.chunk_overlap_tokens", 120)
	v.SetDefault("rag.search_top_k", 6)
	v.SetDefault("rag.vector_store", "pgvector")
	v.SetDefault("queue.transport", "auto")
	v.SetDefault("queue.concurrency", 3)
	v.SetDefault("queue.max_attempts", 2)
	v.SetDefault("queue.retry_base_delay_ms", 2000)
	v.SetDefault("queue.retention_completed", 100)
	v.SetDefault("queue.retention_failed", 100)
	v.SetDefault("queue.task_timeout_minutes", 10)
	v.SetDefault("queue.completed_retention_hours", 24)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./storage")
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
