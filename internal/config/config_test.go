package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load("test", path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 3072, cfg.Embedding.Dimensions)
	require.Equal(t, 900, cfg.RAG.ChunkTargetTokens)
	require.Equal(t, 120, cfg.RAG.ChunkOverlapTokens)
	require.Equal(t, 6, cfg.RAG.SearchTopK)
	require.Equal(t, "auto", cfg.Queue.Transport)
	require.Equal(t, 2, cfg.Queue.MaxAttempts)
	require.Equal(t, 100, cfg.Queue.RetentionCompleted)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "embedding:\n  dimensions: 1536\n")

	t.Setenv("APP_EMBEDDING_DIMENSIONS", "384")

	cfg, err := Load("test", path)
	require.NoError(t, err)
	require.Equal(t, 384, cfg.Embedding.Dimensions)
}

func TestIsProduction(t *testing.T) {
	require.True(t, (&ServerConfig{Mode: "release"}).IsProduction())
	require.False(t, (&ServerConfig{Mode: "debug"}).IsProduction())
}

func TestRedisAddr(t *testing.T) {
	c := &RedisConfig{Host: "redis.internal", Port: 6380}
	require.Equal(t, "redis.internal:6380", c.Addr())
}

func TestQueueRetryBaseDelayDefault(t *testing.T) {
	c := &QueueConfig{}
	require.Equal(t, int64(2000), c.RetryBaseDelay().Milliseconds())

	c.RetryBaseDelayMs = 500
	require.Equal(t, int64(500), c.RetryBaseDelay().Milliseconds())
}
