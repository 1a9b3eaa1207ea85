package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"backend/internal/config"
)

// ObjectStorage 抽象持久化对象存储
// 实际部署中由外部对象存储（MinIO/S3 等）承接; 契约只有一个写入操作,
// 对同一个 destKey 重复写入必须幂等
type ObjectStorage interface {
	Put(ctx context.Context, localPath, destKey string) (url string, err error)
}

// LocalStorage 基于本地磁盘的开发用实现
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage 创建本地磁盘存储
func NewLocalStorage(basePath, baseURL string) *LocalStorage {
	if basePath == "" {
		basePath = "./storage"
	}
	if baseURL == "" {
		baseURL = "file://" + basePath
	}
	return &LocalStorage{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}
}

// NewFromConfig 按配置创建存储实现
func NewFromConfig(cfg *config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg.BasePath, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Type)
	}
}

// Put 将本地文件写入存储并返回稳定 URL
// 同一个 destKey 覆盖写入，保证幂等
func (s *LocalStorage) Put(ctx context.Context, localPath, destKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("打开源文件失败: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(s.basePath, filepath.FromSlash(destKey))
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("创建存储目录失败: %w", err)
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("创建目标文件失败: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("写入目标文件失败: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("落盘失败: %w", err)
	}

	return s.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(destKey), "/"), nil
}
