package rag

import "errors"

// 摄取与检索的错误分类
// worker 按分类记录失败原因; 重试与否统一交给队列的 max_attempts 控制
var (
	// ErrExtraction 源文件格式不支持或内容损坏
	ErrExtraction = errors.New("extraction failed")

	// ErrProvider 向量化后端不可达、限流或无法修正的维度错误
	ErrProvider = errors.New("embedding provider failed")

	// ErrStorage 持久化存储写入失败
	ErrStorage = errors.New("storage failed")

	// ErrSearch 读路径上向量存储不可达
	ErrSearch = errors.New("search unavailable")
)
