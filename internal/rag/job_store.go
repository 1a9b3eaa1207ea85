package rag

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrJobNotFound 任务不存在
var ErrJobNotFound = errors.New("摄取任务不存在")

// JobStore 摄取任务状态机
// queued → active → completed/failed; 重试回到 queued
// completed/failed 是终态，所有迁移都会递增 UpdatedAt
type JobStore struct {
	db *gorm.DB

	// 每个终态各保留最近多少条记录，0 表示不裁剪
	retainCompleted int
	retainFailed    int
}

// NewJobStore 创建任务存储并确保表结构存在
func NewJobStore(db *gorm.DB, retainCompleted, retainFailed int) (*JobStore, error) {
	if err := db.AutoMigrate(&IngestJob{}); err != nil {
		return nil, fmt.Errorf("迁移摄取任务表失败: %w", err)
	}
	return &JobStore{
		db:              db,
		retainCompleted: retainCompleted,
		retainFailed:    retainFailed,
	}, nil
}

// Create 创建 queued 状态的任务记录，入队前调用
func (s *JobStore) Create(ctx context.Context, job *IngestJob) error {
	job.Status = JobStatusQueued
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("创建摄取任务失败: %w", err)
	}
	return nil
}

// Get 按 ID 查询任务
func (s *JobStore) Get(ctx context.Context, id string) (*IngestJob, error) {
	var job IngestJob
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询摄取任务失败: %w", err)
	}
	return &job, nil
}

// List 按状态查询任务，status 为空返回全部，按创建时间倒序
func (s *JobStore) List(ctx context.Context, status string, limit int) ([]*IngestJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&IngestJob{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var jobs []*IngestJob
	if err := query.Order("created_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("查询摄取任务列表失败: %w", err)
	}
	return jobs, nil
}

// MarkActive 任务开始处理，递增尝试次数
func (s *JobStore) MarkActive(ctx context.Context, id string) error {
	return s.transition(ctx, id, map[string]any{
		"status":   JobStatusActive,
		"attempts": gorm.Expr("attempts + 1"),
	})
}

// MarkCompleted 任务成功完成，清空错误信息
func (s *JobStore) MarkCompleted(ctx context.Context, id string) error {
	if err := s.transition(ctx, id, map[string]any{
		"status": JobStatusCompleted,
		"error":  "",
	}); err != nil {
		return err
	}
	return s.trim(ctx, JobStatusCompleted, s.retainCompleted)
}

// MarkFailed 任务最终失败，记录错误供排障查询
func (s *JobStore) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := s.transition(ctx, id, map[string]any{
		"status": JobStatusFailed,
		"error":  msg,
	}); err != nil {
		return err
	}
	return s.trim(ctx, JobStatusFailed, s.retainFailed)
}

// Requeue 失败后还有剩余重试次数，回到 queued 等待下一次投递
func (s *JobStore) Requeue(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.transition(ctx, id, map[string]any{
		"status": JobStatusQueued,
		"error":  msg,
	})
}

func (s *JobStore) transition(ctx context.Context, id string, updates map[string]any) error {
	result := s.db.WithContext(ctx).Model(&IngestJob{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("更新摄取任务状态失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// trim 按终态保留最近 N 条，超出部分从旧往新删除
// 非终态记录永远不会被裁剪
func (s *JobStore) trim(ctx context.Context, status string, retain int) error {
	if retain <= 0 {
		return nil
	}

	var ids []string
	err := s.db.WithContext(ctx).Model(&IngestJob{}).
		Where("status = ?", status).
		Order("updated_at DESC, id DESC").
		Offset(retain).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("查询待裁剪任务失败: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Delete(&IngestJob{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("裁剪历史任务失败: %w", err)
	}
	return nil
}
