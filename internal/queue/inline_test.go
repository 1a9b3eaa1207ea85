package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/rag"
)

func newTestJobStore(t *testing.T) *rag.JobStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	store, err := rag.NewJobStore(db, 100, 100)
	require.NoError(t, err)
	return store
}

func TestInlineTransportSucceedsFirstAttempt(t *testing.T) {
	jobs := newTestJobStore(t)

	calls := 0
	transport := NewInlineTransport(func(ctx context.Context, p *IngestPayload, lastAttempt bool) error {
		calls++
		require.False(t, lastAttempt)
		return nil
	}, 2, time.Millisecond, jobs)

	jobID, err := transport.EnqueueIngest(context.Background(), &IngestPayload{JobID: "j1"})
	require.NoError(t, err)
	require.Equal(t, "j1", jobID)
	require.Equal(t, 1, calls)
}

func TestInlineTransportRegistersJobBeforeExecution(t *testing.T) {
	jobs := newTestJobStore(t)

	var seenStatus string
	transport := NewInlineTransport(func(ctx context.Context, p *IngestPayload, lastAttempt bool) error {
		// 执行时任务记录已经存在
		job, err := jobs.Get(ctx, p.JobID)
		require.NoError(t, err)
		seenStatus = job.Status
		return nil
	}, 2, time.Millisecond, jobs)

	jobID, err := transport.EnqueueIngest(context.Background(), &IngestPayload{
		SourcePath: "/tmp/doc.txt",
		DestKey:    "docs/doc.txt",
		Subject:    "数学",
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID, "未指定 JobID 时应自动生成")
	require.Equal(t, rag.JobStatusQueued, seenStatus)

	job, err := jobs.Get(context.Background(), jobID)
	require.NoError(t, err)
	require.Equal(t, "docs/doc.txt", job.DestKey)
	require.Equal(t, "数学", job.Subject)
	require.Zero(t, job.Attempts)
}

func TestInlineTransportRetriesThenSucceeds(t *testing.T) {
	calls := 0
	transport := NewInlineTransport(func(ctx context.Context, p *IngestPayload, lastAttempt bool) error {
		calls++
		if calls == 1 {
			return errors.New("暂时失败")
		}
		return nil
	}, 3, time.Millisecond, newTestJobStore(t))

	_, err := transport.EnqueueIngest(context.Background(), &IngestPayload{JobID: "j2"})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestInlineTransportExhaustsAttempts(t *testing.T) {
	var lastFlags []bool
	transport := NewInlineTransport(func(ctx context.Context, p *IngestPayload, lastAttempt bool) error {
		lastFlags = append(lastFlags, lastAttempt)
		return errors.New("持续失败")
	}, 2, time.Millisecond, newTestJobStore(t))

	jobID, err := transport.EnqueueIngest(context.Background(), &IngestPayload{JobID: "j3"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "持续失败")
	require.Equal(t, "j3", jobID)

	// 最后一次尝试带 lastAttempt 标记
	require.Equal(t, []bool{false, true}, lastFlags)
}

func TestInlineTransportRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	transport := NewInlineTransport(func(ctx context.Context, p *IngestPayload, lastAttempt bool) error {
		cancel()
		return errors.New("失败后等待重试")
	}, 3, time.Minute, newTestJobStore(t))

	_, err := transport.EnqueueIngest(ctx, &IngestPayload{JobID: "j4"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestInlineTransportMinimumOneAttempt(t *testing.T) {
	calls := 0
	transport := NewInlineTransport(func(ctx context.Context, p *IngestPayload, lastAttempt bool) error {
		calls++
		require.True(t, lastAttempt)
		return nil
	}, 0, 0, newTestJobStore(t))

	_, err := transport.EnqueueIngest(context.Background(), &IngestPayload{JobID: "j5"})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
