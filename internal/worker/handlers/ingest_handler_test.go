package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"backend/internal/queue"
	"backend/internal/rag"
	"backend/internal/rag/parsers"
)

type stubStorage struct{}

func (stubStorage) Put(ctx context.Context, localPath, destKey string) (string, error) {
	return "http://storage.local/" + destKey, nil
}

type stubProvider struct {
	fail error
}

func (p *stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.fail != nil {
		return nil, p.fail
	}
	res := make([][]float32, len(texts))
	for i := range texts {
		res[i] = []float32{1, 0, 0}
	}
	return res, nil
}

func (p *stubProvider) Model() string         { return "test-model" }
func (p *stubProvider) Name() string          { return "test" }
func (p *stubProvider) NativeDimensions() int { return 3 }

type handlerFixture struct {
	handler *IngestHandler
	jobs    *rag.JobStore
	store   *rag.MemoryVectorStore
}

func newFixture(t *testing.T, provider rag.EmbeddingProvider) *handlerFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	jobs, err := rag.NewJobStore(db, 100, 100)
	require.NoError(t, err)

	store := rag.NewMemoryVectorStore()
	ingestor := rag.NewIngestor(stubStorage{}, parsers.NewRegistry(), rag.NewChunker(900, 120), provider, store)

	return &handlerFixture{
		handler: NewIngestHandler(ingestor, jobs, zap.NewNop()),
		jobs:    jobs,
		store:   store,
	}
}

func (f *handlerFixture) createJob(t *testing.T, sourcePath string) *queue.IngestPayload {
	t.Helper()

	job := &rag.IngestJob{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		DestKey:    "docs/" + filepath.Base(sourcePath),
		Subject:    "maths",
		Level:      "Terminale",
	}
	require.NoError(t, f.jobs.Create(context.Background(), job))

	return &queue.IngestPayload{
		JobID:      job.ID,
		SourcePath: job.SourcePath,
		DestKey:    job.DestKey,
		Subject:    job.Subject,
		Level:      job.Level,
	}
}

func writeTempDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cours.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProcessSuccessMarksCompletedAndCleansUp(t *testing.T) {
	f := newFixture(t, &stubProvider{})
	ctx := context.Background()

	src := writeTempDoc(t, "函数的连续性")
	payload := f.createJob(t, src)

	require.NoError(t, f.handler.Process(ctx, payload, false))

	job, err := f.jobs.Get(ctx, payload.JobID)
	require.NoError(t, err)
	require.Equal(t, rag.JobStatusCompleted, job.Status)
	require.Equal(t, 1, job.Attempts)
	require.Equal(t, 1, f.store.Count())

	// 临时文件已删除
	_, statErr := os.Stat(src)
	require.True(t, os.IsNotExist(statErr))
}

func TestProcessFailureRequeuesWhenAttemptsRemain(t *testing.T) {
	provider := &stubProvider{fail: fmt.Errorf("%w: 后端限流", rag.ErrProvider)}
	f := newFixture(t, provider)
	ctx := context.Background()

	src := writeTempDoc(t, "内容")
	payload := f.createJob(t, src)

	err := f.handler.Process(ctx, payload, false)
	require.ErrorIs(t, err, rag.ErrProvider)

	job, getErr := f.jobs.Get(ctx, payload.JobID)
	require.NoError(t, getErr)
	require.Equal(t, rag.JobStatusQueued, job.Status)
	require.Equal(t, 1, job.Attempts)
	require.NotEmpty(t, job.Error)
	require.Equal(t, 0, f.store.Count())

	// 还会重试，保留临时文件
	_, statErr := os.Stat(src)
	require.NoError(t, statErr)
}

func TestProcessFinalFailureMarksFailedAndCleansUp(t *testing.T) {
	provider := &stubProvider{fail: fmt.Errorf("%w: 后端持续不可达", rag.ErrProvider)}
	f := newFixture(t, provider)
	ctx := context.Background()

	src := writeTempDoc(t, "内容")
	payload := f.createJob(t, src)

	err := f.handler.Process(ctx, payload, true)
	require.ErrorIs(t, err, rag.ErrProvider)

	job, getErr := f.jobs.Get(ctx, payload.JobID)
	require.NoError(t, getErr)
	require.Equal(t, rag.JobStatusFailed, job.Status)
	require.Contains(t, job.Error, "不可达")
	require.Equal(t, 0, f.store.Count())

	_, statErr := os.Stat(src)
	require.True(t, os.IsNotExist(statErr))
}

func TestProcessUnknownJobFails(t *testing.T) {
	f := newFixture(t, &stubProvider{})

	err := f.handler.Process(context.Background(), &queue.IngestPayload{
		JobID:      uuid.NewString(),
		SourcePath: "/tmp/nope",
		DestKey:    "docs/nope.txt",
	}, false)
	require.ErrorIs(t, err, rag.ErrJobNotFound)
}
