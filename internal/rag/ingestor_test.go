package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"backend/internal/rag/parsers"
)

type fakeObjectStorage struct {
	puts    map[string]string // destKey -> localPath
	failPut error
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{puts: make(map[string]string)}
}

func (f *fakeObjectStorage) Put(ctx context.Context, localPath, destKey string) (string, error) {
	if f.failPut != nil {
		return "", f.failPut
	}
	f.puts[destKey] = localPath
	return "http://storage.local/" + destKey, nil
}

type deterministicProvider struct {
	fail error
}

func (p *deterministicProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.fail != nil {
		return nil, p.fail
	}
	res := make([][]float32, len(texts))
	for i, txt := range texts {
		res[i] = []float32{float32(len(txt)), 1, 0}
	}
	return res, nil
}

func (p *deterministicProvider) Model() string         { return "test-model" }
func (p *deterministicProvider) Name() string          { return "test" }
func (p *deterministicProvider) NativeDimensions() int { return 3 }

func writeTempDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestIngestor(objStore *fakeObjectStorage, provider EmbeddingProvider, store VectorStore) *Ingestor {
	return NewIngestor(objStore, parsers.NewRegistry(), NewChunker(900, 120), provider, store)
}

func TestIngestHappyPath(t *testing.T) {
	objStore := newFakeObjectStorage()
	store := NewMemoryVectorStore()
	ing := newTestIngestor(objStore, &deterministicProvider{}, store)

	src := writeTempDoc(t, "cours.txt", "Les suites numériques apparaissent dès la Première.")
	result, err := ing.Ingest(context.Background(), &IngestRequest{
		JobID:      "job-1",
		SourcePath: src,
		DestKey:    "docs/maths/cours.txt",
		Subject:    "maths",
		Level:      "Terminale",
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.ChunkCount)
	require.Equal(t, result.ChunkCount, store.Count())
	require.Equal(t, "http://storage.local/docs/maths/cours.txt", result.SourceURL)
	require.Contains(t, objStore.puts, "docs/maths/cours.txt")

	results, err := store.Search(context.Background(), []float32{1, 1, 0}, SearchFilters{}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "docs/maths/cours.txt", results[0].DocumentKey)
	require.Equal(t, "maths", results[0].Subject)
	require.Equal(t, "Terminale", results[0].Level)
	require.Equal(t, "http://storage.local/docs/maths/cours.txt", results[0].Metadata["source_url"])
}

func TestIngestStorageFailureLeavesNoChunks(t *testing.T) {
	objStore := newFakeObjectStorage()
	objStore.failPut = errors.New("磁盘只读")
	store := NewMemoryVectorStore()
	ing := newTestIngestor(objStore, &deterministicProvider{}, store)

	src := writeTempDoc(t, "cours.txt", "内容")
	_, err := ing.Ingest(context.Background(), &IngestRequest{
		JobID:      "job-2",
		SourcePath: src,
		DestKey:    "docs/cours.txt",
	})
	require.ErrorIs(t, err, ErrStorage)
	require.Equal(t, 0, store.Count())
}

func TestIngestExtractionFailureLeavesNoChunks(t *testing.T) {
	objStore := newFakeObjectStorage()
	store := NewMemoryVectorStore()
	ing := newTestIngestor(objStore, &deterministicProvider{}, store)

	// 扩展名是 docx 但内容不是 ZIP
	src := writeTempDoc(t, "broken.docx", "这不是一个 docx 文件")
	_, err := ing.Ingest(context.Background(), &IngestRequest{
		JobID:      "job-3",
		SourcePath: src,
		DestKey:    "docs/broken.docx",
	})
	require.ErrorIs(t, err, ErrExtraction)
	require.Equal(t, 0, store.Count())
}

func TestIngestMissingSourceFile(t *testing.T) {
	objStore := newFakeObjectStorage()
	store := NewMemoryVectorStore()
	ing := newTestIngestor(objStore, &deterministicProvider{}, store)

	_, err := ing.Ingest(context.Background(), &IngestRequest{
		JobID:      "job-4",
		SourcePath: filepath.Join(t.TempDir(), "不存在.txt"),
		DestKey:    "docs/不存在.txt",
	})
	require.ErrorIs(t, err, ErrExtraction)
	require.Equal(t, 0, store.Count())
}

func TestIngestProviderFailureLeavesNoChunks(t *testing.T) {
	objStore := newFakeObjectStorage()
	store := NewMemoryVectorStore()
	provider := &deterministicProvider{fail: fmt.Errorf("%w: 后端限流", ErrProvider)}
	ing := newTestIngestor(objStore, provider, store)

	src := writeTempDoc(t, "cours.md", "# 递归\n\n递归函数必须有终止条件。")
	_, err := ing.Ingest(context.Background(), &IngestRequest{
		JobID:      "job-5",
		SourcePath: src,
		DestKey:    "docs/nsi/cours.md",
	})
	require.ErrorIs(t, err, ErrProvider)
	require.Equal(t, 0, store.Count())
}

func TestIngestDeterministicChunks(t *testing.T) {
	content := "Terminale NSI: les arbres binaires de recherche.\n" +
		"La hauteur d'un arbre équilibré est logarithmique."

	run := func(destKey string) []*SearchResult {
		store := NewMemoryVectorStore()
		ing := newTestIngestor(newFakeObjectStorage(), &deterministicProvider{}, store)

		src := writeTempDoc(t, "cours.txt", content)
		_, err := ing.Ingest(context.Background(), &IngestRequest{
			JobID:      "job",
			SourcePath: src,
			DestKey:    destKey,
		})
		require.NoError(t, err)

		results, err := store.Search(context.Background(), []float32{1, 0, 0}, SearchFilters{}, 10)
		require.NoError(t, err)
		return results
	}

	first := run("docs/a.txt")
	second := run("docs/a.txt")
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].Content, second[i].Content)
		require.Equal(t, first[i].Metadata["content_hash"], second[i].Metadata["content_hash"])
	}
}
