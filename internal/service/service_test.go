package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseindex/internal/cache"
	"expenseindex/internal/config"
	"expenseindex/internal/embedder"
	"expenseindex/internal/indexer"
	"expenseindex/internal/objectstore"
	"expenseindex/internal/parser"
	"expenseindex/internal/query"
	"expenseindex/internal/vectorstore"
)

func testService(t *testing.T) (*Service, *objectstore.MemoryFetcher) {
	t.Helper()
	cfg := config.Config{
		MaxWorkers: 2, BatchSize: 10, EnableParallelProcessing: true,
		MaxRetries: 3, ChunkBatchSize: 50, ProcessingTimeoutSeconds: 5,
		ShutdownGraceSeconds: 2, SimilarityThresholdDefault: 0.3,
	}
	store := vectorstore.NewMemory(384)
	emb := embedder.NewDeterministic(384, 0)
	cacheStore := cache.NewMemory(time.Hour, 100)
	ix := indexer.New(cfg, parser.NewRegistry(), emb, store, cacheStore)
	qe := query.New(cfg, store, emb)
	fetcher := objectstore.NewMemoryFetcher()

	svc := New(ix, qe, store, cacheStore, fetcher, cfg.CacheTTLSeconds)
	return svc, fetcher
}

func waitForJobStatus(t *testing.T, svc *Service, jobID string, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, ok := svc.indexer.GetJob(jobID)
		if ok && (job.Status == "completed" || job.Status == "failed") {
			return string(job.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", jobID)
	return ""
}

func TestIndex_FetchesAndSubmitsDocument(t *testing.T) {
	t.Parallel()
	svc, fetcher := testService(t)
	fetcher.Put("s3://bucket/receipt.txt", []byte("starbucks coffee four fifty"), "text/plain")

	resp, err := svc.Index(context.Background(), IndexRequest{
		Tenant: "acme", DocumentID: "doc-1", SourceURL: "s3://bucket/receipt.txt",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.JobID)

	status := waitForJobStatus(t, svc, resp.JobID, 2*time.Second)
	assert.Equal(t, "completed", status)
}

func TestIndex_RejectsMissingSourceURL(t *testing.T) {
	t.Parallel()
	svc, _ := testService(t)
	_, err := svc.Index(context.Background(), IndexRequest{Tenant: "acme"})
	assert.Error(t, err)
}

func TestIndex_ReturnsFailureWhenFetchMisses(t *testing.T) {
	t.Parallel()
	svc, _ := testService(t)
	resp, err := svc.Index(context.Background(), IndexRequest{
		Tenant: "acme", SourceURL: "s3://bucket/missing.txt",
	})
	assert.Error(t, err)
	assert.Equal(t, "failed", resp.Status)
}

func TestSearch_DelegatesToQueryEngine(t *testing.T) {
	t.Parallel()
	svc, fetcher := testService(t)
	fetcher.Put("s3://bucket/receipt.txt", []byte("starbucks coffee four fifty"), "text/plain")

	resp, err := svc.Index(context.Background(), IndexRequest{
		Tenant: "acme", DocumentID: "doc-1", SourceURL: "s3://bucket/receipt.txt",
	})
	require.NoError(t, err)
	waitForJobStatus(t, svc, resp.JobID, 2*time.Second)

	disable := false
	searchResp, err := svc.Search(context.Background(), SearchRequest{
		Query: "starbucks coffee four fifty", Tenant: "acme", Limit: 10, EnhanceQuery: &disable,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, searchResp.Results)
}

func TestHealth_ReportsHealthyWithNoActivity(t *testing.T) {
	t.Parallel()
	svc, _ := testService(t)
	report := svc.Health(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
}

func TestStats_ReportsCacheAndVectorStoreCounts(t *testing.T) {
	t.Parallel()
	svc, fetcher := testService(t)
	fetcher.Put("s3://bucket/receipt.txt", []byte("starbucks coffee four fifty"), "text/plain")

	resp, err := svc.Index(context.Background(), IndexRequest{
		Tenant: "acme", DocumentID: "doc-1", SourceURL: "s3://bucket/receipt.txt",
	})
	require.NoError(t, err)
	waitForJobStatus(t, svc, resp.JobID, 2*time.Second)

	stats, err := svc.Stats(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentIndexer.CompletedJobs)
	assert.GreaterOrEqual(t, stats.VectorStore.TotalChunks, 1)
	assert.Equal(t, 1, stats.DocumentCache.Entries)
}
