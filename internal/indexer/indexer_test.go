package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseindex/internal/cache"
	"expenseindex/internal/config"
	"expenseindex/internal/embedder"
	"expenseindex/internal/parser"
	"expenseindex/internal/vectorstore"
)

func testIndexer(t *testing.T) (*Indexer, vectorstore.VectorStore) {
	t.Helper()
	cfg := config.Config{
		MaxWorkers:               2,
		BatchSize:                10,
		EnableParallelProcessing: true,
		MaxRetries:               3,
		ChunkBatchSize:           50,
		ProcessingTimeoutSeconds: 5,
		ShutdownGraceSeconds:     2,
	}
	store := vectorstore.NewMemory(384)
	emb := embedder.NewDeterministic(384, 0)
	c := cache.NewMemory(time.Hour, 100)
	ix := New(cfg, parser.NewRegistry(), emb, store, c)
	return ix, store
}

func waitForJob(t *testing.T, ix *Indexer, jobID string, timeout time.Duration) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, ok := ix.GetJob(jobID)
		if ok && (job.Status == "completed" || job.Status == "failed") {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state within %s", jobID, timeout)
	return JobSnapshot{}
}

func TestSubmit_TextDocumentCompletes(t *testing.T) {
	t.Parallel()
	ix, store := testIndexer(t)
	ctx := context.Background()

	jobID, err := ix.Submit(ctx, "acme", "", []byte("the quick brown fox jumps over the lazy dog"), "text/plain", "", nil, 0)
	require.NoError(t, err)

	job := waitForJob(t, ix, jobID, 2*time.Second)
	assert.Equal(t, "completed", string(job.Status))
	assert.GreaterOrEqual(t, job.ChunksCreated, 1)

	frags, err := store.GetByDocument(ctx, job.DocID)
	require.NoError(t, err)
	assert.Len(t, frags, job.ChunksCreated)
}

func TestSubmit_RejectsUnsupportedMimeType(t *testing.T) {
	t.Parallel()
	ix, _ := testIndexer(t)
	ctx := context.Background()

	_, err := ix.Submit(ctx, "acme", "", []byte("data"), "application/x-unknown", "", nil, 0)
	assert.Error(t, err)
}

func TestSubmit_RejectsEmptyContent(t *testing.T) {
	t.Parallel()
	ix, _ := testIndexer(t)
	ctx := context.Background()

	_, err := ix.Submit(ctx, "acme", "", nil, "text/plain", "", nil, 0)
	assert.Error(t, err)
}

func TestSubmit_CacheHitSkipsReprocessing(t *testing.T) {
	t.Parallel()
	ix, store := testIndexer(t)
	ctx := context.Background()
	content := []byte("repeat submission of the same bytes")

	jobID1, err := ix.Submit(ctx, "acme", "doc-1", content, "text/plain", "", nil, 0)
	require.NoError(t, err)
	job1 := waitForJob(t, ix, jobID1, 2*time.Second)
	require.Equal(t, "completed", string(job1.Status))

	statsBefore, err := store.Stats(ctx, "acme")
	require.NoError(t, err)

	jobID2, err := ix.Submit(ctx, "acme", "doc-2", content, "text/plain", "", nil, 0)
	require.NoError(t, err)
	job2, ok := ix.GetJob(jobID2)
	require.True(t, ok)
	assert.Equal(t, "completed", string(job2.Status))
	assert.Equal(t, job1.DocID, job2.DocID)

	statsAfter, err := store.Stats(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, statsBefore.TotalChunks, statsAfter.TotalChunks)
}

func TestSubmit_TypedMetadataFlowsToFragments(t *testing.T) {
	t.Parallel()
	ix, store := testIndexer(t)
	ctx := context.Background()

	jobID, err := ix.Submit(ctx, "acme", "", []byte("coffee at starbucks this morning"), "text/plain", "", map[string]any{
		"amount":   4.50,
		"merchant": "Starbucks",
		"category": "meals",
		"note":     "business trip",
	}, 0)
	require.NoError(t, err)
	job := waitForJob(t, ix, jobID, 2*time.Second)
	require.Equal(t, "completed", string(job.Status))

	frags, err := store.GetByDocument(ctx, job.DocID)
	require.NoError(t, err)
	require.NotEmpty(t, frags)
	assert.Equal(t, "Starbucks", frags[0].Merchant)
	assert.Equal(t, "meals", frags[0].Category)
	assert.Equal(t, 4.50, frags[0].Amount)
	assert.Contains(t, frags[0].MetadataJSON, "business trip")
}

func TestSubmit_RejectedDuringShutdown(t *testing.T) {
	t.Parallel()
	ix, _ := testIndexer(t)
	ctx := context.Background()

	go func() { _ = ix.Shutdown(ctx) }()
	time.Sleep(10 * time.Millisecond)

	_, err := ix.Submit(ctx, "acme", "", []byte("data"), "text/plain", "", nil, 0)
	assert.Error(t, err)
}

func TestStats_ReflectsCompletedJobs(t *testing.T) {
	t.Parallel()
	ix, _ := testIndexer(t)
	ctx := context.Background()

	jobID, err := ix.Submit(ctx, "acme", "", []byte("some expense content to index"), "text/plain", "", nil, 0)
	require.NoError(t, err)
	waitForJob(t, ix, jobID, 2*time.Second)

	stats := ix.Stats()
	assert.Equal(t, 1, stats.CompletedJobs)
	assert.Equal(t, 1, stats.Metrics.TotalJobs)
	assert.Equal(t, 1.0, stats.Metrics.SuccessRate)
}
