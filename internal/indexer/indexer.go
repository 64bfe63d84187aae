// Package indexer drives documents through parse -> chunk -> embed -> persist,
// with a priority queue, a bounded worker pool, retry-with-backoff for
// transient failures, a content-hash cache, and a live metrics snapshot.
package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"expenseindex/internal/apperr"
	"expenseindex/internal/cache"
	"expenseindex/internal/clock"
	"expenseindex/internal/config"
	"expenseindex/internal/durablequeue"
	"expenseindex/internal/embedder"
	"expenseindex/internal/logging"
	"expenseindex/internal/model"
	"expenseindex/internal/observability"
	"expenseindex/internal/parser"
	"expenseindex/internal/vectorstore"
)

// JobSnapshot is the externally-visible shape of an IndexingJob: a
// point-in-time copy, safe to read without the indexer's lock.
type JobSnapshot = model.IndexingJob

// MetricsSnapshot is the indexer's continually-updated counter set.
type MetricsSnapshot struct {
	TotalJobs             int
	TotalDocuments         int
	TotalFragments         int
	TotalProcessingTime    float64
	AverageProcessingTime  float64
	SuccessRate            float64
	LastProcessedAt        time.Time
}

// QueueSnapshot is the Stats-endpoint view of queue occupancy.
type QueueSnapshot struct {
	PendingJobs   int
	ActiveJobs    int
	CompletedJobs int
	FailedJobs    int
	Metrics       MetricsSnapshot
}

// SkipReason records why SubmitDirectory passed over a file.
type SkipReason struct {
	Path   string
	Reason string
}

// Indexer owns the queue, the worker pool, and the content-hash cache, and
// drives jobs through the pipeline.
type Indexer struct {
	parsers *parser.Registry
	embed   embedder.Embedder
	store   vectorstore.VectorStore
	cache   cache.Cache

	log     logging.Logger
	metrics observability.Metrics
	clock   clock.Clock
	queue   durablequeue.Publisher

	maxWorkers        int
	batchSize         int
	parallel          bool
	autoRetryFailed   bool
	maxRetries        int
	chunkBatchSize    int
	processingTimeout time.Duration
	shutdownGrace     time.Duration

	q *queue

	mu           sync.Mutex
	jobs         map[string]*model.IndexingJob
	active       map[string]struct{}
	completed    int
	failed       int
	accum        accumulator
	shuttingDown bool

	onComplete []func(JobSnapshot)

	wg     sync.WaitGroup
	wake   chan struct{}
	stopCh chan struct{}
	sem    chan struct{}
}

// accumulator holds the running totals behind MetricsSnapshot.
type accumulator struct {
	totalJobs           int
	totalDocuments      int
	totalFragments      int
	totalProcessingTime float64
	lastProcessedAt     time.Time
}

// New builds an Indexer from cfg and its collaborators, then starts its
// background dispatch loop.
func New(cfg config.Config, parsers *parser.Registry, embed embedder.Embedder, store vectorstore.VectorStore, cacheStore cache.Cache, opts ...Option) *Indexer {
	ix := &Indexer{
		parsers:           parsers,
		embed:             embed,
		store:             store,
		cache:             cacheStore,
		log:               logging.NopLogger{},
		metrics:           observability.NoopMetrics{},
		clock:             clock.System{},
		queue:             durablequeue.Noop{},
		maxWorkers:        cfg.MaxWorkers,
		batchSize:         cfg.BatchSize,
		parallel:          cfg.EnableParallelProcessing,
		autoRetryFailed:   cfg.AutoRetryFailed,
		maxRetries:        cfg.MaxRetries,
		chunkBatchSize:    cfg.ChunkBatchSize,
		processingTimeout: time.Duration(cfg.ProcessingTimeoutSeconds) * time.Second,
		shutdownGrace:     time.Duration(cfg.ShutdownGraceSeconds) * time.Second,
		q:                 newQueue(),
		jobs:              make(map[string]*model.IndexingJob),
		active:            make(map[string]struct{}),
		wake:              make(chan struct{}, 1),
		stopCh:            make(chan struct{}),
	}
	for _, o := range opts {
		o(ix)
	}
	if ix.maxWorkers <= 0 {
		ix.maxWorkers = 1
	}
	if !ix.parallel {
		ix.maxWorkers = 1
	}
	ix.sem = make(chan struct{}, ix.maxWorkers)

	go ix.run()
	return ix
}

// Submit validates source, checks the content-hash cache, and either
// synthesizes a completed job (cache hit) or enqueues a fresh one.
func (ix *Indexer) Submit(ctx context.Context, tenant, docID string, sourceBytes []byte, mimeType, sourceURL string, metadata map[string]any, priority int) (string, error) {
	ix.mu.Lock()
	shuttingDown := ix.shuttingDown
	ix.mu.Unlock()
	if shuttingDown {
		return "", apperr.Wrap(apperr.KindShutdown, "indexer is shutting down", nil)
	}

	if tenant == "" {
		return "", apperr.Wrap(apperr.KindBadRequest, "tenant is required", nil)
	}
	if len(sourceBytes) == 0 {
		return "", apperr.Wrap(apperr.KindEmptyContent, "source document is empty", nil)
	}
	if !ix.parsers.Supports(mimeType) {
		return "", apperr.Wrap(apperr.KindUnsupportedType, "mime type "+mimeType+" is not supported", nil)
	}
	if docID == "" {
		docID = uuid.NewString()
	}

	contentHash := cache.HashContent(sourceBytes)
	if ix.cache != nil {
		if entry, ok, err := ix.cache.Get(ctx, tenant, contentHash); err == nil && ok {
			job := ix.synthesizeCachedJob(tenant, entry, priority)
			return job.JobID, nil
		}
	}

	job := &model.IndexingJob{
		JobID:       uuid.NewString(),
		Tenant:      tenant,
		DocID:       docID,
		SourceBytes: sourceBytes,
		MIMEType:    mimeType,
		SourceURL:   sourceURL,
		CallerMeta:  metadata,
		Priority:    priority,
		Status:      model.StatusPending,
		CreatedAt:   ix.clock.Now(),
		Progress:    model.Progress{Stage: model.StagePending, Percentage: 0},
	}

	ix.mu.Lock()
	ix.jobs[job.JobID] = job
	ix.mu.Unlock()

	ix.q.push(job)
	ix.signal()
	ix.publishSubmission(job)
	return job.JobID, nil
}

// publishSubmission records the submission with the configured durable
// queue collaborator. Best-effort: a publish failure is logged, never
// returned to the caller, since the in-process queue above is already the
// system of record for this job.
func (ix *Indexer) publishSubmission(job *model.IndexingJob) {
	if _, ok := ix.queue.(durablequeue.Noop); ok {
		return
	}
	record := durablequeue.JobRecord{
		JobID:       job.JobID,
		Tenant:      job.Tenant,
		DocID:       job.DocID,
		MIMEType:    job.MIMEType,
		SourceURL:   job.SourceURL,
		Priority:    job.Priority,
		SubmittedAt: job.CreatedAt,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ix.queue.Publish(ctx, record); err != nil && ix.log != nil {
		ix.log.Error("durable queue publish failed", map[string]any{"job_id": job.JobID, "error": err.Error()})
	}
}

// synthesizeCachedJob returns a completed job referencing the document
// identity recorded at original ingestion time: a cache hit reports the
// same document_id across re-submissions of identical bytes.
func (ix *Indexer) synthesizeCachedJob(tenant string, entry model.CacheEntry, priority int) *model.IndexingJob {
	now := ix.clock.Now()
	job := &model.IndexingJob{
		JobID:                 uuid.NewString(),
		Tenant:                tenant,
		DocID:                 entry.DocumentID,
		Priority:              priority,
		Status:                model.StatusCompleted,
		CreatedAt:             now,
		StartedAt:             now,
		CompletedAt:           now,
		Progress:              model.Progress{Stage: model.StageCompleted, Percentage: 100},
		ChunksCreated:         entry.ChunksCreated,
		ProcessingTimeSeconds: entry.ProcessingTime,
	}
	ix.mu.Lock()
	ix.jobs[job.JobID] = job
	ix.mu.Unlock()
	if ix.metrics != nil {
		ix.metrics.IncCounter("indexer_cache_hits_total", map[string]string{"tenant": tenant})
	}
	return job
}

// GetJob returns a snapshot copy of a known job.
func (ix *Indexer) GetJob(jobID string) (JobSnapshot, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	job, ok := ix.jobs[jobID]
	if !ok {
		return JobSnapshot{}, false
	}
	return *job, true
}

// Stats reports the queue occupancy and running metrics.
func (ix *Indexer) Stats() QueueSnapshot {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	snapshot := MetricsSnapshot{
		TotalJobs:          ix.accum.totalJobs,
		TotalDocuments:      ix.accum.totalDocuments,
		TotalFragments:      ix.accum.totalFragments,
		TotalProcessingTime: ix.accum.totalProcessingTime,
		LastProcessedAt:     ix.accum.lastProcessedAt,
	}
	if ix.accum.totalJobs > 0 {
		snapshot.AverageProcessingTime = ix.accum.totalProcessingTime / float64(ix.accum.totalJobs)
	}
	if denom := ix.completed + ix.failed; denom > 0 {
		snapshot.SuccessRate = float64(ix.completed) / float64(denom)
	}

	return QueueSnapshot{
		PendingJobs:   ix.q.len(),
		ActiveJobs:    len(ix.active),
		CompletedJobs: ix.completed,
		FailedJobs:    ix.failed,
		Metrics:       snapshot,
	}
}

// Shutdown stops accepting new submissions and waits for the queue to drain
// and all in-flight jobs to finish, up to the configured grace period.
func (ix *Indexer) Shutdown(ctx context.Context) error {
	ix.mu.Lock()
	ix.shuttingDown = true
	ix.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for {
			ix.mu.Lock()
			drained := ix.q.len() == 0 && len(ix.active) == 0
			ix.mu.Unlock()
			if drained {
				close(done)
				return
			}
			select {
			case <-time.After(25 * time.Millisecond):
			case <-ctx.Done():
				return
			}
		}
	}()

	grace := ix.shutdownGrace
	if grace <= 0 {
		grace = 30 * time.Second
	}
	select {
	case <-done:
		close(ix.stopCh)
		_ = ix.queue.Close()
		return nil
	case <-time.After(grace):
		close(ix.stopCh)
		_ = ix.queue.Close()
		return apperr.Wrap(apperr.KindTimeout, "shutdown grace period exceeded", nil)
	case <-ctx.Done():
		close(ix.stopCh)
		_ = ix.queue.Close()
		return ctx.Err()
	}
}

func (ix *Indexer) signal() {
	select {
	case ix.wake <- struct{}{}:
	default:
	}
}
