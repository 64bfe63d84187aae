// Package service is the one request boundary in scope: it validates
// inputs and dispatches to the indexer and query engine, performing no
// business logic of its own.
package service

import (
	"context"

	"expenseindex/internal/apperr"
	"expenseindex/internal/cache"
	"expenseindex/internal/clock"
	"expenseindex/internal/indexer"
	"expenseindex/internal/logging"
	"expenseindex/internal/objectstore"
	"expenseindex/internal/observability"
	"expenseindex/internal/query"
	"expenseindex/internal/vectorstore"
)

// Service owns every sub-component's lifecycle; there is no module-level
// mutable state anywhere in the pipeline.
type Service struct {
	indexer *indexer.Indexer
	query   *query.Engine
	store   vectorstore.VectorStore
	cache   cache.Cache
	fetcher objectstore.Fetcher

	log     logging.Logger
	metrics observability.Metrics
	clock   clock.Clock

	cacheTTLSeconds int
}

// New builds a Service from its already-constructed collaborators.
func New(ix *indexer.Indexer, qe *query.Engine, store vectorstore.VectorStore, cacheStore cache.Cache, fetcher objectstore.Fetcher, cacheTTLSeconds int, opts ...Option) *Service {
	s := &Service{
		indexer:         ix,
		query:           qe,
		store:           store,
		cache:           cacheStore,
		fetcher:         fetcher,
		log:             logging.NopLogger{},
		metrics:         observability.NoopMetrics{},
		clock:           clock.System{},
		cacheTTLSeconds: cacheTTLSeconds,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Health aggregates the health of the vector store (search engine) and the
// document indexer, reporting degraded if either sub-component is degraded.
func (s *Service) Health(ctx context.Context) HealthReport {
	components := HealthComponents{
		SearchEngine:    StatusHealthy,
		DocumentIndexer: StatusHealthy,
	}

	if _, err := s.store.Stats(ctx, ""); err != nil {
		components.SearchEngine = StatusUnhealthy
		s.log.Error("search engine health check failed", map[string]any{"error": err.Error()})
	}

	snapshot := s.indexer.Stats()
	if snapshot.Metrics.TotalJobs > 0 && snapshot.Metrics.SuccessRate < 0.5 {
		components.DocumentIndexer = StatusDegraded
	}

	status := StatusHealthy
	if components.SearchEngine == StatusUnhealthy {
		status = StatusUnhealthy
	} else if components.DocumentIndexer == StatusDegraded {
		status = StatusDegraded
	}

	return HealthReport{Status: status, Timestamp: s.clock.Now(), Components: components}
}

// Stats returns the indexer queue snapshot, vector-store counts, and cache
// occupancy, optionally scoped to tenant.
func (s *Service) Stats(ctx context.Context, tenant string) (StatsReport, error) {
	vsStats, err := s.store.Stats(ctx, tenant)
	if err != nil {
		return StatsReport{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "vector store stats", err)
	}

	entries := 0
	if s.cache != nil {
		if n, err := s.cache.Len(ctx); err == nil {
			entries = n
		}
	}

	return StatsReport{
		VectorStore:     vsStats,
		DocumentIndexer: s.indexer.Stats(),
		DocumentCache:   CacheStats{Entries: entries, TTLSeconds: s.cacheTTLSeconds},
		Timestamp:       s.clock.Now(),
	}, nil
}

// Index validates the request, fetches source bytes via the object-store
// collaborator, and submits the job to the indexer.
func (s *Service) Index(ctx context.Context, req IndexRequest) (IndexResponse, error) {
	if req.Tenant == "" {
		return IndexResponse{}, apperr.Wrap(apperr.KindBadRequest, "tenant is required", nil)
	}
	if req.SourceURL == "" {
		return IndexResponse{}, apperr.Wrap(apperr.KindBadRequest, "source_url is required", nil)
	}

	data, mimeType, err := s.fetcher.Fetch(ctx, req.SourceURL)
	if err != nil {
		return IndexResponse{
			Status:  "failed",
			Message: err.Error(),
		}, apperr.Wrap(apperr.KindUpstreamUnavailable, "fetch source document", err)
	}

	jobID, err := s.indexer.Submit(ctx, req.Tenant, req.DocumentID, data, mimeType, req.SourceURL, req.Metadata, req.Priority)
	if err != nil {
		return IndexResponse{Status: "failed", Message: err.Error()}, err
	}

	job, _ := s.indexer.GetJob(jobID)
	return IndexResponse{
		JobID:                 job.JobID,
		Status:                string(job.Status),
		DocumentID:            job.DocID,
		Tenant:                job.Tenant,
		ChunksCreated:         job.ChunksCreated,
		ProcessingTimeSeconds: job.ProcessingTimeSeconds,
		Timestamp:             s.clock.Now(),
	}, nil
}

// Search dispatches to the query engine, which validates the request.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	return s.query.Search(ctx, req)
}
