// Package query enhances a raw search string, retrieves candidate
// fragments from a vector store, and post-processes the result set into a
// stable response envelope.
package query

import (
	"context"

	"expenseindex/internal/apperr"
	"expenseindex/internal/clock"
	"expenseindex/internal/config"
	"expenseindex/internal/embedder"
	"expenseindex/internal/logging"
	"expenseindex/internal/observability"
	"expenseindex/internal/vectorstore"
)

// Engine is the query-side counterpart to the indexer: it owns only a
// vector-store handle and an embedder, never a reference back to the
// indexer.
type Engine struct {
	store vectorstore.VectorStore
	embed embedder.Embedder

	log     logging.Logger
	metrics observability.Metrics
	clock   clock.Clock

	defaultThreshold     float64
	hybridThreshold      float64
	defaultLimit         int
	maxLimit             int
	enableEnhancement    bool
	enablePostProcessing bool
	enableDeduplication  bool
}

// New builds an Engine from cfg and its collaborators.
func New(cfg config.Config, store vectorstore.VectorStore, embed embedder.Embedder, opts ...Option) *Engine {
	e := &Engine{
		store:                store,
		embed:                embed,
		log:                  logging.NopLogger{},
		metrics:              observability.NoopMetrics{},
		clock:                clock.System{},
		defaultThreshold:     cfg.SimilarityThresholdDefault,
		hybridThreshold:      0.5,
		defaultLimit:         10,
		maxLimit:             50,
		enableEnhancement:    true,
		enablePostProcessing: true,
		enableDeduplication:  true,
	}
	if e.defaultThreshold <= 0 {
		e.defaultThreshold = 0.3
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Request is one search call's inputs.
type Request struct {
	Query        string
	Tenant       string
	Limit        int
	SearchMethod string // "vector" (default), "hybrid"
	Filters      vectorstore.Filters
	EnhanceQuery *bool // nil means "use the engine default"
}

// ResultItem is one fragment in a Response, carrying its highlighted
// content and score alongside the original persisted fields.
type ResultItem struct {
	FragmentID   string
	DocumentID   string
	Content      string
	Score        float64
	ChunkIndex   int
	Category     string
	Merchant     string
	Amount       float64
	ExpenseDate  string
	DocumentType string
	Metadata     map[string]any
}

// SearchMetadata describes how a query was transformed and how many raw
// candidates fed the post-processing stage.
type SearchMetadata struct {
	OriginalQuery        string
	EnhancedQuery        string
	SearchMethod         string
	FiltersApplied       map[string]any
	TotalRawResults      int
	PostProcessingEnabled bool
	DeduplicationEnabled  bool
}

// Response is the full search result envelope.
type Response struct {
	Query                 string
	Results                []ResultItem
	TotalResults           int
	ProcessingTimeSeconds  float64
	SearchMetadata         SearchMetadata
}

// Search enhances req.Query, retrieves candidates from the vector store,
// post-processes them, and returns the response envelope. It never returns
// a partial success: on error the caller gets an empty Response and the
// error, never a non-empty Results with a non-nil error.
func (e *Engine) Search(ctx context.Context, req Request) (Response, error) {
	start := e.clock.Now()

	if req.Tenant == "" {
		return Response{}, apperr.Wrap(apperr.KindBadRequest, "tenant is required", nil)
	}
	if req.Query == "" {
		return Response{}, apperr.Wrap(apperr.KindBadRequest, "query is required", nil)
	}

	// limit=0 is a valid request (an explicit "give me nothing"), not an
	// omitted field: callers that want the engine default must pass it
	// explicitly. A negative limit is clamped to zero the same way.
	if req.Limit <= 0 {
		return Response{
			Query:                 req.Query,
			Results:               []ResultItem{},
			ProcessingTimeSeconds: e.clock.Now().Sub(start).Seconds(),
			SearchMetadata: SearchMetadata{
				OriginalQuery: req.Query,
				EnhancedQuery: req.Query,
			},
		}, nil
	}
	limit := req.Limit
	if limit > e.maxLimit {
		limit = e.maxLimit
	}

	doEnhance := e.enableEnhancement
	if req.EnhanceQuery != nil {
		doEnhance = *req.EnhanceQuery
	}

	originalQuery := req.Query
	enhanced := originalQuery
	filtersApplied := map[string]any{}
	vf := req.Filters
	var df *dateFilter

	if doEnhance {
		enhanced = Enhance(enhanced)
		var extracted vectorstore.Filters
		enhanced, extracted, df, filtersApplied = extractFilters(enhanced)
		if extracted.Category != "" {
			vf.Category = extracted.Category
		}
		if extracted.Amount != nil {
			vf.Amount = extracted.Amount
		}
	}

	vectors, err := e.embed.EmbedBatch(ctx, []string{enhanced})
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "embedding query failed", err)
	}

	threshold := e.defaultThreshold
	method := req.SearchMethod
	if method == "" {
		method = "vector"
	}
	if method == "hybrid" {
		threshold = e.hybridThreshold
	}

	raw, err := e.store.Search(ctx, vectors[0], req.Tenant, limit*2, vf, threshold)
	if err != nil {
		return Response{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "vector search failed", err)
	}

	if df != nil {
		filtered := raw[:0]
		for _, r := range raw {
			if matchesDate(r.Fragment.ExpenseDate, df) {
				filtered = append(filtered, r)
			}
		}
		raw = filtered
	}

	if method == "hybrid" {
		applyHybridScores(raw, originalQuery)
	}

	items := toResultItems(raw)

	if e.enablePostProcessing {
		for i := range items {
			items[i].Content = highlight(items[i].Content, originalQuery)
		}
		if e.enableDeduplication {
			items = deduplicate(items)
		}
	}

	sortByScoreDesc(items)
	if len(items) > limit {
		items = items[:limit]
	}

	resp := Response{
		Query:                 originalQuery,
		Results:               items,
		TotalResults:          len(items),
		ProcessingTimeSeconds: e.clock.Now().Sub(start).Seconds(),
		SearchMetadata: SearchMetadata{
			OriginalQuery:         originalQuery,
			EnhancedQuery:         enhanced,
			SearchMethod:          method,
			FiltersApplied:        filtersApplied,
			TotalRawResults:       len(raw),
			PostProcessingEnabled: e.enablePostProcessing,
			DeduplicationEnabled:  e.enableDeduplication,
		},
	}

	if e.metrics != nil {
		e.metrics.IncCounter("query_searches_total", map[string]string{"tenant": req.Tenant, "method": method})
		e.metrics.ObserveHistogram("query_processing_time_seconds", resp.ProcessingTimeSeconds, map[string]string{"tenant": req.Tenant})
	}
	return resp, nil
}

// applyHybridScores blends vector similarity with keyword overlap in
// place. Kept as a transitional scoring strategy until a real lexical
// index backs keyword matching.
func applyHybridScores(results []vectorstore.SearchResult, query string) {
	for i := range results {
		ks := keywordScore(query, results[i].Fragment.Content)
		results[i].Score = results[i].Score*0.7 + ks*0.3
	}
}

func toResultItems(results []vectorstore.SearchResult) []ResultItem {
	items := make([]ResultItem, len(results))
	for i, r := range results {
		items[i] = ResultItem{
			FragmentID:   r.Fragment.FragmentID,
			DocumentID:   r.Fragment.DocumentID,
			Content:      r.Fragment.Content,
			Score:        r.Score,
			ChunkIndex:   r.Fragment.ChunkIndex,
			Category:     r.Fragment.Category,
			Merchant:     r.Fragment.Merchant,
			Amount:       r.Fragment.Amount,
			ExpenseDate:  r.Fragment.ExpenseDate,
			DocumentType: r.Fragment.DocumentType,
			Metadata:     metadataFromJSON(r.Fragment.MetadataJSON),
		}
	}
	return items
}
