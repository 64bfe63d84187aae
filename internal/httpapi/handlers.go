package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"expenseindex/internal/apperr"
	"expenseindex/internal/logging"
	"expenseindex/internal/service"
	"expenseindex/internal/vectorstore"
)

func healthHandler(svc *service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		report := svc.Health(c.Request().Context())
		body := map[string]any{
			"status":    report.Status,
			"timestamp": report.Timestamp,
			"components": map[string]any{
				"search_engine":    report.Components.SearchEngine,
				"document_indexer": report.Components.DocumentIndexer,
			},
		}
		status := http.StatusOK
		if report.Status == service.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, body)
	}
}

func statsHandler(svc *service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenant := c.QueryParam("tenant")
		stats, err := svc.Stats(c.Request().Context(), tenant)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"stats": map[string]any{
				"vector_store": map[string]any{
					"total_chunks":      stats.VectorStore.TotalChunks,
					"unique_documents":  stats.VectorStore.UniqueDocuments,
					"unique_businesses": stats.VectorStore.UniqueBusinesses,
				},
				"document_indexer": map[string]any{
					"pending_jobs":   stats.DocumentIndexer.PendingJobs,
					"active_jobs":    stats.DocumentIndexer.ActiveJobs,
					"completed_jobs": stats.DocumentIndexer.CompletedJobs,
					"failed_jobs":    stats.DocumentIndexer.FailedJobs,
					"metrics": map[string]any{
						"total_jobs":              stats.DocumentIndexer.Metrics.TotalJobs,
						"total_documents":         stats.DocumentIndexer.Metrics.TotalDocuments,
						"total_fragments":         stats.DocumentIndexer.Metrics.TotalFragments,
						"total_processing_time":   stats.DocumentIndexer.Metrics.TotalProcessingTime,
						"average_processing_time": stats.DocumentIndexer.Metrics.AverageProcessingTime,
						"success_rate":            stats.DocumentIndexer.Metrics.SuccessRate,
						"last_processed_at":       stats.DocumentIndexer.Metrics.LastProcessedAt,
					},
				},
				"document_cache": map[string]any{
					"entries":     stats.DocumentCache.Entries,
					"ttl_seconds": stats.DocumentCache.TTLSeconds,
				},
			},
			"timestamp": stats.Timestamp,
		})
	}
}

func indexHandler(svc *service.Service, log logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body struct {
			Tenant     string         `json:"tenant"`
			DocumentID string         `json:"document_id"`
			SourceURL  string         `json:"source_url"`
			Metadata   map[string]any `json:"metadata"`
			Priority   int            `json:"priority"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		}

		var missing []string
		if body.Tenant == "" {
			missing = append(missing, "tenant")
		}
		if body.SourceURL == "" {
			missing = append(missing, "source_url")
		}
		if len(missing) > 0 {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "missing required fields", "missing_fields": missing})
		}

		resp, err := svc.Index(c.Request().Context(), service.IndexRequest{
			Tenant:     body.Tenant,
			DocumentID: body.DocumentID,
			SourceURL:  body.SourceURL,
			Metadata:   body.Metadata,
			Priority:   body.Priority,
		})
		if err != nil {
			kind, _ := apperr.Classify(err)
			if kind == apperr.KindBadRequest {
				return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
			}
			log.Error("index request failed", map[string]any{"tenant": body.Tenant, "error": err.Error()})
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"job_id":  resp.JobID,
				"status":  "failed",
				"message": err.Error(),
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"job_id":          resp.JobID,
			"status":          resp.Status,
			"document_id":     resp.DocumentID,
			"tenant":          resp.Tenant,
			"chunks_created":  resp.ChunksCreated,
			"processing_time": resp.ProcessingTimeSeconds,
			"timestamp":       resp.Timestamp,
		})
	}
}

func searchHandler(svc *service.Service, log logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body struct {
			Query        string       `json:"query"`
			Tenant       string       `json:"tenant"`
			Limit        int          `json:"limit"`
			SearchMethod string       `json:"search_method"`
			Filters      *filtersWire `json:"filters"`
			EnhanceQuery *bool        `json:"enhance_query"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		}
		if body.Query == "" || body.Tenant == "" {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "query and tenant are required"})
		}

		limit := body.Limit
		if limit <= 0 {
			limit = 10
		}

		resp, err := svc.Search(c.Request().Context(), service.SearchRequest{
			Query:        body.Query,
			Tenant:       body.Tenant,
			Limit:        limit,
			SearchMethod: body.SearchMethod,
			Filters:      body.Filters.toVectorstore(),
			EnhanceQuery: body.EnhanceQuery,
		})
		if err != nil {
			kind, _ := apperr.Classify(err)
			if kind == apperr.KindBadRequest {
				return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
			}
			if kind == apperr.KindTimeout {
				return c.JSON(http.StatusGatewayTimeout, map[string]any{"error": err.Error()})
			}
			log.Error("search request failed", map[string]any{"tenant": body.Tenant, "error": err.Error()})
			return c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
		}

		return c.JSON(http.StatusOK, searchResponseWire(resp))
	}
}

// writeError maps an apperr-classified error to its HTTP status and a
// minimal JSON body; used by endpoints that don't need a bespoke shape.
func writeError(c echo.Context, err error) error {
	kind, _ := apperr.Classify(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
	case apperr.KindTimeout:
		status = http.StatusGatewayTimeout
	case apperr.KindUpstreamUnavailable:
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]any{"error": err.Error()})
}

// filtersWire is the wire shape of Request.Filters; a nil *filtersWire
// means "no filters" and translates to the interface's zero value.
type filtersWire struct {
	Category     string      `json:"category"`
	Merchant     string      `json:"merchant"`
	DocumentType string      `json:"document_type"`
	Amount       *amountWire `json:"amount"`
}

type amountWire struct {
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

func (f *filtersWire) toVectorstore() vectorstore.Filters {
	if f == nil {
		return vectorstore.Filters{}
	}
	vf := vectorstore.Filters{
		Category:     f.Category,
		Merchant:     f.Merchant,
		DocumentType: f.DocumentType,
	}
	if f.Amount != nil {
		vf.Amount = &vectorstore.AmountFilter{
			Op:    amountOpFromWire(f.Amount.Op),
			Value: f.Amount.Value,
		}
	}
	return vf
}
