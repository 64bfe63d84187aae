package service

import (
	"time"

	"expenseindex/internal/indexer"
	"expenseindex/internal/query"
	"expenseindex/internal/vectorstore"
)

// HealthStatus is one of the three health states a component, or the
// aggregate service, can report.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthComponents names the two sub-components whose health rolls up
// into the aggregate.
type HealthComponents struct {
	SearchEngine    HealthStatus
	DocumentIndexer HealthStatus
}

// HealthReport is the result of Health.
type HealthReport struct {
	Status     HealthStatus
	Timestamp  time.Time
	Components HealthComponents
}

// CacheStats is the document-cache section of StatsReport.
type CacheStats struct {
	Entries    int
	TTLSeconds int
}

// StatsReport is the result of Stats.
type StatsReport struct {
	VectorStore     vectorstore.Stats
	DocumentIndexer indexer.QueueSnapshot
	DocumentCache   CacheStats
	Timestamp       time.Time
}

// IndexRequest is the decoded body of an ingest call.
type IndexRequest struct {
	Tenant     string
	DocumentID string
	SourceURL  string
	Metadata   map[string]any
	Priority   int
}

// IndexResponse is the result of Index.
type IndexResponse struct {
	JobID                 string
	Status                string
	DocumentID            string
	Tenant                string
	ChunksCreated         int
	ProcessingTimeSeconds float64
	Timestamp             time.Time
	Message               string
}

// SearchRequest is the decoded body of a search call; it is a thin alias
// over query.Request so the facade adds nothing of its own.
type SearchRequest = query.Request

// SearchResponse is a thin alias over query.Response.
type SearchResponse = query.Response
