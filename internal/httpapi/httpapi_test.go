package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseindex/internal/cache"
	"expenseindex/internal/config"
	"expenseindex/internal/embedder"
	"expenseindex/internal/indexer"
	"expenseindex/internal/logging"
	"expenseindex/internal/objectstore"
	"expenseindex/internal/parser"
	"expenseindex/internal/query"
	"expenseindex/internal/service"
	"expenseindex/internal/vectorstore"
)

func testServer(t *testing.T) (*echoHandle, *objectstore.MemoryFetcher) {
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

	svc := service.New(ix, qe, store, cacheStore, fetcher, cfg.CacheTTLSeconds)
	e := NewEcho(svc, logging.NopLogger{})
	return &echoHandle{e: e}, fetcher
}

type echoHandle struct {
	e *echo.Echo
}

func (h *echoHandle) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler_ReportsHealthy(t *testing.T) {
	t.Parallel()
	h, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestOptionsRequest_Returns204WithCORSHeaders(t *testing.T) {
	t.Parallel()
	h, _ := testServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/search", nil)
	rec := h.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetRequest_CarriesCORSHeader(t *testing.T) {
	t.Parallel()
	h, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := h.do(req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIndexHandler_RejectsMissingFields(t *testing.T) {
	t.Parallel()
	h, _ := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/index", strings.NewReader(`{"tenant":"acme"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := h.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	missing, ok := body["missing_fields"].([]any)
	require.True(t, ok)
	assert.Contains(t, missing, "source_url")
}

func TestIndexHandler_FetchFailureReturns500WithFailedStatus(t *testing.T) {
	t.Parallel()
	h, _ := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/index", strings.NewReader(
		`{"tenant":"acme","source_url":"s3://bucket/missing.txt"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := h.do(req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed", body["status"])
}

func TestIndexThenSearch_RoundTripsThroughHTTP(t *testing.T) {
	t.Parallel()
	h, fetcher := testServer(t)
	fetcher.Put("s3://bucket/receipt.txt", []byte("starbucks coffee four fifty"), "text/plain")

	indexReq := httptest.NewRequest(http.MethodPost, "/index", strings.NewReader(
		`{"tenant":"acme","document_id":"doc-1","source_url":"s3://bucket/receipt.txt"}`))
	indexReq.Header.Set("Content-Type", "application/json")
	indexRec := h.do(indexReq)
	require.Equal(t, http.StatusOK, indexRec.Code)

	deadline := time.Now().Add(2 * time.Second)
	var searchRec *httptest.ResponseRecorder
	for time.Now().Before(deadline) {
		searchReq := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(
			`{"query":"starbucks coffee four fifty","tenant":"acme","limit":10,"enhance_query":false}`))
		searchReq.Header.Set("Content-Type", "application/json")
		searchRec = h.do(searchReq)
		var body map[string]any
		_ = json.Unmarshal(searchRec.Body.Bytes(), &body)
		if n, ok := body["total_results"].(float64); ok && n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, searchRec)
	require.Equal(t, http.StatusOK, searchRec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(searchRec.Body.Bytes(), &body))
	results, ok := body["results"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, results)
}

func TestSearchHandler_RejectsMissingQuery(t *testing.T) {
	t.Parallel()
	h, _ := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"tenant":"acme"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := h.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsHandler_ReturnsZeroedStatsWithNoActivity(t *testing.T) {
	t.Parallel()
	h, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/stats?tenant=acme", nil)
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	stats, ok := body["stats"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, stats, "vector_store")
	assert.Contains(t, stats, "document_indexer")
	assert.Contains(t, stats, "document_cache")
}
