// Command server wires the indexing pipeline and query engine behind an
// HTTP surface and runs until SIGINT/SIGTERM, then drains in flight work.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expenseindex/internal/cache"
	"expenseindex/internal/config"
	"expenseindex/internal/durablequeue"
	"expenseindex/internal/embedder"
	"expenseindex/internal/httpapi"
	"expenseindex/internal/indexer"
	"expenseindex/internal/logging"
	"expenseindex/internal/objectstore"
	"expenseindex/internal/observability"
	"expenseindex/internal/parser"
	"expenseindex/internal/query"
	"expenseindex/internal/service"
	"expenseindex/internal/vectorstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	metrics := observability.NewOtelMetrics("expenseindex")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := vectorstore.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		log.Fatalf("build vector store: %v", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	cacheStore, err := cache.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		log.Fatalf("build cache: %v", err)
	}

	fetcher, err := objectstore.NewS3Fetcher(context.Background(), cfg)
	if err != nil {
		log.Fatalf("build object store fetcher: %v", err)
	}

	embed := buildEmbedder(cfg)
	parsers := parser.NewRegistry()
	if ocr, err := buildOCR(cfg); err != nil {
		logger.Error("ocr backend unavailable, falling back to heuristic", map[string]any{"error": err.Error()})
	} else if ocr != nil {
		parsers = parsers.WithOCR(ocr)
	}

	durableQueue, err := durablequeue.New(cfg)
	if err != nil {
		log.Fatalf("build durable queue: %v", err)
	}

	ix := indexer.New(cfg, parsers, embed, store, cacheStore,
		indexer.WithLogger(logger),
		indexer.WithMetrics(metrics),
		indexer.WithDurableQueue(durableQueue),
		indexer.WithOnComplete(func(job indexer.JobSnapshot) {
			logger.Info("job completed", map[string]any{
				"job_id": job.JobID, "tenant": job.Tenant, "status": string(job.Status),
				"chunks_created": job.ChunksCreated,
			})
		}),
	)

	qe := query.New(cfg, store, embed,
		query.WithLogger(logger),
		query.WithMetrics(metrics),
	)

	svc := service.New(ix, qe, store, cacheStore, fetcher, cfg.CacheTTLSeconds,
		service.WithLogger(logger),
		service.WithMetrics(metrics),
	)

	e := httpapi.NewEcho(svc, logger)

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped: %v", err)
		}
	}()
	logger.Info("server started", map[string]any{"addr": cfg.HTTPAddr})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown signal received, draining in-flight jobs", nil)
	grace := time.Duration(cfg.ShutdownGraceSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := ix.Shutdown(shutdownCtx); err != nil {
		logger.Error("indexer shutdown did not complete cleanly", map[string]any{"error": err.Error()})
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", map[string]any{"error": err.Error()})
	}
}

// buildEmbedder selects a remote embedding client when one is configured,
// falling back to the built-in deterministic embedder otherwise.
func buildEmbedder(cfg config.Config) embedder.Embedder {
	if cfg.EmbeddingsBaseURL == "" {
		return embedder.NewDeterministic(cfg.VectorDimension, 0)
	}
	return embedder.NewClient(embedder.ClientConfig{
		BaseURL: cfg.EmbeddingsBaseURL,
		Model:   cfg.EmbeddingsModel,
		APIKey:  cfg.EmbeddingsAPIKey,
		Dim:     cfg.VectorDimension,
	})
}

// buildOCR constructs a Gemini-backed OCR client when an API key is
// configured; returns (nil, nil) to signal "use the registry's default
// heuristic backend" when OCR is unconfigured.
func buildOCR(cfg config.Config) (parser.OCR, error) {
	if cfg.OCRAPIKey == "" {
		return nil, nil
	}
	return parser.NewGeminiOCR(context.Background(), cfg.OCRAPIKey, cfg.OCRModel)
}
