// Package config loads runtime configuration from the environment, with
// defaults applied after parsing (parse raw, then default).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// VectorBackend selects which VectorStore implementation is constructed.
type VectorBackend string

const (
	VectorBackendQdrant   VectorBackend = "qdrant"
	VectorBackendPostgres VectorBackend = "postgres"
)

// CacheBackend selects which content-hash cache store is constructed.
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// Config holds every recognised configuration key from the indexing and
// retrieval pipeline.
type Config struct {
	// Indexer / worker pool
	MaxWorkers                int
	BatchSize                 int
	EnableParallelProcessing  bool
	AutoRetryFailed           bool
	MaxRetries                int
	ChunkBatchSize            int
	ProcessingTimeoutSeconds  int
	SearchTimeoutSeconds      int
	ShutdownGraceSeconds      int

	// Vector store
	VectorDimension            int
	SimilarityThresholdDefault float64
	VectorBackend              VectorBackend

	// Cache
	CacheTTLSeconds int
	CacheMaxEntries int
	CacheBackend    CacheBackend

	// Logging
	LogLevel string

	// HTTP
	HTTPAddr string

	// Qdrant backend
	QdrantAddr       string
	QdrantCollection string
	QdrantAPIKey     string
	QdrantUseTLS     bool

	// Postgres backend
	PostgresDSN   string
	PostgresTable string

	// Redis cache backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Object store
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UseTLS          bool

	// Embedder: empty EmbeddingsBaseURL means use the built-in
	// deterministic embedder instead of calling out to a remote model.
	EmbeddingsBaseURL string
	EmbeddingsAPIKey  string
	EmbeddingsModel   string

	// OCR: empty OCRAPIKey means fall back to the offline heuristic OCR
	// backend instead of calling the Gemini vision API.
	OCRAPIKey string
	OCRModel  string

	// Durable queue: optional collaborator behind Indexer.Submit. Empty
	// DurableQueueBrokers means submissions are never published
	// externally; the indexer's in-process queue remains the only record.
	DurableQueueBrokers string
	DurableQueueTopic   string
}

// Load reads configuration from the environment (optionally from a .env
// file in the working directory) and applies defaults for anything left
// unset.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}

	cfg.MaxWorkers = envInt("MAX_WORKERS", 0)
	cfg.BatchSize = envInt("BATCH_SIZE", 0)
	cfg.EnableParallelProcessing = envBoolPtr("ENABLE_PARALLEL_PROCESSING")
	cfg.AutoRetryFailed = envBoolPtr("AUTO_RETRY_FAILED")
	cfg.MaxRetries = envInt("MAX_RETRIES", 0)
	cfg.ChunkBatchSize = envInt("CHUNK_BATCH_SIZE", 0)
	cfg.ProcessingTimeoutSeconds = envInt("PROCESSING_TIMEOUT_SECONDS", 0)
	cfg.SearchTimeoutSeconds = envInt("SEARCH_TIMEOUT_SECONDS", 0)
	cfg.ShutdownGraceSeconds = envInt("SHUTDOWN_GRACE_SECONDS", 0)

	cfg.VectorDimension = envInt("VECTOR_DIMENSION", 0)
	cfg.SimilarityThresholdDefault = envFloat("SIMILARITY_THRESHOLD_DEFAULT", 0)
	cfg.VectorBackend = VectorBackend(strings.TrimSpace(os.Getenv("VECTOR_BACKEND")))

	cfg.CacheTTLSeconds = envInt("CACHE_TTL_SECONDS", 0)
	cfg.CacheMaxEntries = envInt("CACHE_MAX_ENTRIES", 0)
	cfg.CacheBackend = CacheBackend(strings.TrimSpace(os.Getenv("CACHE_BACKEND")))

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))

	cfg.QdrantAddr = strings.TrimSpace(os.Getenv("QDRANT_ADDR"))
	cfg.QdrantCollection = strings.TrimSpace(os.Getenv("QDRANT_COLLECTION"))
	cfg.QdrantAPIKey = strings.TrimSpace(os.Getenv("QDRANT_API_KEY"))
	cfg.QdrantUseTLS = strings.EqualFold(strings.TrimSpace(os.Getenv("QDRANT_USE_TLS")), "true")

	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	cfg.PostgresTable = strings.TrimSpace(os.Getenv("POSTGRES_TABLE"))

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))
	cfg.RedisDB = envInt("REDIS_DB", 0)

	cfg.S3Endpoint = strings.TrimSpace(os.Getenv("S3_ENDPOINT"))
	cfg.S3Region = strings.TrimSpace(os.Getenv("S3_REGION"))
	cfg.S3AccessKeyID = strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID"))
	cfg.S3SecretAccessKey = strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY"))
	cfg.S3UseTLS = !strings.EqualFold(strings.TrimSpace(os.Getenv("S3_DISABLE_TLS")), "true")

	cfg.EmbeddingsBaseURL = strings.TrimSpace(os.Getenv("EMBEDDINGS_BASE_URL"))
	cfg.EmbeddingsAPIKey = strings.TrimSpace(os.Getenv("EMBEDDINGS_API_KEY"))
	cfg.EmbeddingsModel = strings.TrimSpace(os.Getenv("EMBEDDINGS_MODEL"))

	cfg.OCRAPIKey = strings.TrimSpace(os.Getenv("OCR_API_KEY"))
	cfg.OCRModel = strings.TrimSpace(os.Getenv("OCR_MODEL"))

	cfg.DurableQueueBrokers = strings.TrimSpace(os.Getenv("DURABLE_QUEUE_BROKERS"))
	cfg.DurableQueueTopic = strings.TrimSpace(os.Getenv("DURABLE_QUEUE_TOPIC"))

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.ChunkBatchSize <= 0 {
		cfg.ChunkBatchSize = 50
	}
	if cfg.ProcessingTimeoutSeconds <= 0 {
		cfg.ProcessingTimeoutSeconds = 300
	}
	if cfg.SearchTimeoutSeconds <= 0 {
		cfg.SearchTimeoutSeconds = 10
	}
	if cfg.ShutdownGraceSeconds <= 0 {
		cfg.ShutdownGraceSeconds = 30
	}
	if cfg.VectorDimension <= 0 {
		cfg.VectorDimension = 384
	}
	if cfg.SimilarityThresholdDefault <= 0 {
		cfg.SimilarityThresholdDefault = 0.3
	}
	if cfg.VectorBackend == "" {
		cfg.VectorBackend = VectorBackendQdrant
	}
	if cfg.CacheTTLSeconds <= 0 {
		cfg.CacheTTLSeconds = 3600
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 100
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = CacheBackendMemory
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.QdrantAddr == "" {
		cfg.QdrantAddr = "localhost:6334"
	}
	if cfg.QdrantCollection == "" {
		cfg.QdrantCollection = "fragments"
	}
	if cfg.PostgresTable == "" {
		cfg.PostgresTable = "fragments"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.DurableQueueBrokers != "" && cfg.DurableQueueTopic == "" {
		cfg.DurableQueueTopic = "expenseindex.jobs.submitted"
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// envBoolPtr defaults to true unless the variable is explicitly set to a
// falsy value, matching the "enable by default" knobs it guards.
func envBoolPtr(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}
