package vectorstore

import (
	"context"
	"fmt"

	"expenseindex/internal/config"
	"expenseindex/internal/logging"
)

// New builds the VectorStore selected by cfg.VectorBackend.
func New(ctx context.Context, cfg config.Config, log logging.Logger) (VectorStore, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendPostgres:
		return NewPostgres(ctx, cfg.PostgresDSN, cfg.PostgresTable, cfg.VectorDimension, log)
	case config.VectorBackendQdrant, "":
		return NewQdrant(ctx, QdrantConfig{
			Addr:       cfg.QdrantAddr,
			Collection: cfg.QdrantCollection,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Dimension:  cfg.VectorDimension,
		}, log)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}
