package cache

import (
	"context"
	"fmt"
	"time"

	"expenseindex/internal/config"
	"expenseindex/internal/logging"
)

// New builds the Cache selected by cfg.CacheBackend.
func New(ctx context.Context, cfg config.Config, log logging.Logger) (Cache, error) {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second

	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		return NewRedis(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, ttl, log)
	case config.CacheBackendMemory, "":
		return NewMemory(ttl, cfg.CacheMaxEntries), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
