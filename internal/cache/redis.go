package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"expenseindex/internal/apperr"
	"expenseindex/internal/logging"
	"expenseindex/internal/model"
)

// Redis is a Redis-backed Cache. Keys carry their own TTL via SETEX, so
// expiry needs no background sweep.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    logging.Logger
}

// RedisConfig is the subset of config.Config a Redis cache needs.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis dials addr and pings it before returning.
func NewRedis(ctx context.Context, cfg RedisConfig, ttl time.Duration, log logging.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "ping redis cache", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{client: client, ttl: ttl, log: log}, nil
}

func redisKey(tenant, contentHash string) string {
	return "expenseindex:cache:" + tenant + ":" + contentHash
}

func (r *Redis) Get(ctx context.Context, tenant, contentHash string) (model.CacheEntry, bool, error) {
	val, err := r.client.Get(ctx, redisKey(tenant, contentHash)).Result()
	if err == redis.Nil {
		return model.CacheEntry{}, false, nil
	}
	if err != nil {
		return model.CacheEntry{}, false, apperr.Wrap(apperr.KindUpstreamUnavailable, "get cache entry", err)
	}

	var entry model.CacheEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		if r.log != nil {
			r.log.Error("corrupt cache entry, treating as miss", map[string]any{"tenant": tenant, "content_hash": contentHash})
		}
		return model.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

func (r *Redis) Put(ctx context.Context, tenant, contentHash string, entry model.CacheEntry) error {
	entry.CachedAt = time.Now().UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "marshal cache entry", err)
	}
	if err := r.client.Set(ctx, redisKey(tenant, contentHash), data, r.ttl).Err(); err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "set cache entry", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, tenant, contentHash string) error {
	if err := r.client.Del(ctx, redisKey(tenant, contentHash)).Err(); err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "invalidate cache entry", err)
	}
	return nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	var count int
	iter := r.client.Scan(ctx, 0, "expenseindex:cache:*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, apperr.Wrap(apperr.KindUpstreamUnavailable, "scan cache entries", err)
	}
	return count, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
