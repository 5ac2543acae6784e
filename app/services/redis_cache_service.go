package services

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
)

const redisKeyPrefix = "geocoder:result:"

type redisEntry struct {
	Result  *models.GeocodeResult `json:"result"`
	Version string                `json:"version"`
}

// RedisCacheService is the shared cache tier. Entries carry the gazetteer
// version inline so invalidation can tell stale results apart without a
// secondary index.
type RedisCacheService struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	logger *zap.Logger
}

func NewRedisCacheService(client *redis.Client, cfg *config.CacheCfg, logger *zap.Logger) *RedisCacheService {
	return &RedisCacheService{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

func (r *RedisCacheService) Get(ctx context.Context, fingerprint string) (*models.GeocodeResult, bool) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("redis get failed", zap.Error(err))
		}
		r.misses.Add(1)
		return nil, false
	}

	var entry redisEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		r.logger.Warn("corrupt cache entry dropped", zap.String("fingerprint", fingerprint))
		r.client.Del(ctx, redisKeyPrefix+fingerprint)
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return entry.Result, true
}

func (r *RedisCacheService) Set(ctx context.Context, fingerprint string, result *models.GeocodeResult, gazetteerVersion string) error {
	raw, err := json.Marshal(redisEntry{Result: result, Version: gazetteerVersion})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+fingerprint, raw, r.ttl).Err()
}

func (r *RedisCacheService) Delete(ctx context.Context, fingerprint string) error {
	return r.client.Del(ctx, redisKeyPrefix+fingerprint).Err()
}

func (r *RedisCacheService) Clear(ctx context.Context) error {
	return r.deleteMatching(ctx, func(redisEntry) bool { return true })
}

func (r *RedisCacheService) InvalidateByGazetteerVersion(ctx context.Context, keepVersion string) error {
	return r.deleteMatching(ctx, func(e redisEntry) bool { return e.Version != keepVersion })
}

// deleteMatching scans the keyspace in batches, Redis has no query by value.
func (r *RedisCacheService) deleteMatching(ctx context.Context, stale func(redisEntry) bool) error {
	var cursor uint64
	removed := 0
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 200).Result()
		if err != nil {
			return err
		}
		for _, key := range keys {
			raw, err := r.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var entry redisEntry
			if json.Unmarshal(raw, &entry) != nil || stale(entry) {
				if r.client.Del(ctx, key).Err() == nil {
					removed++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if removed > 0 {
		r.logger.Info("redis cache invalidated", zap.Int("removed", removed))
	}
	return nil
}

func (r *RedisCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	var entries int64
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 500).Result()
		if err != nil {
			return nil, err
		}
		entries += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}

	hits, misses := r.hits.Load(), r.misses.Load()
	return &CacheStats{
		Backend: "redis",
		Hits:    hits,
		Misses:  misses,
		Entries: entries,
		HitRate: hitRate(hits, misses),
	}, nil
}

func (r *RedisCacheService) Close() error {
	return r.client.Close()
}
