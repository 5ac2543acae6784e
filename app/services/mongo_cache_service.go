package services

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
)

const cacheCollection = "geocode_cache"

// MongoCacheService persists geocode results across restarts, with a small
// LRU in front so hot fingerprints never touch the database. Access
// metadata is updated on every durable hit for the admin stats.
type MongoCacheService struct {
	coll   *mongo.Collection
	l1     *lru.Cache[string, *models.GeocodeResult]
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	logger *zap.Logger
}

func NewMongoCacheService(db *mongo.Database, cfg *config.CacheCfg, logger *zap.Logger) (*MongoCacheService, error) {
	l1, err := lru.New[string, *models.GeocodeResult](cfg.L1Size)
	if err != nil {
		return nil, err
	}
	return &MongoCacheService{
		coll:   db.Collection(cacheCollection),
		l1:     l1,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func (m *MongoCacheService) Get(ctx context.Context, fingerprint string) (*models.GeocodeResult, bool) {
	if result, ok := m.l1.Get(fingerprint); ok {
		m.hits.Add(1)
		return result, true
	}

	var doc models.GeocodeCache
	err := m.coll.FindOneAndUpdate(ctx,
		bson.M{
			"fingerprint": fingerprint,
			"created_at":  bson.M{"$gt": time.Now().Add(-m.ttl)},
		},
		bson.M{
			"$set": bson.M{"last_accessed": time.Now().UTC()},
			"$inc": bson.M{"access_count": 1},
		},
	).Decode(&doc)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			m.logger.Warn("mongo cache get failed", zap.Error(err))
		}
		m.misses.Add(1)
		return nil, false
	}

	m.l1.Add(fingerprint, &doc.Result)
	m.hits.Add(1)
	return &doc.Result, true
}

func (m *MongoCacheService) Set(ctx context.Context, fingerprint string, result *models.GeocodeResult, gazetteerVersion string) error {
	m.l1.Add(fingerprint, result)

	now := time.Now().UTC()
	_, err := m.coll.UpdateOne(ctx,
		bson.M{"fingerprint": fingerprint},
		bson.M{"$set": models.GeocodeCache{
			Fingerprint:      fingerprint,
			NormalizedText:   result.NormalizedText,
			Result:           *result,
			GazetteerVersion: gazetteerVersion,
			CreatedAt:        now,
			LastAccessed:     now,
		}},
		options.Update().SetUpsert(true))
	return err
}

func (m *MongoCacheService) Delete(ctx context.Context, fingerprint string) error {
	m.l1.Remove(fingerprint)
	_, err := m.coll.DeleteOne(ctx, bson.M{"fingerprint": fingerprint})
	return err
}

func (m *MongoCacheService) Clear(ctx context.Context) error {
	m.l1.Purge()
	_, err := m.coll.DeleteMany(ctx, bson.M{})
	return err
}

func (m *MongoCacheService) InvalidateByGazetteerVersion(ctx context.Context, keepVersion string) error {
	m.l1.Purge()
	res, err := m.coll.DeleteMany(ctx, bson.M{"gazetteer_version": bson.M{"$ne": keepVersion}})
	if err != nil {
		return err
	}
	if res.DeletedCount > 0 {
		m.logger.Info("mongo cache invalidated",
			zap.String("keep_version", keepVersion),
			zap.Int64("removed", res.DeletedCount))
	}
	return nil
}

func (m *MongoCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	entries, err := m.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	hits, misses := m.hits.Load(), m.misses.Load()
	return &CacheStats{
		Backend: "mongo",
		Hits:    hits,
		Misses:  misses,
		Entries: entries,
		HitRate: hitRate(hits, misses),
	}, nil
}

func (m *MongoCacheService) Close() error {
	m.l1.Purge()
	return nil
}
