package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/models"
)

type memoryEntry struct {
	result    *models.GeocodeResult
	version   string
	expiresAt time.Time
}

// MemoryCacheService is the in-process cache used when no Redis or Mongo is
// configured, and in tests. Expired entries are reaped lazily on read.
type MemoryCacheService struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	hits    atomic.Int64
	misses  atomic.Int64
	logger  *zap.Logger
}

func NewMemoryCacheService(cfg *config.CacheCfg, logger *zap.Logger) *MemoryCacheService {
	return &MemoryCacheService{
		entries: make(map[string]memoryEntry),
		ttl:     cfg.TTL,
		logger:  logger,
	}
}

func (m *MemoryCacheService) Get(_ context.Context, fingerprint string) (*models.GeocodeResult, bool) {
	m.mu.RLock()
	entry, ok := m.entries[fingerprint]
	m.mu.RUnlock()

	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, fingerprint)
		m.mu.Unlock()
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return entry.result, true
}

func (m *MemoryCacheService) Set(_ context.Context, fingerprint string, result *models.GeocodeResult, gazetteerVersion string) error {
	m.mu.Lock()
	m.entries[fingerprint] = memoryEntry{
		result:    result,
		version:   gazetteerVersion,
		expiresAt: time.Now().Add(m.ttl),
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCacheService) Delete(_ context.Context, fingerprint string) error {
	m.mu.Lock()
	delete(m.entries, fingerprint)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCacheService) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCacheService) InvalidateByGazetteerVersion(_ context.Context, keepVersion string) error {
	m.mu.Lock()
	removed := 0
	for k, entry := range m.entries {
		if entry.version != keepVersion {
			delete(m.entries, k)
			removed++
		}
	}
	m.mu.Unlock()
	if removed > 0 {
		m.logger.Info("cache invalidated",
			zap.String("keep_version", keepVersion), zap.Int("removed", removed))
	}
	return nil
}

func (m *MemoryCacheService) GetStats(_ context.Context) (*CacheStats, error) {
	m.mu.RLock()
	entries := int64(len(m.entries))
	m.mu.RUnlock()

	hits, misses := m.hits.Load(), m.misses.Load()
	return &CacheStats{
		Backend: "memory",
		Hits:    hits,
		Misses:  misses,
		Entries: entries,
		HitRate: hitRate(hits, misses),
	}, nil
}

func (m *MemoryCacheService) Close() error { return nil }
