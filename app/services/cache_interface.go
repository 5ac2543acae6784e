package services

import (
	"context"

	"github.com/gazetteer-geocoder/app/models"
)

// CacheStats reports cache effectiveness for the admin surface.
type CacheStats struct {
	Backend string  `json:"backend"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Entries int64   `json:"entries"`
	HitRate float64 `json:"hit_rate"`
}

// ICacheService caches geocode results keyed by fingerprint. A fingerprint
// binds the normalized text to a gazetteer version, so results from a stale
// index can never be served after a rebuild, and
// InvalidateByGazetteerVersion clears them out eagerly.
type ICacheService interface {
	Get(ctx context.Context, fingerprint string) (*models.GeocodeResult, bool)
	Set(ctx context.Context, fingerprint string, result *models.GeocodeResult, gazetteerVersion string) error
	Delete(ctx context.Context, fingerprint string) error
	Clear(ctx context.Context) error
	InvalidateByGazetteerVersion(ctx context.Context, keepVersion string) error
	GetStats(ctx context.Context) (*CacheStats, error)
	Close() error
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
