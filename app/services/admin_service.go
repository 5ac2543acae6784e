package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/helpers/utils"
	"github.com/gazetteer-geocoder/internal/gazetteer"
	"github.com/gazetteer-geocoder/internal/index"
)

// ErrInvalidSettlement is returned when a submitted settlement fails
// validation.
var ErrInvalidSettlement = errors.New("invalid settlement")

// ServiceStats is the admin view of the running service.
type ServiceStats struct {
	GazetteerVersion string         `json:"gazetteer_version"`
	IndexBuiltAt     time.Time      `json:"index_built_at"`
	LayerCounts      map[string]int `json:"layer_counts"`
	Cache            *CacheStats    `json:"cache"`
	UptimeSeconds    int64          `json:"uptime_seconds"`
}

// AdminService owns the mutable side of the gazetteer: index rebuilds,
// settlement curation and cache control. A write is visible to resolution
// only after the rebuild that follows it swaps in a new snapshot.
type AdminService struct {
	store     *gazetteer.Store
	builder   *index.Builder
	snapshots *index.Store
	cache     ICacheService
	logger    *zap.Logger
	startedAt time.Time

	// rebuildMu serializes rebuilds; concurrent admin writes each trigger
	// one and they must not interleave the swap/invalidate pair.
	rebuildMu sync.Mutex
}

func NewAdminService(store *gazetteer.Store, builder *index.Builder, snapshots *index.Store, cache ICacheService, logger *zap.Logger) *AdminService {
	return &AdminService{
		store:     store,
		builder:   builder,
		snapshots: snapshots,
		cache:     cache,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// RebuildIndex builds a fresh snapshot, swaps it in and drops cache entries
// from older gazetteer versions. Returns the new version.
func (a *AdminService) RebuildIndex(ctx context.Context) (string, error) {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	snap, err := a.builder.Build(ctx)
	if err != nil {
		return "", fmt.Errorf("rebuild index: %w", err)
	}
	a.snapshots.Swap(snap)

	if a.cache != nil {
		if err := a.cache.InvalidateByGazetteerVersion(ctx, snap.Version()); err != nil {
			a.logger.Warn("cache invalidation after rebuild failed", zap.Error(err))
		}
	}
	return snap.Version(), nil
}

// AddSettlement validates, persists and indexes a new settlement point.
func (a *AdminService) AddSettlement(ctx context.Context, sp *models.SettlementPoint) error {
	if strings.TrimSpace(sp.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSettlement)
	}
	if sp.Lon < -180 || sp.Lon > 180 || sp.Lat < -90 || sp.Lat > 90 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidSettlement)
	}
	if sp.FeatureID == "" {
		sp.FeatureID = "stl-" + utils.NewID()
	}
	if sp.Source == "" {
		sp.Source = "manual"
	}

	if err := a.store.SaveSettlement(ctx, sp); err != nil {
		return err
	}
	a.logger.Info("settlement saved",
		zap.String("feature_id", sp.FeatureID), zap.String("name", sp.Name))

	_, err := a.RebuildIndex(ctx)
	return err
}

// DeleteSettlement removes a settlement and rebuilds.
func (a *AdminService) DeleteSettlement(ctx context.Context, featureID string) error {
	if err := a.store.DeleteSettlement(ctx, featureID); err != nil {
		return err
	}
	a.logger.Info("settlement deleted", zap.String("feature_id", featureID))
	_, err := a.RebuildIndex(ctx)
	return err
}

// AddAlias registers an alternate name on a feature and rebuilds so it
// becomes searchable.
func (a *AdminService) AddAlias(ctx context.Context, layer, featureID, alias string) error {
	if strings.TrimSpace(alias) == "" {
		return fmt.Errorf("%w: alias is required", ErrInvalidSettlement)
	}
	if err := a.store.AddAlias(ctx, layer, featureID, alias); err != nil {
		return err
	}
	a.logger.Info("alias added",
		zap.String("layer", layer),
		zap.String("feature_id", featureID),
		zap.String("alias", alias))
	_, err := a.RebuildIndex(ctx)
	return err
}

// ClearCache drops every cached result.
func (a *AdminService) ClearCache(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Clear(ctx)
}

// Stats reports index and cache state.
func (a *AdminService) Stats(ctx context.Context) (*ServiceStats, error) {
	stats := &ServiceStats{
		UptimeSeconds: int64(time.Since(a.startedAt).Seconds()),
	}
	if snap := a.snapshots.Current(); snap != nil {
		stats.GazetteerVersion = snap.Version()
		stats.IndexBuiltAt = snap.BuiltAt()
		stats.LayerCounts = snap.Counts()
	}
	if a.cache != nil {
		cacheStats, err := a.cache.GetStats(ctx)
		if err != nil {
			return nil, err
		}
		stats.Cache = cacheStats
	}
	return stats, nil
}
