package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/models"
)

// HybridCacheService layers a fast tier over a durable one: reads try the
// fast tier first and backfill it on a durable hit, writes go through to
// both. Either tier failing is logged, never fatal, the resolver works
// without any cache at all.
type HybridCacheService struct {
	fast    ICacheService
	durable ICacheService
	logger  *zap.Logger
}

func NewHybridCacheService(fast, durable ICacheService, logger *zap.Logger) *HybridCacheService {
	return &HybridCacheService{
		fast:    fast,
		durable: durable,
		logger:  logger,
	}
}

func (h *HybridCacheService) Get(ctx context.Context, fingerprint string) (*models.GeocodeResult, bool) {
	if result, ok := h.fast.Get(ctx, fingerprint); ok {
		return result, true
	}
	result, ok := h.durable.Get(ctx, fingerprint)
	if !ok {
		return nil, false
	}
	// Backfill the fast tier; version is already baked into the fingerprint.
	if err := h.fast.Set(ctx, fingerprint, result, ""); err != nil {
		h.logger.Debug("fast tier backfill failed", zap.Error(err))
	}
	return result, true
}

func (h *HybridCacheService) Set(ctx context.Context, fingerprint string, result *models.GeocodeResult, gazetteerVersion string) error {
	if err := h.fast.Set(ctx, fingerprint, result, gazetteerVersion); err != nil {
		h.logger.Debug("fast tier set failed", zap.Error(err))
	}
	return h.durable.Set(ctx, fingerprint, result, gazetteerVersion)
}

func (h *HybridCacheService) Delete(ctx context.Context, fingerprint string) error {
	fastErr := h.fast.Delete(ctx, fingerprint)
	if err := h.durable.Delete(ctx, fingerprint); err != nil {
		return err
	}
	return fastErr
}

func (h *HybridCacheService) Clear(ctx context.Context) error {
	fastErr := h.fast.Clear(ctx)
	if err := h.durable.Clear(ctx); err != nil {
		return err
	}
	return fastErr
}

func (h *HybridCacheService) InvalidateByGazetteerVersion(ctx context.Context, keepVersion string) error {
	fastErr := h.fast.InvalidateByGazetteerVersion(ctx, keepVersion)
	if err := h.durable.InvalidateByGazetteerVersion(ctx, keepVersion); err != nil {
		return err
	}
	return fastErr
}

// GetStats reports the fast tier, it sees every lookup first.
func (h *HybridCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	stats, err := h.fast.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	stats.Backend = "hybrid/" + stats.Backend
	return stats, nil
}

func (h *HybridCacheService) Close() error {
	fastErr := h.fast.Close()
	if err := h.durable.Close(); err != nil {
		return err
	}
	return fastErr
}
