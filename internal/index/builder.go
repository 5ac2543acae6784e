package index

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/normalizer"
)

// bucketPrecision is the geohash precision of the proximity buckets,
// roughly 5x5 km cells.
const bucketPrecision = 5

// Source loads gazetteer features for an index build.
type Source interface {
	LoadAdminFeatures(ctx context.Context, layer string) ([]*models.AdminFeature, error)
	LoadSettlements(ctx context.Context) ([]*models.SettlementPoint, error)
}

// Builder derives a fresh snapshot from the feature store. Normalized names
// and lineage are recomputed wholesale on every build, so normalizer changes
// take effect with the next rebuild.
type Builder struct {
	source     Source
	normalizer *normalizer.TextNormalizer
	logger     *zap.Logger
}

func NewBuilder(source Source, tn *normalizer.TextNormalizer, logger *zap.Logger) *Builder {
	return &Builder{
		source:     source,
		normalizer: tn,
		logger:     logger,
	}
}

// Build loads every layer and assembles an immutable snapshot.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	features := make(map[string][]*models.AdminFeature, len(models.PolygonLayers))
	for _, layer := range models.PolygonLayers {
		loaded, err := b.source.LoadAdminFeatures(ctx, layer)
		if err != nil {
			return nil, fmt.Errorf("load %s features: %w", layer, err)
		}
		features[layer] = loaded
	}

	settlements, err := b.source.LoadSettlements(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settlements: %w", err)
	}

	snap := Assemble(features, settlements, b.normalizer)

	counts := snap.Counts()
	b.logger.Info("gazetteer index built",
		zap.String("version", snap.Version()),
		zap.Int("settlements", counts[models.LayerSettlements]),
		zap.Int("bomas", counts[models.LayerBoma]),
		zap.Int("payams", counts[models.LayerPayam]),
		zap.Int("counties", counts[models.LayerCounty]),
		zap.Int("states", counts[models.LayerState]),
		zap.Duration("took", time.Since(start)))

	return snap, nil
}

// Assemble builds a snapshot from already-loaded features. The version is a
// content hash, so identical data yields an identical version string.
func Assemble(features map[string][]*models.AdminFeature, settlements []*models.SettlementPoint, tn *normalizer.TextNormalizer) *Snapshot {
	snap := &Snapshot{
		builtAt:     time.Now().UTC(),
		entries:     make(map[string][]Entry),
		exact:       make(map[string]map[string][]Entry),
		features:    make(map[string]map[string]*models.AdminFeature),
		settlements: make(map[string]*models.SettlementPoint),
		geoBuckets:  make(map[string][]string),
		counts:      make(map[string]int),
	}
	hash := sha256.New()

	layers := make([]string, 0, len(features))
	for layer := range features {
		layers = append(layers, layer)
	}
	sort.Strings(layers)

	for _, layer := range layers {
		byID := make(map[string]*models.AdminFeature, len(features[layer]))
		for _, f := range features[layer] {
			byID[f.FeatureID] = f
			lineage := normalizeLineage(f.Lineage, tn)
			addEntry(snap, Entry{
				Layer:      layer,
				FeatureID:  f.FeatureID,
				Name:       f.Name,
				Normalized: tn.Normalize(f.Name),
				Lineage:    lineage,
			})
			for _, alias := range f.Aliases {
				addEntry(snap, Entry{
					Layer:      layer,
					FeatureID:  f.FeatureID,
					Name:       f.Name,
					Normalized: tn.Normalize(alias),
					IsAlias:    true,
					Lineage:    lineage,
				})
			}
			fmt.Fprintf(hash, "%s|%s|%s|%s|%s\n",
				layer, f.FeatureID, f.Name, strings.Join(f.Aliases, ","), lineageKey(f.Lineage))
		}
		snap.features[layer] = byID
		snap.counts[layer] = len(byID)
	}

	for _, sp := range settlements {
		snap.settlements[sp.FeatureID] = sp
		lineage := normalizeLineage(sp.Lineage, tn)
		addEntry(snap, Entry{
			Layer:      models.LayerSettlements,
			FeatureID:  sp.FeatureID,
			Name:       sp.Name,
			Normalized: tn.Normalize(sp.Name),
			Lineage:    lineage,
		})
		for _, alias := range sp.Aliases {
			addEntry(snap, Entry{
				Layer:      models.LayerSettlements,
				FeatureID:  sp.FeatureID,
				Name:       sp.Name,
				Normalized: tn.Normalize(alias),
				IsAlias:    true,
				Lineage:    lineage,
			})
		}
		cell := geohash.EncodeWithPrecision(sp.Lat, sp.Lon, bucketPrecision)
		snap.geoBuckets[cell] = append(snap.geoBuckets[cell], sp.FeatureID)
		fmt.Fprintf(hash, "%s|%s|%s|%s|%.6f|%.6f\n",
			sp.FeatureID, sp.Name, strings.Join(sp.Aliases, ","), lineageKey(sp.Lineage), sp.Lon, sp.Lat)
	}
	snap.counts[models.LayerSettlements] = len(snap.settlements)

	snap.bucketKeys = make([]string, 0, len(snap.geoBuckets))
	for cell := range snap.geoBuckets {
		snap.bucketKeys = append(snap.bucketKeys, cell)
	}
	sort.Strings(snap.bucketKeys)

	snap.version = fmt.Sprintf("%x", hash.Sum(nil))[:16]
	return snap
}

func addEntry(snap *Snapshot, e Entry) {
	if e.Normalized == "" {
		return
	}
	snap.entries[e.Layer] = append(snap.entries[e.Layer], e)
	byName := snap.exact[e.Layer]
	if byName == nil {
		byName = make(map[string][]Entry)
		snap.exact[e.Layer] = byName
	}
	byName[e.Normalized] = append(byName[e.Normalized], e)
}

// lineageKey flattens lineage for the version hash. Every field resolution
// can observe feeds the hash, so an in-place edit changes the version even
// when record counts stay the same.
func lineageKey(l models.Lineage) string {
	return l.State + ">" + l.County + ">" + l.Payam + ">" + l.Boma
}

func normalizeLineage(l models.Lineage, tn *normalizer.TextNormalizer) models.Lineage {
	return models.Lineage{
		State:  tn.Normalize(l.State),
		County: tn.Normalize(l.County),
		Payam:  tn.Normalize(l.Payam),
		Boma:   tn.Normalize(l.Boma),
	}
}
