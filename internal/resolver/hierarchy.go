package resolver

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/index"
)

// ContainingFeature returns the polygon feature of a layer containing the
// point, or nil.
func ContainingFeature(snap *index.Snapshot, layer string, pt orb.Point) *models.AdminFeature {
	for _, f := range snap.Features(layer) {
		if planar.MultiPolygonContains(f.Geometry, pt) {
			return f
		}
	}
	return nil
}

// LineageForPoint derives the full administrative lineage of a point by
// spatial containment, finest layer first. Used when a feature's
// denormalized lineage is incomplete.
func LineageForPoint(snap *index.Snapshot, pt orb.Point) models.Lineage {
	var lin models.Lineage
	for _, layer := range models.PolygonLayers {
		f := ContainingFeature(snap, layer, pt)
		if f == nil {
			continue
		}
		switch layer {
		case models.LayerBoma:
			lin.Boma = f.Name
		case models.LayerPayam:
			lin.Payam = f.Name
		case models.LayerCounty:
			lin.County = f.Name
		case models.LayerState:
			lin.State = f.Name
		}
	}
	return lin
}

// mergeLineage fills the gaps of a denormalized lineage from a spatially
// derived one. Stored values win.
func mergeLineage(stored, derived models.Lineage) models.Lineage {
	if stored.Boma == "" {
		stored.Boma = derived.Boma
	}
	if stored.Payam == "" {
		stored.Payam = derived.Payam
	}
	if stored.County == "" {
		stored.County = derived.County
	}
	if stored.State == "" {
		stored.State = derived.State
	}
	return stored
}
