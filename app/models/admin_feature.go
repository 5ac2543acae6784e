package models

import (
	"time"

	"github.com/paulmach/orb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Layer identifiers for the South Sudan administrative hierarchy,
// from coarsest to finest.
const (
	LayerState       = "admin1_state"
	LayerCounty      = "admin2_county"
	LayerPayam       = "admin3_payam"
	LayerBoma        = "admin4_boma"
	LayerSettlements = "settlements"
)

// PolygonLayers lists the polygon layers in resolution (finest-first) order.
// Settlements are points and handled separately.
var PolygonLayers = []string{LayerBoma, LayerPayam, LayerCounty, LayerState}

// LayerRank returns the specificity rank of a layer: higher is finer.
// Unknown layers rank 0.
func LayerRank(layer string) int {
	switch layer {
	case LayerSettlements:
		return 5
	case LayerBoma:
		return 4
	case LayerPayam:
		return 3
	case LayerCounty:
		return 2
	case LayerState:
		return 1
	}
	return 0
}

// ParentLayer returns the next-coarser polygon layer, or "" for states.
func ParentLayer(layer string) string {
	switch layer {
	case LayerSettlements:
		return LayerBoma
	case LayerBoma:
		return LayerPayam
	case LayerPayam:
		return LayerCounty
	case LayerCounty:
		return LayerState
	}
	return ""
}

// Lineage is the chain of parent administrative names for a feature.
// Fields are empty when unknown.
type Lineage struct {
	State  string `bson:"state,omitempty" json:"state,omitempty"`
	County string `bson:"county,omitempty" json:"county,omitempty"`
	Payam  string `bson:"payam,omitempty" json:"payam,omitempty"`
	Boma   string `bson:"boma,omitempty" json:"boma,omitempty"`
}

// AdminFeature is a polygon administrative unit (state, county, payam or boma).
// Every non-state feature has exactly one parent at the next-coarser level,
// referenced by ID only.
type AdminFeature struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FeatureID string             `bson:"feature_id" json:"feature_id"`
	Layer     string             `bson:"layer" json:"layer"`
	Name      string             `bson:"name" json:"name"`
	Aliases   []string           `bson:"aliases,omitempty" json:"aliases,omitempty"`
	ParentID  string             `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Lineage   Lineage            `bson:"lineage" json:"lineage"`
	Geometry  orb.MultiPolygon   `bson:"-" json:"-"`
	// GeometryWKB holds the polygon geometry as WKB for Mongo round-trips.
	GeometryWKB primitive.Binary `bson:"geometry_wkb,omitempty" json:"-"`
	CreatedAt   time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `bson:"updated_at" json:"updated_at"`
}

// SettlementPoint is a named village/settlement with point coordinates and
// a denormalized parent lineage computed at ingestion time.
type SettlementPoint struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FeatureID string             `bson:"feature_id" json:"feature_id"`
	Name      string             `bson:"name" json:"name"`
	Aliases   []string           `bson:"aliases,omitempty" json:"aliases,omitempty"`
	Lon       float64            `bson:"lon" json:"lon"`
	Lat       float64            `bson:"lat" json:"lat"`
	Lineage   Lineage            `bson:"lineage" json:"lineage"`
	Source    string             `bson:"source,omitempty" json:"source,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Point returns the settlement coordinates as an orb point (lon, lat).
func (sp *SettlementPoint) Point() orb.Point {
	return orb.Point{sp.Lon, sp.Lat}
}
