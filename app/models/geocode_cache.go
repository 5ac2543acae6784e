package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeocodeCache is a persisted geocode result keyed by the SHA-256 fingerprint
// of the normalized input text. Writes are last-writer-wins upserts.
type GeocodeCache struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Fingerprint      string             `bson:"fingerprint" json:"fingerprint"`
	NormalizedText   string             `bson:"normalized_text" json:"normalized_text"`
	Result           GeocodeResult      `bson:"result" json:"result"`
	GazetteerVersion string             `bson:"gazetteer_version" json:"gazetteer_version"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	LastAccessed     time.Time          `bson:"last_accessed" json:"last_accessed"`
	AccessCount      int64              `bson:"access_count" json:"access_count"`
}
