package gazetteer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/models"
)

// ErrNotFound is returned when a feature id does not exist.
var ErrNotFound = errors.New("gazetteer: feature not found")

const (
	featuresCollection    = "admin_features"
	settlementsCollection = "settlements"
)

// Store reads and writes gazetteer features in MongoDB. Polygon geometry is
// stored as WKB and decoded on load, so the documents stay portable across
// ingestion tooling.
type Store struct {
	features    *mongo.Collection
	settlements *mongo.Collection
	logger      *zap.Logger
}

func NewStore(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		features:    db.Collection(featuresCollection),
		settlements: db.Collection(settlementsCollection),
		logger:      logger,
	}
}

// LoadAdminFeatures returns every polygon feature in a layer with geometry
// decoded. Features whose geometry fails to decode are skipped and logged,
// not fatal: one bad ingest row must not block an index rebuild.
func (s *Store) LoadAdminFeatures(ctx context.Context, layer string) ([]*models.AdminFeature, error) {
	cur, err := s.features.Find(ctx, bson.M{"layer": layer})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", layer, err)
	}
	defer cur.Close(ctx)

	var out []*models.AdminFeature
	for cur.Next(ctx) {
		var f models.AdminFeature
		if err := cur.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode %s feature: %w", layer, err)
		}
		if err := decodeGeometry(&f); err != nil {
			s.logger.Warn("skipping feature with bad geometry",
				zap.String("layer", layer),
				zap.String("feature_id", f.FeatureID),
				zap.Error(err))
			continue
		}
		out = append(out, &f)
	}
	return out, cur.Err()
}

// LoadSettlements returns every settlement point.
func (s *Store) LoadSettlements(ctx context.Context) ([]*models.SettlementPoint, error) {
	cur, err := s.settlements.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find settlements: %w", err)
	}
	defer cur.Close(ctx)

	var out []*models.SettlementPoint
	for cur.Next(ctx) {
		var sp models.SettlementPoint
		if err := cur.Decode(&sp); err != nil {
			return nil, fmt.Errorf("decode settlement: %w", err)
		}
		out = append(out, &sp)
	}
	return out, cur.Err()
}

// SaveSettlement upserts a settlement point by feature id.
func (s *Store) SaveSettlement(ctx context.Context, sp *models.SettlementPoint) error {
	now := time.Now().UTC()
	sp.UpdatedAt = now
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = now
	}
	_, err := s.settlements.UpdateOne(ctx,
		bson.M{"feature_id": sp.FeatureID},
		bson.M{"$set": sp},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save settlement %s: %w", sp.FeatureID, err)
	}
	return nil
}

// DeleteSettlement removes a settlement point.
func (s *Store) DeleteSettlement(ctx context.Context, featureID string) error {
	res, err := s.settlements.DeleteOne(ctx, bson.M{"feature_id": featureID})
	if err != nil {
		return fmt.Errorf("delete settlement %s: %w", featureID, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddAlias registers an alternate name on a feature. The alias becomes
// searchable after the next index rebuild.
func (s *Store) AddAlias(ctx context.Context, layer, featureID, alias string) error {
	coll := s.features
	filter := bson.M{"layer": layer, "feature_id": featureID}
	if layer == models.LayerSettlements {
		coll = s.settlements
		filter = bson.M{"feature_id": featureID}
	}
	res, err := coll.UpdateOne(ctx, filter, bson.M{
		"$addToSet": bson.M{"aliases": alias},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("add alias to %s/%s: %w", layer, featureID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceLayer swaps the full contents of one polygon layer. Used by the
// seed tool; not safe to run concurrently with an index rebuild.
func (s *Store) ReplaceLayer(ctx context.Context, layer string, feats []*models.AdminFeature) error {
	if _, err := s.features.DeleteMany(ctx, bson.M{"layer": layer}); err != nil {
		return fmt.Errorf("clear layer %s: %w", layer, err)
	}
	if len(feats) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(feats))
	for _, f := range feats {
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		f.UpdatedAt = now
		docs = append(docs, f)
	}
	if _, err := s.features.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert layer %s: %w", layer, err)
	}
	return nil
}

// ReplaceSettlements swaps the full contents of the settlements collection.
func (s *Store) ReplaceSettlements(ctx context.Context, pts []*models.SettlementPoint) error {
	if _, err := s.settlements.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear settlements: %w", err)
	}
	if len(pts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(pts))
	for _, sp := range pts {
		if sp.CreatedAt.IsZero() {
			sp.CreatedAt = now
		}
		sp.UpdatedAt = now
		docs = append(docs, sp)
	}
	if _, err := s.settlements.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert settlements: %w", err)
	}
	return nil
}

// Ping verifies the backing connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.features.Database().Client().Ping(ctx, nil)
}

func decodeGeometry(f *models.AdminFeature) error {
	if len(f.GeometryWKB.Data) == 0 {
		return errors.New("empty geometry")
	}
	geom, err := wkb.Unmarshal(f.GeometryWKB.Data)
	if err != nil {
		return err
	}
	switch g := geom.(type) {
	case orb.MultiPolygon:
		f.Geometry = g
	case orb.Polygon:
		f.Geometry = orb.MultiPolygon{g}
	default:
		return fmt.Errorf("unsupported geometry type %T", geom)
	}
	return nil
}

// EncodeGeometry serializes a multipolygon for storage.
func EncodeGeometry(mp orb.MultiPolygon) (primitive.Binary, error) {
	data, err := wkb.Marshal(mp)
	if err != nil {
		return primitive.Binary{}, err
	}
	return primitive.Binary{Data: data}, nil
}
