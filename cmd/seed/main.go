// Seed loads gazetteer GeoJSON files into MongoDB. It expects one
// FeatureCollection per layer in the data directory:
//
//	states.geojson, counties.geojson, payams.geojson, bomas.geojson,
//	settlements.geojson
//
// Run the API's /v1/admin/reindex afterwards to pick up the new data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/models"
	"github.com/gazetteer-geocoder/internal/gazetteer"
)

type layerFile struct {
	file     string
	layer    string
	nameKeys []string
	idKeys   []string
}

var polygonFiles = []layerFile{
	{"states.geojson", models.LayerState, []string{"name", "ADM1_EN"}, []string{"feature_id", "ADM1_PCODE"}},
	{"counties.geojson", models.LayerCounty, []string{"name", "ADM2_EN"}, []string{"feature_id", "ADM2_PCODE"}},
	{"payams.geojson", models.LayerPayam, []string{"name", "ADM3_EN"}, []string{"feature_id", "ADM3_PCODE"}},
	{"bomas.geojson", models.LayerBoma, []string{"name", "ADM4_EN"}, []string{"feature_id", "ADM4_PCODE"}},
}

func main() {
	_ = godotenv.Load()

	dataDir := flag.String("data", "./data", "directory holding the GeoJSON files")
	mongoURL := flag.String("mongo", envOr("MONGO_URL", "mongodb://localhost:27017/gazetteer"), "MongoDB connection URL")
	dbName := flag.String("db", envOr("MONGO_DATABASE", "gazetteer"), "database name")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURL))
	if err != nil {
		logger.Fatal("mongo connect failed", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	store := gazetteer.NewStore(client.Database(*dbName), logger)

	for _, lf := range polygonFiles {
		feats, err := loadPolygonFile(*dataDir+"/"+lf.file, lf)
		if err != nil {
			logger.Fatal("load failed", zap.String("file", lf.file), zap.Error(err))
		}
		if err := store.ReplaceLayer(ctx, lf.layer, feats); err != nil {
			logger.Fatal("write failed", zap.String("layer", lf.layer), zap.Error(err))
		}
		logger.Info("layer seeded", zap.String("layer", lf.layer), zap.Int("features", len(feats)))
	}

	pts, err := loadSettlementsFile(*dataDir + "/settlements.geojson")
	if err != nil {
		logger.Fatal("load failed", zap.String("file", "settlements.geojson"), zap.Error(err))
	}
	if err := store.ReplaceSettlements(ctx, pts); err != nil {
		logger.Fatal("write failed", zap.String("layer", models.LayerSettlements), zap.Error(err))
	}
	logger.Info("settlements seeded", zap.Int("features", len(pts)))
}

func loadPolygonFile(path string, lf layerFile) ([]*models.AdminFeature, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}
	var out []*models.AdminFeature
	for i, f := range fc.Features {
		name := propString(f.Properties, lf.nameKeys)
		if name == "" {
			return nil, fmt.Errorf("feature %d: no name property (tried %v)", i, lf.nameKeys)
		}
		mp, err := toMultiPolygon(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", name, err)
		}
		wkbGeom, err := gazetteer.EncodeGeometry(mp)
		if err != nil {
			return nil, fmt.Errorf("feature %q: encode geometry: %w", name, err)
		}
		id := propString(f.Properties, lf.idKeys)
		if id == "" {
			id = fmt.Sprintf("%s-%04d", lf.layer, i)
		}
		out = append(out, &models.AdminFeature{
			FeatureID:   id,
			Layer:       lf.layer,
			Name:        name,
			Lineage:     lineageFromProps(f.Properties),
			GeometryWKB: wkbGeom,
		})
	}
	return out, nil
}

func loadSettlementsFile(path string) ([]*models.SettlementPoint, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}
	var out []*models.SettlementPoint
	for i, f := range fc.Features {
		name := propString(f.Properties, []string{"name", "NAME", "featureNam"})
		if name == "" {
			return nil, fmt.Errorf("settlement %d: no name property", i)
		}
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("settlement %q: geometry is %T, want point", name, f.Geometry)
		}
		id := propString(f.Properties, []string{"feature_id", "OBJECTID"})
		if id == "" {
			id = fmt.Sprintf("stl-%05d", i)
		}
		out = append(out, &models.SettlementPoint{
			FeatureID: id,
			Name:      name,
			Lon:       pt[0],
			Lat:       pt[1],
			Lineage:   lineageFromProps(f.Properties),
			Source:    "seed",
		})
	}
	return out, nil
}

func readCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return geojson.UnmarshalFeatureCollection(data)
}

func toMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	switch geom := g.(type) {
	case orb.MultiPolygon:
		return geom, nil
	case orb.Polygon:
		return orb.MultiPolygon{geom}, nil
	}
	return nil, fmt.Errorf("geometry is %T, want polygon", g)
}

func lineageFromProps(props geojson.Properties) models.Lineage {
	return models.Lineage{
		State:  propString(props, []string{"state", "ADM1_EN"}),
		County: propString(props, []string{"county", "ADM2_EN"}),
		Payam:  propString(props, []string{"payam", "ADM3_EN"}),
		Boma:   propString(props, []string{"boma", "ADM4_EN"}),
	}
}

func propString(props geojson.Properties, keys []string) string {
	for _, k := range keys {
		if v, ok := props[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
