package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/internal/gazetteer"
	"github.com/gazetteer-geocoder/internal/index"
	"github.com/gazetteer-geocoder/internal/normalizer"
)

// The worker triggers periodic index rebuilds so curation done directly in
// the database (bulk imports, ingestion pipelines) becomes searchable
// without anyone calling the admin API. With API_URL set it asks the
// running service to reindex; otherwise it runs a local build as an ingest
// validation pass and reports the counts.
func main() {
	if path := envOr("GEOCODER_CONFIG", "config/geocoder.yaml"); path != "" {
		if err := config.Load(path); err != nil {
			log.Printf("using default geocoder tunables: %v", err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("cannot initialize logger:", err)
	}
	defer logger.Sync()

	interval := 15 * time.Minute
	if v := os.Getenv("REINDEX_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			interval = d
		}
	}

	apiURL := os.Getenv("API_URL")
	rebuild := buildTrigger(apiURL, logger)

	logger.Info("reindex worker started",
		zap.Duration("interval", interval),
		zap.String("api_url", apiURL))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	rebuild()
	for {
		select {
		case <-ticker.C:
			rebuild()
		case <-quit:
			logger.Info("worker shutting down")
			return
		}
	}
}

func buildTrigger(apiURL string, logger *zap.Logger) func() {
	if apiURL != "" {
		client := &http.Client{Timeout: 5 * time.Minute}
		return func() {
			resp, err := client.Post(apiURL+"/v1/admin/reindex", "application/json", nil)
			if err != nil {
				logger.Error("reindex request failed", zap.Error(err))
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				logger.Error("reindex rejected", zap.Int("status", resp.StatusCode))
				return
			}
			logger.Info("reindex triggered")
		}
	}

	mongoURL := envOr("MONGO_URL", "mongodb://localhost:27017/gazetteer")
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURL))
	if err != nil {
		logger.Fatal("mongodb connect", zap.Error(err))
	}
	db := client.Database(envOr("MONGO_DATABASE", "gazetteer"))
	store := gazetteer.NewStore(db, logger)
	builder := index.NewBuilder(store, normalizer.NewTextNormalizer(), logger)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		snap, err := builder.Build(ctx)
		if err != nil {
			logger.Error("validation build failed", zap.Error(err))
			return
		}
		logger.Info("validation build complete",
			zap.String("version", snap.Version()),
			zap.String("counts", fmt.Sprint(snap.Counts())))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
