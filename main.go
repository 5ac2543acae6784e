package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/gazetteer-geocoder/app/config"
	"github.com/gazetteer-geocoder/app/controllers"
	"github.com/gazetteer-geocoder/app/services"
	"github.com/gazetteer-geocoder/internal/gazetteer"
	"github.com/gazetteer-geocoder/internal/index"
	"github.com/gazetteer-geocoder/internal/normalizer"
	"github.com/gazetteer-geocoder/internal/resolver"
	"github.com/gazetteer-geocoder/routes"
)

func main() {
	// .env is optional, real deployments set the environment directly.
	_ = godotenv.Load()
	loadConfig()

	logger := initLogger()
	defer logger.Sync()

	logger.Info("starting gazetteer geocoder")

	mongoDB := initMongoDB(logger)
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			logger.Error("mongodb disconnect", zap.Error(err))
		}
	}()

	store := gazetteer.NewStore(mongoDB, logger)
	builder := index.NewBuilder(store, normalizer.NewTextNormalizer(), logger)
	snapshots := index.NewStore()

	// The service refuses to start without an index; resolution against an
	// empty gazetteer would return confident no-matches for everything.
	buildCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	snap, err := builder.Build(buildCtx)
	cancel()
	if err != nil {
		logger.Fatal("initial index build failed", zap.Error(err))
	}
	snapshots.Swap(snap)

	cacheService := initCache(mongoDB, logger)
	defer cacheService.Close()

	spatialResolver := resolver.NewSpatialResolver(snapshots, &config.C, logger)
	geocodeService := services.NewGeocodeService(spatialResolver, cacheService, snapshots, &config.C, logger)
	adminService := services.NewAdminService(store, builder, snapshots, cacheService, logger)

	geocodeController := controllers.NewGeocodeController(geocodeService, spatialResolver, snapshots, logger)
	adminController := controllers.NewAdminController(adminService, logger)

	if getEnv("APP_ENV", "development") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	routes.SetupAllRoutes(router, geocodeController, adminController)

	port := getEnv("APP_PORT", viper.GetString("app.port"))
	logger.Info("gazetteer geocoder listening",
		zap.String("port", port),
		zap.String("gazetteer_version", snap.Version()))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func loadConfig() {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("mongo.url", "mongodb://localhost:27017/gazetteer")
	viper.SetDefault("mongo.database", "gazetteer")
	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("cache.backend", "hybrid")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("no config file loaded: %v", err)
	}

	// Engine tunables live in their own file so ops can adjust thresholds
	// without touching service wiring.
	if path := getEnv("GEOCODER_CONFIG", "./config/geocoder.yaml"); path != "" {
		if err := config.Load(path); err != nil {
			log.Printf("using default geocoder tunables: %v", err)
		}
	}
}

func initLogger() *zap.Logger {
	var cfg zap.Config
	if getEnv("APP_ENV", "development") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatal("cannot initialize logger:", err)
	}
	return logger
}

func initMongoDB(logger *zap.Logger) *mongo.Database {
	mongoURL := getEnv("MONGO_URL", viper.GetString("mongo.url"))

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURL))
	if err != nil {
		logger.Fatal("mongodb connect", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("mongodb ping", zap.Error(err))
	}

	dbName := getEnv("MONGO_DATABASE", viper.GetString("mongo.database"))
	logger.Info("connected to mongodb", zap.String("database", dbName))
	return client.Database(dbName)
}

// initCache wires the configured cache backend: "hybrid" (Redis over
// Mongo), "redis", "mongo" or "memory". Failures fall back to the
// in-process cache, the service runs fine without shared caching.
func initCache(mongoDB *mongo.Database, logger *zap.Logger) services.ICacheService {
	backend := getEnv("CACHE_BACKEND", viper.GetString("cache.backend"))

	newRedis := func() services.ICacheService {
		opts, err := redis.ParseURL(getEnv("REDIS_URL", viper.GetString("redis.url")))
		if err != nil {
			logger.Warn("bad redis url", zap.Error(err))
			return nil
		}
		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable", zap.Error(err))
			return nil
		}
		return services.NewRedisCacheService(client, &config.C.Cache, logger)
	}
	newMongo := func() services.ICacheService {
		c, err := services.NewMongoCacheService(mongoDB, &config.C.Cache, logger)
		if err != nil {
			logger.Warn("mongo cache init failed", zap.Error(err))
			return nil
		}
		return c
	}

	switch backend {
	case "hybrid":
		r, m := newRedis(), newMongo()
		if r != nil && m != nil {
			return services.NewHybridCacheService(r, m, logger)
		}
		if r != nil {
			return r
		}
		if m != nil {
			return m
		}
	case "redis":
		if r := newRedis(); r != nil {
			return r
		}
	case "mongo":
		if m := newMongo(); m != nil {
			return m
		}
	}
	logger.Info("using in-process result cache")
	return services.NewMemoryCacheService(&config.C.Cache, logger)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
