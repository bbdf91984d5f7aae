package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	_ "preview-service/docs"
	"preview-service/internal/config"
	"preview-service/internal/conversion"
	"preview-service/internal/handlers"
	"preview-service/internal/logging"
	"preview-service/internal/metrics"
	"preview-service/internal/repository"
	"preview-service/internal/services"
	"preview-service/internal/services/cache"
	"preview-service/internal/services/caches"
	"preview-service/internal/storage"
)

func main() {
	cfg := InitConfig()
	logging.Setup(cfg.LogLevel)

	db := ConnectDatabase(cfg)
	previewRepo := repository.NewPreviewRepository(db)
	MigrateDatabase(previewRepo)
	minioClient := InitMinIOClient(cfg)
	store := &storage.MinioStore{Client: minioClient}

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	memoryCache := caches.NewMemoryCache(cfg.MemoryCacheBytes, cfg.CacheTTL, time.Minute)
	defer memoryCache.Close()
	var largeLayer cache.CacheLayer
	if cfg.RedisEnabled() {
		if rc := InitRedisClient(cfg); rc != nil {
			defer rc.Close()
			largeLayer = caches.NewRedisCache(rc, cfg.CacheTTL)
		}
	}
	if largeLayer == nil && cfg.CacheDir != "" {
		fileCache, err := caches.NewFileSystemCache(cfg.CacheDir, cfg.FileCacheBytes, cfg.CacheTTL, 10*time.Minute)
		if err != nil {
			log.Fatalf("File cache initialization failed: %v", err)
		}
		defer fileCache.Close()
		largeLayer = fileCache
		log.Infof("Caching large assets under %s", cfg.CacheDir)
	}
	assetCache := services.NewAssetCache(memoryCache, largeLayer, cfg.LargeAssetBytes, m)

	converter := conversion.Converter{AssimpPath: cfg.AssimpPath}
	previewService := services.NewPreviewService(previewRepo, store, cfg.MinioBucket, converter, assetCache, m)
	fetcher := storage.NewFetcher(store, cfg.MinioBucket, assetCache, cfg.FetchTimeout)
	sessionService := services.NewSessionService(fetcher, previewService, m, cfg.FrameInterval)

	app := fiber.New(fiber.Config{
		AppName:     "Preview Service",
		BodyLimit:   storage.MaxFetchBytes,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/preview")
	handlers.NewPreviewHandler(previewService).Register(api)
	handlers.NewSessionHandler(sessionService).Register(api)
	handlers.NewCacheHandler(assetCache, previewService).Register(api)

	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sessions": len(sessionService.List())})
	})

	log.Info("Registered routes:")
	for _, r := range app.GetRoutes(true) {
		log.Infof("  %s %s", r.Method, r.Path)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-stop
		log.Info("Shutting down")
		sessionService.CloseAll()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("Shutdown failed: %v", err)
		}
	}()

	log.Infof("Server listening on port %s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

func ConnectDatabase(cfg *config.Config) *gorm.DB {
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Infof("Connected to %s database", cfg.DBDriver)
	return db
}

func MigrateDatabase(repo *repository.PreviewRepositoryImpl) {
	if err := repo.Migrate(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
}

func InitMinIOClient(cfg *config.Config) *minio.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	minioClient, err := storage.NewMinioClient(ctx, cfg)
	if err != nil {
		log.Fatalf("MinIO client initialization failed: %v", err)
	}
	return minioClient
}

// InitRedisClient returns nil when Redis is unreachable; large assets then
// fall back to the file cache.
func InitRedisClient(cfg *config.Config) *storage.RedisClient {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := storage.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort)
	if err != nil {
		log.Warnf("Redis unavailable: %v", err)
		return nil
	}
	return rc
}
