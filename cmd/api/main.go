package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/docroute/docroute-backend/api/controllers"
	"github.com/docroute/docroute-backend/api/routes"
	"github.com/docroute/docroute-backend/internal/documents"
	"github.com/docroute/docroute-backend/internal/history"
	"github.com/docroute/docroute-backend/internal/users"
	"github.com/docroute/docroute-backend/pkg/config"
	"github.com/docroute/docroute-backend/pkg/db"
	"github.com/docroute/docroute-backend/pkg/logger"
	"github.com/docroute/docroute-backend/pkg/metrics"
	"github.com/docroute/docroute-backend/pkg/migrate"
	"github.com/docroute/docroute-backend/pkg/outbox"
	"github.com/docroute/docroute-backend/pkg/redis"
	"github.com/docroute/docroute-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap cloud storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing storage client", err)
		}
	}()

	registry := prometheus.NewRegistry()
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	usersRepo := users.NewRepository(dbClient.DB())

	historyService, err := history.NewService(history.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create history service", err)
		os.Exit(1)
	}

	documentsService, err := documents.NewService(documents.Deps{
		Repo:              documents.NewRepository(dbClient.DB()),
		Users:             usersRepo,
		History:           historyService,
		Tx:                dbClient,
		Outbox:            outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Blob:              gcsClient,
		Metrics:           lifecycleMetrics,
		Logger:            logg,
		Bucket:            cfg.GCS.BucketName,
		UploadTTL:         cfg.GCS.UploadURLExpiry,
		DownloadTTL:       cfg.GCS.DownloadURLExpiry,
		MaxUploadBytes:    cfg.Uploads.MaxUploadBytes(),
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create documents service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config: cfg,
			Logger: logg,
			Redis:  redisClient,
			Health: controllers.HealthDeps{
				DB:      dbClient,
				Redis:   redisClient,
				Storage: gcsClient,
			},
			Documents: documentsService,
			History:   historyService,
			Users:     usersRepo,
			Metrics:   registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
