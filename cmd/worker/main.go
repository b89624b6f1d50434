package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/socialchef/recipebox/internal/cache"
	"github.com/socialchef/recipebox/internal/config"
	"github.com/socialchef/recipebox/internal/logger"
	"github.com/socialchef/recipebox/internal/metrics"
	"github.com/socialchef/recipebox/internal/pipeline"
	"github.com/socialchef/recipebox/internal/sentry"
	"github.com/socialchef/recipebox/internal/services/storage"
	"github.com/socialchef/recipebox/internal/telemetry"
	"github.com/socialchef/recipebox/internal/worker"
)

func main() {
	defer func() {
		sentry.Recover()
	}()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName+"-worker", cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, cfg.OTLPHeaders())
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName+"-worker", cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else {
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize business metrics
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	slog.SetDefault(logger.New(cfg.Env, cfg.LogLevel))

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open recipe store: %v", err)
	}
	defer store.Close()

	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	p := pipeline.FromConfig(cfg, cache.NewRedisDocumentCache(redisClient))
	processor := worker.NewRecipeProcessor(p, store, workerMetrics)

	srv, err := worker.NewServer(cfg.RedisURL, 0)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}

	slog.Info("Starting worker", "storage", cfg.Storage.Backend, "ai_provider", cfg.AI.Provider)

	if err := srv.Start(worker.NewServeMux(processor)); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down worker...")
	srv.Shutdown()
}
