package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/socialchef/recipebox/internal/api"
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
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName+"-server", cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, cfg.OTLPHeaders())
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName+"-server", cfg.ServiceVersion); err != nil {
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

	// Redis backs the document cache and the job queue. Without it the API
	// serves synchronous requests only.
	var (
		docs      cache.DocumentCache
		queue     worker.Enqueuer
		inspector worker.TaskInspector
	)
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		docs = cache.NewRedisDocumentCache(redisClient)

		asynqClient, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create queue client: %v", err)
		}
		defer asynqClient.Close()
		queue = asynqClient

		asynqInspector, err := worker.NewInspector(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create queue inspector: %v", err)
		}
		defer asynqInspector.Close()
		inspector = asynqInspector
	} else {
		slog.Warn("REDIS_URL not set, async jobs and document caching disabled")
	}

	apiServer := api.NewServer(cfg, pipeline.FromConfig(cfg, docs), store, queue, inspector)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(apiServer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting server", "port", cfg.Port, "storage", cfg.Storage.Backend, "ai_provider", cfg.AI.Provider)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
