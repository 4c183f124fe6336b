package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ggonzalez94/court-reservations/internal/api/http/handlers"
	"github.com/ggonzalez94/court-reservations/internal/application/service"
	"github.com/ggonzalez94/court-reservations/internal/config"
	"github.com/ggonzalez94/court-reservations/internal/domain/ports"
	venuespg "github.com/ggonzalez94/court-reservations/internal/infrastructures/db/postgres/repo"
	cacheredis "github.com/ggonzalez94/court-reservations/internal/infrastructures/db/redis"
	courtstracing "github.com/ggonzalez94/court-reservations/internal/infrastructures/db/tracing"
	revaclient "github.com/ggonzalez94/court-reservations/internal/infrastructures/reva/http/client"
	"github.com/ggonzalez94/court-reservations/internal/registry"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Log.Level)
	defer func() {
		_ = log.Sync()
	}()

	tp, err := courtstracing.NewProvider("courts-api", cfg.Jaeger)
	if err != nil {
		log.Fatal("failed to init tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info("courts-api starting", zap.String("http_addr", addr))

	venueRegistry, closeRegistry, err := buildRegistry(cfg, log)
	if err != nil {
		log.Fatal("failed to build venue registry", zap.Error(err))
	}
	defer closeRegistry()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	}()

	snapshotCache := cacheredis.NewSnapshotCache(redisClient)
	reva := revaclient.NewClient(cfg.Reva.BaseURL, cfg.Reva.WarmupPath, cfg.Reva.Timeout)
	courtsService := service.NewCourtsService(
		log,
		venueRegistry,
		reva,
		reva,
		snapshotCache,
		cfg.SnapshotCacheTTL,
		cfg.Reva.MaxConcurrentFetches,
	)

	courtsHandler := handlers.NewCourtsHandler(log, courtsService, cfg.HTTP.RequestTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/v1/courts", courtsHandler.GetCourts)

	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.LoggingMiddleware(log, mux),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown error", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", zap.Error(err))
		}
	}
}

func buildRegistry(cfg *config.Config, log *zap.Logger) (ports.VenueRegistry, func(), error) {
	if !cfg.DB.Enabled() {
		log.Info("using embedded venue registry")
		return registry.NewStatic(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo, err := venuespg.New(ctx, cfg.DB.DSN())
	if err != nil {
		return nil, nil, err
	}
	log.Info("using postgres venue registry", zap.String("db_host", cfg.DB.Host))
	return repo, repo.Close, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func setupLogger(level string) *zap.Logger {
	zapLevel := parseLogLevel(level)
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return log
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
