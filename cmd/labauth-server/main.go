// Command labauth-server runs the account and session HTTP API backed by
// Postgres, with an optional Redis store for login rate limiting.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/labauth"
	"github.com/MrEthical07/labauth/httpapi"
	otelexport "github.com/MrEthical07/labauth/metrics/export/otel"
	"github.com/MrEthical07/labauth/refresh"
	"github.com/MrEthical07/labauth/storage/postgres"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const (
	envDatabaseURL = "DATABASE_URL"
	envRedisURL    = "REDIS_URL"
	envHTTPAddr    = "HTTP_ADDR"

	defaultHTTPAddr = ":8080"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "labauth-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := labauth.ConfigFromEnv(os.LookupEnv)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Production)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn := os.Getenv(envDatabaseURL)
	if dsn == "" {
		return fmt.Errorf("%s is required", envDatabaseURL)
	}
	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db.DB); err != nil {
		return err
	}

	builder := labauth.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithAccountStore(postgres.NewAccountRepository(db)).
		WithRefreshRepository(postgres.NewRefreshRepository(db)).
		WithAuditLog(postgres.NewAuditRepository(db))

	if raw := os.Getenv(envRedisURL); raw != "" {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envRedisURL, err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, limiter will fall back", zap.Error(err))
		}
		builder = builder.WithRedis(rdb)
	}

	svc, err := builder.Build()
	if err != nil {
		return err
	}
	defer svc.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	exporter, err := otelexport.NewExporter(provider.Meter("github.com/MrEthical07/labauth"), svc)
	if err != nil {
		return err
	}
	defer func() { _ = exporter.Close() }()

	router := httpapi.NewHandler(svc, cfg, logger).Router()
	router.Get("/metrics", metricsHandler(reader, logger))

	if cfg.Refresh.SweepInterval > 0 {
		go refresh.NewSweeper(svc, cfg.Refresh.SweepInterval, logger.Named("sweeper")).Run(ctx)
	}

	addr := os.Getenv(envHTTPAddr)
	if addr == "" {
		addr = defaultHTTPAddr
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
