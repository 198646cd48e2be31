package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiConfig "dcf_valuation/pkg/api/config"
	apiValuation "dcf_valuation/pkg/api/valuation"
	"dcf_valuation/pkg/core/config"
	"dcf_valuation/pkg/core/ingest"
	"dcf_valuation/pkg/core/logging"
	"dcf_valuation/pkg/core/pipeline"
	"dcf_valuation/pkg/core/store"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML config file")
	flag.Parse()

	// Load environment variables
	_ = godotenv.Load()

	if err := run(*configPath); err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}
}

// run owns every deferred cleanup; main only exits.
func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := pipeline.NewOrchestrator(
		ingest.NewFileSnapshotSource(cfg.Data.SnapshotDir),
		buildGrowthEstimator(cfg.Growth, logger),
		cfg.Defaults,
		logger,
	)
	orch.SetWorkers(cfg.Sensitivity.Workers)

	// Persistence is optional: without DATABASE_URL reports are not stored.
	var repo *store.ReportRepo
	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Warn("database unavailable, reports will not be persisted", zap.Error(err))
		} else {
			defer pool.Close()
			if err := store.EnsureSchema(ctx, pool); err != nil {
				logger.Warn("schema setup failed", zap.Error(err))
			}
			repo = store.NewReportRepo(pool)
			orch.SetStore(repo)
			logger.Info("report persistence enabled")
		}
	}

	handler := apiValuation.NewHandler(orch, cfg.Server.AllowedOrigins, logger)
	handler.SetWorkers(cfg.Sensitivity.Workers)
	if repo != nil {
		handler.SetReports(repo)
	}

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("/api/config", apiConfig.NewHandler(cfg).HandleConfig)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("API server starting",
		zap.String("addr", cfg.Server.Addr),
		zap.Strings("routes", []string{
			"GET  /health",
			"POST /api/dcf",
			"POST /api/dcf/report",
			"POST /api/dcf/project",
			"GET  /api/dcf/runs",
			"GET  /api/config",
			"GET  /metrics",
		}),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", zap.Error(err))
		return err
	}
	return nil
}

func buildGrowthEstimator(cfg config.GrowthConfig, logger *zap.Logger) ingest.GrowthEstimator {
	if !cfg.Enabled {
		return nil
	}
	var est ingest.GrowthEstimator = ingest.NewYahooGrowthEstimator(cfg.URLPattern, cfg.Timeout)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		est = ingest.NewCachedGrowthEstimator(est, rdb, cfg.CacheTTL, logger)
		logger.Info("growth estimate cache enabled", zap.String("redis", cfg.RedisAddr))
	}
	return est
}
