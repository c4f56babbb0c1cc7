package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zedpos/zedpos-backend/internal/products"
	"github.com/zedpos/zedpos-backend/internal/reconcile"
	"github.com/zedpos/zedpos-backend/internal/sales"
	"github.com/zedpos/zedpos-backend/pkg/config"
	"github.com/zedpos/zedpos-backend/pkg/db"
	"github.com/zedpos/zedpos-backend/pkg/logger"
	"github.com/zedpos/zedpos-backend/pkg/metrics"
	"github.com/zedpos/zedpos-backend/pkg/migrate"
	"github.com/zedpos/zedpos-backend/pkg/zra"
)

const jobName = "invoice_reconciler"

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconciler-worker",
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

	zraClient, err := zra.NewClient(context.Background(), cfg.ZRA, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create zra client", err)
		os.Exit(1)
	}

	service, err := reconcile.NewService(
		sales.NewRepository(dbClient.DB()),
		products.NewRepository(dbClient.DB()),
		zraClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	go serveMetrics(cfg, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"batch_size":    cfg.Reconciler.BatchSize,
		"poll_interval": cfg.Reconciler.PollInterval.String(),
	})
	logg.Info(ctx, "starting invoice reconciler")

	ticker := time.NewTicker(cfg.Reconciler.PollInterval)
	defer ticker.Stop()

	runPass(ctx, logg, service, jobMetrics, cfg.Reconciler.BatchSize)
	for {
		select {
		case <-ctx.Done():
			logg.Info(ctx, "reconciler shutting down gracefully")
			return
		case <-ticker.C:
			runPass(ctx, logg, service, jobMetrics, cfg.Reconciler.BatchSize)
		}
	}
}

func runPass(ctx context.Context, logg *logger.Logger, service reconcile.Service, jobMetrics *metrics.JobMetrics, batchSize int) {
	start := time.Now()
	result, err := service.ResubmitPending(ctx, batchSize)
	jobMetrics.ObserveDuration(jobName, time.Since(start))
	if err != nil {
		jobMetrics.IncFailure(jobName)
		logg.Error(ctx, "reconciler pass failed", err)
		return
	}
	jobMetrics.IncSuccess(jobName)

	passCtx := logg.WithFields(ctx, map[string]any{
		"scanned": result.Scanned,
		"synced":  result.Synced,
		"pending": result.Pending,
		"failed":  result.Failed,
	})
	logg.Info(passCtx, "reconciler pass complete")
}

func serveMetrics(cfg *config.Config, logg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := ":" + cfg.Reconciler.MetricsPort
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
	}
}
