package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/zedpos/zedpos-backend/api/routes"
	"github.com/zedpos/zedpos-backend/internal/products"
	"github.com/zedpos/zedpos-backend/internal/reports"
	"github.com/zedpos/zedpos-backend/internal/sales"
	"github.com/zedpos/zedpos-backend/pkg/config"
	"github.com/zedpos/zedpos-backend/pkg/db"
	"github.com/zedpos/zedpos-backend/pkg/logger"
	"github.com/zedpos/zedpos-backend/pkg/migrate"
	"github.com/zedpos/zedpos-backend/pkg/redis"
	"github.com/zedpos/zedpos-backend/pkg/zra"
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

	zraClient, err := zra.NewClient(context.Background(), cfg.ZRA, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create zra client", err)
		os.Exit(1)
	}

	productRepo := products.NewRepository(dbClient.DB())
	salesRepo := sales.NewRepository(dbClient.DB())

	productService, err := products.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}
	saleService, err := sales.NewService(dbClient, salesRepo, productRepo, zraClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sale service", err)
		os.Exit(1)
	}
	reportService, err := reports.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create report service", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, productService, saleService, reportService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
