package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kasuwa-hq/kasuwa-backend/internal/provisioning"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/config"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/metrics"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/migrate"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/paystack"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "provision-subaccounts"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "provision-subaccounts"

	logg = logger.New(logger.Options{
		ServiceName: "provision-subaccounts",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
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

	paystackClient, err := paystack.NewClient(
		cfg.Paystack.SecretKey,
		paystack.WithBaseURL(cfg.Paystack.BaseURL),
		paystack.WithTimeout(cfg.Paystack.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	jobMetrics := metrics.NewBatchJobMetrics(prometheus.DefaultRegisterer)

	service, err := provisioning.NewService(provisioning.Params{
		Runner:   dbClient,
		Repo:     provisioning.NewRepository(dbClient.DB()),
		Provider: paystackClient,
		Locker:   redisClient,
		Events:   events,
		Metrics:  jobMetrics,
		Config:   cfg.Provisioning,
		FeeRate:  cfg.Payout.FeeRate,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create provisioning service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting subaccount provisioning run")

	result, err := service.ProvisionAll(ctx)
	if err != nil {
		logg.Error(ctx, "provisioning run finished with errors", err)
	}
	if result != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"created": result.Created,
			"skipped": result.Skipped,
			"failed":  len(result.Failed),
		})
	}
	logg.Info(ctx, "provisioning run complete")

	if err != nil {
		os.Exit(1)
	}
}
