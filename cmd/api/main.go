package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/kasuwa-hq/kasuwa-backend/api/routes"
	"github.com/kasuwa-hq/kasuwa-backend/internal/analytics"
	"github.com/kasuwa-hq/kasuwa-backend/internal/bankaccounts"
	"github.com/kasuwa-hq/kasuwa-backend/internal/orders"
	"github.com/kasuwa-hq/kasuwa-backend/internal/payouts"
	"github.com/kasuwa-hq/kasuwa-backend/internal/products"
	"github.com/kasuwa-hq/kasuwa-backend/internal/splits"
	"github.com/kasuwa-hq/kasuwa-backend/internal/wallet"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/config"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/migrate"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/paystack"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/redis"
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

	calc, err := splits.NewCalculator(cfg.Payout.FeeRate)
	if err != nil {
		logg.Error(context.Background(), "failed to create split calculator", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(dbClient, wallet.NewRepository(dbClient.DB()), calc, events, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(dbClient, orders.NewRepository(dbClient.DB()), paystackClient, events, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(dbClient, payouts.NewRepository(dbClient.DB()), cfg.Payout, events, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	bankAccountService, err := bankaccounts.NewService(dbClient, bankaccounts.NewRepository(dbClient.DB()), paystackClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create bank account service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(dbClient.DB(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ordersService,
			walletService,
			payoutService,
			bankAccountService,
			productService,
			analyticsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
