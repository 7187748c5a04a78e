package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"

	orderconsumer "github.com/kasuwa-hq/kasuwa-backend/internal/consumers/orders"
	"github.com/kasuwa-hq/kasuwa-backend/internal/splits"
	"github.com/kasuwa-hq/kasuwa-backend/internal/wallet"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/config"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/migrate"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	outboxidempotency "github.com/kasuwa-hq/kasuwa-backend/pkg/outbox/idempotency"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/pubsub"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/redis"
)

const processedEventTTL = 7 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

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

	guard, err := outboxidempotency.NewManager(redisClient, processedEventTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	consumer, err := orderconsumer.NewConsumer(walletService, guard, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "worker ready")

	subscription := pubsubClient.OrdersSubscription()
	err = subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		handleMessage(ctx, logg, consumer, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}

// handleMessage bridges one Pub/Sub message into the consumer. Malformed
// messages are acked so they do not poison the subscription; processing
// failures are nacked for redelivery.
func handleMessage(ctx context.Context, logg *logger.Logger, consumer *orderconsumer.Consumer, msg *gcppubsub.Message) {
	logCtx := logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})

	eventType, err := enums.ParseOutboxEventType(msg.Attributes["event_type"])
	if err != nil {
		logg.Warn(logCtx, "unknown event type, dropping message")
		msg.Ack()
		return
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		logg.Error(logCtx, "failed to decode envelope", err)
		msg.Ack()
		return
	}

	if err := consumer.Process(ctx, eventType, envelope); err != nil {
		logg.Error(logCtx, "event processing failed", err)
		msg.Nack()
		return
	}

	msg.Ack()
}
