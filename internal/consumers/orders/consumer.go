package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox/payloads"
)

const consumerName = "order-settlement"

type splitApplier interface {
	ApplyOrderSplits(ctx context.Context, orderID uuid.UUID) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer reacts to order_paid events by applying wallet splits. The Redis
// idempotency check keeps at-least-once delivery from double-crediting,
// backed by the payment_splits unique index as the durable guard.
type Consumer struct {
	wallet  splitApplier
	manager idempotencyChecker
	logg    *logger.Logger
}

// NewConsumer builds the order settlement consumer.
func NewConsumer(wallet splitApplier, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{wallet: wallet, manager: manager, logg: logg}, nil
}

// Process handles one delivered outbox envelope. Unhandled event types ack
// silently so the subscription can carry mixed traffic.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if eventType != enums.EventOrderPaid {
		c.logg.Info(logCtx, "event not handled by settlement consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	var payload payloads.OrderPaidEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode order paid payload: %w", err)
	}
	if payload.OrderID == uuid.Nil {
		return fmt.Errorf("order id missing from payload")
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	if err := c.wallet.ApplyOrderSplits(ctx, payload.OrderID); err != nil {
		c.logg.Error(logCtx, "failed to apply order splits", err)
		// Drop the idempotency mark so redelivery retries the credit.
		_ = c.manager.Delete(ctx, consumerName, eventID)
		return err
	}

	c.logg.Info(logCtx, "order splits applied from event")
	return nil
}
