package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
)

type fakeWallet struct {
	applied []uuid.UUID
	err     error
}

func (f *fakeWallet) ApplyOrderSplits(ctx context.Context, orderID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, orderID)
	return nil
}

type fakeIdempotency struct {
	check    func(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	deleteFn func(ctx context.Context, consumer string, eventID uuid.UUID) error
}

func (f fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	return f.check(ctx, consumer, eventID)
}

func (f fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return f.deleteFn(ctx, consumer, eventID)
}

func mustConsumer(t *testing.T, wallet splitApplier, manager idempotencyChecker) *Consumer {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "consumer-test", Output: io.Discard})
	consumer, err := NewConsumer(wallet, manager, logg)
	if err != nil {
		t.Fatalf("NewConsumer() error: %v", err)
	}
	return consumer
}

func buildEnvelope(t *testing.T, eventID uuid.UUID, data map[string]any) outbox.PayloadEnvelope {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
}

func TestSettlementConsumerAppliesSplits(t *testing.T) {
	wallet := &fakeWallet{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer := mustConsumer(t, wallet, manager)

	orderID := uuid.New()
	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"order_id":          orderID.String(),
		"order_number":      1001,
		"payment_reference": "PSK_abc",
		"amount_kobo":       15000,
	})

	if err := consumer.Process(context.Background(), enums.EventOrderPaid, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(wallet.applied) != 1 || wallet.applied[0] != orderID {
		t.Fatalf("expected splits applied for %s, got %v", orderID, wallet.applied)
	}
}

func TestSettlementConsumerSkipsOtherEvents(t *testing.T) {
	wallet := &fakeWallet{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			t.Fatalf("idempotency should not be consulted for unhandled events")
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer := mustConsumer(t, wallet, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{})
	if err := consumer.Process(context.Background(), enums.EventPayoutRequested, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(wallet.applied) != 0 {
		t.Fatalf("expected no splits applied")
	}
}

func TestSettlementConsumerIsIdempotent(t *testing.T) {
	wallet := &fakeWallet{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return true, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer := mustConsumer(t, wallet, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"order_id": uuid.NewString(),
	})
	if err := consumer.Process(context.Background(), enums.EventOrderPaid, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(wallet.applied) != 0 {
		t.Fatalf("expected no splits applied on duplicate delivery")
	}
}

func TestSettlementConsumerDeletesMarkOnFailure(t *testing.T) {
	wallet := &fakeWallet{err: errors.New("db down")}
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	consumer := mustConsumer(t, wallet, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"order_id": uuid.NewString(),
	})
	if err := consumer.Process(context.Background(), enums.EventOrderPaid, envelope); err == nil {
		t.Fatalf("expected handler error to propagate")
	}
	if !deleted {
		t.Fatalf("expected idempotency mark to be deleted after failure")
	}
}

func TestSettlementConsumerRejectsBadEnvelope(t *testing.T) {
	wallet := &fakeWallet{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer := mustConsumer(t, wallet, manager)

	missingID := buildEnvelope(t, uuid.New(), map[string]any{"order_id": uuid.NewString()})
	missingID.EventID = ""
	if err := consumer.Process(context.Background(), enums.EventOrderPaid, missingID); err == nil {
		t.Fatalf("expected error for missing event id")
	}

	noOrder := buildEnvelope(t, uuid.New(), map[string]any{})
	if err := consumer.Process(context.Background(), enums.EventOrderPaid, noOrder); err == nil {
		t.Fatalf("expected error for missing order id")
	}
}
