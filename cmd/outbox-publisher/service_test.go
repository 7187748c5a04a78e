package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/kasuwa-hq/kasuwa-backend/pkg/config"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	var eligible []models.OutboxEvent
	for _, event := range f.events {
		if maxAttempts > 0 && event.AttemptCount >= maxAttempts {
			continue
		}
		eligible = append(eligible, event)
	}
	if len(eligible) > limit {
		return eligible[:limit], nil
	}
	return eligible, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	errFor   map[string]error
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if err, ok := f.errFor[msg.Attributes["event_id"]]; ok {
		return fakeResult{err: err}
	}
	return fakeResult{}
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.PollIntervalMS = 10
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(ServiceParams{Config: cfg, Logger: logg, Repo: repo, Publisher: pub})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return svc
}

func outboxEvent(eventType enums.OutboxEventType) models.OutboxEvent {
	payload, _ := json.Marshal(map[string]any{"eventId": uuid.NewString()})
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	first := outboxEvent(enums.EventOrderPaid)
	second := outboxEvent(enums.EventPayoutRequested)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report progress")
	}
	if len(repo.published) != 2 {
		t.Fatalf("expected 2 published, got %d", len(repo.published))
	}
	if len(pub.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.messages))
	}

	attrs := pub.messages[0].Attributes
	if attrs["event_type"] != string(enums.EventOrderPaid) {
		t.Fatalf("unexpected event_type attribute %q", attrs["event_type"])
	}
	if attrs["event_id"] != first.ID.String() {
		t.Fatalf("unexpected event_id attribute %q", attrs["event_id"])
	}
	if string(pub.messages[0].Data) != string(first.Payload) {
		t.Fatalf("payload must pass through unchanged")
	}
}

func TestProcessBatchMarksFailureAndContinues(t *testing.T) {
	broken := outboxEvent(enums.EventOrderPaid)
	healthy := outboxEvent(enums.EventPayoutSettled)
	repo := &fakeRepo{events: []models.OutboxEvent{broken, healthy}}
	pub := &fakePublisher{errFor: map[string]error{broken.ID.String(): errors.New("topic unavailable")}}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report progress")
	}
	if len(repo.failed) != 1 || repo.failed[0] != broken.ID {
		t.Fatalf("expected broken event marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != healthy.ID {
		t.Fatalf("expected healthy event published, got %v", repo.published)
	}
}

func TestProcessBatchParksExhaustedEvents(t *testing.T) {
	exhausted := outboxEvent(enums.EventOrderPaid)
	exhausted.AttemptCount = 3
	fresh := outboxEvent(enums.EventPayoutSettled)
	repo := &fakeRepo{events: []models.OutboxEvent{exhausted, fresh}}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)
	svc.cfg.Outbox.MaxAttempts = 3

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report progress")
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected only the fresh event published, got %d messages", len(pub.messages))
	}
	if pub.messages[0].Attributes["event_id"] != fresh.ID.String() {
		t.Fatalf("exhausted event must stay parked")
	}
}

func TestProcessBatchEmptyReportsIdle(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if processed {
		t.Fatalf("empty outbox must report idle")
	}
	if len(pub.messages) != 0 {
		t.Fatalf("no messages expected, got %d", len(pub.messages))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
