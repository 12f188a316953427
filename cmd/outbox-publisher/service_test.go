package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			saleEvent(t, "event-one", 0),
			saleEvent(t, "event-two", 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub, &fakeLeaser{})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows: %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows: %v", repo.published)
	}
}

func TestPublishCarriesEventAttributes(t *testing.T) {
	event := saleEvent(t, "evt-123", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, &fakeLeaser{})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Attributes["event_id"] != "evt-123" {
		t.Fatalf("unexpected event_id %q", msg.Attributes["event_id"])
	}
	if msg.Attributes["event_type"] != string(enums.EventSaleCreated) {
		t.Fatalf("unexpected event_type %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != event.AggregateID {
		t.Fatalf("unexpected aggregate_id %q", msg.Attributes["aggregate_id"])
	}
	if string(msg.Data) != event.Payload {
		t.Fatalf("payload not forwarded verbatim")
	}
}

func TestProcessBatchMarksUndecodablePayloadFailed(t *testing.T) {
	event := saleEvent(t, "broken", 0)
	event.Payload = "not-json"
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, &fakeLeaser{})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("expected nothing published")
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected row marked failed, got %d", len(repo.failed))
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeLeaser{})
	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected empty batch to report idle")
	}
}

func TestTickSkipsWhenLeaseHeld(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{saleEvent(t, "held", 0)}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, &fakeLeaser{err: errLeaseHeld})

	processed, err := service.tick(context.Background())
	if err != nil {
		t.Fatalf("tick returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected tick to idle while lease is held elsewhere")
	}
	if repo.fetches != 0 {
		t.Fatalf("expected no fetch without the lease, got %d", repo.fetches)
	}
}

func TestTickReleasesLease(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{saleEvent(t, "ok", 0)}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	leaser := &fakeLeaser{}
	service := newTestService(t, repo, pub, leaser)

	processed, err := service.tick(context.Background())
	if err != nil {
		t.Fatalf("tick returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected tick to process the batch")
	}
	if leaser.acquired != 1 || leaser.released != 1 {
		t.Fatalf("expected lease acquired and released once, got %d/%d", leaser.acquired, leaser.released)
	}
	if leaser.ttl != 30*time.Second {
		t.Fatalf("unexpected lease ttl %s", leaser.ttl)
	}
}

func TestTickPropagatesLeaseErrors(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, &fakeLeaser{err: errors.New("redis down")})
	if _, err := service.tick(context.Background()); err == nil {
		t.Fatalf("expected lease error")
	}
}

func TestNewServiceRequiresLeaser(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     testLogger(),
		DB:         &fakeDB{},
		PubSub:     &fakePubSubClient{},
		Repository: &fakeRepo{},
		Publisher:  &fakePublisher{},
	})
	if err == nil {
		t.Fatalf("expected error without a lease provider")
	}
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	if got := nextBackoff(0, base, maxBackoff); got != time.Second {
		t.Fatalf("expected 1s, got %s", got)
	}
	if got := nextBackoff(8*time.Second, base, maxBackoff); got != maxBackoff {
		t.Fatalf("expected cap, got %s", got)
	}
}

func newTestService(t *testing.T, repo *fakeRepo, pub *fakePublisher, leaser leaser) *Service {
	t.Helper()
	cfg := &config.Config{
		Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 3},
	}
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     testLogger(),
		DB:         &fakeDB{},
		PubSub:     &fakePubSubClient{},
		Repository: repo,
		Leaser:     leaser,
		Metrics:    metrics.NewOutboxMetrics(prometheus.NewRegistry()),
		Publisher:  pub,
		InstanceID: "worker-test",
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
}

func saleEvent(tb testing.TB, eventID string, attempts int) models.OutboxEvent {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Source:     "pos-api",
		Data:       json.RawMessage(`{"total":60.7}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.NewString(),
		EventType:     enums.EventSaleCreated,
		AggregateType: enums.AggregateSale,
		AggregateID:   uuid.NewString(),
		Payload:       string(payload),
		CreatedAt:     time.Now(),
		AttemptCount:  attempts,
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []string
	failed    []string
	fetches   int
}

func (f *fakeRepo) FetchUnpublishedTx(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	f.fetches++
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id string) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id string, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error {
	return nil
}

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher {
	return nil
}

func (f *fakePubSubClient) SalesTopic() string {
	return "pos-sales-events"
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeLeaser struct {
	err      error
	acquired int
	released int
	ttl      time.Duration
}

func (f *fakeLeaser) Acquire(_ context.Context, ttl time.Duration) (lease, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquired++
	f.ttl = ttl
	return fakeLease{leaser: f}, nil
}

type fakeLease struct {
	leaser *fakeLeaser
}

func (l fakeLease) Release(context.Context) error {
	l.leaser.released++
	return nil
}
