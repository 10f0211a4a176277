package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
	"github.com/arklim/social-platform-lockout/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*LockoutPublisher, *fakeAsyncProducer) {
	t.Helper()

	asyncProducer := newFakeAsyncProducer()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "auth",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewLockoutPublisher(producer, config.AppSettings{
		Name: "lockout-service",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func TestPublishTemporaryLockout(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	occurredAt := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	event := domain.TemporaryLockoutEvent{
		EventID:     "event-123",
		RealmID:     "realm-1",
		UserID:      "user-42",
		IPAddress:   "203.0.113.7",
		NumFailures: 3,
		NotBefore:   occurredAt.Add(10 * time.Second),
		OccurredAt:  occurredAt,
	}

	if err := publisher.PublishTemporaryLockout(context.Background(), event); err != nil {
		t.Fatalf("PublishTemporaryLockout returned error: %v", err)
	}

	msg := <-asyncProducer.input
	if msg.Topic != "auth.user.lockout.temporary" {
		t.Fatalf("unexpected topic %s", msg.Topic)
	}

	key, err := msg.Key.Encode()
	if err != nil {
		t.Fatalf("encode key: %v", err)
	}
	if string(key) != "realm-1:user-42" {
		t.Fatalf("unexpected message key %s", key)
	}

	value, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("encode value: %v", err)
	}

	var envelope struct {
		EventID   string `json:"event_id"`
		EventType string `json:"event_type"`
		RealmID   string `json:"realm_id"`
		UserID    string `json:"user_id"`
		Version   string `json:"version"`
		Payload   struct {
			NumFailures int       `json:"num_failures"`
			NotBefore   time.Time `json:"not_before"`
			Reason      string    `json:"reason"`
		} `json:"payload"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	if envelope.EventID != "event-123" {
		t.Fatalf("expected event id event-123, got %s", envelope.EventID)
	}
	if envelope.EventType != "auth.user.lockout.temporary" {
		t.Fatalf("unexpected event type %s", envelope.EventType)
	}
	if envelope.Payload.NumFailures != 3 {
		t.Fatalf("expected 3 failures, got %d", envelope.Payload.NumFailures)
	}
	if !envelope.Payload.NotBefore.Equal(occurredAt.Add(10 * time.Second)) {
		t.Fatalf("unexpected not_before %v", envelope.Payload.NotBefore)
	}
	if envelope.Metadata["service"] != "lockout-service" {
		t.Fatalf("expected service metadata, got %v", envelope.Metadata)
	}
}

func TestPublishPermanentLockout(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	disabledAt := time.Date(2026, 2, 10, 9, 45, 0, 0, time.UTC)
	event := domain.PermanentLockoutEvent{
		EventID:     "event-456",
		RealmID:     "realm-1",
		UserID:      "user-42",
		IPAddress:   "203.0.113.7",
		NumFailures: 9,
		DisabledAt:  disabledAt,
	}

	if err := publisher.PublishPermanentLockout(context.Background(), event); err != nil {
		t.Fatalf("PublishPermanentLockout returned error: %v", err)
	}

	msg := <-asyncProducer.input
	if msg.Topic != "auth.user.lockout.permanent" {
		t.Fatalf("unexpected topic %s", msg.Topic)
	}

	value, err := msg.Value.Encode()
	if err != nil {
		t.Fatalf("encode value: %v", err)
	}

	var envelope struct {
		EventType string `json:"event_type"`
		Payload   struct {
			DisabledAt  time.Time `json:"disabled_at"`
			NumFailures int       `json:"num_failures"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	if envelope.EventType != "auth.user.lockout.permanent" {
		t.Fatalf("unexpected event type %s", envelope.EventType)
	}
	if !envelope.Payload.DisabledAt.Equal(disabledAt) {
		t.Fatalf("unexpected disabled_at %v", envelope.Payload.DisabledAt)
	}
	if envelope.Payload.NumFailures != 9 {
		t.Fatalf("expected 9 failures, got %d", envelope.Payload.NumFailures)
	}
}

func TestPublishCancelledContext(t *testing.T) {
	publisher, _ := newTestPublisher(t)

	// Fill the input buffer so publish must wait, then cancel.
	event := domain.TemporaryLockoutEvent{RealmID: "realm-1", UserID: "user-1", OccurredAt: time.Now()}
	if err := publisher.PublishTemporaryLockout(context.Background(), event); err != nil {
		t.Fatalf("first publish returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := publisher.PublishTemporaryLockout(ctx, event); err == nil {
		t.Fatalf("expected error publishing with cancelled context and full buffer")
	}
}
