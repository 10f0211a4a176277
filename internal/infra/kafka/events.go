package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	uuid "github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
	"github.com/arklim/social-platform-lockout/internal/core/port"
	"github.com/arklim/social-platform-lockout/internal/infra/config"
)

const schemaVersion = "1.0"

// LockoutPublisher implements port.LockoutNotifier using Kafka.
type LockoutPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewLockoutPublisher constructs a Kafka-backed lockout notifier.
func NewLockoutPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *LockoutPublisher {
	return &LockoutPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	RealmID   string           `json:"realm_id,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *LockoutPublisher) publish(ctx context.Context, eventID, eventType, realmID, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		RealmID:   realmID,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		// Key by user so lockout history for one account stays ordered
		// within a partition.
		Key:   sarama.StringEncoder(realmID + ":" + userID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishTemporaryLockout publishes auth.user.lockout.temporary events.
func (p *LockoutPublisher) PublishTemporaryLockout(ctx context.Context, event domain.TemporaryLockoutEvent) error {
	payload := struct {
		RealmID     string         `json:"realm_id"`
		UserID      string         `json:"user_id"`
		IPAddress   string         `json:"ip_address,omitempty"`
		NumFailures int            `json:"num_failures"`
		Reason      string         `json:"reason"`
		NotBefore   time.Time      `json:"not_before"`
		OccurredAt  time.Time      `json:"occurred_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		RealmID:     event.RealmID,
		UserID:      event.UserID,
		IPAddress:   event.IPAddress,
		NumFailures: event.NumFailures,
		Reason:      "brute_force_attack detected",
		NotBefore:   event.NotBefore.UTC(),
		OccurredAt:  event.OccurredAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.user.lockout.temporary", event.RealmID, event.UserID, event.OccurredAt, payload)
}

// PublishPermanentLockout publishes auth.user.lockout.permanent events.
func (p *LockoutPublisher) PublishPermanentLockout(ctx context.Context, event domain.PermanentLockoutEvent) error {
	payload := struct {
		RealmID     string         `json:"realm_id"`
		UserID      string         `json:"user_id"`
		IPAddress   string         `json:"ip_address,omitempty"`
		NumFailures int            `json:"num_failures"`
		Reason      string         `json:"reason"`
		DisabledAt  time.Time      `json:"disabled_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		RealmID:     event.RealmID,
		UserID:      event.UserID,
		IPAddress:   event.IPAddress,
		NumFailures: event.NumFailures,
		Reason:      "brute_force_attack detected",
		DisabledAt:  event.DisabledAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.user.lockout.permanent", event.RealmID, event.UserID, event.DisabledAt, payload)
}

var _ port.LockoutNotifier = (*LockoutPublisher)(nil)
