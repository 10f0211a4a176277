package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
	"github.com/arklim/social-platform-lockout/internal/core/port"
)

// StubPublisher logs lockout events instead of sending them to Kafka. Useful
// for development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly lockout notifier.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, realmID, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("realm_id", realmID),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishTemporaryLockout logs auth.user.lockout.temporary events.
func (p *StubPublisher) PublishTemporaryLockout(_ context.Context, event domain.TemporaryLockoutEvent) error {
	payload := map[string]any{
		"ip_address":   event.IPAddress,
		"num_failures": event.NumFailures,
		"not_before":   event.NotBefore,
		"occurred_at":  event.OccurredAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("auth.user.lockout.temporary", event.RealmID, event.UserID, event.OccurredAt, payload)
	return nil
}

// PublishPermanentLockout logs auth.user.lockout.permanent events.
func (p *StubPublisher) PublishPermanentLockout(_ context.Context, event domain.PermanentLockoutEvent) error {
	payload := map[string]any{
		"ip_address":   event.IPAddress,
		"num_failures": event.NumFailures,
		"disabled_at":  event.DisabledAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("auth.user.lockout.permanent", event.RealmID, event.UserID, event.DisabledAt, payload)
	return nil
}

var _ port.LockoutNotifier = (*StubPublisher)(nil)
