package port

import (
	"context"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
)

// LockoutNotifier forwards lockout decisions to the external event sink.
type LockoutNotifier interface {
	PublishTemporaryLockout(ctx context.Context, event domain.TemporaryLockoutEvent) error
	PublishPermanentLockout(ctx context.Context, event domain.PermanentLockoutEvent) error
}
