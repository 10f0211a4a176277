package port

import (
	"context"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
)

// RealmConfigProvider resolves the lockout settings for a realm. The provider
// is queried once per processed event so configuration changes take effect
// without restarting the worker.
type RealmConfigProvider interface {
	GetLockoutConfig(ctx context.Context, realmID string) (domain.RealmLockoutConfig, error)
}
