package port

import (
	"context"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
)

// UserRepository exposes the account mutations the brute-force protector
// needs. Credential verification and the rest of user administration live in
// the authentication service, not here.
type UserRepository interface {
	GetByID(ctx context.Context, realmID, id string) (*domain.User, error)
	// SetEnabled toggles the account. Disabling is how a permanent lockout is
	// enforced; re-enabling is an administrative action outside this service.
	SetEnabled(ctx context.Context, realmID, id string, enabled bool) error
	// SetDisabledReason records why the account was disabled. Returns
	// repository.ErrReadOnly for accounts backed by a read-only store.
	SetDisabledReason(ctx context.Context, realmID, id string, reason domain.DisabledReason) error
	// ClearDisabledReason removes the reason without touching the enabled flag.
	ClearDisabledReason(ctx context.Context, realmID, id string) error
}
