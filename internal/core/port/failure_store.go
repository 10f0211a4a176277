package port

import (
	"context"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
)

// LoginFailureStore exposes persistence behavior for login failure records.
// Writes are only ever issued by the protector's single worker; readers may
// observe state that lags events still waiting in the queue.
type LoginFailureStore interface {
	// Get returns the failure record for the pair, or repository.ErrNotFound
	// when the user has no failures on file.
	Get(ctx context.Context, realmID, userID string) (*domain.LoginFailure, error)
	// Put creates or replaces the failure record.
	Put(ctx context.Context, failure domain.LoginFailure) error
	// Delete removes the record for one user.
	Delete(ctx context.Context, realmID, userID string) error
	// DeleteAll removes every record in the realm.
	DeleteAll(ctx context.Context, realmID string) error
}
