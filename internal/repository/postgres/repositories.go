package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
)

// Repositories groups the PostgreSQL-backed repositories.
type Repositories struct {
	Users  *UserRepository
	Realms *RealmRepository
}

// NewRepositories wires all repositories against the shared pool.
func NewRepositories(pool *pgxpool.Pool, realmDefaults domain.RealmLockoutConfig) *Repositories {
	return &Repositories{
		Users:  NewUserRepository(pool),
		Realms: NewRealmRepository(pool, realmDefaults),
	}
}
