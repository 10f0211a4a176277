package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
	"github.com/arklim/social-platform-lockout/internal/core/port"
)

// RealmRepository resolves per-realm lockout settings from PostgreSQL,
// falling back to the configured defaults when a realm has no stored row.
type RealmRepository struct {
	exec     pgExecutor
	builder  squirrel.StatementBuilderType
	defaults domain.RealmLockoutConfig
}

// NewRealmRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewRealmRepository(exec pgExecutor, defaults domain.RealmLockoutConfig) *RealmRepository {
	return &RealmRepository{
		exec:     exec,
		builder:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		defaults: defaults,
	}
}

// GetLockoutConfig returns the realm's lockout settings. Stored rows are
// validated before use so a misconfigured failure factor surfaces as an error
// here instead of a division by zero inside the policy engine.
func (r *RealmRepository) GetLockoutConfig(ctx context.Context, realmID string) (domain.RealmLockoutConfig, error) {
	stmt, args, err := r.builder.
		Select(
			"max_delta_time_seconds",
			"wait_increment_seconds",
			"quick_login_check_millis",
			"minimum_quick_login_wait_seconds",
			"max_failure_wait_seconds",
			"failure_factor",
			"permanent_lockout",
			"max_temporary_lockouts",
		).
		From("lockout.realms").
		Where(squirrel.Eq{"id": realmID}).
		ToSql()
	if err != nil {
		return domain.RealmLockoutConfig{}, fmt.Errorf("build select realm sql: %w", err)
	}

	var cfg domain.RealmLockoutConfig
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(
		&cfg.MaxDeltaTimeSeconds,
		&cfg.WaitIncrementSeconds,
		&cfg.QuickLoginCheckMillis,
		&cfg.MinimumQuickLoginWaitSeconds,
		&cfg.MaxFailureWaitSeconds,
		&cfg.FailureFactor,
		&cfg.PermanentLockoutEnabled,
		&cfg.MaxTemporaryLockouts,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.defaults, nil
		}
		return domain.RealmLockoutConfig{}, fmt.Errorf("select realm lockout config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return domain.RealmLockoutConfig{}, fmt.Errorf("realm %s: %w", realmID, err)
	}

	return cfg, nil
}

var _ port.RealmConfigProvider = (*RealmRepository)(nil)
