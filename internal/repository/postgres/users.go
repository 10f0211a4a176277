package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
	"github.com/arklim/social-platform-lockout/internal/core/port"
	"github.com/arklim/social-platform-lockout/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements port.UserRepository using PostgreSQL.
//
// Accounts sourced from a read-only federation store carry read_only = true.
// The enabled flag lives in local storage for every account, so a permanent
// lockout can disable even a federated user; only the disabled reason is
// rejected with repository.ErrReadOnly.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a user by realm and identifier.
func (r *UserRepository) GetByID(ctx context.Context, realmID, id string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"realm_id",
			"username",
			"enabled",
			"disabled_reason",
			"read_only",
			"registered_at",
		).
		From("lockout.users").
		Where(squirrel.Eq{"realm_id": realmID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var (
		user           domain.User
		disabledReason sql.NullString
	)
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(
		&user.ID,
		&user.RealmID,
		&user.Username,
		&user.Enabled,
		&disabledReason,
		&user.ReadOnly,
		&user.RegisteredAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	if disabledReason.Valid {
		user.DisabledReason = domain.DisabledReason(disabledReason.String)
	}

	return &user, nil
}

// SetEnabled toggles the account's enabled flag.
func (r *UserRepository) SetEnabled(ctx context.Context, realmID, id string, enabled bool) error {
	stmt, args, err := r.builder.
		Update("lockout.users").
		Set("enabled", enabled).
		Where(squirrel.Eq{"realm_id": realmID, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update enabled sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetDisabledReason records why the account was disabled. Read-only accounts
// reject the mutation with repository.ErrReadOnly.
func (r *UserRepository) SetDisabledReason(ctx context.Context, realmID, id string, reason domain.DisabledReason) error {
	return r.updateDisabledReason(ctx, realmID, id, string(reason))
}

// ClearDisabledReason removes the reason without touching the enabled flag.
func (r *UserRepository) ClearDisabledReason(ctx context.Context, realmID, id string) error {
	return r.updateDisabledReason(ctx, realmID, id, nil)
}

func (r *UserRepository) updateDisabledReason(ctx context.Context, realmID, id string, reason any) error {
	stmt, args, err := r.builder.
		Update("lockout.users").
		Set("disabled_reason", reason).
		Where(squirrel.Eq{"realm_id": realmID, "id": id, "read_only": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update disabled reason sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update disabled reason: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row updated: distinguish a missing user from a read-only one.
	if _, err := r.GetByID(ctx, realmID, id); err != nil {
		return err
	}
	return repository.ErrReadOnly
}

var _ port.UserRepository = (*UserRepository)(nil)
