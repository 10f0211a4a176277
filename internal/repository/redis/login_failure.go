package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
	"github.com/arklim/social-platform-lockout/internal/core/port"
	"github.com/arklim/social-platform-lockout/internal/repository"
)

const (
	defaultFailurePrefix = "lockout:failure"

	fieldNumFailures          = "num_failures"
	fieldLastFailureAt        = "last_failure_at"
	fieldLastIPFailure        = "last_ip_failure"
	fieldFailedLoginNotBefore = "failed_login_not_before"
	fieldNumTempLockouts      = "num_temporary_lockouts"

	scanBatchSize = 256
)

// LoginFailureRepository persists login failure records in Redis hashes, one
// hash per (realm, user) pair.
type LoginFailureRepository struct {
	client *red.Client
	prefix string
	// ttl expires dormant records; zero keeps them until cleared.
	ttl time.Duration
}

// NewLoginFailureRepository constructs a repository with the provided Redis
// client, key prefix and record TTL.
func NewLoginFailureRepository(client *red.Client, keyPrefix string, ttl time.Duration) *LoginFailureRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultFailurePrefix
	}

	return &LoginFailureRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get returns the failure record for the pair, or repository.ErrNotFound.
func (r *LoginFailureRepository) Get(ctx context.Context, realmID, userID string) (*domain.LoginFailure, error) {
	key, err := r.key(realmID, userID)
	if err != nil {
		return nil, err
	}

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failure record: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	failure := &domain.LoginFailure{
		RealmID:       realmID,
		UserID:        userID,
		LastIPFailure: values[fieldLastIPFailure],
	}

	if failure.NumFailures, err = parseInt(values[fieldNumFailures]); err != nil {
		return nil, fmt.Errorf("parse num_failures: %w", err)
	}
	if failure.LastFailureAt, err = parseInt64(values[fieldLastFailureAt]); err != nil {
		return nil, fmt.Errorf("parse last_failure_at: %w", err)
	}
	if failure.FailedLoginNotBefore, err = parseInt64(values[fieldFailedLoginNotBefore]); err != nil {
		return nil, fmt.Errorf("parse failed_login_not_before: %w", err)
	}
	if failure.NumTemporaryLockouts, err = parseInt(values[fieldNumTempLockouts]); err != nil {
		return nil, fmt.Errorf("parse num_temporary_lockouts: %w", err)
	}

	return failure, nil
}

// Put creates or replaces the failure record and refreshes its TTL.
func (r *LoginFailureRepository) Put(ctx context.Context, failure domain.LoginFailure) error {
	key, err := r.key(failure.RealmID, failure.UserID)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		fieldNumFailures:          strconv.Itoa(failure.NumFailures),
		fieldLastFailureAt:        strconv.FormatInt(failure.LastFailureAt, 10),
		fieldLastIPFailure:        failure.LastIPFailure,
		fieldFailedLoginNotBefore: strconv.FormatInt(failure.FailedLoginNotBefore, 10),
		fieldNumTempLockouts:      strconv.Itoa(failure.NumTemporaryLockouts),
	})
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store failure record: %w", err)
	}

	return nil
}

// Delete removes the record for one user.
func (r *LoginFailureRepository) Delete(ctx context.Context, realmID, userID string) error {
	key, err := r.key(realmID, userID)
	if err != nil {
		return err
	}

	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis delete failure record: %w", err)
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeleteAll removes every failure record in the realm.
func (r *LoginFailureRepository) DeleteAll(ctx context.Context, realmID string) error {
	realmID = strings.TrimSpace(realmID)
	if realmID == "" {
		return errors.New("realm id is required")
	}

	pattern := fmt.Sprintf("%s:%s:*", r.prefix, realmID)

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failure records: %w", err)
		}

		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failure records: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *LoginFailureRepository) key(realmID, userID string) (string, error) {
	realmID = strings.TrimSpace(realmID)
	userID = strings.TrimSpace(userID)
	if realmID == "" || userID == "" {
		return "", errors.New("realm id and user id are required")
	}
	return fmt.Sprintf("%s:%s:%s", r.prefix, realmID, userID), nil
}

func parseInt(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseInt64(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

var _ port.LoginFailureStore = (*LoginFailureRepository)(nil)
