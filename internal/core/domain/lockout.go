package domain

import "errors"

// LoginFailure tracks consecutive authentication failures for one user in one
// realm. At most one live record exists per (RealmID, UserID) pair; the
// absence of a record means no failures are on file.
type LoginFailure struct {
	RealmID string
	UserID  string
	// NumFailures counts consecutive failures since the last reset.
	NumFailures int
	// LastFailureAt is milliseconds since epoch; 0 means never.
	LastFailureAt int64
	// LastIPFailure records the origin of the most recent failure.
	LastIPFailure string
	// FailedLoginNotBefore is seconds since epoch. Login attempts before this
	// instant must be rejected; 0 means the user is not currently blocked.
	FailedLoginNotBefore int64
	// NumTemporaryLockouts counts escalations since the last full reset and
	// drives the permanent-lockout decision.
	NumTemporaryLockouts int
}

// Reset clears all counters and the block window. Applied on a successful
// login and when the gap since the last failure exceeds the realm's
// max delta time.
func (f *LoginFailure) Reset() {
	f.NumFailures = 0
	f.NumTemporaryLockouts = 0
	f.FailedLoginNotBefore = 0
}

// ErrInvalidFailureFactor indicates a realm carries a failure factor below 1,
// which would make the wait computation divide by zero.
var ErrInvalidFailureFactor = errors.New("failure factor must be >= 1")

// RealmLockoutConfig holds the per-realm brute-force protection settings.
// Durations are kept as integer seconds (milliseconds for the quick-login
// window) because the lockout algorithm truncates rather than rounds.
type RealmLockoutConfig struct {
	// MaxDeltaTimeSeconds is the quarantine window: a failure arriving later
	// than this after the previous one resets the record.
	MaxDeltaTimeSeconds int
	// WaitIncrementSeconds is added to the lockout window for every
	// FailureFactor failures.
	WaitIncrementSeconds int
	// QuickLoginCheckMillis is the inter-failure gap below which a failure is
	// treated as a scripted retry.
	QuickLoginCheckMillis int64
	// MinimumQuickLoginWaitSeconds is the wait applied to quick-login failures.
	MinimumQuickLoginWaitSeconds int
	// MaxFailureWaitSeconds caps the computed wait.
	MaxFailureWaitSeconds int
	// FailureFactor is the number of failures required per wait increment.
	// Must be >= 1.
	FailureFactor int
	// PermanentLockoutEnabled disables the account once the user exceeds
	// MaxTemporaryLockouts escalations.
	PermanentLockoutEnabled bool
	// MaxTemporaryLockouts bounds escalations before a permanent lockout.
	MaxTemporaryLockouts int
}

// Validate rejects configurations the lockout algorithm cannot evaluate.
// A zero failure factor is a division-by-zero hazard and must be caught here,
// at load time, never during event processing.
func (c RealmLockoutConfig) Validate() error {
	if c.FailureFactor < 1 {
		return ErrInvalidFailureFactor
	}
	return nil
}

// LoginOutcomeEvent is produced by the authentication flow after every
// credential check and consumed by the brute-force protector.
type LoginOutcomeEvent struct {
	RealmID    string
	UserID     string
	RemoteAddr string
	Success    bool
	// OccurredAtMillis is the failure timestamp in milliseconds since epoch.
	OccurredAtMillis int64
}
