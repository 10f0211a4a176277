package usecase

import (
	"github.com/arklim/social-platform-lockout/internal/core/domain"
)

// FailureDecision captures what a processed failure requires beyond the
// record mutation itself: which notifications to emit and whether the account
// must be disabled.
type FailureDecision struct {
	// WaitSeconds is the computed lockout window, after capping.
	WaitSeconds int
	// QuickLoginFailure marks a failure that arrived below the quick-login
	// threshold before the failure factor produced a wait on its own.
	QuickLoginFailure bool
	// TemporaryLockout is set when FailedLoginNotBefore was advanced and a
	// TEMPORARY_LOCKOUT notification is due.
	TemporaryLockout bool
	// PermanentLockout is set when the escalation count exceeded the realm
	// maximum and the account must be disabled.
	PermanentLockout bool
}

// ApplyFailure folds one failed login into the record and decides the lockout
// consequences. Pure: no I/O, no clock reads; callers pass the failure time
// in milliseconds. The config must have been validated (FailureFactor >= 1).
//
// Millisecond-to-second conversions truncate so a user is never unblocked
// earlier than the computed wait.
func ApplyFailure(failure *domain.LoginFailure, cfg domain.RealmLockoutConfig, remoteAddr string, nowMillis int64) FailureDecision {
	priorFailure := failure.LastFailureAt > 0

	var deltaTime int64
	if priorFailure {
		deltaTime = nowMillis - failure.LastFailureAt
	}

	// Failures separated by more than the max delta are no longer evidence of
	// an ongoing attack; start the count over.
	if priorFailure && deltaTime > int64(cfg.MaxDeltaTimeSeconds)*1000 {
		failure.Reset()
	}

	failure.LastIPFailure = remoteAddr
	failure.LastFailureAt = nowMillis
	failure.NumFailures++

	waitSeconds := cfg.WaitIncrementSeconds * (failure.NumFailures / cfg.FailureFactor)

	quickLoginFailure := false
	if waitSeconds == 0 && priorFailure && deltaTime < cfg.QuickLoginCheckMillis {
		waitSeconds = cfg.MinimumQuickLoginWaitSeconds
		quickLoginFailure = true
	}

	decision := FailureDecision{
		WaitSeconds:       waitSeconds,
		QuickLoginFailure: quickLoginFailure,
	}

	if waitSeconds > 0 {
		// The asymmetric cap condition is deliberate: with permanent lockout
		// enabled and an unbounded escalation count, the wait keeps growing
		// instead of being capped.
		if !cfg.PermanentLockoutEnabled || cfg.MaxTemporaryLockouts > 0 {
			if waitSeconds > cfg.MaxFailureWaitSeconds {
				waitSeconds = cfg.MaxFailureWaitSeconds
			}
			decision.WaitSeconds = waitSeconds
		}

		if !quickLoginFailure {
			failure.NumTemporaryLockouts++
		}

		if quickLoginFailure || !cfg.PermanentLockoutEnabled || failure.NumTemporaryLockouts <= cfg.MaxTemporaryLockouts {
			failure.FailedLoginNotBefore = nowMillis/1000 + int64(waitSeconds)
			decision.TemporaryLockout = true
		}
	}

	if !cfg.PermanentLockoutEnabled {
		return decision
	}

	if failure.NumTemporaryLockouts > cfg.MaxTemporaryLockouts {
		decision.PermanentLockout = true
	}

	return decision
}

// ApplySuccess clears the record after a successful login. Safe to call on a
// zero record.
func ApplySuccess(failure *domain.LoginFailure) {
	failure.Reset()
}
