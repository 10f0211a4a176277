package usecase

import (
	"testing"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
)

func escalationConfig() domain.RealmLockoutConfig {
	return domain.RealmLockoutConfig{
		MaxDeltaTimeSeconds:          43200,
		WaitIncrementSeconds:         10,
		QuickLoginCheckMillis:        1000,
		MinimumQuickLoginWaitSeconds: 60,
		MaxFailureWaitSeconds:        900,
		FailureFactor:                3,
	}
}

func TestApplyFailure_WaitProgression(t *testing.T) {
	cfg := escalationConfig()
	failure := domain.LoginFailure{RealmID: "realm-1", UserID: "user-1"}

	// Failures arrive far enough apart not to trip the quick-login check.
	expected := []int{0, 0, 10, 10, 10, 20}
	now := int64(1_000_000)
	for i, want := range expected {
		decision := ApplyFailure(&failure, cfg, "10.0.0.1", now)
		if decision.WaitSeconds != want {
			t.Fatalf("failure %d: expected wait %d, got %d", i+1, want, decision.WaitSeconds)
		}
		if decision.QuickLoginFailure {
			t.Fatalf("failure %d: unexpected quick-login failure", i+1)
		}
		wantLockout := want > 0
		if decision.TemporaryLockout != wantLockout {
			t.Fatalf("failure %d: expected temporary lockout %v, got %v", i+1, wantLockout, decision.TemporaryLockout)
		}
		now += 5000
	}

	if failure.NumFailures != 6 {
		t.Fatalf("expected 6 recorded failures, got %d", failure.NumFailures)
	}
	if failure.NumTemporaryLockouts != 4 {
		t.Fatalf("expected 4 escalations, got %d", failure.NumTemporaryLockouts)
	}
}

func TestApplyFailure_StaleGapResets(t *testing.T) {
	cfg := escalationConfig()
	failure := domain.LoginFailure{RealmID: "realm-1", UserID: "user-1"}

	now := int64(1_000_000)
	for i := 0; i < 4; i++ {
		ApplyFailure(&failure, cfg, "10.0.0.1", now)
		now += 5000
	}
	if failure.NumFailures != 4 {
		t.Fatalf("expected 4 failures before the gap, got %d", failure.NumFailures)
	}

	// 13 hours later: past the 12 hour max delta, the streak starts over.
	now = failure.LastFailureAt + 13*3600*1000
	decision := ApplyFailure(&failure, cfg, "10.0.0.2", now)

	if failure.NumFailures != 1 {
		t.Fatalf("expected count reset to 1, got %d", failure.NumFailures)
	}
	if failure.NumTemporaryLockouts != 0 {
		t.Fatalf("expected escalation count reset, got %d", failure.NumTemporaryLockouts)
	}
	if decision.WaitSeconds != 0 || decision.TemporaryLockout {
		t.Fatalf("expected no lockout after reset, got %+v", decision)
	}
	if failure.LastFailureAt != now {
		t.Fatalf("expected the gap failure to be recorded, got %d", failure.LastFailureAt)
	}
	if failure.LastIPFailure != "10.0.0.2" {
		t.Fatalf("expected IP of the gap failure, got %q", failure.LastIPFailure)
	}
}

func TestApplyFailure_PermanentEscalation(t *testing.T) {
	cfg := escalationConfig()
	cfg.FailureFactor = 1
	cfg.PermanentLockoutEnabled = true
	cfg.MaxTemporaryLockouts = 2

	failure := domain.LoginFailure{RealmID: "realm-1", UserID: "user-1"}
	now := int64(1_000_000)

	first := ApplyFailure(&failure, cfg, "10.0.0.1", now)
	if !first.TemporaryLockout || first.PermanentLockout {
		t.Fatalf("first escalation: expected temporary only, got %+v", first)
	}

	now += 5000
	second := ApplyFailure(&failure, cfg, "10.0.0.1", now)
	if !second.TemporaryLockout || second.PermanentLockout {
		t.Fatalf("second escalation: expected temporary only, got %+v", second)
	}

	now += 5000
	third := ApplyFailure(&failure, cfg, "10.0.0.1", now)
	if third.TemporaryLockout {
		t.Fatalf("third escalation: wait window must not advance once permanent, got %+v", third)
	}
	if !third.PermanentLockout {
		t.Fatalf("third escalation: expected permanent lockout")
	}
	if failure.NumTemporaryLockouts != 3 {
		t.Fatalf("expected 3 escalations recorded, got %d", failure.NumTemporaryLockouts)
	}
}

func TestApplyFailure_QuickLogin(t *testing.T) {
	cfg := escalationConfig()

	failure := domain.LoginFailure{RealmID: "realm-1", UserID: "user-1"}
	now := int64(1_000_000)

	// First failure never counts as quick: there is no prior timestamp.
	first := ApplyFailure(&failure, cfg, "10.0.0.1", now)
	if first.QuickLoginFailure || first.WaitSeconds != 0 {
		t.Fatalf("first failure must not be quick, got %+v", first)
	}

	// 200ms later, still below the failure factor: quick-login wait applies.
	now += 200
	second := ApplyFailure(&failure, cfg, "10.0.0.1", now)
	if !second.QuickLoginFailure {
		t.Fatalf("expected quick-login failure")
	}
	if second.WaitSeconds != cfg.MinimumQuickLoginWaitSeconds {
		t.Fatalf("expected minimum quick-login wait %d, got %d", cfg.MinimumQuickLoginWaitSeconds, second.WaitSeconds)
	}
	if !second.TemporaryLockout {
		t.Fatalf("quick-login failure must advance the wait window")
	}
	if failure.NumTemporaryLockouts != 0 {
		t.Fatalf("quick-login failures must not count as escalations, got %d", failure.NumTemporaryLockouts)
	}
	if failure.FailedLoginNotBefore != now/1000+int64(cfg.MinimumQuickLoginWaitSeconds) {
		t.Fatalf("unexpected not-before %d", failure.FailedLoginNotBefore)
	}
}

func TestApplyFailure_QuickLoginNotAppliedWhenFactorWaitActive(t *testing.T) {
	cfg := escalationConfig()
	cfg.FailureFactor = 1

	failure := domain.LoginFailure{RealmID: "realm-1", UserID: "user-1"}
	ApplyFailure(&failure, cfg, "10.0.0.1", 1_000_000)

	// The factor already yields a non-zero wait; the quick-login floor is
	// only a fallback for waits of zero.
	decision := ApplyFailure(&failure, cfg, "10.0.0.1", 1_000_100)
	if decision.QuickLoginFailure {
		t.Fatalf("quick-login must not override a factor-derived wait")
	}
	if decision.WaitSeconds != 2*cfg.WaitIncrementSeconds {
		t.Fatalf("expected wait %d, got %d", 2*cfg.WaitIncrementSeconds, decision.WaitSeconds)
	}
}

func TestApplyFailure_WaitCap(t *testing.T) {
	cfg := escalationConfig()
	cfg.FailureFactor = 1
	cfg.WaitIncrementSeconds = 400
	cfg.MaxFailureWaitSeconds = 900

	failure := domain.LoginFailure{RealmID: "realm-1", UserID: "user-1"}
	now := int64(1_000_000)

	waits := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		decision := ApplyFailure(&failure, cfg, "10.0.0.1", now)
		waits = append(waits, decision.WaitSeconds)
		now += 5000
	}

	// 400, 800, then capped at 900.
	if waits[0] != 400 || waits[1] != 800 || waits[2] != 900 || waits[3] != 900 {
		t.Fatalf("unexpected wait sequence %v", waits)
	}

	for i := 1; i < len(waits); i++ {
		if waits[i] < waits[i-1] {
			t.Fatalf("capped wait must be non-decreasing, got %v", waits)
		}
	}
}

func TestApplyFailure_UncappedWithPermanentLockout(t *testing.T) {
	cfg := escalationConfig()
	cfg.FailureFactor = 1
	cfg.WaitIncrementSeconds = 1000
	cfg.MaxFailureWaitSeconds = 900
	cfg.PermanentLockoutEnabled = true
	cfg.MaxTemporaryLockouts = 0

	// Permanent lockout with an unbounded escalation count leaves the wait
	// uncapped, but the very first escalation already exceeds the maximum of
	// zero, so the window no longer advances and the account locks for good.
	failure := domain.LoginFailure{RealmID: "realm-1", UserID: "user-1"}
	decision := ApplyFailure(&failure, cfg, "10.0.0.1", 1_000_000)
	if decision.WaitSeconds != 1000 {
		t.Fatalf("expected uncapped wait 1000, got %d", decision.WaitSeconds)
	}
	if decision.TemporaryLockout {
		t.Fatalf("escalation past the maximum must not advance the window")
	}
	if !decision.PermanentLockout {
		t.Fatalf("expected permanent lockout")
	}
}

func TestApplyFailure_NotBeforeTruncates(t *testing.T) {
	cfg := escalationConfig()
	cfg.FailureFactor = 1

	failure := domain.LoginFailure{RealmID: "realm-1", UserID: "user-1"}
	// 1,000,999 ms truncates to second 1000; never round up.
	decision := ApplyFailure(&failure, cfg, "10.0.0.1", 1_000_999)
	if !decision.TemporaryLockout {
		t.Fatalf("expected temporary lockout")
	}
	if failure.FailedLoginNotBefore != 1000+int64(cfg.WaitIncrementSeconds) {
		t.Fatalf("expected truncated not-before %d, got %d", 1000+int64(cfg.WaitIncrementSeconds), failure.FailedLoginNotBefore)
	}
}

func TestApplySuccess_ClearsRecord(t *testing.T) {
	cfg := escalationConfig()
	cfg.FailureFactor = 1

	failure := domain.LoginFailure{RealmID: "realm-1", UserID: "user-1"}
	now := int64(1_000_000)
	for i := 0; i < 3; i++ {
		ApplyFailure(&failure, cfg, "10.0.0.1", now)
		now += 5000
	}

	ApplySuccess(&failure)

	if failure.NumFailures != 0 {
		t.Fatalf("expected failure count cleared, got %d", failure.NumFailures)
	}
	if failure.NumTemporaryLockouts != 0 {
		t.Fatalf("expected escalation count cleared, got %d", failure.NumTemporaryLockouts)
	}
	if failure.FailedLoginNotBefore != 0 {
		t.Fatalf("expected wait window cleared, got %d", failure.FailedLoginNotBefore)
	}
}
