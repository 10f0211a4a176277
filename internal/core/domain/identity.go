package domain

import "time"

// DisabledReason enumerates why an account was disabled. Kept as a typed
// field on the user rather than a free-form attribute so lockout state cannot
// collide with other attribute keys.
type DisabledReason string

const (
	// DisabledReasonNone marks an account without a recorded disable reason.
	DisabledReasonNone DisabledReason = ""
	// DisabledReasonPermanentLockout marks an account disabled by the
	// brute-force protector after too many temporary lockouts.
	DisabledReasonPermanentLockout DisabledReason = "permanent_lockout"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID             string
	RealmID        string
	Username       string
	Enabled        bool
	DisabledReason DisabledReason
	// ReadOnly marks accounts sourced from a read-only federation store.
	// Mutations against such accounts fail with repository.ErrReadOnly.
	ReadOnly     bool
	RegisteredAt time.Time
}
