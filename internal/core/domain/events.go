package domain

import "time"

// TemporaryLockoutEvent represents the payload for auth.user.lockout.temporary messages.
type TemporaryLockoutEvent struct {
	EventID     string
	RealmID     string
	UserID      string
	IPAddress   string
	NumFailures int
	// NotBefore is the instant until which login attempts are rejected.
	NotBefore  time.Time
	OccurredAt time.Time
	Metadata   map[string]any
}

// PermanentLockoutEvent represents the payload for auth.user.lockout.permanent messages.
type PermanentLockoutEvent struct {
	EventID     string
	RealmID     string
	UserID      string
	IPAddress   string
	NumFailures int
	DisabledAt  time.Time
	Metadata    map[string]any
}
