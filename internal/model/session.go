package model

import "time"

// Session is the single currently-valid authentication context for an account.
// Sessions are keyed by account, not by token: starting a new session for an
// account overwrites (and thereby revokes) any prior one.
type Session struct {
	AccountID  AccountID
	Token      string // unguessable, compared with constant semantics by the authority
	Device     string // originating device descriptor, surfaced on supersession
	StartedAt  time.Time
	LastSeenAt time.Time
}
