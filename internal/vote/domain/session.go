package domain

import "time"

// SessionTTL is the ceiling on session age. Both the encrypted cookie
// payload and the persisted row carry it; the row is the revocation
// source of truth.
const SessionTTL = 24 * time.Hour

// Session is a persisted login session. A syntactically valid cookie with
// no matching row is invalid.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session row has lapsed at the given time.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
