package domain

import "time"

// IPDisabledSentinel is recorded instead of a client address when IP
// tracking is switched off.
const IPDisabledSentinel = "disabled"

// Vote is a committed ballot. At most one row may exist per
// (UserID, ElectionID); the storage-level uniqueness constraint is the
// authoritative enforcement, the service pre-check is advisory.
type Vote struct {
	ID                string
	UserID            string
	CandidateID       string
	ElectionID        string
	IPAddress         string
	DeviceFingerprint string
	VotedAt           time.Time
}
