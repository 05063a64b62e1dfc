// Package challenge holds the short-lived, one-shot state bridging the
// biometric verification steps: outstanding WebAuthn challenges and the
// fingerprint-verified flags consumed by vote casting. Entries are
// process-local by default; the Redis store shares them across instances.
package challenge

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds the replay window for challenges and verified flags.
const DefaultTTL = 2 * time.Minute

// ErrNotFound reports a missing (never issued, already consumed, or
// swept) entry. Callers treat it the same as an expired one.
var ErrNotFound = errors.New("challenge: not found")

// Store is the one-shot bookkeeping abstraction. Take operations delete
// the entry unconditionally before returning it, so a second Take for the
// same user always fails regardless of the first attempt's outcome.
type Store interface {
	// PutChallenge records the outstanding challenge for a user,
	// overwriting any previous one.
	PutChallenge(ctx context.Context, userID, value string, expiresAt time.Time) error

	// TakeChallenge removes and returns the user's outstanding challenge
	// along with its expiry. The caller decides whether it is still fresh.
	TakeChallenge(ctx context.Context, userID string) (value string, expiresAt time.Time, err error)

	// PutVerified records the one-shot fingerprint-verified flag.
	PutVerified(ctx context.Context, userID string, expiresAt time.Time) error

	// TakeVerified removes and returns the flag's expiry.
	TakeVerified(ctx context.Context, userID string) (expiresAt time.Time, err error)

	// Sweep removes expired entries. Stores with native TTLs may no-op.
	Sweep(ctx context.Context) error
}
