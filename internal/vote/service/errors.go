package service

import (
	"errors"
	"fmt"
	"time"
)

// Failure taxonomy for the vote-casting pipeline. Handlers map these to
// HTTP categories; services never leak raw store or provider errors.
var (
	// ErrInvalidSession covers every session failure mode: decryption or
	// authentication failure, age overflow, missing or expired row. They
	// are deliberately indistinguishable to the caller.
	ErrInvalidSession = errors.New("service: invalid session")

	// ErrInvalidCredentials covers unknown username and wrong password
	// without revealing which.
	ErrInvalidCredentials = errors.New("service: invalid credentials")

	// ErrUserExists is returned on registration conflicts. Callers must
	// not disclose whether the username or the document number collided.
	ErrUserExists = errors.New("service: user already exists")

	// ErrUnverifiedIdentity rejects operations requiring a confirmed
	// identity (the verified flag).
	ErrUnverifiedIdentity = errors.New("service: identity not verified")

	// ErrMalformedRequest covers syntactically invalid client input.
	ErrMalformedRequest = errors.New("service: malformed request")

	ErrElectionNotActive = errors.New("service: election not active")
	ErrInvalidCandidate  = errors.New("service: invalid candidate")

	// ErrAlreadyVoted is the duplicate-vote conflict, whether raised by
	// the advisory pre-check or by the storage uniqueness constraint.
	ErrAlreadyVoted = errors.New("service: already voted")

	// ErrDuplicateDevice is the secondary heuristic rejection: another
	// vote in the election shares the device fingerprint or client IP.
	ErrDuplicateDevice = errors.New("service: device or address already voted")

	// ErrBiometricRequired rejects vote casting without a usable
	// biometric gate (no enrollment, or no outstanding verification).
	ErrBiometricRequired = errors.New("service: biometric verification required")

	// ErrBiometricMismatch is a negative comparison or assertion outcome.
	ErrBiometricMismatch = errors.New("service: biometric mismatch")

	// ErrBiometricService is an upstream provider failure; logged with
	// non-identifying detail only.
	ErrBiometricService = errors.New("service: biometric service unavailable")

	// ErrReenrollRequired marks enrollment records in the retired legacy
	// format, which are never compared cross-format.
	ErrReenrollRequired = errors.New("service: biometric re-enrollment required")
)

// WebAuthn assertion failures are categorical: the category is shared
// with the caller, the failing sub-check is not.
var (
	ErrAssertionMalformed      = errors.New("service: malformed assertion")
	ErrChallengeExpired        = errors.New("service: challenge expired or mismatched")
	ErrCredentialMismatch      = errors.New("service: unknown credential")
	ErrDomainBindingMismatch   = errors.New("service: credential bound to another domain")
	ErrUserVerificationMissing = errors.New("service: user verification not confirmed")
	ErrSignatureInvalid        = errors.New("service: assertion signature invalid")
)

// RateLimitedError carries the window reset time as a client backoff hint.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("service: rate limited until %s", e.ResetAt.Format(time.RFC3339))
}
