package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/openballot/votegate/internal/vote/challenge"
	"github.com/openballot/votegate/pkg/cryptox"
)

// ChallengeService is the one-shot bookkeeping for both biometric
// modalities: outstanding WebAuthn challenges and the fingerprint-verified
// flag bridging the verify step to vote casting.
type ChallengeService struct {
	Store challenge.Store
	TTL   time.Duration

	Now func() time.Time
}

func (s *ChallengeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ChallengeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return challenge.DefaultTTL
}

// Issue creates a fresh high-entropy challenge for the user, overwriting
// any outstanding one.
func (s *ChallengeService) Issue(ctx context.Context, userID string) (string, error) {
	value, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	if err := s.Store.PutChallenge(ctx, userID, value, s.now().Add(s.ttl())); err != nil {
		return "", err
	}
	return value, nil
}

// Consume deletes the user's outstanding challenge before comparing it to
// the supplied value. Deleting first means the same challenge can never be
// replayed, even after a failed attempt. Missing, expired and mismatched
// challenges all return ErrChallengeExpired.
func (s *ChallengeService) Consume(ctx context.Context, userID, supplied string) error {
	stored, expiresAt, err := s.Store.TakeChallenge(ctx, userID)
	if err != nil {
		return ErrChallengeExpired
	}
	if s.now().After(expiresAt) {
		return ErrChallengeExpired
	}

	if subtle.ConstantTimeCompare(
		[]byte(normalizeBase64URL(stored)),
		[]byte(normalizeBase64URL(supplied)),
	) != 1 {
		return ErrChallengeExpired
	}
	return nil
}

// MarkVerified sets the one-shot fingerprint-verified flag.
func (s *ChallengeService) MarkVerified(ctx context.Context, userID string) error {
	return s.Store.PutVerified(ctx, userID, s.now().Add(s.ttl()))
}

// ConsumeVerified takes the flag exactly once. A consumed, missing or
// expired flag returns ErrBiometricRequired.
func (s *ChallengeService) ConsumeVerified(ctx context.Context, userID string) error {
	expiresAt, err := s.Store.TakeVerified(ctx, userID)
	if err != nil {
		return ErrBiometricRequired
	}
	if s.now().After(expiresAt) {
		return ErrBiometricRequired
	}
	return nil
}

// normalizeBase64URL strips padding and maps the URL-unsafe alphabet so
// values from different encoders compare equal.
func normalizeBase64URL(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	s = strings.ReplaceAll(s, "+", "-")
	return strings.ReplaceAll(s, "/", "_")
}
