package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/openballot/votegate/internal/vote/domain"
	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/pkg/cryptox"
	"github.com/openballot/votegate/pkg/slogx"
)

// sessionPayload is the encrypted cookie content. The session ID links the
// cookie to its revocable row; issuance time backs the age ceiling even if
// the row's expiry were tampered with.
type sessionPayload struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	IssuedAt  int64  `json:"iat"`
}

// SessionService issues and validates encrypted session tokens backed by
// revocable store rows.
type SessionService struct {
	Store store.Store
	Box   *cryptox.SessionBox

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create persists a session row with a 24-hour expiry and returns the
// sealed cookie token plus a fresh CSRF token for the double-submit pair.
func (s *SessionService) Create(ctx context.Context, userID string) (token, csrfToken string, err error) {
	sessionID, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", err
	}

	now := s.now()
	if err := s.Store.Sessions().CreateSession(ctx, domain.Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.SessionTTL),
	}); err != nil {
		return "", "", err
	}

	payload, err := json.Marshal(sessionPayload{
		UserID:    userID,
		SessionID: sessionID,
		IssuedAt:  now.Unix(),
	})
	if err != nil {
		return "", "", err
	}

	token, err = s.Box.Seal(payload)
	if err != nil {
		return "", "", err
	}

	csrfToken, err = cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", "", err
	}

	return token, csrfToken, nil
}

// Parse validates a sealed token and returns the live session. Decryption
// failure, tampering, age overflow and a missing or expired row all
// collapse to ErrInvalidSession; callers get no oracle for which check
// failed. Expired rows are deleted opportunistically.
func (s *SessionService) Parse(ctx context.Context, token string) (domain.Session, error) {
	payload, err := s.Box.Open(token)
	if err != nil {
		return domain.Session{}, ErrInvalidSession
	}

	var p sessionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return domain.Session{}, ErrInvalidSession
	}
	if p.UserID == "" || p.SessionID == "" {
		return domain.Session{}, ErrInvalidSession
	}

	now := s.now()
	if now.Sub(time.Unix(p.IssuedAt, 0)) > domain.SessionTTL {
		return domain.Session{}, ErrInvalidSession
	}

	sess, err := s.Store.Sessions().GetSessionByID(ctx, p.SessionID)
	if err != nil {
		// Not found or any store failure: the row is the source of truth.
		return domain.Session{}, ErrInvalidSession
	}

	if sess.Expired(now) {
		if err := s.Store.Sessions().DeleteSession(ctx, sess.ID); err != nil {
			slogx.FromContext(ctx).Warn("failed to delete expired session", "err", err)
		}
		return domain.Session{}, ErrInvalidSession
	}

	if sess.UserID != p.UserID {
		return domain.Session{}, ErrInvalidSession
	}

	return sess, nil
}

// Clear revokes the token's session row. The cookie's cryptographic
// authentication would still verify after logout; deleting the row is
// what actually invalidates it.
func (s *SessionService) Clear(ctx context.Context, token string) error {
	payload, err := s.Box.Open(token)
	if err != nil {
		return nil // nothing to revoke for an unreadable token
	}

	var p sessionPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.SessionID == "" {
		return nil
	}

	if err := s.Store.Sessions().DeleteSession(ctx, p.SessionID); err != nil &&
		!errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}
