package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/openballot/votegate/internal/vote/domain"
	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/pkg/cryptox"
	"github.com/openballot/votegate/pkg/idx"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

// UserService handles voter registration and password authentication.
type UserService struct {
	Store store.Store
}

// RegisterParams are the inputs for creating a voter account.
type RegisterParams struct {
	Username       string
	Password       string
	DocumentNumber string
}

// Register creates a voter with an Argon2id password hash. A conflict on
// either unique field returns ErrUserExists without disclosing which
// field collided.
func (s *UserService) Register(ctx context.Context, p RegisterParams) (domain.User, error) {
	if !usernameRe.MatchString(p.Username) || len(p.Password) < 8 || p.DocumentNumber == "" {
		return domain.User{}, ErrMalformedRequest
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	u := domain.User{
		ID:             idx.New().String(),
		Username:       p.Username,
		PasswordHash:   hash,
		DocumentNumber: p.DocumentNumber,
		BiometricType:  domain.BiometricNone,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

// Authenticate verifies a username/password pair. Unknown users and wrong
// passwords both return ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	return u, nil
}

// GetUserByID loads a voter.
func (s *UserService) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}

// ConfirmIdentity marks the user's identity as verified. Called when a
// face-proof is redeemed or a fingerprint assertion passes.
func (s *UserService) ConfirmIdentity(ctx context.Context, userID string) error {
	return s.Store.Users().SetVerified(ctx, userID, true)
}
