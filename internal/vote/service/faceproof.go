package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openballot/votegate/pkg/idx"
)

// FaceProofTTL bounds how long a positive face comparison can be redeemed
// for identity confirmation.
const FaceProofTTL = 5 * time.Minute

// FaceProofClaims is the signed evidence of a positive face comparison.
// The proof is redeemed once, at identity confirmation; it never
// substitutes for the fresh comparison done at vote casting.
type FaceProofClaims struct {
	jwt.RegisteredClaims
	Confidence float64 `json:"confidence"`
	Threshold  int     `json:"threshold"`
}

// FaceProofSigner mints and validates short-lived HS256 proofs.
type FaceProofSigner struct {
	Secret []byte

	Now func() time.Time
}

func (s *FaceProofSigner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Sign issues a proof for the user with the comparison outcome embedded.
func (s *FaceProofSigner) Sign(userID string, confidence float64, threshold int) (string, error) {
	now := s.now()
	claims := FaceProofClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        idx.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(FaceProofTTL)),
		},
		Confidence: confidence,
		Threshold:  threshold,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign face proof: %w", err)
	}
	return signed, nil
}

// Verify validates a proof and returns its claims. Expired, malformed and
// wrongly signed proofs all return ErrBiometricRequired.
func (s *FaceProofSigner) Verify(proof string) (FaceProofClaims, error) {
	var claims FaceProofClaims
	_, err := jwt.ParseWithClaims(proof, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return FaceProofClaims{}, ErrBiometricRequired
	}
	if claims.Subject == "" {
		return FaceProofClaims{}, ErrBiometricRequired
	}
	return claims, nil
}
