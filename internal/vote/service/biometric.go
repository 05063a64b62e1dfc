package service

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/openballot/votegate/internal/vote/domain"
	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/pkg/cryptox"
)

// faceImageMaxLen bounds the accepted base64 payload (roughly 6 MB of
// encoded image data).
const faceImageMaxLen = 8 << 20

// BiometricService handles enrollment of both modalities. Verification
// lives in FaceMatchService and WebAuthnService.
type BiometricService struct {
	Store store.Store
}

// EnrollFace stores the reference capture as a current-format enrollment
// record and switches the user to the face gate. Re-enrollment overwrites
// any previous record, including retired legacy ones.
func (s *BiometricService) EnrollFace(ctx context.Context, userID, image string) error {
	image = strings.TrimSpace(image)
	if image == "" || len(image) > faceImageMaxLen {
		return ErrMalformedRequest
	}
	if _, err := base64.StdEncoding.DecodeString(image); err != nil {
		return ErrMalformedRequest
	}

	return s.Store.Users().UpdateFaceEnrollment(ctx, userID, domain.FaceEnrollment{
		Version: domain.FaceEnrollmentToken,
		Data:    image,
	})
}

// EnrollCredentialParams carries a registered WebAuthn credential. The
// public key arrives SPKI DER, base64 standard encoding.
type EnrollCredentialParams struct {
	CredentialID string
	PublicKey    string
	Algorithm    string
}

// EnrollCredential validates and stores a fingerprint credential and
// switches the user to the fingerprint gate. The key must parse and its
// type must agree with the declared algorithm before anything is written.
func (s *BiometricService) EnrollCredential(ctx context.Context, userID string, p EnrollCredentialParams) error {
	if p.CredentialID == "" {
		return ErrMalformedRequest
	}
	switch p.Algorithm {
	case cryptox.AlgES256, cryptox.AlgRS256, cryptox.AlgEdDSA:
	default:
		return ErrMalformedRequest
	}

	der, err := base64.StdEncoding.DecodeString(p.PublicKey)
	if err != nil {
		return ErrMalformedRequest
	}
	if _, err := cryptox.ParseCredentialPublicKey(der); err != nil {
		return ErrMalformedRequest
	}

	return s.Store.Users().UpdateCredential(ctx, userID, domain.Credential{
		ID:        p.CredentialID,
		PublicKey: der,
		Algorithm: p.Algorithm,
	})
}
