package cryptox

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
)

// Supported assertion signature algorithms. These mirror the COSE
// identifiers authenticators register with (ES256 = -7, RS256 = -257,
// EdDSA = -8) but are stored as labels alongside the credential.
const (
	AlgES256 = "ES256"
	AlgRS256 = "RS256"
	AlgEdDSA = "EdDSA"
)

// ErrBadSignature reports a signature that failed verification against the
// stored credential public key.
var ErrBadSignature = errors.New("cryptox: signature verification failed")

// ParseCredentialPublicKey parses an SPKI (PKIX) DER-encoded public key as
// stored with a fingerprint credential at enrollment time.
func ParseCredentialPublicKey(der []byte) (crypto.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to parse credential public key: %w", err)
	}
	return pub, nil
}

// VerifyAssertionSignature verifies sig over the signed payload using the
// declared algorithm. The key type must agree with the algorithm label;
// a mismatch is treated the same as a bad signature.
func VerifyAssertionSignature(alg string, pub crypto.PublicKey, signed, sig []byte) error {
	switch alg {
	case AlgES256:
		key, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return ErrBadSignature
		}
		digest := sha256.Sum256(signed)
		if !ecdsa.VerifyASN1(key, digest[:], sig) {
			return ErrBadSignature
		}
		return nil

	case AlgRS256:
		key, ok := pub.(*rsa.PublicKey)
		if !ok {
			return ErrBadSignature
		}
		digest := sha256.Sum256(signed)
		if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig); err != nil {
			return ErrBadSignature
		}
		return nil

	case AlgEdDSA:
		key, ok := pub.(ed25519.PublicKey)
		if !ok {
			return ErrBadSignature
		}
		if !ed25519.Verify(key, signed, sig) {
			return ErrBadSignature
		}
		return nil

	default:
		return fmt.Errorf("cryptox: unsupported assertion algorithm %q", alg)
	}
}
