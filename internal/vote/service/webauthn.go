package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/openballot/votegate/internal/vote/domain"
	"github.com/openballot/votegate/pkg/cryptox"
)

// Assertion is a fingerprint (WebAuthn) authentication response as sent by
// the client. All byte fields are base64url.
type Assertion struct {
	CredentialID      string `json:"credential_id"`
	RawID             string `json:"raw_id"`
	Type              string `json:"type"`
	ClientDataJSON    string `json:"client_data_json"`
	AuthenticatorData string `json:"authenticator_data"`
	Signature         string `json:"signature"`
	UserHandle        string `json:"user_handle,omitempty"`
}

// clientData is the parsed clientDataJSON payload.
type clientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// Authenticator data flag bits.
const (
	flagUserPresent  = 0x01
	flagUserVerified = 0x04
)

// authDataMinLen is rpIdHash (32) + flags (1) + signCount (4).
const authDataMinLen = 37

// WebAuthnService verifies fingerprint assertions against stored
// credentials without delegating to a client-supplied library. RPID is the
// relying-party hostname credentials are bound to; AllowedOrigins lists
// the exact origins accepted in clientDataJSON.
type WebAuthnService struct {
	RPID           string
	AllowedOrigins []string
	// AllowLoopback additionally accepts localhost origins; enabled in
	// development builds only.
	AllowLoopback bool

	Challenges *ChallengeService
}

// VerifyAssertion runs the full check sequence in fixed order against the
// user's registered credential: structure, ceremony type, origin,
// challenge, credential binding, authenticator data, signature. Each
// failure maps to its category error; the failing sub-check inside a
// category is never disclosed. The challenge is consumed before signature
// work, so a failed attempt burns it.
func (s *WebAuthnService) VerifyAssertion(ctx context.Context, user domain.User, a Assertion) error {
	if user.Credential == nil {
		return ErrBiometricRequired
	}

	// 1. Structural validation of the credential object.
	if a.Type != "public-key" || a.RawID == "" {
		return ErrAssertionMalformed
	}

	clientDataRaw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(a.ClientDataJSON, "="))
	if err != nil {
		return ErrAssertionMalformed
	}
	authData, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(a.AuthenticatorData, "="))
	if err != nil {
		return ErrAssertionMalformed
	}
	sig, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(a.Signature, "="))
	if err != nil {
		return ErrAssertionMalformed
	}

	var cd clientData
	if err := json.Unmarshal(clientDataRaw, &cd); err != nil {
		return ErrAssertionMalformed
	}

	// 2. Ceremony type.
	if cd.Type != "webauthn.get" {
		return ErrAssertionMalformed
	}

	// 3. Origin allow-list, ahead of challenge consumption so a
	// cross-origin assertion cannot burn the outstanding challenge.
	if !s.originAllowed(cd.Origin) {
		return ErrDomainBindingMismatch
	}

	// 4. Challenge: one-shot lookup and constant-time compare.
	if err := s.Challenges.Consume(ctx, user.ID, cd.Challenge); err != nil {
		return err
	}

	// 5. Credential identifiers must agree with each other and with the
	// registered credential; a user handle, when present, must name the
	// asserting user.
	if normalizeBase64URL(a.CredentialID) != normalizeBase64URL(user.Credential.ID) ||
		normalizeBase64URL(a.RawID) != normalizeBase64URL(a.CredentialID) {
		return ErrCredentialMismatch
	}
	if a.UserHandle != "" {
		handle, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(a.UserHandle, "="))
		if err != nil {
			return ErrAssertionMalformed
		}
		if string(handle) != user.ID {
			return ErrCredentialMismatch
		}
	}

	// 6. Authenticator data shape.
	if len(authData) < authDataMinLen {
		return ErrAssertionMalformed
	}

	// 7. RP ID hash binds the assertion to this relying party.
	rpIDHash := sha256.Sum256([]byte(s.RPID))
	if !bytes.Equal(authData[:32], rpIDHash[:]) {
		return ErrDomainBindingMismatch
	}

	// 8. Flags: user present and user verified are both required.
	flags := authData[32]
	if flags&flagUserPresent == 0 || flags&flagUserVerified == 0 {
		return ErrUserVerificationMissing
	}

	// 9. Signature over authData || sha256(clientDataJSON).
	pub, err := cryptox.ParseCredentialPublicKey(user.Credential.PublicKey)
	if err != nil {
		return ErrCredentialMismatch
	}
	clientDataHash := sha256.Sum256(clientDataRaw)
	signed := append(append([]byte{}, authData...), clientDataHash[:]...)
	if err := cryptox.VerifyAssertionSignature(user.Credential.Algorithm, pub, signed, sig); err != nil {
		return ErrSignatureInvalid
	}

	return nil
}

// originAllowed checks the exact allow-list, plus loopback origins when
// development mode permits them.
func (s *WebAuthnService) originAllowed(origin string) bool {
	for _, allowed := range s.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	if !s.AllowLoopback {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
