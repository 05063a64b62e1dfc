package domain

import "time"

// BiometricType selects which verification gate applies at vote casting.
type BiometricType string

const (
	BiometricNone        BiometricType = "none"
	BiometricFace        BiometricType = "face"
	BiometricFingerprint BiometricType = "fingerprint"
)

// Face enrollment record versions. The version is decided when the
// enrollment is written, never sniffed from the payload shape at runtime.
const (
	// FaceEnrollmentLegacy marks records in the retired raw-embedding
	// format. They cannot be compared cross-format and require
	// re-enrollment.
	FaceEnrollmentLegacy = 1
	// FaceEnrollmentToken marks records holding an opaque provider
	// enrollment token.
	FaceEnrollmentToken = 2
)

// FaceEnrollment is a versioned biometric enrollment record.
type FaceEnrollment struct {
	Version int
	// Data is the provider enrollment token (FaceEnrollmentToken) or the
	// retired embedding blob (FaceEnrollmentLegacy).
	Data string
}

// Credential is a fingerprint (WebAuthn) credential registered for a user.
type Credential struct {
	// ID is the base64url-encoded credential identifier.
	ID string
	// PublicKey is the SPKI DER-encoded public key, stored base64.
	PublicKey []byte
	// Algorithm is the signature algorithm label (ES256, RS256, EdDSA).
	Algorithm string
}

// User is a registered voter. The core reads users; only the verified flag
// is written back (identity confirmation).
type User struct {
	ID             string
	Username       string
	PasswordHash   string
	DocumentNumber string
	BiometricType  BiometricType
	FaceEnrollment *FaceEnrollment
	Credential     *Credential
	Verified       bool
	IsAdmin        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
