package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
)

// DeriveKey derives a purpose-bound 32-byte key from the configured
// secret via HMAC-SHA256. Subsystems keyed from the same secret get
// independent keys by naming distinct purposes.
func DeriveKey(secret, purpose string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}
