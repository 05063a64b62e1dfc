package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidToken is returned for any token that fails to decode, decrypt
// or authenticate. Callers get no indication of which check failed.
var ErrInvalidToken = errors.New("cryptox: invalid token")

// SessionBox seals and opens session payloads using AES-256-GCM keyed by a
// secret-derived key. The wire format is three hex fields joined by ':':
//
//	<hex-iv>:<hex-auth-tag>:<hex-ciphertext>
type SessionBox struct {
	aead cipher.AEAD
}

// NewSessionBox derives a 32-byte AES key from the configured secret via
// SHA-256 and prepares the AEAD. The secret must be non-empty.
func NewSessionBox(secret string) (*SessionBox, error) {
	if secret == "" {
		return nil, errors.New("cryptox: session secret must not be empty")
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create GCM: %w", err)
	}

	return &SessionBox{aead: aead}, nil
}

// Seal encrypts and authenticates the payload, returning the encoded token.
func (b *SessionBox) Seal(payload []byte) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext||tag; split the tag out for the wire format.
	sealed := b.aead.Seal(nil, nonce, payload, nil)
	tagAt := len(sealed) - b.aead.Overhead()
	ciphertext, tag := sealed[:tagAt], sealed[tagAt:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, ":"), nil
}

// Open decodes, decrypts and authenticates a token produced by Seal.
// Every failure mode collapses to ErrInvalidToken so a tampered token
// yields no oracle about which component was wrong.
func (b *SessionBox) Open(token string) ([]byte, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != b.aead.NonceSize() {
		return nil, ErrInvalidToken
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != b.aead.Overhead() {
		return nil, ErrInvalidToken
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidToken
	}

	payload, err := b.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return payload, nil
}
