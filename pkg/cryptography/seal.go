// Package cryptography seals encoded frames for transports that cross
// untrusted links. Peers sharing a pre-shared secret derive the same
// AES-256-GCM key, so sealed frames are confidential and tamper-evident
// on the wire while the codec itself stays plaintext.
package cryptography

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	KeySize = 32 // AES-256

	// hkdf context string; changing it rotates every derived key
	keyInfo = "gdp-frame-seal-v1"
)

var (
	ErrSecretTooShort = errors.New("pre-shared secret must be at least 16 bytes")
	ErrSealedTooShort = errors.New("sealed frame shorter than nonce")
	ErrOpenFailed     = errors.New("sealed frame failed authentication")
)

// DeriveKey expands a pre-shared secret into a fixed-size key with
// HKDF-SHA256.
func DeriveKey(secret, salt []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, []byte(keyInfo))
	key := make([]byte, length)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Sealer encrypts and authenticates whole frames. Safe for concurrent
// use once constructed.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) < 16 {
		return nil, ErrSecretTooShort
	}
	key, err := DeriveKey(secret, nil, KeySize)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Overhead is the size a sealed frame grows by: nonce plus GCM tag.
func (s *Sealer) Overhead() int {
	return s.aead.NonceSize() + s.aead.Overhead()
}

// Seal encrypts a frame under a fresh random nonce. The nonce leads the
// result.
func (s *Sealer) Seal(frame []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, frame, nil), nil
}

// Open decrypts and authenticates a sealed frame.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrSealedTooShort
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	frame, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return frame, nil
}
