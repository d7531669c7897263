// Package tokencrypt seals the basic-auth token handed to downstream API calls.
package tokencrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// argon2id parameters of the key derivation.
const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
)

var (
	// ErrSecretEmpty is returned when no secret is configured.
	ErrSecretEmpty = errors.New("tokencrypt: secret can not be empty")
	// ErrSaltEmpty is returned when no salt is configured.
	ErrSaltEmpty = errors.New("tokencrypt: salt can not be empty")
	// ErrMalformed is returned for sealed values that can not be opened.
	ErrMalformed = errors.New("tokencrypt: malformed sealed value")
)

// Encrypted is the JSON shape of a sealed value.
type Encrypted struct {
	Value string `json:"__encrypted"`
}

// Sealer encrypts and authenticates strings with XChaCha20-Poly1305.
type Sealer struct {
	aead cipher.AEAD
}

// New derives the key from secret and salt with argon2id.
func New(secret, salt string) (*Sealer, error) {
	if secret == "" {
		return nil, ErrSecretEmpty
	}

	if salt == "" {
		return nil, ErrSaltEmpty
	}

	key := argon2.IDKey([]byte(secret), []byte(salt), argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("tokencrypt: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Encrypt seals plaintext. Every call uses a fresh random nonce.
func (s *Sealer) Encrypt(plaintext string) (Encrypted, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return Encrypted{}, fmt.Errorf("tokencrypt: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return Encrypted{Value: base64.RawURLEncoding.EncodeToString(sealed)}, nil
}

// Decrypt opens a value sealed by Encrypt with the same secret and salt.
func (s *Sealer) Decrypt(e Encrypted) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(e.Value)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", ErrMalformed
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return string(plaintext), nil
}

// BasicAuthToken returns the value of an Authorization header for username and password.
func BasicAuthToken(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
