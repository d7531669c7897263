// Package session keeps authenticated identities server side, keyed by a random cookie value.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GoDirAuth/GoDirAuth/internal/tokencrypt"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// sessionIDBytes is the entropy of a session id, 256 bits.
const sessionIDBytes = 32

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStorageNil is returned when a manager is created without storage.
	ErrStorageNil = errors.New("session storage is nil")
)

// Storage is the key value contract of the session backends. The gofiber storage
// drivers satisfy it; Get returns nil, nil for missing keys.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
	Reset() error
	Close() error
}

// User is the identity stored in a session.
type User struct {
	UserID   uint64   `json:"userId"`
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
	// BasicAuthToken is the sealed "Basic base64(user:password)" header for downstream calls.
	BasicAuthToken *tokencrypt.Encrypted `json:"basicAuthToken,omitempty"`
}

// Data represents the session data structure.
type Data struct {
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manager creates, reads and destroys sessions in a Storage.
type Manager struct {
	storage Storage
	expiry  time.Duration
}

// NewManager creates a manager whose sessions expire after expiry; 0 keeps them forever.
func NewManager(storage Storage, expiry time.Duration) (*Manager, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	return &Manager{storage: storage, expiry: expiry}, nil
}

// Create stores data under a new session id and returns the id.
func (m *Manager) Create(data *Data) (string, error) {
	sessionID, err := GenerateSessionID()
	if err != nil {
		return "", err
	}

	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	out, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	if err = m.storage.Set(sessionID, out, m.expiry); err != nil {
		return "", fmt.Errorf("failed to write session: %w", err)
	}

	return sessionID, nil
}

// Read returns the data of sessionID.
func (m *Manager) Read(sessionID string) (*Data, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	byteData, err := m.storage.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	if len(byteData) == 0 {
		return nil, ErrSessionNotFound
	}

	var data Data
	if err = json.Unmarshal(byteData, &data); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &data, nil
}

// Destroy removes sessionID. Unknown ids are ignored.
func (m *Manager) Destroy(sessionID string) error {
	if sessionID == "" {
		return nil
	}

	return m.storage.Delete(sessionID)
}

// Expiry returns the session lifetime.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Storage returns the underlying storage.
func (m *Manager) Storage() Storage {
	return m.storage
}

// Close releases the storage.
func (m *Manager) Close() error {
	return m.storage.Close()
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
