// Package session persists the issued identity ({userId, email}) in a
// single keyed slot on disk. The slot is the only client-side state
// that survives a restart; it is cleared on logout. Encryption at rest
// is optional and uses an age scrypt passphrase.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filippo.io/age"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"findash/internal/api"
)

// ageHeader is the prefix of age-encrypted files
const ageHeader = "age-encryption.org"

// slotFile is the single session slot inside the data directory.
const slotFile = "session.json"

// Store reads and writes the persisted identity slot.
type Store struct {
	path string
	log  *logrus.Logger

	mu        sync.Mutex
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
}

// New creates a store rooted at the given data directory.
func New(dataDir string, log *logrus.Logger) *Store {
	return &Store{
		path: filepath.Join(dataDir, slotFile),
		log:  log,
	}
}

// EnableEncryption turns on at-rest encryption for subsequent saves
// and allows loading an encrypted slot.
func (s *Store) EnableEncryption(passphrase string) error {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.recipient = recipient
	return nil
}

// Save writes the identity to the slot, replacing whatever was there.
func (s *Store) Save(id api.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if s.recipient != nil {
		data, err = encryptData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("failed to encrypt session: %w", err)
		}
	}

	return atomicWrite(s.path, data, 0600)
}

// Load reads the persisted identity. A missing slot returns (nil, nil).
func (s *Store) Load() (*api.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if isAgeEncrypted(data) {
		if s.identity == nil {
			return nil, fmt.Errorf("session slot is encrypted but no passphrase is set")
		}
		data, err = decryptData(data, s.identity)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt session: %w", err)
		}
	}

	var id api.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &id, nil
}

// Clear removes the slot. Clearing an absent slot is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	s.log.Debug("session slot cleared")
	return nil
}

// TokenExpiry extracts the exp claim from the identity's token without
// verifying the signature; verification is the backend's job. Returns
// false when there is no token or no exp claim.
func TokenExpiry(id api.Identity) (time.Time, bool) {
	if id.Token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(id.Token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsStale reports whether the persisted identity carries an expired
// token. Identities without a token never go stale locally.
func IsStale(id api.Identity, now time.Time) bool {
	exp, ok := TokenExpiry(id)
	return ok && now.After(exp)
}

// atomicWrite writes data to a file atomically using a temp file
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// isAgeEncrypted checks if data starts with the age encryption header
func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}
