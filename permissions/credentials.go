package permissions

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/crypto/bcrypt"
)

// Credential schemes understood by [NewCredentialStore].
const (
	SchemePlaintext = "plaintext"
	SchemeBcrypt    = "bcrypt"
)

// CredentialStore keeps per-user secrets. The engine only asks it whether a
// user exists and whether a password matches, so the storage format can
// change without touching authorization logic.
type CredentialStore interface {
	// Set creates or replaces the credential for user
	Set(user, password string) error
	// Verify reports whether password matches the stored credential.
	// Unknown users never verify.
	Verify(user, password string) bool
	Exists(user string) bool
	// Delete removes user and reports whether it existed
	Delete(user string) bool
	// Users returns all known user names sorted
	Users() []string
	// Export returns the stored secrets (plaintext or hashes) for persistence
	Export() map[string]string
	// Import loads previously exported secrets, replacing any existing entry
	Import(secrets map[string]string)
	// Scheme names the storage format of exported secrets
	Scheme() string
}

// NewCredentialStore returns the store for scheme. cost is only used by bcrypt;
// zero selects bcrypt.DefaultCost.
func NewCredentialStore(scheme string, cost int) (CredentialStore, error) {
	switch scheme {
	case "", SchemePlaintext:
		return NewPlaintextStore(), nil
	case SchemeBcrypt:
		return NewBcryptStore(cost)
	}
	return nil, fmt.Errorf("unknown credential scheme %q", scheme)
}

type secretMap struct {
	secrets *xsync.Map[string, string]
}

func newSecretMap() secretMap {
	return secretMap{secrets: xsync.NewMap[string, string]()}
}

func (m secretMap) Exists(user string) bool {
	_, ok := m.secrets.Load(user)
	return ok
}

func (m secretMap) Delete(user string) bool {
	_, ok := m.secrets.LoadAndDelete(user)
	return ok
}

func (m secretMap) Users() []string {
	users := make([]string, 0, m.secrets.Size())
	m.secrets.Range(func(user, _ string) bool {
		users = append(users, user)
		return true
	})
	sort.Strings(users)
	return users
}

func (m secretMap) Export() map[string]string {
	out := make(map[string]string, m.secrets.Size())
	m.secrets.Range(func(user, secret string) bool {
		out[user] = secret
		return true
	})
	return out
}

func (m secretMap) Import(secrets map[string]string) {
	for user, secret := range secrets {
		m.secrets.Store(user, secret)
	}
}

// PlaintextStore keeps passwords as given.
type PlaintextStore struct {
	secretMap
}

func NewPlaintextStore() *PlaintextStore {
	return &PlaintextStore{secretMap: newSecretMap()}
}

func (s *PlaintextStore) Set(user, password string) error {
	s.secrets.Store(user, password)
	return nil
}

func (s *PlaintextStore) Verify(user, password string) bool {
	stored, ok := s.secrets.Load(user)
	return ok && stored == password
}

func (s *PlaintextStore) Scheme() string {
	return SchemePlaintext
}

// BcryptStore keeps bcrypt hashes of passwords.
type BcryptStore struct {
	secretMap
	cost int
}

func NewBcryptStore(cost int) (*BcryptStore, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptStore{secretMap: newSecretMap(), cost: cost}, nil
}

func (s *BcryptStore) Set(user, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", user, err)
	}
	s.secrets.Store(user, string(hash))
	return nil
}

func (s *BcryptStore) Verify(user, password string) bool {
	hash, ok := s.secrets.Load(user)
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *BcryptStore) Scheme() string {
	return SchemeBcrypt
}
