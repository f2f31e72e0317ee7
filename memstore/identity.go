package memstore

import (
	"context"
	"sync"

	"github.com/MrEthical07/authkit"
)

// IdentityStore is an in-memory [authkit.IdentityStore].
type IdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*authkit.Identity
}

// NewIdentityStore returns an empty identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{identities: make(map[string]*authkit.Identity)}
}

// GetIdentity returns a copy of the identity.
func (s *IdentityStore) GetIdentity(_ context.Context, id string) (*authkit.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, authkit.ErrIdentityNotFound
	}
	return copyIdentity(identity), nil
}

// GetIdentityByAttribute scans for the first identity whose attribute equals
// value. Lookup by "username" is the login path.
func (s *IdentityStore) GetIdentityByAttribute(_ context.Context, attribute, value string) (*authkit.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, identity := range s.identities {
		if identity.Attributes[attribute] == value {
			return copyIdentity(identity), nil
		}
	}
	return nil, authkit.ErrIdentityNotFound
}

// CreateIdentity stores a copy of the identity.
func (s *IdentityStore) CreateIdentity(_ context.Context, identity *authkit.Identity) error {
	s.mu.Lock()
	s.identities[identity.ID] = copyIdentity(identity)
	s.mu.Unlock()
	return nil
}

// UpdateIdentity replaces an existing identity.
func (s *IdentityStore) UpdateIdentity(_ context.Context, identity *authkit.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[identity.ID]; !ok {
		return authkit.ErrIdentityNotFound
	}
	s.identities[identity.ID] = copyIdentity(identity)
	return nil
}

// DeleteIdentity removes the identity. Deleting an absent identity is a
// no-op.
func (s *IdentityStore) DeleteIdentity(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.identities, id)
	s.mu.Unlock()
	return nil
}

func copyIdentity(in *authkit.Identity) *authkit.Identity {
	cp := *in
	if in.Attributes != nil {
		cp.Attributes = make(map[string]string, len(in.Attributes))
		for k, v := range in.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

// CredentialStore is an in-memory [authkit.CredentialStore].
type CredentialStore struct {
	mu        sync.RWMutex
	passwords map[string]string
	apiKeys   map[string]string
	mfa       map[string]bool
}

// NewCredentialStore returns an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		passwords: make(map[string]string),
		apiKeys:   make(map[string]string),
		mfa:       make(map[string]bool),
	}
}

// GetPasswordHash returns the stored password digest.
func (s *CredentialStore) GetPasswordHash(_ context.Context, identityID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.passwords[identityID]
	if !ok {
		return "", authkit.ErrCredentialNotFound
	}
	return hash, nil
}

// SavePasswordHash stores a password digest.
func (s *CredentialStore) SavePasswordHash(_ context.Context, identityID, hash string) error {
	s.mu.Lock()
	s.passwords[identityID] = hash
	s.mu.Unlock()
	return nil
}

// GetAPIKeyHash returns the stored API key digest.
func (s *CredentialStore) GetAPIKeyHash(_ context.Context, identityID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.apiKeys[identityID]
	if !ok {
		return "", authkit.ErrCredentialNotFound
	}
	return hash, nil
}

// SaveAPIKeyHash stores an API key digest.
func (s *CredentialStore) SaveAPIKeyHash(_ context.Context, identityID, hash string) error {
	s.mu.Lock()
	s.apiKeys[identityID] = hash
	s.mu.Unlock()
	return nil
}

// MFAEnrolled reports whether the identity has a second factor enrolled.
func (s *CredentialStore) MFAEnrolled(_ context.Context, identityID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mfa[identityID], nil
}

// SetMFAEnrolled records second-factor enrollment state.
func (s *CredentialStore) SetMFAEnrolled(_ context.Context, identityID string, enrolled bool) error {
	s.mu.Lock()
	s.mfa[identityID] = enrolled
	s.mu.Unlock()
	return nil
}
