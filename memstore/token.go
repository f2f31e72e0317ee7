package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/authkit/token"
)

// TokenStore is an in-memory [token.Store]. The zero value is not usable;
// construct with [NewTokenStore].
type TokenStore struct {
	mu      sync.Mutex
	refresh map[string]*token.RefreshTokenRecord
	revoked map[string]time.Time
}

// NewTokenStore returns an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		refresh: make(map[string]*token.RefreshTokenRecord),
		revoked: make(map[string]time.Time),
	}
}

// SaveRefreshToken stores a copy of the record keyed by its TokenID.
func (s *TokenStore) SaveRefreshToken(_ context.Context, rec *token.RefreshTokenRecord) error {
	cp := *rec
	s.mu.Lock()
	s.refresh[rec.TokenID] = &cp
	s.mu.Unlock()
	return nil
}

// GetRefreshToken returns a copy of the stored record.
func (s *TokenStore) GetRefreshToken(_ context.Context, tokenID string) (*token.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.refresh[tokenID]
	if !ok {
		return nil, token.ErrRefreshNotFound
	}
	cp := *rec
	return &cp, nil
}

// ConsumeRefreshToken atomically marks the record revoked and returns its
// pre-consumption state. A second consumption of the same token fails with
// [token.ErrRefreshRevoked].
func (s *TokenStore) ConsumeRefreshToken(_ context.Context, tokenID string) (*token.RefreshTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.refresh[tokenID]
	if !ok {
		return nil, token.ErrRefreshNotFound
	}
	if rec.Revoked {
		return nil, token.ErrRefreshRevoked
	}
	cp := *rec
	rec.Revoked = true
	return &cp, nil
}

// RevokeRefreshToken marks the record revoked. Idempotent; revoking an
// absent token is a no-op.
func (s *TokenStore) RevokeRefreshToken(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.refresh[tokenID]; ok {
		rec.Revoked = true
	}
	return nil
}

// RevokeTokensByIdentity revokes every refresh token held by the identity.
func (s *TokenStore) RevokeTokensByIdentity(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.refresh {
		if rec.IdentityID == identityID {
			rec.Revoked = true
		}
	}
	return nil
}

// RevokeTokensBySession revokes every refresh token bound to the session.
func (s *TokenStore) RevokeTokensBySession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.refresh {
		if rec.SessionID == sessionID {
			rec.Revoked = true
		}
	}
	return nil
}

// RevokeJTI places an access token ID on the revocation list until the
// given time.
func (s *TokenStore) RevokeJTI(_ context.Context, jti string, until time.Time) error {
	s.mu.Lock()
	s.revoked[jti] = until
	s.mu.Unlock()
	return nil
}

// IsTokenRevoked reports whether the access token ID is on the revocation
// list. Entries past their retention time are pruned on lookup.
func (s *TokenStore) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(s.revoked, jti)
		return false, nil
	}
	return true, nil
}
