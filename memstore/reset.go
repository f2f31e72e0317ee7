package memstore

import (
	"context"
	"sync"

	"github.com/MrEthical07/authkit"
)

// ResetStore is an in-memory [authkit.ResetStore].
type ResetStore struct {
	mu     sync.Mutex
	grants map[string]*authkit.ResetRecord
}

// NewResetStore returns an empty reset store.
func NewResetStore() *ResetStore {
	return &ResetStore{grants: make(map[string]*authkit.ResetRecord)}
}

// SaveReset stores a copy of the grant keyed by its token hash.
func (s *ResetStore) SaveReset(_ context.Context, rec *authkit.ResetRecord) error {
	cp := *rec
	s.mu.Lock()
	s.grants[rec.TokenHash] = &cp
	s.mu.Unlock()
	return nil
}

// ConsumeReset removes and returns the grant. Delete-under-lock makes the
// first caller the only winner; everyone else sees not-found.
func (s *ResetStore) ConsumeReset(_ context.Context, tokenHash string) (*authkit.ResetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.grants[tokenHash]
	if !ok {
		return nil, authkit.ErrResetNotFound
	}
	delete(s.grants, tokenHash)
	cp := *rec
	return &cp, nil
}
