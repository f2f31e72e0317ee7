package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/authkit"
)

// ClientStore is an in-memory [authkit.OAuthClientStore].
type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]*authkit.OAuthClient
}

// NewClientStore returns an empty client store.
func NewClientStore() *ClientStore {
	return &ClientStore{clients: make(map[string]*authkit.OAuthClient)}
}

// Register adds or replaces a client registration.
func (s *ClientStore) Register(client *authkit.OAuthClient) {
	cp := *client
	s.mu.Lock()
	s.clients[client.ID] = &cp
	s.mu.Unlock()
}

// GetClient returns a copy of the registered client.
func (s *ClientStore) GetClient(_ context.Context, clientID string) (*authkit.OAuthClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clientID]
	if !ok {
		return nil, authkit.ErrClientInvalid
	}
	cp := *client
	return &cp, nil
}

// CodeStore is an in-memory [authkit.AuthorizationCodeStore].
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]*authkit.AuthorizationCodeRecord
}

// NewCodeStore returns an empty authorization code store.
func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]*authkit.AuthorizationCodeRecord)}
}

// SaveCode stores a copy of the record keyed by code.
func (s *CodeStore) SaveCode(_ context.Context, rec *authkit.AuthorizationCodeRecord) error {
	cp := *rec
	s.mu.Lock()
	s.codes[rec.Code] = &cp
	s.mu.Unlock()
	return nil
}

// GetCode returns a copy of the stored record.
func (s *CodeStore) GetCode(_ context.Context, code string) (*authkit.AuthorizationCodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.codes[code]
	if !ok {
		return nil, authkit.ErrCodeNotFound
	}
	cp := *rec
	return &cp, nil
}

// ConsumeCode atomically transitions an authorized code to redeemed and
// returns its pre-consumption state. Exactly one concurrent caller wins;
// the rest fail with [authkit.ErrCodeConsumed].
func (s *CodeStore) ConsumeCode(_ context.Context, code string) (*authkit.AuthorizationCodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.codes[code]
	if !ok {
		return nil, authkit.ErrCodeNotFound
	}
	if rec.State != authkit.CodeAuthorized {
		return nil, authkit.ErrCodeConsumed
	}
	cp := *rec
	rec.State = authkit.CodeRedeemed
	return &cp, nil
}

// DeviceStore is an in-memory [authkit.DeviceCodeStore].
type DeviceStore struct {
	mu       sync.Mutex
	byDevice map[string]*authkit.DeviceCodeRecord
	byUser   map[string]string
}

// NewDeviceStore returns an empty device code store.
func NewDeviceStore() *DeviceStore {
	return &DeviceStore{
		byDevice: make(map[string]*authkit.DeviceCodeRecord),
		byUser:   make(map[string]string),
	}
}

// SaveDeviceCode stores a copy of the record indexed by both codes.
func (s *DeviceStore) SaveDeviceCode(_ context.Context, rec *authkit.DeviceCodeRecord) error {
	cp := *rec
	s.mu.Lock()
	s.byDevice[rec.DeviceCode] = &cp
	s.byUser[rec.UserCode] = rec.DeviceCode
	s.mu.Unlock()
	return nil
}

// GetDeviceCode returns a copy of the record by device code.
func (s *DeviceStore) GetDeviceCode(_ context.Context, deviceCode string) (*authkit.DeviceCodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byDevice[deviceCode]
	if !ok {
		return nil, authkit.ErrCodeNotFound
	}
	cp := *rec
	return &cp, nil
}

// GetDeviceCodeByUserCode returns a copy of the record by user code.
func (s *DeviceStore) GetDeviceCodeByUserCode(_ context.Context, userCode string) (*authkit.DeviceCodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deviceCode, ok := s.byUser[userCode]
	if !ok {
		return nil, authkit.ErrCodeNotFound
	}
	cp := *s.byDevice[deviceCode]
	return &cp, nil
}

// AuthorizeDeviceCode binds an identity to the pending grant identified by
// user code and marks it authorized.
func (s *DeviceStore) AuthorizeDeviceCode(_ context.Context, userCode, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deviceCode, ok := s.byUser[userCode]
	if !ok {
		return authkit.ErrCodeNotFound
	}
	rec := s.byDevice[deviceCode]
	if rec.State != authkit.CodeRequested {
		return authkit.ErrCodeConsumed
	}
	rec.IdentityID = identityID
	rec.State = authkit.CodeAuthorized
	return nil
}

// ConsumeDeviceCode atomically redeems an authorized device code. Same
// single-winner contract as [CodeStore.ConsumeCode].
func (s *DeviceStore) ConsumeDeviceCode(_ context.Context, deviceCode string) (*authkit.DeviceCodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byDevice[deviceCode]
	if !ok {
		return nil, authkit.ErrCodeNotFound
	}
	if rec.State != authkit.CodeAuthorized {
		return nil, authkit.ErrCodeConsumed
	}
	cp := *rec
	rec.State = authkit.CodeRedeemed
	return &cp, nil
}

// TouchPoll records a poll timestamp and returns the previous one. The
// zero time means the device never polled before.
func (s *DeviceStore) TouchPoll(_ context.Context, deviceCode string, at time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byDevice[deviceCode]
	if !ok {
		return time.Time{}, authkit.ErrCodeNotFound
	}
	prev := rec.LastPolledAt
	rec.LastPolledAt = at
	return prev, nil
}
