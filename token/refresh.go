package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	refreshPrefix      = "rt_"
	refreshSecretBytes = 32
)

var (
	// ErrRefreshInvalid is returned for wrong-prefix, unparseable, or
	// unknown refresh tokens. Unknown and malformed are deliberately
	// indistinguishable.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshRevoked is returned when the token was already rotated or
	// explicitly revoked. Security-relevant; callers must not retry.
	ErrRefreshRevoked = errors.New("refresh token revoked")
	// ErrRefreshExpired is returned when the stored record has passed its
	// expiry.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRefreshNotFound is the store-level signal for an absent record.
	// The manager maps it to [ErrRefreshInvalid] before it reaches callers.
	ErrRefreshNotFound = errors.New("refresh token not found")
	// ErrRecordCorrupt is the store-level signal for an undecodable record.
	// It propagates as-is; a corrupt record is never coerced into a miss.
	ErrRecordCorrupt = errors.New("refresh record corrupt")
)

// RefreshTokenRecord is the persisted state behind an opaque refresh
// token. TokenID is a digest of the token string; the plaintext token is
// never stored.
type RefreshTokenRecord struct {
	TokenID    string    `json:"token_id"`
	IdentityID string    `json:"identity_id"`
	Scopes     []string  `json:"scopes,omitempty"`
	Roles      []string  `json:"roles,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	TenantID   string    `json:"tenant_id,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	Revoked    bool      `json:"revoked"`
}

// Store is the persistence contract for refresh tokens and the access
// revocation list. ConsumeRefreshToken must be an atomic
// check-and-mark-revoked: under concurrent consumption of one token,
// exactly one caller receives the record and every other caller receives
// [ErrRefreshRevoked]. Implementations must propagate backend failures
// and must never report them as a miss or a success.
type Store interface {
	SaveRefreshToken(ctx context.Context, rec *RefreshTokenRecord) error
	GetRefreshToken(ctx context.Context, tokenID string) (*RefreshTokenRecord, error)
	ConsumeRefreshToken(ctx context.Context, tokenID string) (*RefreshTokenRecord, error)
	RevokeRefreshToken(ctx context.Context, tokenID string) error
	RevokeTokensByIdentity(ctx context.Context, identityID string) error
	RevokeTokensBySession(ctx context.Context, sessionID string) error
	RevokeJTI(ctx context.Context, jti string, until time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// IssueRefreshToken mints an opaque rt_-prefixed token, persists its record
// keyed by digest, and returns the plaintext token exactly once.
func (m *Manager) IssueRefreshToken(ctx context.Context, p RefreshTokenParams) (string, error) {
	raw := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	tok := refreshPrefix + base64.RawURLEncoding.EncodeToString(raw)

	ttl := p.TTL
	if ttl <= 0 {
		ttl = m.cfg.RefreshTTL
	}

	now := m.now()
	rec := &RefreshTokenRecord{
		TokenID:    RefreshTokenID(tok),
		IdentityID: p.IdentityID,
		Scopes:     p.Scopes,
		Roles:      p.Roles,
		SessionID:  p.SessionID,
		TenantID:   p.TenantID,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
	if err := m.store.SaveRefreshToken(ctx, rec); err != nil {
		return "", err
	}
	return tok, nil
}

// ValidateRefreshToken resolves a refresh token to its record without
// consuming it. Wrong prefix and unknown token both report
// [ErrRefreshInvalid]; revoked and expired are distinct.
func (m *Manager) ValidateRefreshToken(ctx context.Context, tok string) (*RefreshTokenRecord, error) {
	if !strings.HasPrefix(tok, refreshPrefix) {
		return nil, ErrRefreshInvalid
	}

	rec, err := m.store.GetRefreshToken(ctx, RefreshTokenID(tok))
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if rec.Revoked {
		return nil, ErrRefreshRevoked
	}
	if !m.now().Before(rec.ExpiresAt) {
		return nil, ErrRefreshExpired
	}
	return rec, nil
}

// RefreshAccessToken rotates a refresh token: the old token is atomically
// consumed first, then a new bound access+refresh pair is minted. Under
// concurrent calls with the same token at most one caller succeeds; the
// losers observe [ErrRefreshRevoked]. Because consumption precedes
// minting, a crash mid-rotation can lose a pair but can never produce two.
func (m *Manager) RefreshAccessToken(ctx context.Context, tok string) (*Pair, error) {
	if !strings.HasPrefix(tok, refreshPrefix) {
		return nil, ErrRefreshInvalid
	}

	rec, err := m.store.ConsumeRefreshToken(ctx, RefreshTokenID(tok))
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if !m.now().Before(rec.ExpiresAt) {
		return nil, ErrRefreshExpired
	}

	access, err := m.IssueAccessToken(AccessTokenParams{
		IdentityID: rec.IdentityID,
		Scopes:     rec.Scopes,
		Roles:      rec.Roles,
		SessionID:  rec.SessionID,
		TenantID:   rec.TenantID,
		TTL:        m.cfg.AccessTTL,
	})
	if err != nil {
		return nil, err
	}

	refresh, err := m.IssueRefreshToken(ctx, RefreshTokenParams{
		IdentityID: rec.IdentityID,
		Scopes:     rec.Scopes,
		Roles:      rec.Roles,
		SessionID:  rec.SessionID,
		TenantID:   rec.TenantID,
		TTL:        m.cfg.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// RevokeToken revokes a single token by value. Refresh tokens are revoked
// through the store; access tokens are parsed (unverified — revoking a
// token whose key has rotated away must still work) and their jti is
// placed on the revocation list until the token's own expiry. Idempotent.
func (m *Manager) RevokeToken(ctx context.Context, tok string) error {
	if strings.HasPrefix(tok, refreshPrefix) {
		return m.store.RevokeRefreshToken(ctx, RefreshTokenID(tok))
	}

	claims, err := m.peekClaims(tok)
	if err != nil {
		return err
	}
	until := m.now().Add(m.cfg.AccessTTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return m.store.RevokeJTI(ctx, claims.ID, until)
}

// RevokeTokensByIdentity revokes every refresh token held by one identity.
// Idempotent.
func (m *Manager) RevokeTokensByIdentity(ctx context.Context, identityID string) error {
	return m.store.RevokeTokensByIdentity(ctx, identityID)
}

// RevokeTokensBySession revokes every refresh token bound to one session.
// Idempotent.
func (m *Manager) RevokeTokensBySession(ctx context.Context, sessionID string) error {
	return m.store.RevokeTokensBySession(ctx, sessionID)
}

func (m *Manager) peekClaims(tok string) (*Claims, error) {
	if strings.Count(tok, ".") != 2 {
		return nil, ErrTokenMalformed
	}
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tok, &claims); err != nil {
		return nil, ErrTokenMalformed
	}
	if claims.ID == "" {
		return nil, ErrTokenMalformed
	}
	return &claims, nil
}

// RefreshTokenID derives the store key for a refresh token. SHA-256 of the
// plaintext; a leaked store never yields redeemable tokens.
func RefreshTokenID(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
