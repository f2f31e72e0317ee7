// Package token issues and validates the two token kinds of the engine:
// self-contained signed access tokens (verifiable without a store round
// trip) and store-backed opaque refresh tokens (unforgeable references
// that support strong revocation and rotation).
package token

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/authkit/keyring"
)

var (
	// ErrTokenMalformed is returned for structurally invalid access tokens.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenExpired is returned when the exp claim has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenNotYetValid is returned when the nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("token not yet valid")
	// ErrInvalidSignature is returned when the signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrTokenRevoked is returned when the jti is on the revocation list.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrUnknownKeyID mirrors [keyring.ErrUnknownKeyID] so callers can match
	// on either package.
	ErrUnknownKeyID = keyring.ErrUnknownKeyID
)

// Config tunes the token manager. AccessTTL and RefreshTTL are the default
// lifetimes used by refresh rotation; explicit TTLs on issuance params win.
type Config struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Manager signs access tokens with the ring's active key and resolves
// verification keys by kid, so rotation never invalidates tokens signed
// by retiring keys while revocation cuts them off immediately.
type Manager struct {
	ring  *keyring.Ring
	store Store
	cfg   Config
	now   func() time.Time
}

// NewManager creates a token Manager. The ring and store are both
// required; the store backs refresh tokens and the access revocation list.
func NewManager(ring *keyring.Ring, store Store, cfg Config) (*Manager, error) {
	if ring == nil {
		return nil, errors.New("nil keyring")
	}
	if store == nil {
		return nil, errors.New("nil token store")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 5 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}

	return &Manager{
		ring:  ring,
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}, nil
}

// WithClock overrides the manager's time source. Test hook.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

// IssueAccessToken mints a signed access token for the given identity.
// The jti is a fresh UUID; sub carries the identity id. A non-positive
// TTL is honored and produces a token that is already expired.
func (m *Manager) IssueAccessToken(p AccessTokenParams) (string, error) {
	desc, err := m.ring.SigningKey()
	if err != nil {
		return "", err
	}

	now := m.now()
	claims := Claims{
		Scopes:    p.Scopes,
		Roles:     p.Roles,
		SessionID: p.SessionID,
		TenantID:  p.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   p.IdentityID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}

	tok := jwt.NewWithClaims(signingMethod(desc.Algorithm), claims)
	tok.Header["kid"] = desc.KID

	key, err := signingKeyFor(desc)
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

// ValidateAccessToken checks a token in a fixed order: structure, kid
// resolution, signature, expiry, then the revocation list. Unknown kid is
// surfaced before expiry so a rotated-away token is reported as a key
// problem, not a timeout. A revocation-store failure propagates; it is
// never treated as valid or invalid.
func (m *Manager) ValidateAccessToken(ctx context.Context, tokenStr string) (*Claims, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return nil, ErrTokenMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg(), jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.cfg.Leeway))
	}
	if m.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.cfg.Issuer))
	}
	if m.cfg.Audience != "" {
		options = append(options, jwt.WithAudience(m.cfg.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, m.resolveKey)
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	revoked, err := m.store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

func (m *Manager) resolveKey(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: missing kid", ErrUnknownKeyID)
	}

	key, alg, err := m.ring.VerificationKey(kid)
	if err != nil {
		return nil, err
	}
	if t.Method.Alg() != signingMethod(alg).Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm for kid %s: %s", kid, t.Method.Alg())
	}

	if alg == keyring.AlgHS256 {
		return key, nil
	}
	return ed25519.PublicKey(key), nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, keyring.ErrUnknownKeyID):
		return ErrUnknownKeyID
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotYetValid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

func signingMethod(alg keyring.Algorithm) jwt.SigningMethod {
	if alg == keyring.AlgHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func signingKeyFor(desc *keyring.Descriptor) (interface{}, error) {
	switch desc.Algorithm {
	case keyring.AlgHS256:
		return desc.Private, nil
	case keyring.AlgEd25519:
		if len(desc.Private) != ed25519.PrivateKeySize {
			return nil, keyring.ErrKeyMaterialInvalid
		}
		return ed25519.PrivateKey(desc.Private), nil
	default:
		return nil, keyring.ErrUnsupportedAlgorithm
	}
}
