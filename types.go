package authkit

import (
	"context"
	"time"

	"github.com/MrEthical07/authkit/token"
)

// IdentityStatus represents the lifecycle state of an identity.
type IdentityStatus uint8

const (
	// IdentityActive identities may authenticate.
	IdentityActive IdentityStatus = iota
	// IdentitySuspended identities are rejected with [ErrAccountSuspended].
	IdentitySuspended
	// IdentityDeleted identities are rejected with [ErrInvalidCredentials],
	// indistinguishable from an account that never existed.
	IdentityDeleted
)

// String implements [fmt.Stringer].
func (s IdentityStatus) String() string {
	switch s {
	case IdentityActive:
		return "active"
	case IdentitySuspended:
		return "suspended"
	case IdentityDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Identity is the principal record shared by login, OAuth2 flows, and the
// authorization engine. Attributes carries free-form key/value pairs used by
// attribute conditions; the "roles" attribute, when present, is a
// comma-separated role list stamped into issued tokens.
type Identity struct {
	ID         string
	Type       string
	Status     IdentityStatus
	TenantID   string
	Attributes map[string]string
}

// Roles returns the identity's role names parsed from the "roles" attribute.
func (id *Identity) Roles() []string {
	raw, ok := id.Attributes["roles"]
	if !ok || raw == "" {
		return nil
	}
	var roles []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if r := trimSpaces(raw[start:i]); r != "" {
				roles = append(roles, r)
			}
			start = i + 1
		}
	}
	return roles
}

func trimSpaces(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

// IdentityStore is the principal lookup interface callers implement to
// integrate their user database. Absent identities are signalled with
// [ErrIdentityNotFound].
type IdentityStore interface {
	GetIdentity(ctx context.Context, id string) (*Identity, error)
	GetIdentityByAttribute(ctx context.Context, attribute, value string) (*Identity, error)
	CreateIdentity(ctx context.Context, identity *Identity) error
	UpdateIdentity(ctx context.Context, identity *Identity) error
	DeleteIdentity(ctx context.Context, id string) error
}

// CredentialStore holds password and API key digests plus MFA enrollment
// state, keyed by identity ID. Plaintext secrets never cross this interface.
type CredentialStore interface {
	GetPasswordHash(ctx context.Context, identityID string) (string, error)
	SavePasswordHash(ctx context.Context, identityID, hash string) error
	GetAPIKeyHash(ctx context.Context, identityID string) (string, error)
	SaveAPIKeyHash(ctx context.Context, identityID, hash string) error
	MFAEnrolled(ctx context.Context, identityID string) (bool, error)
	SetMFAEnrolled(ctx context.Context, identityID string, enrolled bool) error
}

// PasswordHasher abstracts the password hashing scheme. The default
// implementation is argon2id in [password.Hasher].
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsRehash(encodedHash string) (bool, error)
}

// Aliases re-exporting the token layer so most integrations only import the
// root package.
type (
	// TokenStore is an alias of [token.Store].
	TokenStore = token.Store
	// RefreshTokenRecord is an alias of [token.RefreshTokenRecord].
	RefreshTokenRecord = token.RefreshTokenRecord
	// TokenClaims is an alias of [token.Claims].
	TokenClaims = token.Claims
	// TokenPair is an alias of [token.Pair].
	TokenPair = token.Pair
)

// OAuthClient is a registered OAuth2 client. Public clients carry no secret
// and must use PKCE on the authorization code grant.
type OAuthClient struct {
	ID           string
	Secret       string
	RedirectURIs []string
	Scopes       []string
	RequirePKCE  bool
	Public       bool
}

// AllowsScopes reports whether every requested scope is inside the client's
// registered set. An empty request is always allowed.
func (c *OAuthClient) AllowsScopes(requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	allowed := make(map[string]struct{}, len(c.Scopes))
	for _, s := range c.Scopes {
		allowed[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := allowed[s]; !ok {
			return false
		}
	}
	return true
}

// AllowsRedirect reports whether uri is an exact member of the client's
// registered redirect set. No prefix or pattern matching.
func (c *OAuthClient) AllowsRedirect(uri string) bool {
	for _, r := range c.RedirectURIs {
		if r == uri {
			return true
		}
	}
	return false
}

// OAuthClientStore resolves registered clients. Absent clients are signalled
// with [ErrClientInvalid].
type OAuthClientStore interface {
	GetClient(ctx context.Context, clientID string) (*OAuthClient, error)
}

// CodeState tracks an authorization or device code through its lifecycle.
// Transitions only move forward; a redeemed code never becomes redeemable
// again.
type CodeState uint8

const (
	// CodeRequested codes exist but carry no bound identity yet.
	CodeRequested CodeState = iota
	// CodeAuthorized codes are bound to an identity and ready to redeem.
	CodeAuthorized
	// CodeRedeemed codes were exchanged exactly once.
	CodeRedeemed
	// CodeExpired codes outlived their TTL unredeemed.
	CodeExpired
)

// String implements [fmt.Stringer].
func (s CodeState) String() string {
	switch s {
	case CodeRequested:
		return "requested"
	case CodeAuthorized:
		return "authorized"
	case CodeRedeemed:
		return "redeemed"
	case CodeExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// AuthorizationCodeRecord is a single-use authorization code grant. Codes are
// short lived and stored verbatim as the record key.
type AuthorizationCodeRecord struct {
	Code            string
	ClientID        string
	IdentityID      string
	RedirectURI     string
	Scopes          []string
	CodeChallenge   string
	ChallengeMethod string
	State           CodeState
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// AuthorizationCodeStore persists authorization code grants. ConsumeCode is
// the atomic redeem step: it transitions an authorized code to redeemed and
// returns the record, or fails with [ErrCodeConsumed] if another caller won.
// Exactly one concurrent ConsumeCode for the same code may succeed.
type AuthorizationCodeStore interface {
	SaveCode(ctx context.Context, rec *AuthorizationCodeRecord) error
	GetCode(ctx context.Context, code string) (*AuthorizationCodeRecord, error)
	ConsumeCode(ctx context.Context, code string) (*AuthorizationCodeRecord, error)
}

// DeviceCodeRecord is a device authorization grant pending user approval on a
// secondary device.
type DeviceCodeRecord struct {
	DeviceCode   string
	UserCode     string
	ClientID     string
	IdentityID   string
	Scopes       []string
	State        CodeState
	Interval     time.Duration
	ExpiresAt    time.Time
	CreatedAt    time.Time
	LastPolledAt time.Time
}

// DeviceCodeStore persists device authorization grants. TouchPoll atomically
// records a poll timestamp and returns the previous one so the caller can
// enforce the minimum polling interval. ConsumeDeviceCode follows the same
// single-winner contract as [AuthorizationCodeStore.ConsumeCode].
type DeviceCodeStore interface {
	SaveDeviceCode(ctx context.Context, rec *DeviceCodeRecord) error
	GetDeviceCode(ctx context.Context, deviceCode string) (*DeviceCodeRecord, error)
	GetDeviceCodeByUserCode(ctx context.Context, userCode string) (*DeviceCodeRecord, error)
	AuthorizeDeviceCode(ctx context.Context, userCode, identityID string) error
	ConsumeDeviceCode(ctx context.Context, deviceCode string) (*DeviceCodeRecord, error)
	TouchPoll(ctx context.Context, deviceCode string, at time.Time) (time.Time, error)
}

// ResetRecord is a pending password reset grant. The record is keyed by the
// SHA-256 digest of the opaque reset token; the token itself is never stored.
type ResetRecord struct {
	TokenHash  string
	IdentityID string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// ResetStore persists password reset grants. ConsumeReset removes the record
// atomically and returns it; exactly one concurrent consume for the same hash
// may succeed, the rest fail with [ErrResetNotFound].
type ResetStore interface {
	SaveReset(ctx context.Context, rec *ResetRecord) error
	ConsumeReset(ctx context.Context, tokenHash string) (*ResetRecord, error)
}

// AuthResult is returned by successful credential and grant flows. ExpiresIn
// is the access token lifetime in seconds.
type AuthResult struct {
	IdentityID   string
	SessionID    string
	TenantID     string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	Scopes       []string
	Roles        []string
}

// DeviceAuthorization is the response to a device authorization request.
// Interval is the minimum polling period in seconds.
type DeviceAuthorization struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int64
	Interval        int64
}
