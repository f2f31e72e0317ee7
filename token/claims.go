package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access-token payload. It is produced at issuance and
// consumed at validation; nothing mutates a Claims value in between.
type Claims struct {
	Scopes    []string `json:"scopes,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	SessionID string   `json:"sid,omitempty"`
	TenantID  string   `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// IdentityID returns the token subject.
func (c *Claims) IdentityID() string {
	return c.Subject
}

// HasScope reports whether the token carries the given scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AccessTokenParams are the inputs to [Manager.IssueAccessToken].
// TTL is honored as given: a zero or negative TTL yields an already-expired
// token rather than an issuance error.
type AccessTokenParams struct {
	IdentityID string
	Scopes     []string
	Roles      []string
	SessionID  string
	TenantID   string
	TTL        time.Duration
}

// RefreshTokenParams are the inputs to [Manager.IssueRefreshToken].
type RefreshTokenParams struct {
	IdentityID string
	Scopes     []string
	Roles      []string
	SessionID  string
	TenantID   string
	TTL        time.Duration
}

// Pair bundles the access and refresh tokens minted together by a login
// or a refresh rotation.
type Pair struct {
	AccessToken  string
	RefreshToken string
}
