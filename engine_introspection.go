package authkit

import (
	"context"
	"errors"
	"time"
)

// Introspection is the safe read-only view of an access token, modeled on
// the RFC 7662 response shape. It excludes signing material and the raw
// claims object.
type Introspection struct {
	Active     bool
	IdentityID string
	SessionID  string
	TenantID   string
	TokenID    string
	Scopes     []string
	Roles      []string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// IntrospectToken inspects an access token without granting anything.
// Malformed, expired, forged, and revoked tokens all come back as
// Active=false with no error; only a backend failure during the
// revocation check is surfaced, so callers never mistake an outage for
// a dead token.
func (e *Engine) IntrospectToken(ctx context.Context, accessToken string) (*Introspection, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		if isInactiveTokenError(err) {
			return &Introspection{}, nil
		}
		return nil, err
	}

	out := &Introspection{
		Active:     true,
		IdentityID: claims.IdentityID(),
		SessionID:  claims.SessionID,
		TenantID:   claims.TenantID,
		TokenID:    claims.ID,
		Scopes:     append([]string(nil), claims.Scopes...),
		Roles:      append([]string(nil), claims.Roles...),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func isInactiveTokenError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenNotYetValid) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrUnknownKeyID)
}
