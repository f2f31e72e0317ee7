package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authkit/authz"
	"github.com/MrEthical07/authkit/internal/audit"
	"github.com/MrEthical07/authkit/keyring"
	"github.com/MrEthical07/authkit/token"
)

// Engine is the front door of the authentication and authorization core.
// It orchestrates password login, token lifecycle, OAuth2 grants, and
// authorization decisions over caller-supplied stores. Construct it with
// [Builder.Build]; all methods are safe for concurrent use afterwards.
type Engine struct {
	cfg         Config
	ring        *keyring.Ring
	tokens      *token.Manager
	oauth2      *OAuth2Manager
	authzEngine *authz.Engine
	limiter     *RateLimiter
	hasher      PasswordHasher
	identities  IdentityStore
	credentials CredentialStore
	resets      ResetStore
	audit       *audit.Dispatcher
	metrics     *Metrics
}

// Close flushes and stops the audit dispatcher. Idempotent and nil-safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded under
// drop-if-full buffering.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks AuditDropped down by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return nil
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot copies the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Keys exposes the signing keyring for rotation and revocation.
func (e *Engine) Keys() *keyring.Ring { return e.ring }

// Tokens exposes the token manager for direct issuance.
func (e *Engine) Tokens() *token.Manager { return e.tokens }

// OAuth2 exposes the grant flows. Nil when no client store was wired.
func (e *Engine) OAuth2() *OAuth2Manager { return e.oauth2 }

// Authz exposes the authorization decision engine for role, policy, and
// scope configuration.
func (e *Engine) Authz() *authz.Engine { return e.authzEngine }

// Limiter exposes the login rate limiter.
func (e *Engine) Limiter() *RateLimiter { return e.limiter }

// ValidateAccessToken validates a signed access token and returns its
// claims. The hot path: structure, key resolution, signature, expiry,
// then the revocation list.
func (e *Engine) ValidateAccessToken(ctx context.Context, tok string) (*TokenClaims, error) {
	start := time.Now()
	claims, err := e.tokens.ValidateAccessToken(ctx, tok)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))
	if err != nil {
		e.metrics.Inc(MetricTokenRejected)
		return nil, err
	}
	e.metrics.Inc(MetricTokenValidated)
	return claims, nil
}

// Refresh rotates a refresh token into a new access+refresh pair. The old
// token is consumed atomically before the new pair is minted; a replayed
// token fails with "revoked" and is counted as a replay.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := e.tokens.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshRevoked) {
			e.metrics.Inc(MetricRefreshReplay)
			e.emit(ctx, AuditTokenRefresh, "", false, err)
		}
		return nil, err
	}
	e.metrics.Inc(MetricRefreshSuccess)
	e.metrics.Inc(MetricTokenIssued)
	return pair, nil
}

// RevokeToken revokes a single access or refresh token by value.
// Idempotent.
func (e *Engine) RevokeToken(ctx context.Context, tok string) error {
	if err := e.tokens.RevokeToken(ctx, tok); err != nil {
		return err
	}
	e.metrics.Inc(MetricTokenRevoked)
	e.emit(ctx, AuditTokenRevoke, "", true, nil)
	return nil
}

// Logout revokes every refresh token bound to one session. Idempotent.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if err := e.tokens.RevokeTokensBySession(ctx, sessionID); err != nil {
		return err
	}
	ev := newAuditEvent(AuditLogout, "", true)
	ev.SessionID = sessionID
	ev.IP = clientIPFromContext(ctx)
	e.audit.Emit(ctx, ev)
	return nil
}

// LogoutAll revokes every refresh token held by one identity. Idempotent.
func (e *Engine) LogoutAll(ctx context.Context, identityID string) error {
	if err := e.tokens.RevokeTokensByIdentity(ctx, identityID); err != nil {
		return err
	}
	e.emit(ctx, AuditLogoutAll, identityID, true, nil)
	return nil
}

// AuthzContext validates an access token and builds the per-request
// authorization context downstream guards feed into [Engine.Authz].
// Resource and action are filled in by the guard.
func (e *Engine) AuthzContext(ctx context.Context, accessToken string) (*authz.Context, error) {
	claims, err := e.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &authz.Context{
		IdentityID: claims.IdentityID(),
		Scopes:     claims.Scopes,
		Roles:      claims.Roles,
		TenantID:   claims.TenantID,
	}, nil
}

func (e *Engine) emit(ctx context.Context, eventType, identityID string, success bool, cause error) {
	ev := newAuditEvent(eventType, identityID, success)
	ev.IP = clientIPFromContext(ctx)
	ev.TenantID = tenantIDFromContext(ctx)
	if cause != nil {
		ev.Error = cause.Error()
	}
	e.audit.Emit(ctx, ev)
}
