package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrEthical07/authkit/token"
)

// AuthenticatePassword runs the password login flow for a username (the
// identity's "username" attribute) and returns a session-bound token pair.
//
// The checks run in a fixed order. A locked key fails before the
// credential store is touched. An unknown identity, a deleted identity,
// and a wrong password are all reported as "invalid credentials" so the
// login surface gives no enumeration signal; suspension is the one status
// that is reported distinctly, since the caller held real credentials for
// an account an operator parked. A verified password with MFA enrolled
// stops with "MFA required" and issues nothing.
func (e *Engine) AuthenticatePassword(ctx context.Context, username, pass string, scopes []string) (*AuthResult, error) {
	if e == nil || e.identities == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}

	key := loginKey(ctx, username)
	if e.limiter.IsLockedOut(key) {
		e.metrics.Inc(MetricLoginLocked)
		e.metrics.Inc(MetricRateLimitHit)
		e.emit(ctx, AuditLoginLocked, "", false, ErrAccountLocked)
		return nil, ErrAccountLocked
	}

	identity, err := e.identities.GetIdentityByAttribute(ctx, "username", username)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			// Burn an attempt so unknown usernames cannot be probed freely.
			return nil, e.loginFailure(ctx, key, "", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("identity lookup: %w", err)
	}

	switch identity.Status {
	case IdentityActive:
	case IdentitySuspended:
		e.metrics.Inc(MetricLoginSuspended)
		e.emit(ctx, AuditLogin, identity.ID, false, ErrAccountSuspended)
		return nil, ErrAccountSuspended
	default:
		// Deleted folds into invalid credentials and burns an attempt.
		return nil, e.loginFailure(ctx, key, identity.ID, ErrInvalidCredentials)
	}

	hash, err := e.credentials.GetPasswordHash(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, e.loginFailure(ctx, key, identity.ID, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("credential lookup: %w", err)
	}

	ok, err := e.hasher.Verify(pass, hash)
	if err != nil {
		return nil, fmt.Errorf("password verify: %w", err)
	}
	if !ok {
		return nil, e.loginFailure(ctx, key, identity.ID, ErrInvalidCredentials)
	}

	// Progressive rehash: a stored hash with weaker-than-current cost is
	// transparently upgraded. Failure here never fails the login.
	if upgrade, err := e.hasher.NeedsRehash(hash); err == nil && upgrade {
		if newHash, err := e.hasher.Hash(pass); err == nil {
			_ = e.credentials.SavePasswordHash(ctx, identity.ID, newHash)
		}
	}

	e.limiter.Reset(key)

	enrolled, err := e.credentials.MFAEnrolled(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("mfa lookup: %w", err)
	}
	if enrolled {
		e.metrics.Inc(MetricMFAGate)
		e.emit(ctx, AuditLogin, identity.ID, false, ErrMFARequired)
		return nil, ErrMFARequired
	}

	result, err := e.issueSession(ctx, identity, scopes)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	ev := newAuditEvent(AuditLogin, identity.ID, true)
	ev.SessionID = result.SessionID
	ev.TenantID = identity.TenantID
	ev.IP = clientIPFromContext(ctx)
	e.audit.Emit(ctx, ev)
	return result, nil
}

// issueSession mints a fresh session id and a bound access+refresh pair.
func (e *Engine) issueSession(ctx context.Context, identity *Identity, scopes []string) (*AuthResult, error) {
	sessionID := uuid.NewString()
	roles := identity.Roles()

	access, err := e.tokens.IssueAccessToken(token.AccessTokenParams{
		IdentityID: identity.ID,
		Scopes:     scopes,
		Roles:      roles,
		SessionID:  sessionID,
		TenantID:   identity.TenantID,
		TTL:        e.tokens.AccessTTL(),
	})
	if err != nil {
		return nil, err
	}
	refresh, err := e.tokens.IssueRefreshToken(ctx, token.RefreshTokenParams{
		IdentityID: identity.ID,
		Scopes:     scopes,
		Roles:      roles,
		SessionID:  sessionID,
		TenantID:   identity.TenantID,
		TTL:        e.tokens.RefreshTTL(),
	})
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricTokenIssued)
	return &AuthResult{
		IdentityID:   identity.ID,
		SessionID:    sessionID,
		TenantID:     identity.TenantID,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(e.tokens.AccessTTL().Seconds()),
		Scopes:       scopes,
		Roles:        roles,
	}, nil
}

func (e *Engine) loginFailure(ctx context.Context, key, identityID string, cause error) error {
	e.limiter.RecordAttempt(key)
	e.metrics.Inc(MetricLoginFailure)
	e.emit(ctx, AuditLogin, identityID, false, cause)
	return cause
}

// loginKey scopes lockout state to username plus caller IP when one is
// attached to the context, so a single address cannot lock out a user
// globally.
func loginKey(ctx context.Context, username string) string {
	if ip := clientIPFromContext(ctx); ip != "" {
		return username + "|" + ip
	}
	return username
}
