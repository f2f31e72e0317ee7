package authkit

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authkit/internal/audit"
	"github.com/MrEthical07/authkit/token"
)

const codePrefix = "ac_"

// AuthorizeRequest carries the fields of an OAuth2 authorization request.
type AuthorizeRequest struct {
	ClientID        string
	RedirectURI     string
	Scopes          []string
	CodeChallenge   string
	ChallengeMethod string
}

// ExchangeRequest carries the fields of an authorization code exchange.
type ExchangeRequest struct {
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	CodeVerifier string
}

// OAuth2Manager implements the authorization code (with PKCE), client
// credentials, and device authorization grants on top of the token layer.
// All state lives in the caller-supplied stores; the manager itself is
// stateless and safe for concurrent use.
type OAuth2Manager struct {
	clients    OAuthClientStore
	codes      AuthorizationCodeStore
	devices    DeviceCodeStore
	identities IdentityStore
	tokens     *token.Manager
	cfg        OAuthConfig
	metrics    *Metrics
	audit      *audit.Dispatcher
	now        func() time.Time
}

// NewOAuth2Manager wires an OAuth2 manager. Engine construction calls this;
// it is exported for integrations that run grants without the full engine.
func NewOAuth2Manager(
	clients OAuthClientStore,
	codes AuthorizationCodeStore,
	devices DeviceCodeStore,
	identities IdentityStore,
	tokens *token.Manager,
	cfg OAuthConfig,
) (*OAuth2Manager, error) {
	if clients == nil || codes == nil || devices == nil || tokens == nil {
		return nil, ErrEngineNotReady
	}
	return &OAuth2Manager{
		clients:    clients,
		codes:      codes,
		devices:    devices,
		identities: identities,
		tokens:     tokens,
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// Authorize validates an authorization request without minting anything:
// the client must exist, the redirect_uri must exactly match a registered
// one, the scopes must be a subset of the client's registration, and a
// client that mandates PKCE must present an S256 challenge.
func (o *OAuth2Manager) Authorize(ctx context.Context, req AuthorizeRequest) error {
	_, err := o.validateAuthorize(ctx, req)
	return err
}

func (o *OAuth2Manager) validateAuthorize(ctx context.Context, req AuthorizeRequest) (*OAuthClient, error) {
	client, err := o.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, ErrClientInvalid) {
			return nil, ErrClientInvalid
		}
		return nil, fmt.Errorf("client lookup: %w", err)
	}
	if !client.AllowsRedirect(req.RedirectURI) {
		return nil, ErrRedirectURIMismatch
	}
	if !client.AllowsScopes(req.Scopes) {
		return nil, ErrScopeInvalid
	}
	mustPKCE := client.RequirePKCE || client.Public
	if mustPKCE && req.CodeChallenge == "" {
		return nil, ErrPKCERequired
	}
	if req.CodeChallenge != "" && req.ChallengeMethod != PKCEMethodS256 {
		return nil, fmt.Errorf("%w: method %q", ErrPKCEInvalid, req.ChallengeMethod)
	}
	return client, nil
}

// GrantAuthorizationCode re-validates the request, binds it to the
// authenticated identity, and mints a single-use ac_-prefixed code.
func (o *OAuth2Manager) GrantAuthorizationCode(ctx context.Context, req AuthorizeRequest, identityID string) (string, error) {
	if _, err := o.validateAuthorize(ctx, req); err != nil {
		return "", err
	}

	code, err := randomCode(codePrefix)
	if err != nil {
		return "", err
	}
	now := o.now()
	rec := &AuthorizationCodeRecord{
		Code:            code,
		ClientID:        req.ClientID,
		IdentityID:      identityID,
		RedirectURI:     req.RedirectURI,
		Scopes:          req.Scopes,
		CodeChallenge:   req.CodeChallenge,
		ChallengeMethod: req.ChallengeMethod,
		State:           CodeAuthorized,
		ExpiresAt:       now.Add(o.cfg.CodeTTL),
		CreatedAt:       now,
	}
	if err := o.codes.SaveCode(ctx, rec); err != nil {
		return "", fmt.Errorf("code save: %w", err)
	}

	o.metrics.Inc(MetricCodeGranted)
	o.emit(ctx, AuditCodeGrant, identityID, req.ClientID, true, nil)
	return code, nil
}

// ExchangeAuthorizationCode redeems a code for a token pair. The code is
// consumed before any token is minted, so a crash mid-exchange burns the
// code rather than leaving it replayable. A consumed or unknown code fails
// with "grant invalid"; an expired one with "grant expired"; a verifier
// mismatch with "pkce invalid" so replay and requester faults stay
// distinguishable.
func (o *OAuth2Manager) ExchangeAuthorizationCode(ctx context.Context, req ExchangeRequest) (*TokenPair, error) {
	client, err := o.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	rec, err := o.codes.ConsumeCode(ctx, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrCodeNotFound):
			return nil, ErrGrantInvalid
		case errors.Is(err, ErrCodeConsumed):
			o.metrics.Inc(MetricCodeReplay)
			o.emit(ctx, AuditCodeExchange, "", req.ClientID, false, ErrGrantInvalid)
			return nil, ErrGrantInvalid
		}
		return nil, fmt.Errorf("code consume: %w", err)
	}

	if rec.ClientID != client.ID {
		return nil, ErrGrantInvalid
	}
	if !o.now().Before(rec.ExpiresAt) {
		return nil, ErrGrantExpired
	}
	if rec.RedirectURI != req.RedirectURI {
		return nil, ErrRedirectURIMismatch
	}
	if rec.CodeChallenge != "" {
		if !VerifyPKCE(req.CodeVerifier, rec.CodeChallenge, rec.ChallengeMethod) {
			o.metrics.Inc(MetricPKCEFailure)
			o.emit(ctx, AuditCodeExchange, rec.IdentityID, req.ClientID, false, ErrPKCEInvalid)
			return nil, ErrPKCEInvalid
		}
	}

	pair, err := o.mintPair(ctx, rec.IdentityID, rec.Scopes)
	if err != nil {
		return nil, err
	}

	o.metrics.Inc(MetricCodeExchanged)
	o.emit(ctx, AuditCodeExchange, rec.IdentityID, req.ClientID, true, nil)
	return pair, nil
}

// ClientCredentialsGrant authenticates a confidential client and issues an
// access token only. Machine credentials re-authenticate rather than hold
// long-lived refresh capability, so no refresh token is minted.
func (o *OAuth2Manager) ClientCredentialsGrant(ctx context.Context, clientID, clientSecret string, scopes []string) (*AuthResult, error) {
	client, err := o.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}
	if client.Public {
		// Public clients hold no credential to grant on.
		return nil, ErrClientInvalid
	}
	if !client.AllowsScopes(scopes) {
		return nil, ErrScopeInvalid
	}

	access, err := o.tokens.IssueAccessToken(token.AccessTokenParams{
		IdentityID: clientID,
		Scopes:     scopes,
		TTL:        o.tokens.AccessTTL(),
	})
	if err != nil {
		return nil, err
	}

	o.metrics.Inc(MetricClientCredentials)
	o.metrics.Inc(MetricTokenIssued)
	o.emit(ctx, AuditClientGrant, clientID, clientID, true, nil)
	return &AuthResult{
		IdentityID:  clientID,
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(o.tokens.AccessTTL().Seconds()),
		Scopes:      scopes,
	}, nil
}

func (o *OAuth2Manager) authenticateClient(ctx context.Context, clientID, clientSecret string) (*OAuthClient, error) {
	client, err := o.clients.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrClientInvalid) {
			return nil, ErrClientInvalid
		}
		return nil, fmt.Errorf("client lookup: %w", err)
	}
	if client.Public {
		if clientSecret != "" {
			return nil, ErrClientInvalid
		}
		return client, nil
	}
	if subtle.ConstantTimeCompare([]byte(client.Secret), []byte(clientSecret)) != 1 {
		return nil, ErrClientInvalid
	}
	return client, nil
}

// mintPair issues a session-bound access+refresh pair for the identity,
// stamping roles and tenant from the identity record when available.
func (o *OAuth2Manager) mintPair(ctx context.Context, identityID string, scopes []string) (*TokenPair, error) {
	var roles []string
	var tenantID string
	if o.identities != nil {
		identity, err := o.identities.GetIdentity(ctx, identityID)
		if err == nil {
			roles = identity.Roles()
			tenantID = identity.TenantID
		} else if !errors.Is(err, ErrIdentityNotFound) {
			return nil, fmt.Errorf("identity lookup: %w", err)
		}
	}

	sessionID := uuid.NewString()
	access, err := o.tokens.IssueAccessToken(token.AccessTokenParams{
		IdentityID: identityID,
		Scopes:     scopes,
		Roles:      roles,
		SessionID:  sessionID,
		TenantID:   tenantID,
		TTL:        o.tokens.AccessTTL(),
	})
	if err != nil {
		return nil, err
	}
	refresh, err := o.tokens.IssueRefreshToken(ctx, token.RefreshTokenParams{
		IdentityID: identityID,
		Scopes:     scopes,
		Roles:      roles,
		SessionID:  sessionID,
		TenantID:   tenantID,
	})
	if err != nil {
		return nil, err
	}
	o.metrics.Inc(MetricTokenIssued)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (o *OAuth2Manager) emit(ctx context.Context, eventType, identityID, clientID string, success bool, cause error) {
	if o.audit == nil {
		return
	}
	ev := newAuditEvent(eventType, identityID, success)
	ev.ClientID = clientID
	ev.IP = clientIPFromContext(ctx)
	if cause != nil {
		ev.Error = cause.Error()
	}
	o.audit.Emit(ctx, ev)
}

func randomCode(prefix string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return prefix + base64.RawURLEncoding.EncodeToString(raw), nil
}
