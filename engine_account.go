package authkit

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const apiKeyPrefix = "ak_"

// RegisterIdentity creates an identity with a password credential. A zero
// status registers the identity active.
func (e *Engine) RegisterIdentity(ctx context.Context, identity *Identity, pass string) error {
	if e == nil || e.identities == nil || e.credentials == nil {
		return ErrEngineNotReady
	}
	if identity == nil || identity.ID == "" {
		return errors.New("identity id is required")
	}

	hash, err := e.hasher.Hash(pass)
	if err != nil {
		return fmt.Errorf("password hash: %w", err)
	}
	if err := e.identities.CreateIdentity(ctx, identity); err != nil {
		return fmt.Errorf("identity create: %w", err)
	}
	if err := e.credentials.SavePasswordHash(ctx, identity.ID, hash); err != nil {
		return fmt.Errorf("credential save: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password and replaces the stored hash.
// A wrong old password folds into "invalid credentials" like a failed
// login. Every session of the identity is cut afterwards so stolen
// refresh tokens do not outlive the credential they were obtained with.
func (e *Engine) ChangePassword(ctx context.Context, identityID, oldPassword, newPassword string) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}

	hash, err := e.credentials.GetPasswordHash(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("credential lookup: %w", err)
	}
	ok, err := e.hasher.Verify(oldPassword, hash)
	if err != nil {
		return fmt.Errorf("password verify: %w", err)
	}
	if !ok {
		e.emit(ctx, AuditLogin, identityID, false, ErrInvalidCredentials)
		return ErrInvalidCredentials
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("password hash: %w", err)
	}
	if err := e.credentials.SavePasswordHash(ctx, identityID, newHash); err != nil {
		return fmt.Errorf("credential save: %w", err)
	}

	if err := e.tokens.RevokeTokensByIdentity(ctx, identityID); err != nil {
		return fmt.Errorf("session revoke: %w", err)
	}
	e.emit(ctx, AuditLogoutAll, identityID, true, nil)
	return nil
}

// IssueAPIKey mints a random API key for the identity and stores only its
// hash. The plaintext is returned exactly once; it cannot be recovered
// later. Issuing a new key replaces the previous one.
func (e *Engine) IssueAPIKey(ctx context.Context, identityID string) (string, error) {
	if e == nil || e.credentials == nil {
		return "", ErrEngineNotReady
	}
	if _, err := e.identities.GetIdentity(ctx, identityID); err != nil {
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	key := apiKeyPrefix + base64.RawURLEncoding.EncodeToString(raw)

	hash, err := e.hasher.Hash(key)
	if err != nil {
		return "", fmt.Errorf("api key hash: %w", err)
	}
	if err := e.credentials.SaveAPIKeyHash(ctx, identityID, hash); err != nil {
		return "", fmt.Errorf("api key save: %w", err)
	}
	return key, nil
}

// VerifyAPIKey checks a presented API key against the identity's stored
// hash. Unknown identities and wrong keys both fold into "invalid
// credentials"; suspension blocks API keys the same way it blocks logins.
func (e *Engine) VerifyAPIKey(ctx context.Context, identityID, key string) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}

	identity, err := e.identities.GetIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("identity lookup: %w", err)
	}
	switch identity.Status {
	case IdentityActive:
	case IdentitySuspended:
		return ErrAccountSuspended
	default:
		return ErrInvalidCredentials
	}

	hash, err := e.credentials.GetAPIKeyHash(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("api key lookup: %w", err)
	}
	ok, err := e.hasher.Verify(key, hash)
	if err != nil {
		return fmt.Errorf("api key verify: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

// SuspendIdentity parks the identity and cuts every live session. A
// suspended identity fails logins with a distinct error until reinstated.
func (e *Engine) SuspendIdentity(ctx context.Context, identityID string) error {
	if err := e.setIdentityStatus(ctx, identityID, IdentitySuspended); err != nil {
		return err
	}
	if err := e.tokens.RevokeTokensByIdentity(ctx, identityID); err != nil {
		return fmt.Errorf("session revoke: %w", err)
	}
	e.emit(ctx, AuditLogoutAll, identityID, true, nil)
	return nil
}

// ReinstateIdentity returns a suspended identity to active.
func (e *Engine) ReinstateIdentity(ctx context.Context, identityID string) error {
	return e.setIdentityStatus(ctx, identityID, IdentityActive)
}

func (e *Engine) setIdentityStatus(ctx context.Context, identityID string, status IdentityStatus) error {
	if e == nil || e.identities == nil {
		return ErrEngineNotReady
	}
	identity, err := e.identities.GetIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	identity.Status = status
	if err := e.identities.UpdateIdentity(ctx, identity); err != nil {
		return fmt.Errorf("identity update: %w", err)
	}
	return nil
}
