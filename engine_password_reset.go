package authkit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const resetTokenPrefix = "prt_"

// BeginPasswordReset mints a single-use reset token for the identity behind
// the username and stores only its digest. The plaintext token is returned
// to the caller for out-of-band delivery; the engine never sends anything
// itself. Requests count against the same sliding window as failed logins
// so the reset surface cannot be used to probe or flood an account.
func (e *Engine) BeginPasswordReset(ctx context.Context, username string) (string, error) {
	if e == nil || e.identities == nil || e.resets == nil {
		return "", ErrEngineNotReady
	}

	key := "reset|" + username
	if e.limiter.IsLockedOut(key) {
		e.metrics.Inc(MetricRateLimitHit)
		return "", ErrAccountLocked
	}
	e.limiter.RecordAttempt(key)

	identity, err := e.identities.GetIdentityByAttribute(ctx, "username", username)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			e.emit(ctx, AuditResetRequest, "", false, ErrIdentityNotFound)
			return "", ErrIdentityNotFound
		}
		return "", fmt.Errorf("identity lookup: %w", err)
	}

	token, hash, err := newResetToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	rec := &ResetRecord{
		TokenHash:  hash,
		IdentityID: identity.ID,
		ExpiresAt:  now.Add(e.cfg.Reset.TTL),
		CreatedAt:  now,
	}
	if err := e.resets.SaveReset(ctx, rec); err != nil {
		return "", fmt.Errorf("reset save: %w", err)
	}
	e.emit(ctx, AuditResetRequest, identity.ID, true, nil)
	return token, nil
}

// CompletePasswordReset redeems a reset token and installs the new password.
// The grant is consumed before anything else happens, so a token can only
// ever be redeemed once even under concurrent attempts. Every session of the
// identity is cut afterwards.
func (e *Engine) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if e == nil || e.credentials == nil || e.resets == nil {
		return ErrEngineNotReady
	}

	rec, err := e.resets.ConsumeReset(ctx, hashResetToken(resetToken))
	if err != nil {
		if errors.Is(err, ErrResetNotFound) {
			e.emit(ctx, AuditResetRedeem, "", false, ErrResetInvalid)
			return ErrResetInvalid
		}
		return fmt.Errorf("reset consume: %w", err)
	}
	if time.Now().After(rec.ExpiresAt) {
		e.emit(ctx, AuditResetRedeem, rec.IdentityID, false, ErrResetInvalid)
		return ErrResetInvalid
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("password hash: %w", err)
	}
	if err := e.credentials.SavePasswordHash(ctx, rec.IdentityID, hash); err != nil {
		return fmt.Errorf("credential save: %w", err)
	}
	if err := e.tokens.RevokeTokensByIdentity(ctx, rec.IdentityID); err != nil {
		return fmt.Errorf("session revoke: %w", err)
	}

	e.emit(ctx, AuditResetRedeem, rec.IdentityID, true, nil)
	return nil
}

func newResetToken() (token, hash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = resetTokenPrefix + base64.RawURLEncoding.EncodeToString(raw)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
