package authkit

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// User codes avoid vowels and lookalike characters so they survive being
// read aloud or typed from a TV screen.
const userCodeAlphabet = "BCDFGHJKLMNPQRSTVWXZ"

// DeviceAuthorizationGrant starts a device flow: it validates the client
// and scopes, mints a device_code/user_code pair, and persists the grant
// in the requested state awaiting user approval.
func (o *OAuth2Manager) DeviceAuthorizationGrant(ctx context.Context, clientID string, scopes []string) (*DeviceAuthorization, error) {
	client, err := o.clients.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrClientInvalid) {
			return nil, ErrClientInvalid
		}
		return nil, fmt.Errorf("client lookup: %w", err)
	}
	if !client.AllowsScopes(scopes) {
		return nil, ErrScopeInvalid
	}

	userCode, err := newUserCode()
	if err != nil {
		return nil, err
	}
	now := o.now()
	rec := &DeviceCodeRecord{
		DeviceCode: uuid.NewString(),
		UserCode:   userCode,
		ClientID:   clientID,
		Scopes:     scopes,
		State:      CodeRequested,
		Interval:   o.cfg.DevicePollInterval,
		ExpiresAt:  now.Add(o.cfg.DeviceCodeTTL),
		CreatedAt:  now,
	}
	if err := o.devices.SaveDeviceCode(ctx, rec); err != nil {
		return nil, fmt.Errorf("device code save: %w", err)
	}

	o.metrics.Inc(MetricDeviceGrantStarted)
	o.emit(ctx, AuditDeviceGrant, "", clientID, true, nil)
	return &DeviceAuthorization{
		DeviceCode:      rec.DeviceCode,
		UserCode:        rec.UserCode,
		VerificationURI: o.cfg.VerificationURI,
		ExpiresIn:       int64(o.cfg.DeviceCodeTTL.Seconds()),
		Interval:        int64(o.cfg.DevicePollInterval.Seconds()),
	}, nil
}

// AuthorizeDevice is called from the secondary device after the user
// authenticated there: it binds the identity to the pending grant named by
// the user code. An expired grant cannot be approved.
func (o *OAuth2Manager) AuthorizeDevice(ctx context.Context, userCode, identityID string) error {
	rec, err := o.devices.GetDeviceCodeByUserCode(ctx, userCode)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return ErrGrantInvalid
		}
		return fmt.Errorf("device code lookup: %w", err)
	}
	if !o.now().Before(rec.ExpiresAt) {
		return ErrDeviceCodeExpired
	}
	if err := o.devices.AuthorizeDeviceCode(ctx, userCode, identityID); err != nil {
		if errors.Is(err, ErrCodeConsumed) {
			return ErrGrantInvalid
		}
		return fmt.Errorf("device code authorize: %w", err)
	}
	return nil
}

// DeviceToken is the device's polling endpoint. Checks run in a fixed
// priority order: expiry first (terminal even if the user approved),
// then the polling interval ("slow down"), then authorization state
// ("pending" is a retry signal, not a terminal failure). An authorized
// grant is consumed atomically and redeemed for a session-bound pair.
func (o *OAuth2Manager) DeviceToken(ctx context.Context, deviceCode, clientID string) (*TokenPair, error) {
	rec, err := o.devices.GetDeviceCode(ctx, deviceCode)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return nil, ErrGrantInvalid
		}
		return nil, fmt.Errorf("device code lookup: %w", err)
	}
	if rec.ClientID != clientID {
		return nil, ErrGrantInvalid
	}

	now := o.now()
	if !now.Before(rec.ExpiresAt) {
		o.metrics.Inc(MetricDeviceGrantExpired)
		return nil, ErrDeviceCodeExpired
	}

	prev, err := o.devices.TouchPoll(ctx, deviceCode, now)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return nil, ErrGrantInvalid
		}
		return nil, fmt.Errorf("device poll: %w", err)
	}
	if !prev.IsZero() && now.Sub(prev) < rec.Interval {
		o.metrics.Inc(MetricDevicePollSlowDown)
		return nil, ErrDeviceCodeSlowDown
	}

	switch rec.State {
	case CodeRequested:
		o.metrics.Inc(MetricDevicePollPending)
		return nil, ErrDeviceCodePending
	case CodeAuthorized:
	default:
		return nil, ErrGrantInvalid
	}

	consumed, err := o.devices.ConsumeDeviceCode(ctx, deviceCode)
	if err != nil {
		if errors.Is(err, ErrCodeConsumed) || errors.Is(err, ErrCodeNotFound) {
			return nil, ErrGrantInvalid
		}
		return nil, fmt.Errorf("device code consume: %w", err)
	}

	pair, err := o.mintPair(ctx, consumed.IdentityID, consumed.Scopes)
	if err != nil {
		return nil, err
	}

	o.metrics.Inc(MetricDeviceGrantCompleted)
	o.emit(ctx, AuditDeviceRedeem, consumed.IdentityID, clientID, true, nil)
	return pair, nil
}

func newUserCode() (string, error) {
	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	code := make([]byte, 9)
	for i, b := range raw {
		pos := i
		if i >= 4 {
			pos++
		}
		code[pos] = userCodeAlphabet[int(b)%len(userCodeAlphabet)]
	}
	code[4] = '-'
	return string(code), nil
}
