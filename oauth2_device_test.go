package authkit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authkit"
)

func TestDeviceFlowHappyPath(t *testing.T) {
	env := newOAuthEnv(t, func(cfg *authkit.Config) {
		cfg.OAuth.DevicePollInterval = time.Nanosecond
	})
	ctx := context.Background()

	grant, err := env.engine.OAuth2().DeviceAuthorizationGrant(ctx, "cli", []string{"read"})
	if err != nil {
		t.Fatalf("DeviceAuthorizationGrant: %v", err)
	}
	if len(grant.UserCode) != 9 || grant.UserCode[4] != '-' {
		t.Fatalf("user code shape = %q, want XXXX-XXXX", grant.UserCode)
	}
	if grant.VerificationURI == "" || grant.DeviceCode == "" {
		t.Fatalf("incomplete grant: %+v", grant)
	}

	// First poll: the user has not approved yet.
	if _, err := env.engine.OAuth2().DeviceToken(ctx, grant.DeviceCode, "cli"); !errors.Is(err, authkit.ErrDeviceCodePending) {
		t.Fatalf("pre-approval poll = %v, want ErrDeviceCodePending", err)
	}

	if err := env.engine.OAuth2().AuthorizeDevice(ctx, grant.UserCode, "u1"); err != nil {
		t.Fatalf("AuthorizeDevice: %v", err)
	}

	pair, err := env.engine.OAuth2().DeviceToken(ctx, grant.DeviceCode, "cli")
	if err != nil {
		t.Fatalf("post-approval poll: %v", err)
	}
	claims, err := env.engine.ValidateAccessToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.IdentityID() != "u1" || !claims.HasScope("read") {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// The grant is single use.
	if _, err := env.engine.OAuth2().DeviceToken(ctx, grant.DeviceCode, "cli"); !errors.Is(err, authkit.ErrGrantInvalid) {
		t.Fatalf("replayed device code = %v, want ErrGrantInvalid", err)
	}
}

func TestDevicePollSlowDown(t *testing.T) {
	env := newOAuthEnv(t, func(cfg *authkit.Config) {
		cfg.OAuth.DevicePollInterval = time.Hour
	})
	ctx := context.Background()

	grant, err := env.engine.OAuth2().DeviceAuthorizationGrant(ctx, "cli", []string{"read"})
	if err != nil {
		t.Fatalf("DeviceAuthorizationGrant: %v", err)
	}

	// The first poll is always allowed; the second lands inside the
	// interval.
	if _, err := env.engine.OAuth2().DeviceToken(ctx, grant.DeviceCode, "cli"); !errors.Is(err, authkit.ErrDeviceCodePending) {
		t.Fatalf("first poll = %v, want ErrDeviceCodePending", err)
	}
	if _, err := env.engine.OAuth2().DeviceToken(ctx, grant.DeviceCode, "cli"); !errors.Is(err, authkit.ErrDeviceCodeSlowDown) {
		t.Fatalf("rapid second poll = %v, want ErrDeviceCodeSlowDown", err)
	}
}

func TestDeviceExpiryBeatsSlowDown(t *testing.T) {
	env := newOAuthEnv(t, func(cfg *authkit.Config) {
		cfg.OAuth.DeviceCodeTTL = 5 * time.Millisecond
		cfg.OAuth.DevicePollInterval = time.Hour
	})
	ctx := context.Background()

	grant, err := env.engine.OAuth2().DeviceAuthorizationGrant(ctx, "cli", []string{"read"})
	if err != nil {
		t.Fatalf("DeviceAuthorizationGrant: %v", err)
	}
	if _, err := env.engine.OAuth2().DeviceToken(ctx, grant.DeviceCode, "cli"); !errors.Is(err, authkit.ErrDeviceCodePending) {
		t.Fatalf("first poll = %v, want ErrDeviceCodePending", err)
	}
	time.Sleep(10 * time.Millisecond)

	// Even though this poll is also inside the interval, expiry is the
	// terminal state and wins.
	if _, err := env.engine.OAuth2().DeviceToken(ctx, grant.DeviceCode, "cli"); !errors.Is(err, authkit.ErrDeviceCodeExpired) {
		t.Fatalf("expired poll = %v, want ErrDeviceCodeExpired", err)
	}
}

func TestDeviceApprovalOfExpiredGrantFails(t *testing.T) {
	env := newOAuthEnv(t, func(cfg *authkit.Config) {
		cfg.OAuth.DeviceCodeTTL = time.Millisecond
	})
	ctx := context.Background()

	grant, err := env.engine.OAuth2().DeviceAuthorizationGrant(ctx, "cli", []string{"read"})
	if err != nil {
		t.Fatalf("DeviceAuthorizationGrant: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := env.engine.OAuth2().AuthorizeDevice(ctx, grant.UserCode, "u1"); !errors.Is(err, authkit.ErrDeviceCodeExpired) {
		t.Fatalf("AuthorizeDevice = %v, want ErrDeviceCodeExpired", err)
	}
}

func TestDeviceTokenRejectsForeignClient(t *testing.T) {
	env := newOAuthEnv(t, nil)
	ctx := context.Background()

	grant, err := env.engine.OAuth2().DeviceAuthorizationGrant(ctx, "cli", []string{"read"})
	if err != nil {
		t.Fatalf("DeviceAuthorizationGrant: %v", err)
	}
	if _, err := env.engine.OAuth2().DeviceToken(ctx, grant.DeviceCode, "web"); !errors.Is(err, authkit.ErrGrantInvalid) {
		t.Fatalf("foreign client poll = %v, want ErrGrantInvalid", err)
	}
	if _, err := env.engine.OAuth2().DeviceToken(ctx, "no-such-code", "cli"); !errors.Is(err, authkit.ErrGrantInvalid) {
		t.Fatalf("unknown device code = %v, want ErrGrantInvalid", err)
	}
}

func TestDeviceGrantValidatesClientAndScopes(t *testing.T) {
	env := newOAuthEnv(t, nil)
	ctx := context.Background()

	if _, err := env.engine.OAuth2().DeviceAuthorizationGrant(ctx, "nope", nil); !errors.Is(err, authkit.ErrClientInvalid) {
		t.Fatalf("unknown client = %v, want ErrClientInvalid", err)
	}
	if _, err := env.engine.OAuth2().DeviceAuthorizationGrant(ctx, "cli", []string{"write"}); !errors.Is(err, authkit.ErrScopeInvalid) {
		t.Fatalf("unregistered scope = %v, want ErrScopeInvalid", err)
	}
	if err := env.engine.OAuth2().AuthorizeDevice(ctx, "ZZZZ-ZZZZ", "u1"); !errors.Is(err, authkit.ErrGrantInvalid) {
		t.Fatalf("unknown user code = %v, want ErrGrantInvalid", err)
	}
}
