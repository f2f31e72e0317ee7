package authkit_test

import (
	"context"
	"testing"

	"github.com/MrEthical07/authkit"
)

func TestIntrospectActiveToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedIdentity(t, "u1", "alice", "hunter2!", authkit.IdentityActive)
	ctx := context.Background()

	res, err := env.engine.AuthenticatePassword(ctx, "alice", "hunter2!", []string{"read"})
	if err != nil {
		t.Fatalf("AuthenticatePassword: %v", err)
	}

	info, err := env.engine.IntrospectToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("IntrospectToken: %v", err)
	}
	if !info.Active {
		t.Fatal("freshly issued token must be active")
	}
	if info.IdentityID != "u1" || info.SessionID != res.SessionID || info.TenantID != "t1" {
		t.Fatalf("introspection = %+v", info)
	}
	if len(info.Scopes) != 1 || info.Scopes[0] != "read" {
		t.Fatalf("scopes = %v", info.Scopes)
	}
	if info.TokenID == "" {
		t.Fatal("jti must be populated")
	}
	if !info.ExpiresAt.After(info.IssuedAt) {
		t.Fatalf("expiry %v not after issuance %v", info.ExpiresAt, info.IssuedAt)
	}
}

func TestIntrospectDeadTokensAreInactiveNotErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedIdentity(t, "u1", "alice", "hunter2!", authkit.IdentityActive)
	ctx := context.Background()

	res, err := env.engine.AuthenticatePassword(ctx, "alice", "hunter2!", nil)
	if err != nil {
		t.Fatalf("AuthenticatePassword: %v", err)
	}
	if err := env.engine.RevokeToken(ctx, res.AccessToken); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	for name, tok := range map[string]string{
		"garbage": "not.a.token",
		"empty":   "",
		"revoked": res.AccessToken,
	} {
		info, err := env.engine.IntrospectToken(ctx, tok)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if info.Active {
			t.Fatalf("%s: token reported active", name)
		}
		if info.IdentityID != "" || info.TokenID != "" {
			t.Fatalf("%s: inactive introspection leaks fields: %+v", name, info)
		}
	}
}

func TestIntrospectWithoutManager(t *testing.T) {
	var engine *authkit.Engine
	if _, err := engine.IntrospectToken(context.Background(), "tok"); err != authkit.ErrEngineNotReady {
		t.Fatalf("err = %v, want ErrEngineNotReady", err)
	}
}
