package authkit_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authkit"
	"github.com/MrEthical07/authkit/memstore"
	"github.com/MrEthical07/authkit/password"
	"github.com/MrEthical07/authkit/token"
)

func TestBuildRequiresTokenStore(t *testing.T) {
	_, err := authkit.New().Build()
	if err == nil {
		t.Fatal("Build succeeded without a token store")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := authkit.DefaultConfig()
	cfg.Token.AccessTTL = -time.Minute

	_, err := authkit.New().
		WithConfig(cfg).
		WithTokenStore(memstore.NewTokenStore()).
		Build()
	if err == nil {
		t.Fatal("Build accepted a negative access TTL")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := authkit.New().WithTokenStore(memstore.NewTokenStore())
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build on the same builder succeeded")
	}
}

func TestBuildMinimalEngine(t *testing.T) {
	engine, err := authkit.New().WithTokenStore(memstore.NewTokenStore()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	if engine.OAuth2() != nil {
		t.Fatal("OAuth2 manager built without client/code/device stores")
	}
	if engine.Keys() == nil || engine.Tokens() == nil || engine.Authz() == nil || engine.Limiter() == nil {
		t.Fatal("core collaborators missing from minimal engine")
	}

	// Token issuance works even without identity stores wired.
	access, err := engine.Tokens().IssueAccessToken(tokenParams("u1"))
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := engine.ValidateAccessToken(context.Background(), access); err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
}

func tokenParams(identityID string) token.AccessTokenParams {
	return token.AccessTokenParams{
		IdentityID: identityID,
		Scopes:     []string{"read"},
		SessionID:  "s1",
		TTL:        time.Minute,
	}
}

func TestBuildWithoutIdentityStoreRejectsLogin(t *testing.T) {
	engine, err := authkit.New().WithTokenStore(memstore.NewTokenStore()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	_, err = engine.AuthenticatePassword(context.Background(), "alice", "pw", nil)
	if !errors.Is(err, authkit.ErrEngineNotReady) {
		t.Fatalf("login without stores = %v, want ErrEngineNotReady", err)
	}
}

func TestBuildPersistsKeyringAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	ctx := context.Background()

	cfg := authkit.DefaultConfig()
	cfg.Keys.Path = path

	store := memstore.NewTokenStore()
	first, err := authkit.New().WithConfig(cfg).WithTokenStore(store).Build()
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	access, err := first.Tokens().IssueAccessToken(tokenParams("u1"))
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	first.Close()

	second, err := authkit.New().WithConfig(cfg).WithTokenStore(store).Build()
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	t.Cleanup(second.Close)

	if _, err := second.ValidateAccessToken(ctx, access); err != nil {
		t.Fatalf("token from previous engine rejected after reload: %v", err)
	}
}

func TestConfigMutationAfterBuildHasNoEffect(t *testing.T) {
	cfg := authkit.DefaultConfig()
	cfg.RateLimit.MaxAttempts = 2

	b := authkit.New().WithConfig(cfg).WithTokenStore(memstore.NewTokenStore())
	cfg.RateLimit.MaxAttempts = 0

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	if engine.Limiter().IsLockedOut("fresh-key") {
		t.Fatal("post-hand-off config mutation leaked into the engine")
	}
}

func newAuditedEnv(t *testing.T, sink authkit.AuditSink) *testEnv {
	t.Helper()

	cfg := authkit.DefaultConfig()
	cfg.Password = testPasswordConfig()
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	env := &testEnv{
		identities:  memstore.NewIdentityStore(),
		credentials: memstore.NewCredentialStore(),
		tokens:      memstore.NewTokenStore(),
		hasher:      hasher,
	}
	engine, err := authkit.New().
		WithConfig(cfg).
		WithIdentityStore(env.identities).
		WithCredentialStore(env.credentials).
		WithTokenStore(env.tokens).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func TestAuditSinkReceivesLoginEvents(t *testing.T) {
	sink := authkit.NewChannelSink(16)
	env := newAuditedEnv(t, sink)
	env.seedIdentity(t, "u1", "alice", "hunter2!", authkit.IdentityActive)
	ctx := context.Background()

	if _, err := env.engine.AuthenticatePassword(ctx, "alice", "hunter2!", nil); err != nil {
		t.Fatalf("AuthenticatePassword: %v", err)
	}
	// Close drains the dispatcher, so every accepted event reached the
	// sink by the time it returns.
	env.engine.Close()

	var sawLogin bool
drain:
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == authkit.AuditLogin && ev.IdentityID == "u1" && ev.Success {
				sawLogin = true
			}
		default:
			break drain
		}
	}
	if !sawLogin {
		t.Fatal("successful login produced no audit event")
	}
}

type stuckSink struct {
	release chan struct{}
}

func (s *stuckSink) Emit(context.Context, authkit.AuditEvent) {
	<-s.release
}

func TestAuditDropsFeedMetricsAndPerTypeCounts(t *testing.T) {
	sink := &stuckSink{release: make(chan struct{})}

	cfg := authkit.DefaultConfig()
	cfg.Password = testPasswordConfig()
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	env := &testEnv{
		identities:  memstore.NewIdentityStore(),
		credentials: memstore.NewCredentialStore(),
		tokens:      memstore.NewTokenStore(),
		hasher:      hasher,
	}
	engine, err := authkit.New().
		WithConfig(cfg).
		WithIdentityStore(env.identities).
		WithCredentialStore(env.credentials).
		WithTokenStore(env.tokens).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	env.engine = engine
	env.seedIdentity(t, "u1", "alice", "hunter2!", authkit.IdentityActive)
	ctx := context.Background()

	// One event occupies the stuck sink and one fills the buffer; the
	// rest must be dropped rather than block the login path.
	for i := 0; i < 10; i++ {
		if _, err := engine.AuthenticatePassword(ctx, "alice", "hunter2!", nil); err != nil {
			t.Fatalf("AuthenticatePassword #%d: %v", i, err)
		}
	}

	dropped := engine.AuditDropped()
	if dropped == 0 {
		t.Fatal("expected audit drops with a stuck sink and a one-slot buffer")
	}

	var sum uint64
	for _, n := range engine.AuditDroppedByType() {
		sum += n
	}
	if sum != dropped {
		t.Fatalf("per-type drops sum to %d, AuditDropped() = %d", sum, dropped)
	}

	snap := engine.MetricsSnapshot()
	if got := snap.Counters[authkit.MetricAuditDropped]; got != dropped {
		t.Fatalf("metric counter = %d, AuditDropped() = %d", got, dropped)
	}

	close(sink.release)
	engine.Close()
}
