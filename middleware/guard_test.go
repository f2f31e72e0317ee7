package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/authkit"
	"github.com/MrEthical07/authkit/authz"
	"github.com/MrEthical07/authkit/memstore"
	"github.com/MrEthical07/authkit/middleware"
	"github.com/MrEthical07/authkit/token"
)

func newGuardEngine(t *testing.T) *authkit.Engine {
	t.Helper()
	engine, err := authkit.New().
		WithTokenStore(memstore.NewTokenStore()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func issueToken(t *testing.T, engine *authkit.Engine, scopes []string) string {
	t.Helper()
	tok, err := engine.Tokens().IssueAccessToken(token.AccessTokenParams{
		IdentityID: "u1",
		Scopes:     scopes,
		SessionID:  "s1",
		TTL:        time.Minute,
	})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	return tok
}

func TestGuardInjectsAuthzContext(t *testing.T) {
	engine := newGuardEngine(t)
	tok := issueToken(t, engine, []string{"read"})

	var seen *authz.Context
	handler := middleware.Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = middleware.AuthzFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if seen == nil || seen.IdentityID != "u1" || !seen.HasScope("read") {
		t.Fatalf("authz context = %+v", seen)
	}
}

func TestGuardRejectsMissingAndBadTokens(t *testing.T) {
	engine := newGuardEngine(t)
	handler := middleware.Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer ", "Bearer not-a-token", "Basic dXNlcg=="} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rr.Code)
		}
	}
}

func TestRequireScopeDistinguishes401From403(t *testing.T) {
	engine := newGuardEngine(t)
	tok := issueToken(t, engine, []string{"read"})

	handler := middleware.RequireScope(engine, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("valid token missing scope: status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", rr.Code)
	}
}

func TestRequireScopePassesMatchingToken(t *testing.T) {
	engine := newGuardEngine(t)
	tok := issueToken(t, engine, []string{"read", "admin"})

	ran := false
	handler := middleware.RequireScope(engine, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !ran {
		t.Fatalf("status = %d ran = %v", rr.Code, ran)
	}
}
