package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authkit"
	"github.com/MrEthical07/authkit/authz"
)

type authzContextKey struct{}

// AuthzFromContext returns the authorization context a guard injected for
// this request, if any.
func AuthzFromContext(ctx context.Context) (*authz.Context, bool) {
	ac, ok := ctx.Value(authzContextKey{}).(*authz.Context)
	return ac, ok
}

// Guard wraps a handler with bearer token validation. Requests without a
// valid token are rejected with 401 before the handler runs; valid requests
// carry their authorization context, retrievable with [AuthzFromContext].
func Guard(engine *authkit.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := authorize(engine, w, r)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(withAuthz(r.Context(), ac)))
		})
	}
}

// Require wraps a handler with token validation plus an authorization
// requirement. A valid token that fails the requirement is rejected with
// 403.
func Require(engine *authkit.Engine, req authz.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := authorize(engine, w, r)
			if !ok {
				return
			}
			decision := engine.Authz().Check(ac, req)
			if decision.Effect != authz.Allow {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(withAuthz(r.Context(), ac)))
		})
	}
}

// RequireScope is [Require] with a scope-only requirement.
func RequireScope(engine *authkit.Engine, scopes ...string) func(http.Handler) http.Handler {
	return Require(engine, authz.Requirement{Scopes: scopes})
}

func authorize(engine *authkit.Engine, w http.ResponseWriter, r *http.Request) (*authz.Context, bool) {
	if engine == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	ac, err := engine.AuthzContext(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return ac, true
}

func withAuthz(ctx context.Context, ac *authz.Context) context.Context {
	return context.WithValue(ctx, authzContextKey{}, ac)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
