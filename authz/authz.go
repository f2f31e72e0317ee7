// Package authz is a standalone authorization decision engine combining
// role-based, scope-based, and attribute-based checks under a fail-closed
// default-deny rule. It holds no I/O and no persistence: callers build a
// [Context] per request from whatever token or session they validated and ask
// the engine for a [Decision] or a typed error.
package authz

import "errors"

var (
	// ErrPermissionDenied is returned when no role closure grants the
	// required permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInsufficientScope is returned when a required scope is missing from
	// the context.
	ErrInsufficientScope = errors.New("insufficient scope")
	// ErrRoleRequired is returned when the context lacks a required role.
	ErrRoleRequired = errors.New("role required")
	// ErrTenantMismatch is returned when the context's tenant differs from
	// the required one. No role or scope overrides it.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrPolicyExists is returned when registering a policy under a name
	// already taken.
	ErrPolicyExists = errors.New("policy already registered")
)

// Effect is the outcome class of a [Decision].
type Effect uint8

const (
	// Abstain means the checker had no opinion. Abstention is not denial;
	// only the combining engine turns a total absence of signals into one.
	Abstain Effect = iota
	// Allow grants the request.
	Allow
	// Deny rejects the request.
	Deny
)

// String implements [fmt.Stringer].
func (e Effect) String() string {
	switch e {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "abstain"
	}
}

// Decision is the tri-state result of an authorization check with a
// human-readable reason for audit trails.
type Decision struct {
	Effect Effect
	Reason string
}

// AllowBecause builds an allowing decision.
func AllowBecause(reason string) Decision { return Decision{Effect: Allow, Reason: reason} }

// DenyBecause builds a denying decision.
func DenyBecause(reason string) Decision { return Decision{Effect: Deny, Reason: reason} }

// AbstainBecause builds a no-opinion decision.
func AbstainBecause(reason string) Decision { return Decision{Effect: Abstain, Reason: reason} }

// Context is the per-request authorization input. It is built by the caller
// from a validated token or session and never persisted.
type Context struct {
	IdentityID string
	Resource   string
	Action     string
	Scopes     []string
	Roles      []string
	TenantID   string
	Attributes map[string]string
}

// HasScope reports whether the context carries the given scope.
func (c *Context) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasRole reports whether the context carries the given role.
func (c *Context) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
