package authz

import "fmt"

// Requirement names what a guarded operation demands from a context. Zero
// fields are skipped; a zero Requirement produces no signal and the engine
// falls through to default deny.
type Requirement struct {
	Scopes     []string
	Permission string
	Policy     string
	Tenant     string
}

// Engine combines RBAC, scope, and attribute checks into one fail-closed
// decision. The zero value is not usable; construct with [NewEngine].
type Engine struct {
	rbac  *RBAC
	abac  *ABAC
	scope ScopeChecker
}

// NewEngine returns an engine with empty role and policy registries.
func NewEngine() *Engine {
	return &Engine{rbac: NewRBAC(), abac: NewABAC()}
}

// RBAC exposes the role registry for configuration.
func (e *Engine) RBAC() *RBAC { return e.rbac }

// ABAC exposes the policy registry for configuration.
func (e *Engine) ABAC() *ABAC { return e.abac }

// Check evaluates the requirement against the context. A tenant mismatch
// denies unconditionally before anything else runs. Otherwise every named
// signal is consulted: any deny wins, then any allow, and a context that
// produced no signal at all is denied with reason "default deny".
func (e *Engine) Check(c *Context, req Requirement) Decision {
	if req.Tenant != "" && c.TenantID != req.Tenant {
		return DenyBecause("tenant mismatch")
	}

	var signals []Decision
	if len(req.Scopes) > 0 {
		signals = append(signals, e.scope.Check(c, req.Scopes))
	}
	if req.Permission != "" {
		signals = append(signals, e.rbac.Check(c, req.Permission))
	}
	if req.Policy != "" {
		signals = append(signals, e.abac.Evaluate(c, req.Policy))
	}

	for _, d := range signals {
		if d.Effect == Deny {
			return d
		}
	}
	for _, d := range signals {
		if d.Effect == Allow {
			return d
		}
	}
	return DenyBecause("default deny")
}

// CheckScope returns nil iff every scope is present, and a typed
// [ErrInsufficientScope] naming the first missing one otherwise.
func (e *Engine) CheckScope(c *Context, scopes ...string) error {
	if missing := e.scope.Missing(c, scopes); missing != "" {
		return fmt.Errorf("%w: %s", ErrInsufficientScope, missing)
	}
	return nil
}

// CheckRole returns nil iff the context carries the role.
func (e *Engine) CheckRole(c *Context, role string) error {
	if !c.HasRole(role) {
		return fmt.Errorf("%w: %s", ErrRoleRequired, role)
	}
	return nil
}

// CheckPermission returns nil iff some role closure grants the permission.
func (e *Engine) CheckPermission(c *Context, permission string) error {
	if e.rbac.Check(c, permission).Effect != Allow {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, permission)
	}
	return nil
}

// CheckTenant returns nil iff the context's tenant equals the required one.
// No role or scope can override a mismatch.
func (e *Engine) CheckTenant(c *Context, tenant string) error {
	if c.TenantID != tenant {
		return fmt.Errorf("%w: want %s", ErrTenantMismatch, tenant)
	}
	return nil
}
