package authz

import (
	"fmt"
	"sync"
)

// PolicyFunc is the single signature all attribute policies conform to.
// Policies inspect the context and return a tri-state decision; they must not
// block or perform I/O.
type PolicyFunc func(*Context) Decision

// ABAC is a name-to-policy registry for attribute-based decisions.
type ABAC struct {
	mu       sync.RWMutex
	policies map[string]PolicyFunc
}

// NewABAC returns an empty policy registry.
func NewABAC() *ABAC {
	return &ABAC{policies: make(map[string]PolicyFunc)}
}

// RegisterPolicy adds a named policy. Names are unique; re-registration
// fails with [ErrPolicyExists].
func (a *ABAC) RegisterPolicy(name string, fn PolicyFunc) error {
	if fn == nil {
		return fmt.Errorf("policy %q: nil policy func", name)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.policies[name]; ok {
		return fmt.Errorf("%w: %s", ErrPolicyExists, name)
	}
	a.policies[name] = fn
	return nil
}

// Evaluate runs the named policy against the context. An unknown name
// abstains: absence of a policy is not evidence of denial.
func (a *ABAC) Evaluate(c *Context, name string) Decision {
	a.mu.RLock()
	fn, ok := a.policies[name]
	a.mu.RUnlock()
	if !ok {
		return AbstainBecause("no policy named " + name)
	}
	return fn(c)
}
