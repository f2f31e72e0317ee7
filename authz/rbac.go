package authz

import "sync"

// RBAC is a role registry with permission grants and role inheritance.
// Inheritance edges may form cycles; permission resolution walks the graph
// with a visited set and terminates on repetition.
type RBAC struct {
	mu       sync.RWMutex
	grants   map[string]map[string]struct{}
	inherits map[string][]string
}

// NewRBAC returns an empty role registry.
func NewRBAC() *RBAC {
	return &RBAC{
		grants:   make(map[string]map[string]struct{}),
		inherits: make(map[string][]string),
	}
}

// AddRole registers a role with its directly granted permissions. Calling it
// again for the same role adds to the existing grant set.
func (r *RBAC) AddRole(role string, permissions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.grants[role]
	if !ok {
		set = make(map[string]struct{}, len(permissions))
		r.grants[role] = set
	}
	for _, p := range permissions {
		set[p] = struct{}{}
	}
}

// AddInheritance makes child inherit every permission reachable from parent.
// Cycles are permitted and resolve to the union of the members' grants.
func (r *RBAC) AddInheritance(child, parent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inherits[child] = append(r.inherits[child], parent)
}

// Permissions computes the transitive closure of grants reachable from role.
// Unknown roles resolve to an empty set.
func (r *RBAC) Permissions(role string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	closure := make(map[string]struct{})
	r.walk(role, make(map[string]struct{}), closure)
	out := make([]string, 0, len(closure))
	for p := range closure {
		out = append(out, p)
	}
	return out
}

// HasPermission reports whether role's closure contains the permission.
func (r *RBAC) HasPermission(role, permission string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	closure := make(map[string]struct{})
	r.walk(role, make(map[string]struct{}), closure)
	_, ok := closure[permission]
	return ok
}

// walk must be called with at least the read lock held.
func (r *RBAC) walk(role string, visited, closure map[string]struct{}) {
	if _, seen := visited[role]; seen {
		return
	}
	visited[role] = struct{}{}
	for p := range r.grants[role] {
		closure[p] = struct{}{}
	}
	for _, parent := range r.inherits[role] {
		r.walk(parent, visited, closure)
	}
}

// Check allows iff any of the context's roles has the permission in its
// closure. It abstains otherwise so attribute policies can still weigh in.
func (r *RBAC) Check(c *Context, permission string) Decision {
	for _, role := range c.Roles {
		if r.HasPermission(role, permission) {
			return AllowBecause("role " + role + " grants " + permission)
		}
	}
	return AbstainBecause("no role grants " + permission)
}
