package authz

// ScopeChecker validates scope requirements against a context. It is
// stateless; the zero value is usable.
type ScopeChecker struct{}

// Check allows iff every required scope is present in the context. An empty
// requirement always allows.
func (ScopeChecker) Check(c *Context, required []string) Decision {
	if len(required) == 0 {
		return AllowBecause("no scopes required")
	}
	for _, want := range required {
		if !c.HasScope(want) {
			return DenyBecause("missing scope " + want)
		}
	}
	return AllowBecause("all required scopes present")
}

// Missing returns the first required scope absent from the context, or ""
// when the requirement is satisfied.
func (ScopeChecker) Missing(c *Context, required []string) string {
	for _, want := range required {
		if !c.HasScope(want) {
			return want
		}
	}
	return ""
}
