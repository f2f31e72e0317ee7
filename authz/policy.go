package authz

// OwnerOnly allows iff the context identity matches the "owner_id" attribute.
// Contexts without the attribute are denied, not abstained: the policy was
// explicitly selected, so a missing owner is a failed ownership check.
func OwnerOnly() PolicyFunc {
	return func(c *Context) Decision {
		owner, ok := c.Attributes["owner_id"]
		if !ok || owner == "" {
			return DenyBecause("no owner recorded")
		}
		if c.IdentityID == owner {
			return AllowBecause("identity owns resource")
		}
		return DenyBecause("identity is not owner")
	}
}

// AdminOrOwner allows holders of the "admin" role and falls back to the
// ownership check otherwise.
func AdminOrOwner() PolicyFunc {
	owner := OwnerOnly()
	return func(c *Context) Decision {
		if c.HasRole("admin") {
			return AllowBecause("admin role")
		}
		return owner(c)
	}
}
