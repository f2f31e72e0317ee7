// Package middleware exposes HTTP guards built on top of authkit token
// validation and authorization checks.
//
// # Guards
//
//   - [Guard] — bearer token validation, claims injected into the request
//     context.
//   - [Require] — validation plus an [authz.Requirement] checked against
//     the engine's authorization registry.
//   - [RequireScope] — shorthand for a scope-only requirement.
//
// Each guard reads the Authorization header, validates the bearer token
// through the engine, and injects the resulting authorization context for
// downstream handlers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine calls. It parses no
// tokens and makes no authorization decisions of its own; everything is
// delegated to [authkit.Engine].
package middleware
