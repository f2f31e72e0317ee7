// Package authkit provides an embeddable authentication and authorization
// engine: signed JWT access tokens with key rotation, rotating opaque
// refresh tokens with replay detection, OAuth2 grant flows (authorization
// code with PKCE, client credentials, device), and a default-deny
// authorization engine combining roles, scopes, and attribute policies.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config],
// [OAuth2Manager], and the store interfaces callers implement. Key
// management lives in the keyring package, token issuance and validation
// in token, authorization in authz, and password hashing in password;
// the root package re-exports the types callers routinely touch. Audit
// dispatch lives under internal/ and is never exported directly.
//
// Storage is pluggable. The memstore package provides in-memory
// implementations of every store interface, suitable for tests and
// single-process deployments; redisstore backs the token and grant stores
// with Redis for multi-instance deployments.
//
// # Validation contract
//
// ValidateAccessToken is the hot path. Structural checks, key resolution,
// and signature verification run before any store access; the revocation
// list is consulted last, and a store failure surfaces as an error rather
// than an accept or a reject.
package authkit
