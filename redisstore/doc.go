// Package redisstore backs the token and OAuth2 grant stores with Redis,
// for deployments where several engine instances must share revocation
// and single-use state.
//
// Records are stored as hashes: a JSON blob under "data" plus the fields
// that mutate after creation (consumption state, bound identity, last
// poll time). Every single-winner transition runs as a Lua script so that
// exactly one concurrent caller observes the consumable state, matching
// the in-memory stores' semantics. Keys expire with their records; an
// expiry grace period keeps consumed and expired grants distinguishable
// for a short window after their deadline.
package redisstore
