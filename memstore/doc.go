// Package memstore provides in-memory, mutex-guarded implementations of the
// authkit store interfaces. It backs tests and single-process deployments;
// production multi-node setups should use redisstore or a caller-owned
// database implementation.
//
// All consume operations honor the single-winner contract: under concurrent
// consumption of one token or code, exactly one caller succeeds.
package memstore
