// Package password implements password hashing and verification with
// argon2id.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The [Hasher] supports transparent parameter upgrades: if a stored hash was
// produced with weaker parameters, [Hasher.NeedsRehash] reports true so the
// caller can re-hash on the next successful login.
//
// This package owns hashing and verification only. Password policy and
// lockout are enforced by the engine; storage belongs to the caller's
// credential store. Plaintext passwords are never logged or retained.
package password
