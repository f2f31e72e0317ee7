// Package keyring owns signing and verification key material for the
// token layer. A ring holds an ordered set of key descriptors with at most
// one active signing key; retiring keys stay verification-valid so that
// rotation does not invalidate recently issued tokens, while revocation
// takes effect immediately regardless of token expiry.
package keyring

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Algorithm selects the signature scheme for a key.
type Algorithm string

const (
	// AlgEd25519 is the default asymmetric signing algorithm.
	AlgEd25519 Algorithm = "ed25519"
	// AlgHS256 is the symmetric HMAC-SHA256 fallback.
	AlgHS256 Algorithm = "hs256"
)

// KeyStatus is the lifecycle state of a key descriptor.
type KeyStatus uint8

const (
	// StatusActive marks the single key used for new signatures.
	StatusActive KeyStatus = iota
	// StatusRetiring marks keys that still verify but no longer sign.
	StatusRetiring
	// StatusRevoked marks keys that neither sign nor verify.
	StatusRevoked
)

func (s KeyStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRetiring:
		return "retiring"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownKeyID is returned when a kid is absent from the ring or revoked.
	ErrUnknownKeyID = errors.New("unknown kid")
	// ErrNoSigningKey is returned when the ring has no active signing key.
	ErrNoSigningKey = errors.New("no active signing key")
	// ErrDuplicateKeyID is returned when a kid is added twice.
	ErrDuplicateKeyID = errors.New("duplicate kid")
	// ErrUnsupportedAlgorithm is returned for algorithms the ring cannot generate.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrKeyMaterialInvalid is returned when a descriptor carries malformed key bytes.
	ErrKeyMaterialInvalid = errors.New("invalid key material")
)

const hs256KeySize = 32

// Descriptor carries one key and its rotation state. Private holds the
// signing material (ed25519 private key or HMAC secret); Public holds the
// verification material (ed25519 public key; nil for hs256, which verifies
// with the secret itself).
type Descriptor struct {
	KID       string
	Algorithm Algorithm
	Private   []byte
	Public    []byte
	Status    KeyStatus
	CreatedAt time.Time
}

// verifyKey returns the material used to check signatures made by this key.
func (d *Descriptor) verifyKey() []byte {
	if d.Algorithm == AlgHS256 {
		return d.Private
	}
	return d.Public
}

// Ring is a concurrency-safe key set. All mutations take the write lock,
// so a validation in progress observes either the pre- or post-mutation
// key set, never a partial update.
type Ring struct {
	mu      sync.RWMutex
	keys    map[string]*Descriptor
	order   []string
	signing string
}

// New creates an empty ring. Callers typically follow with [Ring.Generate]
// and [Ring.PromoteKey], or use [LoadOrGenerate] for a persisted ring.
func New() *Ring {
	return &Ring{keys: make(map[string]*Descriptor)}
}

// Generate creates fresh key material for kid and adds it to the ring in
// verify-only (retiring) state. The caller promotes it explicitly; this
// keeps "a key exists" and "a key signs" as two separate, auditable steps.
func (r *Ring) Generate(kid string, alg Algorithm) (*Descriptor, error) {
	if kid == "" {
		return nil, errors.New("empty kid")
	}

	desc := &Descriptor{
		KID:       kid,
		Algorithm: alg,
		Status:    StatusRetiring,
		CreatedAt: time.Now(),
	}

	switch alg {
	case AlgEd25519:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		desc.Private = priv
		desc.Public = pub
	case AlgHS256:
		secret := make([]byte, hs256KeySize)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		desc.Private = secret
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}

	if err := r.AddKey(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

// AddKey inserts an externally built descriptor in verify-only state.
// The descriptor is never promoted implicitly, even if the ring has no
// signing key yet.
func (r *Ring) AddKey(desc *Descriptor) error {
	if desc == nil || desc.KID == "" {
		return errors.New("nil or unnamed descriptor")
	}
	if err := validateMaterial(desc); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.keys[desc.KID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKeyID, desc.KID)
	}

	stored := *desc
	if stored.Status != StatusRevoked {
		stored.Status = StatusRetiring
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	r.keys[stored.KID] = &stored
	r.order = append(r.order, stored.KID)
	return nil
}

// PromoteKey makes kid the active signing key. The previously active key,
// if any, degrades to retiring and remains verification-valid.
func (r *Ring) PromoteKey(kid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, ok := r.keys[kid]
	if !ok || next.Status == StatusRevoked {
		return fmt.Errorf("%w: %s", ErrUnknownKeyID, kid)
	}

	if r.signing != "" && r.signing != kid {
		if prev, ok := r.keys[r.signing]; ok && prev.Status == StatusActive {
			prev.Status = StatusRetiring
		}
	}

	next.Status = StatusActive
	r.signing = kid
	return nil
}

// RevokeKey invalidates kid immediately and unconditionally. Tokens signed
// by it fail verification from this point on, independent of their expiry.
// Revoking the active signing key leaves the ring without one.
func (r *Ring) RevokeKey(kid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.keys[kid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKeyID, kid)
	}

	desc.Status = StatusRevoked
	desc.Private = nil
	if r.signing == kid {
		r.signing = ""
	}
	return nil
}

// SigningKey returns a copy of the active signing key descriptor.
func (r *Ring) SigningKey() (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.signing == "" {
		return nil, ErrNoSigningKey
	}
	desc, ok := r.keys[r.signing]
	if !ok || desc.Status != StatusActive {
		return nil, ErrNoSigningKey
	}

	out := *desc
	return &out, nil
}

// VerificationKey resolves the material that verifies signatures made
// with kid. Absent and revoked keys are deliberately indistinguishable.
func (r *Ring) VerificationKey(kid string) ([]byte, Algorithm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.keys[kid]
	if !ok || desc.Status == StatusRevoked {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownKeyID, kid)
	}
	return desc.verifyKey(), desc.Algorithm, nil
}

// Descriptors returns copies of all descriptors in insertion order, with
// private material omitted. Intended for introspection and persistence.
func (r *Ring) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, kid := range r.order {
		desc := *r.keys[kid]
		desc.Private = nil
		out = append(out, desc)
	}
	return out
}

func validateMaterial(desc *Descriptor) error {
	switch desc.Algorithm {
	case AlgEd25519:
		if desc.Status == StatusRevoked {
			return nil
		}
		if len(desc.Private) != 0 && len(desc.Private) != ed25519.PrivateKeySize {
			return fmt.Errorf("%w: ed25519 private key size", ErrKeyMaterialInvalid)
		}
		if len(desc.Public) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: ed25519 public key size", ErrKeyMaterialInvalid)
		}
	case AlgHS256:
		if desc.Status != StatusRevoked && len(desc.Private) < hs256KeySize {
			return fmt.Errorf("%w: hs256 secret must be >= 256 bits", ErrKeyMaterialInvalid)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, desc.Algorithm)
	}
	return nil
}
