package keyring

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// persistedKey is the on-disk form of a descriptor.
type persistedKey struct {
	KID       string    `json:"kid"`
	Algorithm Algorithm `json:"alg"`
	Private   string    `json:"private,omitempty"`
	Public    string    `json:"public,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type persistedRing struct {
	Signing string         `json:"signing"`
	Keys    []persistedKey `json:"keys"`
}

// LoadOrGenerate builds a ring from the JSON file at path, or, when the
// file does not exist, generates a single key with the given kid and
// algorithm, promotes it, and persists the result. This is the explicit
// construction step for a process-wide signing key that survives restarts
// in non-production setups; production deployments should provision key
// material out of band and use [Ring.AddKey].
func LoadOrGenerate(path, kid string, alg Algorithm) (*Ring, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return load(data)
	case errors.Is(err, os.ErrNotExist):
		// fall through to generation
	default:
		return nil, err
	}

	ring := New()
	if _, err := ring.Generate(kid, alg); err != nil {
		return nil, err
	}
	if err := ring.PromoteKey(kid); err != nil {
		return nil, err
	}
	if err := Save(ring, path); err != nil {
		return nil, err
	}
	return ring, nil
}

// Save writes the ring, including private material, to path with 0600
// permissions. The write goes through a temp file and rename so a crash
// never leaves a truncated ring on disk.
func Save(r *Ring, path string) error {
	r.mu.RLock()
	out := persistedRing{Signing: r.signing}
	for _, kid := range r.order {
		desc := r.keys[kid]
		out.Keys = append(out.Keys, persistedKey{
			KID:       desc.KID,
			Algorithm: desc.Algorithm,
			Private:   base64.RawURLEncoding.EncodeToString(desc.Private),
			Public:    base64.RawURLEncoding.EncodeToString(desc.Public),
			Status:    desc.Status.String(),
			CreatedAt: desc.CreatedAt,
		})
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func load(data []byte) (*Ring, error) {
	var stored persistedRing
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("keyring file corrupt: %w", err)
	}

	ring := New()
	for _, pk := range stored.Keys {
		priv, err := base64.RawURLEncoding.DecodeString(pk.Private)
		if err != nil {
			return nil, fmt.Errorf("keyring file corrupt: %w", err)
		}
		pub, err := base64.RawURLEncoding.DecodeString(pk.Public)
		if err != nil {
			return nil, fmt.Errorf("keyring file corrupt: %w", err)
		}

		desc := &Descriptor{
			KID:       pk.KID,
			Algorithm: pk.Algorithm,
			Private:   priv,
			Public:    pub,
			CreatedAt: pk.CreatedAt,
		}
		switch pk.Status {
		case "revoked":
			desc.Status = StatusRevoked
		default:
			desc.Status = StatusRetiring
		}
		if err := ring.AddKey(desc); err != nil {
			return nil, err
		}
	}

	if stored.Signing != "" {
		if err := ring.PromoteKey(stored.Signing); err != nil {
			return nil, err
		}
	}
	return ring, nil
}
