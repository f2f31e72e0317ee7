package keyring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateIsVerifyOnlyUntilPromoted(t *testing.T) {
	ring := New()

	if _, err := ring.Generate("k1", AlgEd25519); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := ring.SigningKey(); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey before promotion, got %v", err)
	}
	if _, _, err := ring.VerificationKey("k1"); err != nil {
		t.Fatalf("unpromoted key should still verify: %v", err)
	}

	if err := ring.PromoteKey("k1"); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	desc, err := ring.SigningKey()
	if err != nil {
		t.Fatalf("signing key after promote: %v", err)
	}
	if desc.KID != "k1" || desc.Status != StatusActive {
		t.Fatalf("unexpected signing descriptor: %+v", desc)
	}
}

func TestPromoteDegradesPriorActiveToRetiring(t *testing.T) {
	ring := New()
	mustGeneratePromoted(t, ring, "k1")

	if _, err := ring.Generate("k2", AlgEd25519); err != nil {
		t.Fatalf("generate k2: %v", err)
	}
	if err := ring.PromoteKey("k2"); err != nil {
		t.Fatalf("promote k2: %v", err)
	}

	desc, err := ring.SigningKey()
	if err != nil || desc.KID != "k2" {
		t.Fatalf("expected k2 active, got %+v err=%v", desc, err)
	}

	// k1 still verifies during the rotation window.
	if _, _, err := ring.VerificationKey("k1"); err != nil {
		t.Fatalf("retiring key must remain verification-valid: %v", err)
	}

	for _, d := range ring.Descriptors() {
		if d.KID == "k1" && d.Status != StatusRetiring {
			t.Fatalf("k1 status = %v, want retiring", d.Status)
		}
	}
}

func TestRevokeIsImmediateAndUnconditional(t *testing.T) {
	ring := New()
	mustGeneratePromoted(t, ring, "k1")

	if err := ring.RevokeKey("k1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	if _, _, err := ring.VerificationKey("k1"); !errors.Is(err, ErrUnknownKeyID) {
		t.Fatalf("revoked key must resolve as unknown kid, got %v", err)
	}
	if _, err := ring.SigningKey(); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("revoking the active key must clear the signing slot, got %v", err)
	}

	// Absent and revoked kids are indistinguishable.
	_, _, absentErr := ring.VerificationKey("never-existed")
	if !errors.Is(absentErr, ErrUnknownKeyID) {
		t.Fatalf("absent kid: got %v", absentErr)
	}
}

func TestAddKeyRejectsDuplicates(t *testing.T) {
	ring := New()
	mustGeneratePromoted(t, ring, "k1")

	if _, err := ring.Generate("k1", AlgEd25519); !errors.Is(err, ErrDuplicateKeyID) {
		t.Fatalf("expected ErrDuplicateKeyID, got %v", err)
	}
}

func TestHS256GenerateAndResolve(t *testing.T) {
	ring := New()
	if _, err := ring.Generate("h1", AlgHS256); err != nil {
		t.Fatalf("generate hs256: %v", err)
	}
	if err := ring.PromoteKey("h1"); err != nil {
		t.Fatalf("promote hs256: %v", err)
	}

	key, alg, err := ring.VerificationKey("h1")
	if err != nil {
		t.Fatalf("resolve hs256: %v", err)
	}
	if alg != AlgHS256 || len(key) < 32 {
		t.Fatalf("unexpected hs256 material: alg=%s len=%d", alg, len(key))
	}
}

func TestLoadOrGeneratePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "ring.json")

	first, err := LoadOrGenerate(path, "boot", AlgEd25519)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	firstDesc, err := first.SigningKey()
	if err != nil {
		t.Fatalf("first signing key: %v", err)
	}

	second, err := LoadOrGenerate(path, "boot", AlgEd25519)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	secondDesc, err := second.SigningKey()
	if err != nil {
		t.Fatalf("second signing key: %v", err)
	}

	if firstDesc.KID != secondDesc.KID {
		t.Fatalf("kid changed across restart: %s vs %s", firstDesc.KID, secondDesc.KID)
	}
	if string(firstDesc.Private) != string(secondDesc.Private) {
		t.Fatal("key material changed across restart")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat ring file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("ring file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrGenerate(path, "boot", AlgEd25519); err == nil {
		t.Fatal("expected corrupt ring file to fail load")
	}
}

func mustGeneratePromoted(t *testing.T, ring *Ring, kid string) {
	t.Helper()
	if _, err := ring.Generate(kid, AlgEd25519); err != nil {
		t.Fatalf("generate %s: %v", kid, err)
	}
	if err := ring.PromoteKey(kid); err != nil {
		t.Fatalf("promote %s: %v", kid, err)
	}
}
