package authkit_test

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/MrEthical07/authkit"
)

func TestPKCEChallengeMatchesRFC7636(t *testing.T) {
	// Appendix B of RFC 7636.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if got := authkit.PKCEChallenge(verifier); got != want {
		t.Fatalf("PKCEChallenge = %q, want %q", got, want)
	}
	if !authkit.VerifyPKCE(verifier, want, authkit.PKCEMethodS256) {
		t.Fatal("RFC vector does not verify")
	}
}

func TestVerifyPKCERejectsUnknownMethods(t *testing.T) {
	verifier, err := authkit.NewPKCEVerifier()
	if err != nil {
		t.Fatalf("NewPKCEVerifier: %v", err)
	}
	challenge := authkit.PKCEChallenge(verifier)

	for _, method := range []string{"", "plain", "s256", "S512", "none"} {
		if authkit.VerifyPKCE(verifier, challenge, method) {
			t.Fatalf("method %q verified; only S256 is supported", method)
		}
	}
}

func TestVerifyPKCEProperty(t *testing.T) {
	verifier, err := authkit.NewPKCEVerifier()
	if err != nil {
		t.Fatalf("NewPKCEVerifier: %v", err)
	}
	challenge := authkit.PKCEChallenge(verifier)

	if !authkit.VerifyPKCE(verifier, challenge, authkit.PKCEMethodS256) {
		t.Fatal("correct verifier rejected")
	}

	// No random candidate verifier may pass against the challenge.
	buf := make([]byte, 32)
	for i := 0; i < 500; i++ {
		if _, err := rand.Read(buf); err != nil {
			t.Fatalf("rand: %v", err)
		}
		candidate := base64.RawURLEncoding.EncodeToString(buf)
		if candidate == verifier {
			continue
		}
		if authkit.VerifyPKCE(candidate, challenge, authkit.PKCEMethodS256) {
			t.Fatalf("random verifier %q passed", candidate)
		}
	}
}

func TestNewPKCEVerifierEntropyAndAlphabet(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		v, err := authkit.NewPKCEVerifier()
		if err != nil {
			t.Fatalf("NewPKCEVerifier: %v", err)
		}
		if len(v) < 43 || len(v) > 128 {
			t.Fatalf("verifier length %d outside RFC 7636 bounds", len(v))
		}
		if _, err := base64.RawURLEncoding.DecodeString(v); err != nil {
			t.Fatalf("verifier %q is not base64url: %v", v, err)
		}
		if _, dup := seen[v]; dup {
			t.Fatalf("duplicate verifier %q", v)
		}
		seen[v] = struct{}{}
	}
}

func FuzzVerifyPKCE(f *testing.F) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := authkit.PKCEChallenge(verifier)
	f.Add(verifier, challenge, "S256")
	f.Add("", "", "")
	f.Add("short", challenge, "S256")
	f.Add(verifier, "tampered", "S256")

	f.Fuzz(func(t *testing.T, v, c, method string) {
		got := authkit.VerifyPKCE(v, c, method)
		if method != authkit.PKCEMethodS256 {
			if got {
				t.Fatalf("non-S256 method %q verified", method)
			}
			return
		}
		digest := sha256.Sum256([]byte(v))
		want := base64.RawURLEncoding.EncodeToString(digest[:]) == c
		if got != want {
			t.Fatalf("VerifyPKCE(%q, %q) = %v, want %v", v, c, got, want)
		}
	})
}
