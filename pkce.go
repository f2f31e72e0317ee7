package authkit

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// PKCE challenge methods. Only S256 is supported; "plain" is rejected at
// authorization time.
const PKCEMethodS256 = "S256"

// PKCEChallenge derives the S256 challenge for a verifier:
// base64url, no padding, of SHA-256 over the verifier bytes.
func PKCEChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyPKCE reports whether the verifier satisfies the stored challenge.
// It is a pure function of its inputs with no side effects, and compares
// the derived challenge in constant time. Unknown methods never verify.
func VerifyPKCE(verifier, challenge, method string) bool {
	if method != PKCEMethodS256 || challenge == "" {
		return false
	}
	derived := PKCEChallenge(verifier)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
}

// NewPKCEVerifier generates a random high-entropy verifier suitable for the
// S256 method. Convenience for clients and tests.
func NewPKCEVerifier() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
