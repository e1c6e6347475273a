package connect

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// tokenBytes gives 256 bits of entropy per generated token.
const tokenBytes = 32

// GenerateState produces a cryptographically random CSRF state token. A
// failing random source is an environment precondition failure; callers
// should treat the error as fatal, not retry.
func GenerateState() (string, error) {
	return randomToken()
}

// GenerateCodeVerifier produces the PKCE secret. Base64url, no padding, per
// RFC 7636.
func GenerateCodeVerifier() (string, error) {
	return randomToken()
}

// ComputeCodeChallenge derives the S256 code challenge for a verifier. The
// provider recomputes this from the verifier at token exchange; it must be a
// pure function of its input.
func ComputeCodeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

func randomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("secure random source unavailable: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
