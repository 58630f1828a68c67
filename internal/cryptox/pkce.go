package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
)

const (
	stateTokenSize   = 32
	codeVerifierSize = 64
)

// NewStateToken returns an opaque CSRF state value for an OAuth redirect.
func NewStateToken() (string, error) {
	return RandomURLToken(stateTokenSize)
}

// NewCodeVerifier returns a PKCE code verifier (86 URL-safe characters).
func NewCodeVerifier() (string, error) {
	return RandomURLToken(codeVerifierSize)
}

// CodeChallengeS256 derives the S256 challenge: BASE64URL-NOPAD(SHA256(verifier)).
func CodeChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
