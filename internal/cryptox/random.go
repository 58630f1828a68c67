// Package cryptox holds the small cryptographic building blocks of the auth
// subsystem: opaque random tokens, keyed token digests, PKCE values and
// password hashing.
package cryptox

import (
	"crypto/rand"
	"encoding/base64"
)

// randRead is a test seam for crypto/rand.
var randRead = rand.Read

// RandomBytes returns size bytes from the system CSPRNG.
func RandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := randRead(b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomURLToken returns size random bytes encoded as unpadded URL-safe
// base64. 32 bytes give a 43 character token.
func RandomURLToken(size int) (string, error) {
	b, err := RandomBytes(size)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
