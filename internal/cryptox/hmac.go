package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// TokenHasher produces the keyed digest stored in place of an opaque token.
// The raw token never reaches the database.
type TokenHasher struct {
	secret []byte
}

func NewTokenHasher(secret string) *TokenHasher {
	return &TokenHasher{secret: []byte(secret)}
}

// Hash returns hex(HMAC-SHA256(secret, raw)).
func (h *TokenHasher) Hash(raw string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
