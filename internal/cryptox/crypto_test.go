package cryptox

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRandomURLToken_LengthAndAlphabet(t *testing.T) {
	tok, err := RandomURLToken(32)
	require.NoError(t, err)
	assert.Len(t, tok, 43)

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, err := RandomURLToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestRandomURLToken_ReaderError(t *testing.T) {
	orig := randRead
	randRead = func(b []byte) (int, error) { return 0, errors.New("entropy gone") }
	defer func() { randRead = orig }()

	_, err := RandomURLToken(32)
	require.Error(t, err)
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte{1, 2, 3}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0}, buf)
	WipeByteArray(nil)
}

func TestTokenHasher(t *testing.T) {
	h := NewTokenHasher("secret")

	a := h.Hash("raw-token")
	assert.Len(t, a, 64)
	assert.Equal(t, a, h.Hash("raw-token"), "digest must be deterministic")
	assert.NotEqual(t, a, h.Hash("raw-token2"))
	assert.NotEqual(t, a, NewTokenHasher("other").Hash("raw-token"), "digest must depend on the key")
}

func TestPKCE(t *testing.T) {
	v, err := NewCodeVerifier()
	require.NoError(t, err)
	assert.Len(t, v, 86)

	// RFC 7636 appendix B
	assert.Equal(t,
		"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeS256("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"),
	)

	s, err := NewStateToken()
	require.NoError(t, err)
	assert.Len(t, s, 43)
}

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	h := NewArgon2Hasher(Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})

	digest, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=1,p=1$"))

	assert.True(t, h.Verify("hunter2", digest))
	assert.False(t, h.Verify("hunter3", digest))

	again, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, digest, again, "salt must differ")
}

func TestArgon2Hasher_AcceptsBcrypt(t *testing.T) {
	b, err := bcrypt.GenerateFromPassword([]byte("legacy"), bcrypt.MinCost)
	require.NoError(t, err)

	h := NewArgon2Hasher(DefaultArgon2Params)
	assert.True(t, h.Verify("legacy", string(b)))
	assert.False(t, h.Verify("wrong", string(b)))
}

func TestArgon2Hasher_Malformed(t *testing.T) {
	h := NewArgon2Hasher(DefaultArgon2Params)
	for _, d := range []string{"", "plain", "$argon2id$v=19$bad", "$argon2id$v=18$m=1,t=1,p=1$AAAA$AAAA", "$argon2id$v=19$m=1,t=1,p=1$!!$AAAA"} {
		assert.False(t, h.Verify("x", d), d)
	}
}

func TestNewPasswordHasher(t *testing.T) {
	h, err := NewPasswordHasher("")
	require.NoError(t, err)
	assert.IsType(t, &Argon2Hasher{}, h)

	h, err = NewPasswordHasher("bcrypt")
	require.NoError(t, err)
	digest, err := h.Hash("pw")
	require.NoError(t, err)
	assert.True(t, h.Verify("pw", digest))

	_, err = NewPasswordHasher("md5")
	assert.Error(t, err)
}
