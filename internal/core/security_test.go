// AngelaMos | 2026
// security_test.go

package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordTimingSafe_MissingHash(t *testing.T) {
	ok, newHash, err := VerifyPasswordTimingSafe("anything", nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, newHash)
}

func TestHashToken_Deterministic(t *testing.T) {
	token, err := GenerateRefreshToken()
	require.NoError(t, err)

	assert.Equal(t, HashToken(token), HashToken(token))
	assert.NotEqual(t, HashToken(token), HashToken(token+"x"))
	assert.Len(t, HashToken(token), 64)
}

func TestVerifyPasswordWithRehash_UpgradesOldParams(t *testing.T) {
	old := argonParams{memory: 32 * 1024, time: 1, threads: 2, keyLen: 32}
	salt := []byte("0123456789abcdef")
	stored := old.encode(salt, old.key("hunter22", salt))

	ok, rehash, err := VerifyPasswordWithRehash("hunter22", stored)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotEmpty(t, rehash)

	p, _, _, err := parseArgonHash(rehash)
	require.NoError(t, err)
	assert.Equal(t, currentArgon, p)

	ok, rehash, err = VerifyPasswordWithRehash("hunter22", rehash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, rehash)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	_, err := VerifyPassword("x", "$bcrypt$nope")
	assert.ErrorIs(t, err, errMalformedHash)
}

func TestSignPayload(t *testing.T) {
	payload := []byte(`{"event":"order.paid"}`)
	sig := SignPayload("whsec_test", payload)

	assert.Len(t, sig, 64)
	assert.True(t, VerifySignature("whsec_test", payload, sig))
	assert.True(t, VerifySignature("whsec_test", payload, strings.ToUpper(sig)))
	assert.False(t, VerifySignature("other", payload, sig))
	assert.False(t, VerifySignature("whsec_test", []byte(`{}`), sig))
}

func TestGenerateAPIKey(t *testing.T) {
	key, prefix, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.Len(t, prefix, 8)
	assert.True(t, strings.HasPrefix(key, "gm_"+prefix+"_"))

	other, otherPrefix, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
	assert.NotEqual(t, prefix, otherPrefix)
}
