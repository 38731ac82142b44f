// AngelaMos | 2026
// security.go

package core

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var errMalformedHash = errors.New("malformed password hash")

// argonParams describes one argon2id encoding. currentArgon is what new
// hashes use; anything else is rehashed on the next successful login.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

var currentArgon = argonParams{memory: 64 * 1024, time: 1, threads: 4, keyLen: 32}

const saltLength = 16

func (p argonParams) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

// encode renders the PHC string form:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (p argonParams) encode(salt, hash []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

func parseArgonHash(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: version %q", errMalformedHash, fields[2])
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: params: %w", errMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %w", errMalformedHash, err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: hash: %w", errMalformedHash, err)
	}

	//nolint:gosec // G115: argon2 output is a few dozen bytes
	p.keyLen = uint32(len(hash))
	return p, salt, hash, nil
}

func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return currentArgon.encode(salt, currentArgon.key(password, salt)), nil
}

func VerifyPassword(password, encodedHash string) (bool, error) {
	p, salt, want, err := parseArgonHash(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, p.key(password, salt)) == 1, nil
}

// VerifyPasswordWithRehash also returns a fresh hash when the stored one
// was produced with outdated parameters. A failed rehash is not an error.
func VerifyPasswordWithRehash(password, encodedHash string) (bool, string, error) {
	ok, err := VerifyPassword(password, encodedHash)
	if err != nil || !ok {
		return false, "", err
	}

	if p, _, _, _ := parseArgonHash(encodedHash); p == currentArgon {
		return true, "", nil
	}

	rehash, err := HashPassword(password)
	if err != nil {
		return true, "", nil //nolint:nilerr // login already succeeded
	}
	return true, rehash, nil
}

var dummyHash = sync.OnceValue(func() string {
	h, err := HashPassword("no-such-account")
	if err != nil {
		panic(fmt.Sprintf("core: dummy password hash: %v", err))
	}
	return h
})

// VerifyPasswordTimingSafe spends a full argon2 computation even when the
// account has no hash, so response time does not reveal whether an email
// is registered.
func VerifyPasswordTimingSafe(password string, encodedHash *string) (bool, string, error) {
	if encodedHash == nil || *encodedHash == "" {
		//nolint:errcheck // result is discarded
		_, _ = VerifyPassword(password, dummyHash())
		return false, "", nil
	}
	return VerifyPasswordWithRehash(password, *encodedHash)
}

func GenerateSecureToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

func GenerateRefreshToken() (string, error) {
	return GenerateSecureToken(32)
}

// HashToken is the at-rest form of refresh tokens and API keys.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret string, payload []byte, signature string) bool {
	expected := SignPayload(secret, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

const apiKeyPrefixLen = 8

// GenerateAPIKey returns a plaintext key of the form gm_<prefix>_<secret>
// and the prefix used to look it up. Only HashToken(plaintext) is stored.
func GenerateAPIKey() (plaintext, prefix string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(raw)
	prefix = hex.EncodeToString(raw[:apiKeyPrefixLen/2])

	return "gm_" + prefix + "_" + encoded, prefix, nil
}
