package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

const (
	challengeTokenBytes = 32

	// Base32 alphabet: opaque, unambiguous, case-sensitive exact match.
	backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
)

// NewOTP generates a numeric one-time code of the given length with a
// cryptographically secure source. Leading zeros are preserved.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// NewBackupCode generates one fixed-length opaque alphanumeric code.
func NewBackupCode(length int) (string, error) {
	if length < 6 || length > 32 {
		return "", errors.New("invalid backup code length")
	}

	var b strings.Builder
	b.Grow(length)

	size := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NewChallengeToken generates the opaque token mailed during email
// verification and password reset. Only its digest is ever stored.
func NewChallengeToken() (string, error) {
	raw := make([]byte, challengeTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewSalt generates a fresh per-code salt.
func NewSalt() ([16]byte, error) {
	var salt [16]byte
	_, err := rand.Read(salt[:])
	return salt, err
}

// HashCode produces the salted one-way digest stored for a pending
// one-time code.
func HashCode(salt [16]byte, code string) [32]byte {
	h := sha256.New()
	h.Write(salt[:])
	h.Write([]byte(code))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DigestToken hashes a challenge token for use as a lookup key.
func DigestToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// DigestsEqual compares two digests in constant time.
func DigestsEqual(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// HashTokenValue hashes a bearer token value for use as a ledger row key.
func HashTokenValue(value string) [32]byte {
	return sha256.Sum256([]byte(value))
}
