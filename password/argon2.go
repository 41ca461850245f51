package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = 8
	phcAlgorithmID        = "argon2id"
)

var errInvalidDigest = errors.New("invalid password digest")

// Config defines a public type used by secureauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Memory      uint32 // KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2 defines a public type used by secureauth APIs.
//
// Argon2 instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Argon2 struct {
	config Config
}

// NewArgon2 describes the newargon2 operation and its observable behavior.
//
// NewArgon2 may return an error when input validation, dependency calls, or security checks fail.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("password memory must be >= 8192 KB")
	case cfg.Time < 1:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("password key length must be >= 16")
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives an argon2id digest and encodes it in PHC format.
// Raw password bytes are used exactly as provided, no normalization.
func (a *Argon2) Hash(plain string) (string, error) {
	if len(plain) < minPassBytes {
		return "", errors.New("password must be at least 8 bytes")
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plain), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the digest with the parameters stored in the PHC
// string and compares in constant time.
func (a *Argon2) Verify(plain, digest string) (bool, error) {
	params, salt, key, err := parseDigest(digest)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plain), salt, params.Time, params.Memory, params.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// NeedsUpgrade reports whether a stored digest was derived with weaker
// parameters than the configured ones.
func (a *Argon2) NeedsUpgrade(digest string) (bool, error) {
	params, _, key, err := parseDigest(digest)
	if err != nil {
		return false, err
	}
	if a.config.Memory > params.Memory || a.config.Time > params.Time || a.config.Parallelism > params.Parallelism {
		return true, nil
	}
	return uint32(len(key)) != a.config.KeyLength, nil
}

func parseDigest(digest string) (Config, []byte, []byte, error) {
	var params Config

	var version int
	var saltB64, keyB64 string
	n, err := fmt.Sscanf(
		digest,
		"$"+phcAlgorithmID+"$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &params.Memory, &params.Time, &params.Parallelism, &saltB64,
	)
	if err != nil || n != 5 {
		return params, nil, nil, errInvalidDigest
	}
	if version != argon2.Version {
		return params, nil, nil, errors.New("unsupported argon2 version")
	}

	// Sscanf stops %s at whitespace, not '$': split the tail manually.
	for i := 0; i < len(saltB64); i++ {
		if saltB64[i] == '$' {
			keyB64 = saltB64[i+1:]
			saltB64 = saltB64[:i]
			break
		}
	}
	if keyB64 == "" {
		return params, nil, nil, errInvalidDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil || uint32(len(salt)) < minSaltLength {
		return params, nil, nil, errInvalidDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(keyB64)
	if err != nil || len(key) == 0 {
		return params, nil, nil, errInvalidDigest
	}
	if params.Memory < minMemoryKB || params.Time < 1 || params.Parallelism < 1 {
		return params, nil, nil, errInvalidDigest
	}

	return params, salt, key, nil
}
