package secureauth

import (
	"errors"
	"time"
)

// Config defines a public type used by secureauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT          JWTConfig
	Lockout      LockoutConfig
	Password     PasswordConfig
	TOTP         TOTPConfig
	Codes        CodeConfig
	BackupCodes  BackupCodeConfig
	Tokens       TokenConfig
	Verification VerificationConfig
	Reset        ResetConfig
	Account      AccountConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by secureauth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	TicketTTL     time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig defines a public type used by secureauth APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	MaxAttempts  int
	LockDuration time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by secureauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
MFA CONFIG
====================================
*/

// TOTPConfig defines a public type used by secureauth APIs.
//
// TOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPConfig struct {
	Issuer                  string
	Digits                  int
	Period                  int
	Skew                    int
	SecretLength            int
	EnforceReplayProtection bool
}

// CodeConfig governs the email and SMS one-time codes.
//
// CodeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CodeConfig struct {
	Digits int
	TTL    time.Duration
}

// BackupCodeConfig defines a public type used by secureauth APIs.
//
// BackupCodeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BackupCodeConfig struct {
	Count  int
	Length int
}

/*
====================================
TOKEN / CHALLENGE CONFIG
====================================
*/

// TokenConfig defines a public type used by secureauth APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// Retention keeps expired ledger rows around for audit before they
	// are garbage-collected.
	Retention time.Duration
}

// VerificationConfig defines a public type used by secureauth APIs.
//
// VerificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerificationConfig struct {
	TTL time.Duration
}

// ResetConfig defines a public type used by secureauth APIs.
//
// ResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResetConfig struct {
	TTL time.Duration
}

// AccountConfig defines a public type used by secureauth APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	DefaultRole string
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig defines a public type used by secureauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by secureauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			TicketTTL:  5 * time.Minute,
			Issuer:     "secureauth",
		},
		Lockout: LockoutConfig{
			MaxAttempts:  5,
			LockDuration: 15 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		TOTP: TOTPConfig{
			Issuer:                  "SecureAuth",
			Digits:                  6,
			Period:                  30,
			Skew:                    2,
			SecretLength:            20,
			EnforceReplayProtection: true,
		},
		Codes: CodeConfig{
			Digits: 6,
			TTL:    10 * time.Minute,
		},
		BackupCodes: BackupCodeConfig{
			Count:  10,
			Length: 8,
		},
		Tokens: TokenConfig{
			Retention: 7 * 24 * time.Hour,
		},
		Verification: VerificationConfig{
			TTL: 24 * time.Hour,
		},
		Reset: ResetConfig{
			TTL: 30 * time.Minute,
		},
		Account: AccountConfig{
			DefaultRole: "user",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = append([]byte(nil), cfg.JWT.AccessSecret...)
	out.JWT.RefreshSecret = append([]byte(nil), cfg.JWT.RefreshSecret...)
	return out
}

func validateConfig(cfg Config) error {
	if len(cfg.JWT.AccessSecret) < 32 || len(cfg.JWT.RefreshSecret) < 32 {
		return errors.New("jwt secrets must be at least 32 bytes")
	}
	if cfg.Lockout.MaxAttempts < 1 {
		return errors.New("lockout max attempts must be >= 1")
	}
	if cfg.Lockout.LockDuration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if cfg.TOTP.Digits < 6 || cfg.TOTP.Digits > 8 {
		return errors.New("totp digits must be between 6 and 8")
	}
	if cfg.TOTP.Period < 15 {
		return errors.New("totp period must be >= 15 seconds")
	}
	if cfg.TOTP.Skew < 0 || cfg.TOTP.Skew > 4 {
		return errors.New("totp skew must be between 0 and 4 steps")
	}
	if cfg.TOTP.SecretLength < 16 {
		return errors.New("totp secret length must be >= 16 bytes")
	}
	if cfg.Codes.Digits < 4 || cfg.Codes.Digits > 10 {
		return errors.New("code digits must be between 4 and 10")
	}
	if cfg.Codes.TTL <= 0 {
		return errors.New("code ttl must be positive")
	}
	if cfg.BackupCodes.Count < 1 || cfg.BackupCodes.Count > 64 {
		return errors.New("backup code count must be between 1 and 64")
	}
	if cfg.BackupCodes.Length < 6 || cfg.BackupCodes.Length > 32 {
		return errors.New("backup code length must be between 6 and 32")
	}
	if cfg.Tokens.Retention < 0 {
		return errors.New("token retention must not be negative")
	}
	if cfg.Verification.TTL <= 0 || cfg.Reset.TTL <= 0 {
		return errors.New("challenge ttls must be positive")
	}
	if cfg.Account.DefaultRole == "" {
		return errors.New("default role must not be empty")
	}
	return nil
}
