package account

import (
	"strings"
	"time"
)

// MFAMethod defines a public type used by secureauth APIs.
//
// MFAMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MFAMethod uint8

const (
	// MethodNone is an exported constant or variable used by the authentication engine.
	MethodNone MFAMethod = iota
	// MethodTOTP is an exported constant or variable used by the authentication engine.
	MethodTOTP
	// MethodEmail is an exported constant or variable used by the authentication engine.
	MethodEmail
	// MethodSMS is an exported constant or variable used by the authentication engine.
	MethodSMS
)

// String describes the string operation and its observable behavior.
func (m MFAMethod) String() string {
	switch m {
	case MethodTOTP:
		return "totp"
	case MethodEmail:
		return "email"
	case MethodSMS:
		return "sms"
	default:
		return "none"
	}
}

// ParseMFAMethod describes the parsemfamethod operation and its observable behavior.
//
// ParseMFAMethod may return an error when input validation, dependency calls, or security checks fail.
func ParseMFAMethod(s string) (MFAMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "totp":
		return MethodTOTP, true
	case "email":
		return MethodEmail, true
	case "sms":
		return MethodSMS, true
	case "", "none":
		return MethodNone, true
	default:
		return MethodNone, false
	}
}

// MFAState is the derived second-factor state of an account.
type MFAState uint8

const (
	// MFADisabled is an exported constant or variable used by the authentication engine.
	MFADisabled MFAState = iota
	// MFASetupPending is an exported constant or variable used by the authentication engine.
	MFASetupPending
	// MFAEnabled is an exported constant or variable used by the authentication engine.
	MFAEnabled
)

// BackupCode is a single-use fallback credential. The code is stored in a
// form that permits later exact-string comparison (case-sensitive), unlike
// the one-way hashed email/SMS codes.
type BackupCode struct {
	Code string
	Used bool
}

// PendingCode holds the salted digest of an outstanding email or SMS
// one-time code. The zero value means no code is pending; writing a new
// pending code overwrites any prior one for the same method.
type PendingCode struct {
	Digest    [32]byte
	Salt      [16]byte
	ExpiresAt int64
}

// Present describes the present operation and its observable behavior.
func (p PendingCode) Present() bool {
	return p.ExpiresAt != 0
}

// Expired describes the expired operation and its observable behavior.
func (p PendingCode) Expired(now time.Time) bool {
	return p.Present() && now.Unix() >= p.ExpiresAt
}

// Account is the full credential record. The password hash and TOTP secret
// never leave this package's consumers in sanitized views.
//
// Account instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Account struct {
	ID            string
	Email         string
	Name          string
	Role          string
	PasswordHash  string
	EmailVerified bool

	FailedAttempts uint32
	LockedUntil    int64

	MFAEnabled      bool
	MFAMethod       MFAMethod
	SetupMethod     MFAMethod
	TOTPSecret      []byte
	TOTPLastCounter int64
	BackupCodes     []BackupCode
	PhoneNumber     string
	EmailPending    PendingCode
	SMSPending      PendingCode

	LastLoginAt int64
	CreatedAt   int64
}

// MFAState describes the mfastate operation and its observable behavior.
func (a *Account) MFAState() MFAState {
	switch {
	case a.MFAEnabled && a.MFAMethod != MethodNone:
		return MFAEnabled
	case a.SetupMethod != MethodNone:
		return MFASetupPending
	default:
		return MFADisabled
	}
}

// PendingFor returns the pending-code slot for an email or SMS method,
// or nil for methods that carry no pending code.
func (a *Account) PendingFor(m MFAMethod) *PendingCode {
	switch m {
	case MethodEmail:
		return &a.EmailPending
	case MethodSMS:
		return &a.SMSPending
	default:
		return nil
	}
}

// ClearPending describes the clearpending operation and its observable behavior.
func (a *Account) ClearPending(m MFAMethod) {
	if p := a.PendingFor(m); p != nil {
		*p = PendingCode{}
	}
}

// ClearMFA wipes the full second-factor configuration: method, secret,
// backup codes, and pending-code state across all methods.
func (a *Account) ClearMFA() {
	a.MFAEnabled = false
	a.MFAMethod = MethodNone
	a.SetupMethod = MethodNone
	a.TOTPSecret = nil
	a.TOTPLastCounter = 0
	a.BackupCodes = nil
	a.EmailPending = PendingCode{}
	a.SMSPending = PendingCode{}
}

// NormalizeEmail lowercases and trims an email address so the unique email
// index is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
