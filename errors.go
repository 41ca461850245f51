package secureauth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is an exported constant or variable used by the authentication engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountExists is an exported constant or variable used by the authentication engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound is an exported constant or variable used by the authentication engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmailUnverified is an exported constant or variable used by the authentication engine.
	ErrEmailUnverified = errors.New("email not verified")
	// ErrEmailAlreadyVerified is an exported constant or variable used by the authentication engine.
	ErrEmailAlreadyVerified = errors.New("email already verified")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is an exported constant or variable used by the authentication engine.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenRevoked is an exported constant or variable used by the authentication engine.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTicketInvalid is an exported constant or variable used by the authentication engine.
	ErrTicketInvalid = errors.New("invalid login ticket")
	// ErrTicketExpired is an exported constant or variable used by the authentication engine.
	ErrTicketExpired = errors.New("login ticket expired")
	// ErrMFANotEnabled is an exported constant or variable used by the authentication engine.
	ErrMFANotEnabled = errors.New("mfa not enabled")
	// ErrMFAMethodUnknown is an exported constant or variable used by the authentication engine.
	ErrMFAMethodUnknown = errors.New("unknown mfa method")
	// ErrInvalidMFACode is an exported constant or variable used by the authentication engine.
	ErrInvalidMFACode = errors.New("invalid mfa code")
	// ErrNoPendingCode is an exported constant or variable used by the authentication engine.
	ErrNoPendingCode = errors.New("no pending code")
	// ErrExpiredCode is an exported constant or variable used by the authentication engine.
	ErrExpiredCode = errors.New("code expired")
	// ErrMethodAlreadyConfigured is an exported constant or variable used by the authentication engine.
	ErrMethodAlreadyConfigured = errors.New("mfa method already configured")
	// ErrSetupNotPending is an exported constant or variable used by the authentication engine.
	ErrSetupNotPending = errors.New("no mfa setup pending")
	// ErrBackupCodeInvalid is an exported constant or variable used by the authentication engine.
	ErrBackupCodeInvalid = errors.New("invalid backup code")
	// ErrBackupCodesNotConfigured is an exported constant or variable used by the authentication engine.
	ErrBackupCodesNotConfigured = errors.New("backup codes not configured")
	// ErrPhoneNumberRequired is an exported constant or variable used by the authentication engine.
	ErrPhoneNumberRequired = errors.New("phone number required")
	// ErrNotificationDispatchFailed is an exported constant or variable used by the authentication engine.
	ErrNotificationDispatchFailed = errors.New("notification dispatch failed")
	// ErrVerificationInvalid is an exported constant or variable used by the authentication engine.
	ErrVerificationInvalid = errors.New("verification challenge invalid")
	// ErrResetInvalid is an exported constant or variable used by the authentication engine.
	ErrResetInvalid = errors.New("password reset challenge invalid")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBackend is an exported constant or variable used by the authentication engine.
	ErrBackend = errors.New("backend unavailable")
)

// CredentialError reports a failed password match. Its message and shape
// are identical for wrong-password and unknown-account so callers cannot
// enumerate registered emails; it unwraps to [ErrInvalidCredentials].
type CredentialError struct {
	AttemptsLeft int
}

// Error describes the error operation and its observable behavior.
func (e *CredentialError) Error() string {
	return ErrInvalidCredentials.Error()
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *CredentialError) Unwrap() error {
	return ErrInvalidCredentials
}

// LockedError reports a lockout-gated rejection together with the time
// until the lock disengages; it unwraps to [ErrAccountLocked].
type LockedError struct {
	RetryAfter time.Duration
}

// Error describes the error operation and its observable behavior.
func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrAccountLocked.Error(), e.RetryAfter)
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}
