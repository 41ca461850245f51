package secureauth

import (
	"time"

	"github.com/kverac/secureauth/account"
)

// Lockout policy: pure decisions over the account's failed-attempt counter
// and lock timestamp. Counting is separated from storage so the
// threshold/window logic is testable without Redis; callers persist the
// mutated account through the store's CAS update.

// lockoutActive reports whether the account is inside its lock window.
// The comparison is strict: the lock disengages at the exact lockedUntil
// instant.
func lockoutActive(a *account.Account, now time.Time) bool {
	return a.LockedUntil != 0 && now.Unix() < a.LockedUntil
}

func lockoutRemaining(a *account.Account, now time.Time) time.Duration {
	if !lockoutActive(a, now) {
		return 0
	}
	return time.Unix(a.LockedUntil, 0).Sub(now)
}

// applyFailedAttempt increments the counter; reaching the threshold
// engages the lock and resets the counter to zero. Returns whether the
// lock engaged on this attempt.
func applyFailedAttempt(a *account.Account, cfg LockoutConfig, now time.Time) bool {
	a.FailedAttempts++
	if int(a.FailedAttempts) >= cfg.MaxAttempts {
		a.FailedAttempts = 0
		a.LockedUntil = now.Add(cfg.LockDuration).Unix()
		return true
	}
	return false
}

// clearLockout resets the counters after any successful password match.
func clearLockout(a *account.Account) {
	a.FailedAttempts = 0
	a.LockedUntil = 0
}

func attemptsLeft(a *account.Account, cfg LockoutConfig) int {
	left := cfg.MaxAttempts - int(a.FailedAttempts)
	if left < 0 {
		return 0
	}
	return left
}
