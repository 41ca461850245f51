package secureauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/ledger"
)

// Login describes the login operation and its observable behavior.
//
// Login verifies the password and either issues a session immediately or,
// when a second factor is enabled, returns a transient ticket the caller
// must redeem through CompleteMFALogin. Unknown email and wrong password
// produce an indistinguishable CredentialError.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	now := time.Now()

	a, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			// Same error shape as a wrong password, with the attempt
			// budget a first-time failure would leave.
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLogin, "", false, ErrInvalidCredentials, nil)
			return nil, &CredentialError{AttemptsLeft: e.config.Lockout.MaxAttempts - 1}
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if lockoutActive(a, now) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLogin, a.ID, false, ErrAccountLocked, nil)
		return nil, &LockedError{RetryAfter: lockoutRemaining(a, now)}
	}

	ok, err := e.passwordHash.Verify(plainPassword, a.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if !ok {
		var left int
		var engaged bool
		updated, uerr := e.accounts.Update(ctx, a.ID, func(a *account.Account) error {
			// Re-check inside the serialized update: a concurrent failure
			// may have engaged the lock since the read above.
			if lockoutActive(a, now) {
				return ErrAccountLocked
			}
			engaged = applyFailedAttempt(a, e.config.Lockout, now)
			left = attemptsLeft(a, e.config.Lockout)
			return nil
		})
		if uerr != nil {
			if errors.Is(uerr, ErrAccountLocked) {
				e.metricInc(MetricLoginLocked)
				e.emitAudit(ctx, auditEventLogin, a.ID, false, ErrAccountLocked, nil)
				return nil, &LockedError{RetryAfter: lockoutRemaining(a, now)}
			}
			return nil, fmt.Errorf("%w: %v", ErrBackend, uerr)
		}

		e.metricInc(MetricLoginFailure)
		if engaged {
			e.metricInc(MetricLockoutEngaged)
			e.emitAudit(ctx, auditEventLockoutEngaged, a.ID, false, ErrAccountLocked, nil)
			return nil, &LockedError{RetryAfter: lockoutRemaining(updated, now)}
		}
		e.emitAudit(ctx, auditEventLogin, a.ID, false, ErrInvalidCredentials, nil)
		return nil, &CredentialError{AttemptsLeft: left}
	}

	if a.FailedAttempts > 0 || a.LockedUntil != 0 {
		if _, uerr := e.accounts.Update(ctx, a.ID, func(a *account.Account) error {
			clearLockout(a)
			return nil
		}); uerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackend, uerr)
		}
	}

	e.maybeUpgradeHash(ctx, a, plainPassword)

	if a.MFAEnabled {
		ticket, _, terr := e.jwtManager.CreateTicket(a.ID, a.MFAMethod.String())
		if terr != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackend, terr)
		}
		e.metricInc(MetricMFARequired)
		e.emitAudit(ctx, auditEventMFAChallenge, a.ID, true, nil, map[string]string{
			"method": a.MFAMethod.String(),
		})
		return &LoginResult{
			MFARequired:     true,
			MFAMethod:       a.MFAMethod,
			TransientTicket: ticket,
		}, nil
	}

	result, err := e.issueSessionTokens(ctx, a.ID, now)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLogin, a.ID, true, nil, nil)
	return result, nil
}

// issueSessionTokens mints the access/refresh pair and stamps the login
// time. The stamp is best effort; a failure there never voids the session.
func (e *Engine) issueSessionTokens(ctx context.Context, accountID string, now time.Time) (*LoginResult, error) {
	access, err := e.tokens.Issue(ctx, accountID, ledger.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	refresh, err := e.tokens.Issue(ctx, accountID, ledger.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	e.metricInc(MetricTokenIssued)
	e.metricInc(MetricTokenIssued)

	if _, uerr := e.accounts.Update(ctx, accountID, func(a *account.Account) error {
		a.LastLoginAt = now.Unix()
		return nil
	}); uerr != nil {
		e.warn("secureauth: last login stamp failed for %s: %v", accountID, uerr)
	}

	return &LoginResult{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
	}, nil
}

// maybeUpgradeHash transparently re-hashes the password when parameters
// have been strengthened since the digest was minted. Best effort.
func (e *Engine) maybeUpgradeHash(ctx context.Context, a *account.Account, plainPassword string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}

	needs, err := e.passwordHash.NeedsUpgrade(a.PasswordHash)
	if err != nil || !needs {
		return
	}

	digest, err := e.passwordHash.Hash(plainPassword)
	if err != nil {
		e.warn("secureauth: hash upgrade failed for %s: %v", a.ID, err)
		return
	}

	if _, uerr := e.accounts.Update(ctx, a.ID, func(a *account.Account) error {
		a.PasswordHash = digest
		return nil
	}); uerr != nil {
		e.warn("secureauth: hash upgrade write failed for %s: %v", a.ID, uerr)
	}
}
