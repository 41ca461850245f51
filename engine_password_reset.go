package secureauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/internal"
)

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset dispatches a single-use reset token to the account
// email. An unknown email returns nil: the caller cannot learn which
// addresses are registered from this endpoint.
//
// RequestPasswordReset may return an error when input validation, dependency calls, or security checks fail.
// RequestPasswordReset does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	a, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			e.metricInc(MetricPasswordResetRequest)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	token, err := internal.NewChallengeToken()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if err := e.reset.Save(ctx, internal.DigestToken(token), a.ID, e.config.Reset.TTL); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if derr := e.notifier.SendEmail(ctx, a.Email,
		"Reset your password",
		fmt.Sprintf("Use this token to reset your password: %s. It expires in %d minutes.",
			token, int(e.config.Reset.TTL.Minutes()))); derr != nil {
		e.metricInc(MetricDispatchFailed)
		e.emitAudit(ctx, auditEventDispatchFailure, a.ID, false, derr, map[string]string{
			"challenge": "reset",
		})
		return fmt.Errorf("%w: %v", ErrNotificationDispatchFailed, derr)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordReset, a.ID, true, nil, map[string]string{
		"phase": "request",
	})
	return nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword redeems a reset token, installs the new password, clears
// any lockout, and revokes every live token the account owns. No session
// issued before the reset survives it.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// ResetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	digest, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}

	accountID, err := e.reset.Consume(ctx, internal.DigestToken(token))
	if err != nil {
		if errors.Is(err, errChallengeNotFound) {
			e.metricInc(MetricPasswordResetFailure)
			return ErrResetInvalid
		}
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if _, uerr := e.accounts.Update(ctx, accountID, func(a *account.Account) error {
		a.PasswordHash = digest
		clearLockout(a)
		return nil
	}); uerr != nil {
		if errors.Is(uerr, account.ErrNotFound) {
			return ErrResetInvalid
		}
		return fmt.Errorf("%w: %v", ErrBackend, uerr)
	}

	if revoked, rerr := e.tokens.RevokeAllForAccount(ctx, accountID); rerr != nil {
		e.warn("secureauth: post-reset revocation incomplete for %s (%d revoked): %v", accountID, revoked, rerr)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordReset, accountID, true, nil, map[string]string{
		"phase": "confirm",
	})
	return nil
}
