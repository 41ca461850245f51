package secureauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kverac/secureauth/account"
)

// StartMFASetup describes the startmfasetup operation and its observable behavior.
//
// StartMFASetup stages a second factor on the account. TOTP returns
// provisioning artifacts; email and SMS dispatch a confirmation code.
// Restarting a setup replaces whatever was staged before.
//
// StartMFASetup may return an error when input validation, dependency calls, or security checks fail.
// StartMFASetup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) StartMFASetup(ctx context.Context, accountID string, method account.MFAMethod, phoneNumber string) (*MFASetupResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	now := time.Now()

	impl, err := e.method(method)
	if err != nil {
		return nil, err
	}

	var artifacts *setupArtifacts
	if _, uerr := e.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if a.MFAEnabled && a.MFAMethod == method {
			return ErrMethodAlreadyConfigured
		}
		art, serr := impl.startSetup(a, phoneNumber, now)
		if serr != nil {
			return serr
		}
		artifacts = art
		return nil
	}); uerr != nil {
		switch {
		case errors.Is(uerr, account.ErrNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(uerr, ErrMethodAlreadyConfigured),
			errors.Is(uerr, ErrEmailUnverified),
			errors.Is(uerr, ErrPhoneNumberRequired),
			errors.Is(uerr, ErrBackend):
			return nil, uerr
		default:
			return nil, fmt.Errorf("%w: %v", ErrBackend, uerr)
		}
	}

	if artifacts.dispatch != nil {
		if derr := artifacts.dispatch(ctx); derr != nil {
			if _, rerr := e.accounts.Update(ctx, accountID, func(a *account.Account) error {
				artifacts.rollback(a)
				return nil
			}); rerr != nil {
				e.warn("secureauth: setup rollback failed for %s: %v", accountID, rerr)
			}
			e.metricInc(MetricDispatchFailed)
			e.emitAudit(ctx, auditEventDispatchFailure, accountID, false, derr, map[string]string{
				"method": method.String(),
			})
			return nil, fmt.Errorf("%w: %v", ErrNotificationDispatchFailed, derr)
		}
	}

	e.metricInc(MetricMFASetupStarted)
	e.emitAudit(ctx, auditEventMFASetup, accountID, true, nil, map[string]string{
		"method": method.String(),
	})

	return &MFASetupResult{
		Method: method,
		TOTP:   artifacts.totp,
	}, nil
}

// ConfirmMFASetup describes the confirmmfasetup operation and its observable behavior.
//
// ConfirmMFASetup settles a staged setup with the code the user produced.
// On success the factor becomes the account's active method; confirming
// the authenticator-app factor also mints the batch of single-use backup
// codes, returned in plaintext exactly once.
//
// ConfirmMFASetup may return an error when input validation, dependency calls, or security checks fail.
// ConfirmMFASetup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ConfirmMFASetup(ctx context.Context, accountID string, method account.MFAMethod, code string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	now := time.Now()

	impl, err := e.method(method)
	if err != nil {
		return nil, err
	}

	var confirmErr error
	var plainCodes []string
	if _, uerr := e.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if a.SetupMethod != method {
			return ErrSetupNotPending
		}

		// Both outcomes persist: success enables the factor, failure
		// discards the staged state. The verdict travels out of band.
		confirmErr = impl.confirm(a, code, now)
		if confirmErr != nil {
			return nil
		}

		if method == account.MethodTOTP {
			records, plain, berr := newBackupCodes(e.config.BackupCodes.Count, e.config.BackupCodes.Length)
			if berr != nil {
				return fmt.Errorf("%w: %v", ErrBackend, berr)
			}
			a.BackupCodes = records
			plainCodes = plain
		}
		return nil
	}); uerr != nil {
		switch {
		case errors.Is(uerr, account.ErrNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(uerr, ErrSetupNotPending), errors.Is(uerr, ErrBackend):
			return nil, uerr
		default:
			return nil, fmt.Errorf("%w: %v", ErrBackend, uerr)
		}
	}

	if confirmErr != nil {
		e.emitAudit(ctx, auditEventMFAConfirm, accountID, false, confirmErr, map[string]string{
			"method": method.String(),
		})
		return nil, confirmErr
	}

	e.metricInc(MetricMFASetupConfirmed)
	e.emitAudit(ctx, auditEventMFAConfirm, accountID, true, nil, map[string]string{
		"method": method.String(),
	})
	return plainCodes, nil
}

// DisableMFA describes the disablemfa operation and its observable behavior.
//
// DisableMFA turns the second factor off after a fresh password re-proof.
// It scrubs the factor material: secret, backup codes, pending state.
//
// DisableMFA may return an error when input validation, dependency calls, or security checks fail.
// DisableMFA does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DisableMFA(ctx context.Context, accountID, plainPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	a, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !a.MFAEnabled {
		return ErrMFANotEnabled
	}

	ok, err := e.passwordHash.Verify(plainPassword, a.PasswordHash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !ok {
		e.emitAudit(ctx, auditEventMFADisable, accountID, false, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if _, uerr := e.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if !a.MFAEnabled {
			return ErrMFANotEnabled
		}
		a.ClearMFA()
		return nil
	}); uerr != nil {
		if errors.Is(uerr, ErrMFANotEnabled) {
			return uerr
		}
		return fmt.Errorf("%w: %v", ErrBackend, uerr)
	}

	e.metricInc(MetricMFADisabled)
	e.emitAudit(ctx, auditEventMFADisable, accountID, true, nil, nil)
	return nil
}

// RegenerateBackupCodes describes the regeneratebackupcodes operation and its observable behavior.
//
// RegenerateBackupCodes replaces the whole batch after a fresh
// authenticator-app code. Spent and unspent codes alike stop working.
//
// RegenerateBackupCodes may return an error when input validation, dependency calls, or security checks fail.
// RegenerateBackupCodes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, accountID, totpCode string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	now := time.Now()

	impl, err := e.method(account.MethodTOTP)
	if err != nil {
		return nil, err
	}

	var verifyErr error
	var plainCodes []string
	if _, uerr := e.accounts.Update(ctx, accountID, func(a *account.Account) error {
		if !a.MFAEnabled || a.MFAMethod != account.MethodTOTP {
			return ErrMFANotEnabled
		}

		verifyErr = impl.verifyLogin(a, totpCode, now)
		if verifyErr != nil {
			return nil
		}

		records, plain, berr := newBackupCodes(e.config.BackupCodes.Count, e.config.BackupCodes.Length)
		if berr != nil {
			return fmt.Errorf("%w: %v", ErrBackend, berr)
		}
		a.BackupCodes = records
		plainCodes = plain
		return nil
	}); uerr != nil {
		switch {
		case errors.Is(uerr, account.ErrNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(uerr, ErrMFANotEnabled), errors.Is(uerr, ErrBackend):
			return nil, uerr
		default:
			return nil, fmt.Errorf("%w: %v", ErrBackend, uerr)
		}
	}

	if verifyErr != nil {
		return nil, verifyErr
	}

	e.emitAudit(ctx, auditEventBackupCode, accountID, true, nil, map[string]string{
		"regenerated": "true",
	})
	return plainCodes, nil
}
