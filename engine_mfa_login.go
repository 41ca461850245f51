package secureauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/jwt"
)

// ticketAccount resolves the transient ticket back to its account. The
// ticket only proves a fresh password check; it grants nothing else.
func (e *Engine) ticketAccount(ctx context.Context, ticket string) (*account.Account, error) {
	claims, err := e.jwtManager.Verify(ticket, jwt.KindTicket)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTicketExpired
		}
		return nil, ErrTicketInvalid
	}

	a, err := e.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrTicketInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return a, nil
}

// CompleteMFALogin describes the completemfalogin operation and its observable behavior.
//
// CompleteMFALogin redeems a transient ticket with a second-factor code,
// or with a single-use backup code when isBackupCode is set. On success it
// issues the access/refresh pair the first login phase withheld.
//
// CompleteMFALogin may return an error when input validation, dependency calls, or security checks fail.
// CompleteMFALogin does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CompleteMFALogin(ctx context.Context, ticket, code string, isBackupCode bool) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	now := time.Now()

	a, err := e.ticketAccount(ctx, ticket)
	if err != nil {
		e.metricInc(MetricMFALoginFailure)
		return nil, err
	}
	if !a.MFAEnabled {
		return nil, ErrMFANotEnabled
	}

	if isBackupCode {
		return e.completeWithBackupCode(ctx, a, code, now)
	}

	impl, err := e.method(a.MFAMethod)
	if err != nil {
		return nil, err
	}

	var verifyErr error
	if _, uerr := e.accounts.Update(ctx, a.ID, func(a *account.Account) error {
		// The closure returns nil on a failed code too: failure paths
		// mutate state (consumed pending code, cleared expiry) that must
		// persist. The verification verdict travels out of band.
		verifyErr = impl.verifyLogin(a, code, now)
		return nil
	}); uerr != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, uerr)
	}

	if verifyErr != nil {
		e.metricInc(MetricMFALoginFailure)
		e.emitAudit(ctx, auditEventMFALogin, a.ID, false, verifyErr, map[string]string{
			"method": a.MFAMethod.String(),
		})
		return nil, verifyErr
	}

	result, err := e.issueSessionTokens(ctx, a.ID, now)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricMFALoginSuccess)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventMFALogin, a.ID, true, nil, map[string]string{
		"method": a.MFAMethod.String(),
	})
	return result, nil
}

func (e *Engine) completeWithBackupCode(ctx context.Context, a *account.Account, code string, now time.Time) (*LoginResult, error) {
	// Backup codes only back the authenticator-app factor. Delivered-code
	// factors recover by requesting another code.
	if a.MFAMethod != account.MethodTOTP {
		return nil, ErrBackupCodesNotConfigured
	}
	if len(a.BackupCodes) == 0 {
		return nil, ErrBackupCodesNotConfigured
	}

	var consumed bool
	if _, uerr := e.accounts.Update(ctx, a.ID, func(a *account.Account) error {
		consumed = consumeBackupCode(a.BackupCodes, code)
		return nil
	}); uerr != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, uerr)
	}

	if !consumed {
		e.metricInc(MetricBackupCodeFailed)
		e.metricInc(MetricMFALoginFailure)
		e.emitAudit(ctx, auditEventBackupCode, a.ID, false, ErrBackupCodeInvalid, nil)
		return nil, ErrBackupCodeInvalid
	}

	result, err := e.issueSessionTokens(ctx, a.ID, now)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricBackupCodeUsed)
	e.metricInc(MetricMFALoginSuccess)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventBackupCode, a.ID, true, nil, nil)
	return result, nil
}

// SendLoginCode describes the sendlogincode operation and its observable behavior.
//
// SendLoginCode dispatches a fresh one-time code for a ticket whose factor
// delivers codes out of band. Calling it again invalidates the previous
// code. It rejects tickets for the authenticator-app factor.
//
// SendLoginCode may return an error when input validation, dependency calls, or security checks fail.
// SendLoginCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SendLoginCode(ctx context.Context, ticket string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	now := time.Now()

	a, err := e.ticketAccount(ctx, ticket)
	if err != nil {
		return err
	}
	if !a.MFAEnabled {
		return ErrMFANotEnabled
	}

	impl, err := e.method(a.MFAMethod)
	if err != nil {
		return err
	}
	sender, ok := impl.(codeSender)
	if !ok {
		return ErrMFAMethodUnknown
	}

	var artifacts *setupArtifacts
	if _, uerr := e.accounts.Update(ctx, a.ID, func(a *account.Account) error {
		art, serr := sender.sendLoginCode(a, now)
		if serr != nil {
			return serr
		}
		artifacts = art
		return nil
	}); uerr != nil {
		if errors.Is(uerr, ErrPhoneNumberRequired) {
			return uerr
		}
		if errors.Is(uerr, ErrBackend) {
			return uerr
		}
		return fmt.Errorf("%w: %v", ErrBackend, uerr)
	}

	if derr := artifacts.dispatch(ctx); derr != nil {
		if _, rerr := e.accounts.Update(ctx, a.ID, func(a *account.Account) error {
			artifacts.rollback(a)
			return nil
		}); rerr != nil {
			e.warn("secureauth: login code rollback failed for %s: %v", a.ID, rerr)
		}
		e.metricInc(MetricDispatchFailed)
		e.emitAudit(ctx, auditEventDispatchFailure, a.ID, false, derr, map[string]string{
			"method": a.MFAMethod.String(),
		})
		return fmt.Errorf("%w: %v", ErrNotificationDispatchFailed, derr)
	}

	e.metricInc(MetricLoginCodeSent)
	e.emitAudit(ctx, auditEventMFAChallenge, a.ID, true, nil, map[string]string{
		"method": a.MFAMethod.String(),
		"sent":   "true",
	})
	return nil
}
