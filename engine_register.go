package secureauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kverac/secureauth/account"
	"github.com/kverac/secureauth/internal"
)

// Register describes the register operation and its observable behavior.
//
// Register creates the account and dispatches the email verification
// challenge. The account exists either way: a failed send is reported
// through the audit trail and recovered with ResendVerification, it does
// not roll the registration back.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*AccountInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	email := account.NormalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("invalid email address")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("name required")
	}

	digest, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = e.config.Account.DefaultRole
	}

	a := &account.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		Role:         role,
		PasswordHash: digest,
		CreatedAt:    time.Now().Unix(),
	}

	if err := e.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, auditEventRegister, a.ID, true, nil, nil)

	if err := e.sendVerification(ctx, a); err != nil {
		e.warn("secureauth: verification dispatch failed for %s: %v", a.ID, err)
	}

	return accountInfo(a), nil
}

func (e *Engine) sendVerification(ctx context.Context, a *account.Account) error {
	token, err := internal.NewChallengeToken()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if err := e.verification.Save(ctx, internal.DigestToken(token), a.ID, e.config.Verification.TTL); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if derr := e.notifier.SendEmail(ctx, a.Email,
		"Verify your email address",
		fmt.Sprintf("Use this token to verify your email address: %s", token)); derr != nil {
		e.metricInc(MetricDispatchFailed)
		e.emitAudit(ctx, auditEventDispatchFailure, a.ID, false, derr, map[string]string{
			"challenge": "verification",
		})
		return fmt.Errorf("%w: %v", ErrNotificationDispatchFailed, derr)
	}

	return nil
}

// VerifyEmail describes the verifyemail operation and its observable behavior.
//
// VerifyEmail redeems a verification token. Tokens are single use; an
// unknown, already redeemed, or superseded token fails the same way.
//
// VerifyEmail may return an error when input validation, dependency calls, or security checks fail.
// VerifyEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	accountID, err := e.verification.Consume(ctx, internal.DigestToken(token))
	if err != nil {
		if errors.Is(err, errChallengeNotFound) {
			return ErrVerificationInvalid
		}
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}

	if _, uerr := e.accounts.Update(ctx, accountID, func(a *account.Account) error {
		a.EmailVerified = true
		return nil
	}); uerr != nil {
		if errors.Is(uerr, account.ErrNotFound) {
			return ErrVerificationInvalid
		}
		return fmt.Errorf("%w: %v", ErrBackend, uerr)
	}

	e.metricInc(MetricEmailVerified)
	e.emitAudit(ctx, auditEventEmailVerify, accountID, true, nil, nil)
	return nil
}

// ResendVerification describes the resendverification operation and its observable behavior.
//
// ResendVerification mints a fresh verification token, invalidating the
// previous one, and dispatches it again.
//
// ResendVerification may return an error when input validation, dependency calls, or security checks fail.
// ResendVerification does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	a, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if a.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	return e.sendVerification(ctx, a)
}

// GetAccount describes the getaccount operation and its observable behavior.
//
// GetAccount may return an error when input validation, dependency calls, or security checks fail.
// GetAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetAccount(ctx context.Context, accountID string) (*AccountInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	a, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return accountInfo(a), nil
}
